package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/posedb"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func TestE2E_CaptureAndMatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// Create the pose over the API
	resp, err := client.Post(
		ts.URL+"/api/poses",
		"application/json",
		strings.NewReader(`{"name": "fist"}`),
	)
	if err != nil {
		t.Fatalf("create pose error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create pose status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// Record reference samples; the recorder reuses the pose created above
	matcher := pose.NewMatcher()
	recorder := pose.NewRecorder(s, matcher)

	if err := recorder.Begin("fist"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		hand := detector.FistLandmarks()
		if _, err := recorder.Capture(&hand); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
	}
	if _, _, err := recorder.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	// The recorded pose matches the same hand exactly
	fist := detector.FistLandmarks()
	ranking, err := matcher.Rank(&fist)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	best, ok := ranking.Best()
	if !ok {
		t.Fatal("expected a best entry")
	}
	if best.Label != "fist" || !best.Within {
		t.Errorf("best = %+v, want fist within tolerance", best)
	}

	// A clearly different hand does not land within tolerance
	palm := detector.OpenPalmLandmarks()
	ranking, err = matcher.Rank(&palm)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if best, ok := ranking.Best(); ok && best.Within {
		t.Errorf("open palm matched fist within tolerance (score %.3f)", best.Score)
	}

	// The sample count is visible over the API
	resp, err = client.Get(ts.URL + "/api/poses")
	if err != nil {
		t.Fatalf("list poses error = %v", err)
	}
	var listed struct {
		Poses []struct {
			Name    string `json:"name"`
			Samples int    `json:"samples"`
		} `json:"poses"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Poses) != 1 {
		t.Fatalf("len(poses) = %d, want 1", len(listed.Poses))
	}
	if listed.Poses[0].Samples != 3 {
		t.Errorf("samples = %d, want 3", listed.Poses[0].Samples)
	}
}

func TestE2E_ActionBinding(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "data.db"))
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	resp, err := client.Post(
		ts.URL+"/api/poses",
		"application/json",
		strings.NewReader(`{"name": "open_palm"}`),
	)
	if err != nil {
		t.Fatalf("create pose error = %v", err)
	}

	var poseResp struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&poseResp)
	resp.Body.Close()

	actionBody, _ := json.Marshal(map[string]interface{}{
		"pose_id":     poseResp.ID,
		"plugin_name": "keyboard",
		"action_name": "shortcut",
		"config":      map[string]interface{}{"key": "space"},
	})

	resp, err = client.Post(
		ts.URL+"/api/actions",
		"application/json",
		strings.NewReader(string(actionBody)),
	)
	if err != nil {
		t.Fatalf("create action error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("create action status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	resp, err = client.Get(ts.URL + "/api/actions")
	if err != nil {
		t.Fatalf("list actions error = %v", err)
	}

	var listResp struct {
		Actions []struct {
			ID         string `json:"id"`
			PoseID     string `json:"pose_id"`
			PluginName string `json:"plugin_name"`
			ActionName string `json:"action_name"`
			Enabled    bool   `json:"enabled"`
		} `json:"actions"`
	}
	json.NewDecoder(resp.Body).Decode(&listResp)
	resp.Body.Close()

	if len(listResp.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(listResp.Actions))
	}
	if listResp.Actions[0].PoseID != poseResp.ID {
		t.Errorf("action pose_id mismatch: got %s, want %s", listResp.Actions[0].PoseID, poseResp.ID)
	}
	if !listResp.Actions[0].Enabled {
		t.Error("new action should be enabled")
	}
}

func TestE2E_ExportImportRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	src, _ := store.New(filepath.Join(tmpDir, "src.db"))
	defer src.Close()

	// Record two poses into the source store
	matcher := pose.NewMatcher()
	recorder := pose.NewRecorder(src, matcher)
	for _, rec := range []struct {
		label string
		hand  detector.HandLandmarks
	}{
		{"fist", detector.FistLandmarks()},
		{"pointing", detector.PointingLandmarks()},
	} {
		if err := recorder.Begin(rec.label); err != nil {
			t.Fatalf("Begin(%q) error = %v", rec.label, err)
		}
		hand := rec.hand
		if _, err := recorder.Capture(&hand); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if _, _, err := recorder.Finish(); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
	}

	// Export to the flat-file format
	exportDir := filepath.Join(tmpDir, "export")
	db, err := posedb.FromStore(src)
	if err != nil {
		t.Fatalf("FromStore() error = %v", err)
	}
	if err := posedb.Save(exportDir, db); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Import into a fresh store
	dst, _ := store.New(filepath.Join(tmpDir, "dst.db"))
	defer dst.Close()

	loaded, err := posedb.Load(exportDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := posedb.ImportInto(loaded, dst); err != nil {
		t.Fatalf("ImportInto() error = %v", err)
	}

	// The imported store classifies the same way
	restored := pose.NewMatcher()
	if err := loaded.Hydrate(restored); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}

	pointing := detector.PointingLandmarks()
	ranking, err := restored.Rank(&pointing)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	best, ok := ranking.Best()
	if !ok || best.Label != "pointing" || !best.Within {
		t.Errorf("best = %+v, want pointing within tolerance", best)
	}
}
