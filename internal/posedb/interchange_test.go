package posedb

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// recordThrough runs hands through a recorder session so the store holds
// them the same way live capture would.
func recordThrough(t *testing.T, s *store.Store, label string, hands ...detector.HandLandmarks) {
	t.Helper()

	rec := pose.NewRecorder(s, pose.NewMatcher())
	if err := rec.Begin(label); err != nil {
		t.Fatalf("Begin(%q) failed: %v", label, err)
	}
	for i := range hands {
		if _, err := rec.Capture(&hands[i]); err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
	}
	if _, _, err := rec.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestFromStore(t *testing.T) {
	s := newTestStore(t)
	recordThrough(t, s, "fist", detector.FistLandmarks(), detector.FistLandmarks())
	recordThrough(t, s, "open_palm", detector.OpenPalmLandmarks())

	db, err := FromStore(s)
	if err != nil {
		t.Fatalf("FromStore failed: %v", err)
	}

	if len(db.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(db.Labels))
	}
	if db.Labels[0] != "fist" || db.Labels[1] != "open_palm" {
		t.Errorf("labels = %v, want creation order [fist open_palm]", db.Labels)
	}
	if len(db.Samples["fist"]) != 2 {
		t.Errorf("fist has %d samples, want 2", len(db.Samples["fist"]))
	}
	if len(db.Samples["open_palm"]) != 1 {
		t.Errorf("open_palm has %d samples, want 1", len(db.Samples["open_palm"]))
	}
	for _, s := range db.Samples["fist"] {
		if len(s) != pose.SampleLen {
			t.Errorf("sample has %d values, want %d", len(s), pose.SampleLen)
		}
	}
}

func TestImportInto(t *testing.T) {
	s := newTestStore(t)

	db := NewDatabase()
	fist := detector.FistLandmarks()
	sample, err := pose.SampleFromLandmarks(&fist)
	if err != nil {
		t.Fatalf("SampleFromLandmarks failed: %v", err)
	}
	if err := db.Add("fist", sample); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := ImportInto(db, s); err != nil {
		t.Fatalf("ImportInto failed: %v", err)
	}

	p, err := s.Poses().GetByName("fist")
	if err != nil {
		t.Fatalf("imported pose not in store: %v", err)
	}
	samples, err := s.Samples().GetByPoseID(p.ID)
	if err != nil {
		t.Fatalf("failed to get samples: %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("expected 1 imported sample, got %d", len(samples))
	}
}

func TestImportInto_AppendsToExistingLabel(t *testing.T) {
	s := newTestStore(t)
	recordThrough(t, s, "fist", detector.FistLandmarks())

	db := NewDatabase()
	fist := detector.FistLandmarks()
	sample, _ := pose.SampleFromLandmarks(&fist)
	db.Add("fist", sample)

	if err := ImportInto(db, s); err != nil {
		t.Fatalf("ImportInto failed: %v", err)
	}

	p, err := s.Poses().GetByName("fist")
	if err != nil {
		t.Fatalf("failed to get pose: %v", err)
	}
	samples, err := s.Samples().GetByPoseID(p.ID)
	if err != nil {
		t.Fatalf("failed to get samples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples after import, got %d", len(samples))
	}
	for i, sample := range samples {
		if sample.SampleIndex != i {
			t.Errorf("sample %d has index %d, want a continuous sequence", i, sample.SampleIndex)
		}
	}
}

func TestRoundTrip_StoreToDirToStore(t *testing.T) {
	src := newTestStore(t)
	recordThrough(t, src, "fist", detector.FistLandmarks())
	recordThrough(t, src, "pointing", detector.PointingLandmarks())

	db, err := FromStore(src)
	if err != nil {
		t.Fatalf("FromStore failed: %v", err)
	}

	dir := t.TempDir()
	if err := Save(dir, db); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dst := newTestStore(t)
	if err := ImportInto(loaded, dst); err != nil {
		t.Fatalf("ImportInto failed: %v", err)
	}

	// The imported database must classify the same hand the same way
	m := pose.NewMatcher()
	if err := loaded.Hydrate(m); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}

	fist := detector.FistLandmarks()
	ranking, err := m.Rank(&fist)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	best, ok := ranking.Best()
	if !ok {
		t.Fatal("expected a best entry")
	}
	if best.Label != "fist" || best.Score > 1e-9 {
		t.Errorf("best = %q (%.6f), want exact fist match", best.Label, best.Score)
	}
}
