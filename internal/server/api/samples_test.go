package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/mudra/internal/store"
)

func createSamplePose(t *testing.T, s *store.Store) {
	t.Helper()

	p := &store.Pose{ID: "pose-1", Name: "fist", Tolerance: 0.25}
	if err := s.Poses().Create(p); err != nil {
		t.Fatalf("failed to create pose: %v", err)
	}
}

func TestSamplesHandler_Create(t *testing.T) {
	s := newTestStore(t)
	createSamplePose(t, s)
	handler := NewSamplesHandler(s)

	body, _ := json.Marshal(createSamplesRequest{
		Samples: []json.RawMessage{
			json.RawMessage(`{"seq":0}`),
			json.RawMessage(`{"seq":1}`),
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/poses/pose-1/samples", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	samples, err := s.Samples().GetByPoseID("pose-1")
	if err != nil {
		t.Fatalf("failed to get samples: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("expected 2 samples in store, got %d", len(samples))
	}
}

func TestSamplesHandler_Create_PoseNotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewSamplesHandler(s)

	body, _ := json.Marshal(createSamplesRequest{
		Samples: []json.RawMessage{json.RawMessage(`{}`)},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/poses/missing/samples", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSamplesHandler_Create_Empty(t *testing.T) {
	s := newTestStore(t)
	createSamplePose(t, s)
	handler := NewSamplesHandler(s)

	req := httptest.NewRequest(http.MethodPost, "/api/poses/pose-1/samples",
		bytes.NewReader([]byte(`{"samples":[]}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSamplesHandler_List(t *testing.T) {
	s := newTestStore(t)
	createSamplePose(t, s)
	handler := NewSamplesHandler(s)

	err := s.Samples().Append("pose-1", []json.RawMessage{
		json.RawMessage(`{"seq":0}`),
		json.RawMessage(`{"seq":1}`),
		json.RawMessage(`{"seq":2}`),
	})
	if err != nil {
		t.Fatalf("failed to append samples: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/poses/pose-1/samples", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listSamplesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(response.Samples))
	}
	for i, sample := range response.Samples {
		if sample.SampleIndex != i {
			t.Errorf("sample %d has index %d, want recorded order", i, sample.SampleIndex)
		}
	}
}

func TestSamplesHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	createSamplePose(t, s)
	handler := NewSamplesHandler(s)

	err := s.Samples().Append("pose-1", []json.RawMessage{json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("failed to append samples: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/poses/pose-1/samples", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	samples, err := s.Samples().GetByPoseID("pose-1")
	if err != nil {
		t.Fatalf("failed to get samples: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("expected no samples after delete, got %d", len(samples))
	}
}

func TestSamplesHandler_BadPath(t *testing.T) {
	s := newTestStore(t)
	handler := NewSamplesHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/poses/pose-1/other", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
