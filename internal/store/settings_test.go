package store

import "testing"

func TestSettingRepository_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("camera_id", "0"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}

	value, err := repo.Get("camera_id")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if value != "0" {
		t.Errorf("value = %q, want %q", value, "0")
	}
}

func TestSettingRepository_Set_Overwrites(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("motion_threshold", "1.0"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	if err := repo.Set("motion_threshold", "2.5"); err != nil {
		t.Fatalf("failed to overwrite setting: %v", err)
	}

	value, err := repo.Get("motion_threshold")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if value != "2.5" {
		t.Errorf("value = %q, want %q", value, "2.5")
	}
}

func TestSettingRepository_Get_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Settings().Get("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown key, got: %v", err)
	}
}
