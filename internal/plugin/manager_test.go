package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, pluginDir, name, content string) {
	t.Helper()

	dir := filepath.Join(pluginDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	pluginDir := t.TempDir()

	writeManifest(t, pluginDir, "keyboard",
		`{"name": "keyboard", "version": "1.0.0", "executable": "keyboard", "actions": ["press"]}`)
	writeManifest(t, pluginDir, "notify",
		`{"name": "notify", "version": "0.2.0", "executable": "notify.sh", "actions": ["send"]}`)

	m := NewManager(pluginDir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(m.List()) != 2 {
		t.Errorf("discovered %d plugins, want 2", len(m.List()))
	}

	p, err := m.Get("keyboard")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Manifest.Version != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", p.Manifest.Version)
	}
	if p.Executable != filepath.Join(pluginDir, "keyboard", "keyboard") {
		t.Errorf("executable = %q", p.Executable)
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	pluginDir := t.TempDir()

	writeManifest(t, pluginDir, "good",
		`{"name": "good", "version": "1.0.0", "executable": "good"}`)
	writeManifest(t, pluginDir, "broken", `{not json`)

	// Directory without a manifest
	if err := os.MkdirAll(filepath.Join(pluginDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	m := NewManager(pluginDir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(m.List()) != 1 {
		t.Errorf("discovered %d plugins, want 1", len(m.List()))
	}
	if _, err := m.Get("broken"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get(broken) error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))

	if err := m.Discover(); err != nil {
		t.Errorf("Discover() on missing dir: error = %v", err)
	}
	if len(m.List()) != 0 {
		t.Errorf("discovered %d plugins from missing dir", len(m.List()))
	}
}

func TestManager_Rediscover_Replaces(t *testing.T) {
	pluginDir := t.TempDir()
	writeManifest(t, pluginDir, "old",
		`{"name": "old", "version": "1.0.0", "executable": "old"}`)

	m := NewManager(pluginDir)
	m.Discover()

	if err := os.RemoveAll(filepath.Join(pluginDir, "old")); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, pluginDir, "new",
		`{"name": "new", "version": "1.0.0", "executable": "new"}`)

	m.Discover()

	if _, err := m.Get("old"); !errors.Is(err, ErrPluginNotFound) {
		t.Error("stale plugin should be gone after rediscovery")
	}
	if _, err := m.Get("new"); err != nil {
		t.Errorf("new plugin not found after rediscovery: %v", err)
	}
}
