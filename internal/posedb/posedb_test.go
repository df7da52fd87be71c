package posedb

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pose"
)

func sampleFor(t *testing.T, h detector.HandLandmarks) pose.Sample {
	t.Helper()
	s, err := pose.SampleFromLandmarks(&h)
	if err != nil {
		t.Fatalf("SampleFromLandmarks() error = %v", err)
	}
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	db := NewDatabase()
	db.Add("palm", sampleFor(t, detector.OpenPalmLandmarks()))
	db.Add("palm", sampleFor(t, detector.OpenPalmLandmarks()))
	db.Add("fist", sampleFor(t, detector.FistLandmarks()))

	if err := Save(dir, db); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded.Labels) != 2 || loaded.Labels[0] != "palm" || loaded.Labels[1] != "fist" {
		t.Fatalf("labels = %v, want [palm fist]", loaded.Labels)
	}

	if len(loaded.Samples["palm"]) != 2 || len(loaded.Samples["fist"]) != 1 {
		t.Fatalf("sample counts = %d/%d, want 2/1",
			len(loaded.Samples["palm"]), len(loaded.Samples["fist"]))
	}

	// Values survive byte-exactly
	for label, want := range db.Samples {
		for i, s := range want {
			got := loaded.Samples[label][i]
			for j := range s {
				if got[j] != s[j] {
					t.Fatalf("%s sample %d value %d changed: %v != %v", label, i, j, got[j], s[j])
				}
			}
		}
	}
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(db.Labels) != 0 {
		t.Errorf("labels = %v, want empty", db.Labels)
	}
}

func TestLoad_MissingSampleFileFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LabelsFile), []byte("palm\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestLoad_TruncatedSampleFileFails(t *testing.T) {
	dir := t.TempDir()

	db := NewDatabase()
	db.Add("palm", sampleFor(t, detector.OpenPalmLandmarks()))
	if err := Save(dir, db); err != nil {
		t.Fatal(err)
	}

	// Chop the sample file mid-frame
	path := filepath.Join(dir, SampleFile(0))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestLoad_NonFiniteValueFails(t *testing.T) {
	for name, bits := range map[string]uint64{
		"NaN":  math.Float64bits(math.NaN()),
		"+Inf": math.Float64bits(math.Inf(1)),
		"-Inf": math.Float64bits(math.Inf(-1)),
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			db := NewDatabase()
			db.Add("palm", sampleFor(t, detector.OpenPalmLandmarks()))
			if err := Save(dir, db); err != nil {
				t.Fatal(err)
			}

			// Poison one value in the sample file
			path := filepath.Join(dir, SampleFile(0))
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			binary.LittleEndian.PutUint64(data[8:], bits)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestLoad_BlankLabelLineFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LabelsFile), []byte("palm\n\nfist\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestLoad_StraySampleFileFails(t *testing.T) {
	dir := t.TempDir()

	db := NewDatabase()
	db.Add("palm", sampleFor(t, detector.OpenPalmLandmarks()))
	if err := Save(dir, db); err != nil {
		t.Fatal(err)
	}

	// A sample file for an index past the label list
	stray := make([]byte, sampleFrameBytes)
	if err := os.WriteFile(filepath.Join(dir, SampleFile(7)), stray, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestMatcherRoundTrip(t *testing.T) {
	m := pose.NewMatcher()
	m.AddSample("point", sampleFor(t, detector.PointingLandmarks()))
	m.AddSample("fist", sampleFor(t, detector.FistLandmarks()))

	dir := t.TempDir()
	if err := Save(dir, FromMatcher(m)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m2 := pose.NewMatcher()
	if err := loaded.Hydrate(m2); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}

	labels := m2.Labels()
	if len(labels) != 2 || labels[0] != "point" || labels[1] != "fist" {
		t.Fatalf("labels = %v, want [point fist]", labels)
	}

	input := detector.FistLandmarks()
	ranking, err := m2.Rank(&input)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	best, _ := ranking.Best()
	if best.Label != "fist" || best.Score != 0 {
		t.Errorf("best = %+v, want fist at 0", best)
	}
}
