// Package posedb reads and writes the flat-file pose database format: a
// label list file plus one packed array file of reference samples per
// label. The format is deliberately dumb so other tools can consume it.
//
// Layout of a database directory:
//
//	labels        one label name per line; line number is the label index
//	pose_000.bin  samples for label 0: stacked frames of 21x3 float64,
//	              little-endian, no header
//	pose_001.bin  samples for label 1, and so on
package posedb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/pose"
)

// LabelsFile is the name of the label list file inside a database dir.
const LabelsFile = "labels"

// sampleFrameBytes is the on-disk size of one sample: 63 float64 values.
const sampleFrameBytes = pose.SampleLen * 8

// ErrCorrupt is wrapped by load errors caused by malformed files.
var ErrCorrupt = errors.New("posedb: corrupt database")

// Database is the in-memory form of a flat-file pose database: an ordered
// label list and, per label, an ordered slice of reference samples.
type Database struct {
	Labels  []string
	Samples map[string][]pose.Sample
}

// NewDatabase returns an empty Database.
func NewDatabase() *Database {
	return &Database{Samples: make(map[string][]pose.Sample)}
}

// Add appends a sample under a label, registering the label if new.
func (db *Database) Add(label string, s pose.Sample) error {
	if len(s) != pose.SampleLen {
		return pose.ErrSampleShape
	}
	if _, ok := db.Samples[label]; !ok {
		db.Labels = append(db.Labels, label)
	}
	db.Samples[label] = append(db.Samples[label], s)
	return nil
}

// SampleFile returns the sample file name for a label index.
func SampleFile(index int) string {
	return fmt.Sprintf("pose_%03d.bin", index)
}

// Save writes the database to dir, creating it if needed. Existing files
// for the same label indexes are overwritten.
func Save(dir string, db *Database) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var names strings.Builder
	for _, label := range db.Labels {
		names.WriteString(label)
		names.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, LabelsFile), []byte(names.String()), 0o644); err != nil {
		return fmt.Errorf("write label list: %w", err)
	}

	for i, label := range db.Labels {
		if err := writeSamples(filepath.Join(dir, SampleFile(i)), db.Samples[label]); err != nil {
			return fmt.Errorf("write samples for %q: %w", label, err)
		}
	}

	return nil
}

func writeSamples(path string, samples []pose.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range samples {
		if len(s) != pose.SampleLen {
			return pose.ErrSampleShape
		}
		if err := binary.Write(w, binary.LittleEndian, []float64(s)); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Load reads the database at dir. A missing directory or label list loads
// as an empty database; anything malformed fails fast: a listed label
// without its sample file, a sample file that is not a whole number of
// frames, non-finite values, or a stray sample file with no label.
func Load(dir string) (*Database, error) {
	db := NewDatabase()

	labels, err := readLabels(filepath.Join(dir, LabelsFile))
	if errors.Is(err, os.ErrNotExist) {
		return db, nil
	}
	if err != nil {
		return nil, err
	}

	for i, label := range labels {
		samples, err := readSamples(filepath.Join(dir, SampleFile(i)))
		if err != nil {
			return nil, fmt.Errorf("label %q (index %d): %w", label, i, err)
		}
		db.Labels = append(db.Labels, label)
		db.Samples[label] = samples
	}

	if err := checkStrayFiles(dir, len(labels)); err != nil {
		return nil, err
	}

	return db, nil
}

// readLabels reads the label list, one name per line. Blank lines are
// invalid: they would shift every later label index.
func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" {
			return nil, fmt.Errorf("%w: blank label at line %d in %s", ErrCorrupt, len(labels)+1, path)
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

func readSamples(path string) ([]pose.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing sample file %s", ErrCorrupt, filepath.Base(path))
		}
		return nil, err
	}

	if len(data)%sampleFrameBytes != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes, not a multiple of the %d-byte sample frame",
			ErrCorrupt, filepath.Base(path), len(data), sampleFrameBytes)
	}

	count := len(data) / sampleFrameBytes
	samples := make([]pose.Sample, 0, count)

	for i := 0; i < count; i++ {
		frame := data[i*sampleFrameBytes : (i+1)*sampleFrameBytes]
		s := make(pose.Sample, pose.SampleLen)
		for j := range s {
			v := math.Float64frombits(binary.LittleEndian.Uint64(frame[j*8:]))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite value in %s, sample %d",
					ErrCorrupt, filepath.Base(path), i)
			}
			s[j] = v
		}
		samples = append(samples, s)
	}

	return samples, nil
}

// checkStrayFiles rejects sample files whose index has no label: every
// sample collection on disk must belong to a listed label.
func checkStrayFiles(dir string, numLabels int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		var idx int
		if _, err := fmt.Sscanf(name, "pose_%03d.bin", &idx); err != nil {
			continue
		}
		if idx >= numLabels {
			return fmt.Errorf("%w: sample file %s has no label (only %d labels listed)",
				ErrCorrupt, name, numLabels)
		}
	}
	return nil
}

// FromMatcher snapshots a matcher's database for export.
func FromMatcher(m *pose.Matcher) *Database {
	db := NewDatabase()
	for _, label := range m.Labels() {
		db.Labels = append(db.Labels, label)
		db.Samples[label] = m.Samples(label)
	}
	return db
}

// Hydrate feeds the database's labels and samples into a matcher,
// preserving label order.
func (db *Database) Hydrate(m *pose.Matcher) error {
	for _, label := range db.Labels {
		m.AddLabel(label, 0)
		for _, s := range db.Samples[label] {
			if err := m.AddSample(label, s); err != nil {
				return err
			}
		}
	}
	return nil
}
