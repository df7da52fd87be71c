// Package pose implements the reference-pose database and the per-frame
// nearest-neighbor label ranking for the Mudra classifier.
package pose

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
)

// SampleLen is the flat length of one reference sample: 21 landmarks, three
// coordinates each.
const SampleLen = detector.NumLandmarks * 3

// DefaultTolerance is the per-label match tolerance used when none is
// configured. Scores are mean per-keypoint distances over normalized hands,
// so the value is independent of the landmark count.
const DefaultTolerance = 0.25

// ErrSampleShape is returned when a landmark vector does not contain
// exactly 21 three-dimensional points.
var ErrSampleShape = errors.New("pose: sample must contain exactly 21 landmarks")

// ErrUnknownLabel is returned when an operation references a label that is
// not in the database.
var ErrUnknownLabel = errors.New("pose: unknown label")

// Sample is one stored reference landmark set in flat form, x, y, z per
// landmark in canonical order, already normalized.
type Sample []float64

// SampleFromVector validates a flat landmark vector and returns it as a
// Sample. The vector is copied.
func SampleFromVector(v []float64) (Sample, error) {
	if len(v) != SampleLen {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrSampleShape, len(v), SampleLen)
	}
	s := make(Sample, SampleLen)
	copy(s, v)
	return s, nil
}

// SampleFromLandmarks normalizes a detected hand and returns it as a Sample.
func SampleFromLandmarks(h *detector.HandLandmarks) (Sample, error) {
	if h == nil {
		return nil, ErrSampleShape
	}
	return Sample(h.Normalize().Flatten()), nil
}

// Entry is one label's result in a ranking.
type Entry struct {
	Label   string  `json:"label"`
	Score   float64 `json:"score"`   // lower is better; 0 for an exact match
	Samples int     `json:"samples"` // reference samples scored for this label
	Within  bool    `json:"within"`  // score is inside the label's tolerance
}

// Ranking is the full result of scoring one landmark set against the
// database: every label with at least one sample, ascending by score.
// Comparisons counts every sample scored; with N labels of M samples each
// it is always N*M, since the scan never terminates early.
type Ranking struct {
	Entries     []Entry `json:"entries"`
	Comparisons int     `json:"comparisons"`
}

// Best returns the top-ranked entry, or false if the database was empty.
func (r Ranking) Best() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Matcher holds the pose database: an ordered label list and, per label, an
// ordered collection of reference samples. Safe for concurrent use.
type Matcher struct {
	mu         sync.RWMutex
	labels     []string
	samples    map[string][]Sample
	tolerances map[string]float64
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		samples:    make(map[string][]Sample),
		tolerances: make(map[string]float64),
	}
}

// AddLabel registers a label with the given tolerance. Tolerance values at
// or below zero fall back to DefaultTolerance. Adding an existing label
// only updates its tolerance; the label order never changes.
func (m *Matcher) AddLabel(label string, tolerance float64) {
	if label == "" {
		return
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.samples[label]; !ok {
		m.labels = append(m.labels, label)
		m.samples[label] = nil
	}
	m.tolerances[label] = tolerance
}

// AddSample appends a reference sample to a label's collection, registering
// the label first if it is new. Existing labels keep their position.
func (m *Matcher) AddSample(label string, s Sample) error {
	if len(s) != SampleLen {
		return fmt.Errorf("%w: got %d values, want %d", ErrSampleShape, len(s), SampleLen)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.samples[label]; !ok {
		m.labels = append(m.labels, label)
		m.tolerances[label] = DefaultTolerance
	}
	m.samples[label] = append(m.samples[label], s)
	return nil
}

// RemoveLabel drops a label and all its samples.
func (m *Matcher) RemoveLabel(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, l := range m.labels {
		if l == label {
			m.labels = append(m.labels[:i], m.labels[i+1:]...)
			break
		}
	}
	delete(m.samples, label)
	delete(m.tolerances, label)
}

// Labels returns the label names in insertion order.
func (m *Matcher) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.labels...)
}

// Samples returns copies of the reference samples stored for a label, in
// recorded order.
func (m *Matcher) Samples(label string) []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Sample, 0, len(m.samples[label]))
	for _, s := range m.samples[label] {
		c := make(Sample, len(s))
		copy(c, s)
		out = append(out, c)
	}
	return out
}

// SampleCount returns the number of reference samples stored for a label.
func (m *Matcher) SampleCount(label string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples[label])
}

// Rank scores a detected hand against every reference sample of every
// label and returns the labels ascending by score. Labels tie-break in
// insertion order. Labels without samples are skipped. An empty database
// yields an empty ranking.
func (m *Matcher) Rank(h *detector.HandLandmarks) (Ranking, error) {
	input, err := SampleFromLandmarks(h)
	if err != nil {
		return Ranking{}, err
	}
	return m.RankVector(input)
}

// RankVector is Rank for an already-normalized flat landmark vector.
func (m *Matcher) RankVector(input []float64) (Ranking, error) {
	if len(input) != SampleLen {
		return Ranking{}, fmt.Errorf("%w: got %d values, want %d", ErrSampleShape, len(input), SampleLen)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var ranking Ranking
	diff := make([]float64, SampleLen)

	for _, label := range m.labels {
		refs := m.samples[label]
		if len(refs) == 0 {
			continue
		}

		best := math.Inf(1)
		for _, ref := range refs {
			d := sampleDistance(input, ref, diff)
			if d < best {
				best = d
			}
		}
		ranking.Comparisons += len(refs)

		ranking.Entries = append(ranking.Entries, Entry{
			Label:   label,
			Score:   best,
			Samples: len(refs),
			Within:  best <= m.tolerances[label],
		})
	}

	// Stable sort keeps insertion order on equal scores.
	sort.SliceStable(ranking.Entries, func(i, j int) bool {
		return ranking.Entries[i].Score < ranking.Entries[j].Score
	})

	return ranking, nil
}

// sampleDistance is the mean per-keypoint Euclidean distance between two
// flat landmark vectors. diff is scratch space of SampleLen values.
func sampleDistance(a, b Sample, diff []float64) float64 {
	floats.SubTo(diff, a, b)

	perKeypoint := make([]float64, detector.NumLandmarks)
	for i := 0; i < detector.NumLandmarks; i++ {
		dx := diff[i*3]
		dy := diff[i*3+1]
		dz := diff[i*3+2]
		perKeypoint[i] = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}

	return stat.Mean(perKeypoint, nil)
}
