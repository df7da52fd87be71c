package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// ErrNoSession is returned when Capture or Finish is called outside a
// capture session.
var ErrNoSession = errors.New("pose: no capture session in progress")

// ErrSessionActive is returned when Begin is called while a session is
// already running.
var ErrSessionActive = errors.New("pose: capture session already in progress")

// ErrNoCaptures is returned when a session finishes without any captured
// samples.
var ErrNoCaptures = errors.New("pose: session has no captured samples")

// Recorder drives the capture workflow: begin a session under a label,
// capture the current landmarks one trigger at a time, then persist the
// batch and feed it to the matcher on finish.
type Recorder struct {
	store    *store.Store
	matcher  *Matcher
	averager *Averager

	mu       sync.Mutex
	active   bool
	pose     *store.Pose
	raw      []json.RawMessage
	captured []Sample
}

// NewRecorder creates a Recorder persisting to st and updating m on finish.
func NewRecorder(st *store.Store, m *Matcher) *Recorder {
	return &Recorder{
		store:    st,
		matcher:  m,
		averager: NewAverager(),
	}
}

// Begin starts a capture session for the given label, creating the pose if
// it does not exist yet. Existing labels keep their position and samples.
func (r *Recorder) Begin(label string) error {
	if label == "" {
		return fmt.Errorf("pose: empty label")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return ErrSessionActive
	}

	p, err := r.store.Poses().GetByName(label)
	if errors.Is(err, store.ErrNotFound) {
		p = &store.Pose{
			ID:        uuid.New().String(),
			Name:      label,
			Tolerance: DefaultTolerance,
		}
		if err := r.store.Poses().Create(p); err != nil {
			return fmt.Errorf("create pose %q: %w", label, err)
		}
	} else if err != nil {
		return fmt.Errorf("look up pose %q: %w", label, err)
	}

	r.active = true
	r.pose = p
	r.raw = nil
	r.captured = nil
	return nil
}

// Capture buffers the current landmark set for the session's label and
// returns the number of samples captured so far.
func (r *Recorder) Capture(h *detector.HandLandmarks) (int, error) {
	sample, err := SampleFromLandmarks(h)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return 0, ErrNoSession
	}

	data, err := json.Marshal(RecordedSample{
		Landmarks: h.Points[:],
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return 0, err
	}

	r.raw = append(r.raw, data)
	r.captured = append(r.captured, sample)
	return len(r.captured), nil
}

// Finish persists the session's samples in one transaction, refreshes the
// pose's averaged template, and adds the samples to the matcher. Returns
// the pose and the number of samples saved.
func (r *Recorder) Finish() (*store.Pose, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil, 0, ErrNoSession
	}
	if len(r.captured) == 0 {
		r.reset()
		return nil, 0, ErrNoCaptures
	}

	pose := r.pose
	if err := r.store.Samples().Append(pose.ID, r.raw); err != nil {
		return nil, 0, fmt.Errorf("save samples for %q: %w", pose.Name, err)
	}
	pose.Samples += len(r.raw)

	// Best effort: the averaged template only feeds the UI, a failure must
	// not lose the recorded samples.
	if averaged, err := r.averager.Average(r.raw); err == nil {
		landmarks := make([]store.Landmark, len(averaged))
		for i, p := range averaged {
			landmarks[i] = store.Landmark{Index: i, X: p.X, Y: p.Y, Z: p.Z}
		}
		if err := r.store.Poses().SetLandmarks(pose.ID, landmarks); err != nil {
			return nil, 0, fmt.Errorf("save template for %q: %w", pose.Name, err)
		}
	}

	r.matcher.AddLabel(pose.Name, pose.Tolerance)
	for _, s := range r.captured {
		if err := r.matcher.AddSample(pose.Name, s); err != nil {
			return nil, 0, err
		}
	}

	saved := len(r.captured)
	r.reset()
	return pose, saved, nil
}

// Abort discards the session without persisting anything. The pose row
// created by Begin is kept so the label list only ever grows.
func (r *Recorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// Active reports whether a capture session is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Label returns the label of the session in progress, or "".
func (r *Recorder) Label() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return ""
	}
	return r.pose.Name
}

// Captured returns the number of samples buffered in the current session.
func (r *Recorder) Captured() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.captured)
}

func (r *Recorder) reset() {
	r.active = false
	r.pose = nil
	r.raw = nil
	r.captured = nil
}
