// Package app wires the capture, detection, and matching pieces of Mudra
// into the per-frame pipeline.
package app

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to idle.
	IdleTimeout = 2 * time.Second
	// MatchCooldown suppresses repeated hook dispatch for the same label.
	MatchCooldown = 1500 * time.Millisecond
	// HandFreshness is how recent a detection must be for a capture
	// trigger to use it.
	HandFreshness = time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	CameraID     int
	MotionThresh float64
}

// App orchestrates pose detection, matching, capture, and hook execution.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	matcher    *pose.Matcher
	recorder   *pose.Recorder
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	lastHand  *detector.HandLandmarks
	lastSeen  time.Time
	lastFired map[string]time.Time
	onRanking []func(pose.Ranking)
}

// New creates an App with the given configuration.
func New(config Config) *App {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% pixel change
	}

	matcher := pose.NewMatcher()

	a := &App{
		config:     config,
		camera:     capture.NewCamera(config.CameraID),
		motion:     capture.NewMotionDetector(motionThreshold),
		matcher:    matcher,
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(5 * time.Second),
		lastFired:  make(map[string]time.Time),
	}

	if config.Store != nil {
		a.recorder = pose.NewRecorder(config.Store, matcher)
	}

	// Prefer MediaPipe, fall back to the mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables pose matching.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether pose matching is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector swaps the hand detector implementation.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// OnRanking registers a callback invoked with every frame's ranking.
// Used by the websocket feed and the tray. Callbacks run on the pipeline
// goroutine and must not block.
func (a *App) OnRanking(fn func(pose.Ranking)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onRanking = append(a.onRanking, fn)
}

// LoadPoses hydrates the matcher from the store: every pose label in
// creation order, with all its recorded samples normalized.
func (a *App) LoadPoses() error {
	if a.config.Store == nil {
		return nil
	}

	poses, err := a.config.Store.Poses().List()
	if err != nil {
		return err
	}

	for _, p := range poses {
		a.matcher.AddLabel(p.Name, p.Tolerance)

		samples, err := a.config.Store.Samples().GetByPoseID(p.ID)
		if err != nil {
			log.Printf("Failed to load samples for %s: %v", p.Name, err)
			continue
		}

		for _, s := range samples {
			var rec pose.RecordedSample
			if err := json.Unmarshal(s.Data, &rec); err != nil {
				log.Printf("Skipping malformed sample %d of %s: %v", s.SampleIndex, p.Name, err)
				continue
			}

			hand, ok := recordedToLandmarks(rec)
			if !ok {
				log.Printf("Skipping sample %d of %s: wrong landmark count", s.SampleIndex, p.Name)
				continue
			}

			sample, err := pose.SampleFromLandmarks(&hand)
			if err != nil {
				continue
			}
			if err := a.matcher.AddSample(p.Name, sample); err != nil {
				return err
			}
		}
	}

	log.Printf("Loaded %d poses from database", len(poses))
	return nil
}

// recordedToLandmarks converts a stored raw sample back into landmarks.
func recordedToLandmarks(rec pose.RecordedSample) (detector.HandLandmarks, bool) {
	var hand detector.HandLandmarks
	if len(rec.Landmarks) != detector.NumLandmarks {
		return hand, false
	}
	copy(hand.Points[:], rec.Landmarks)
	return hand, true
}

// DiscoverPlugins scans the plugin directory for hook plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline()

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// Matcher returns the pose matcher.
func (a *App) Matcher() *pose.Matcher {
	return a.matcher
}

// Recorder returns the capture recorder, or nil without a store.
func (a *App) Recorder() *pose.Recorder {
	return a.recorder
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// CaptureSample records the most recently detected hand into the current
// capture session. Fails if no hand was seen within HandFreshness.
func (a *App) CaptureSample() (int, error) {
	if a.recorder == nil {
		return 0, pose.ErrNoSession
	}

	a.mu.RLock()
	hand := a.lastHand
	seen := a.lastSeen
	a.mu.RUnlock()

	if hand == nil || time.Since(seen) > HandFreshness {
		return 0, ErrNoRecentHand
	}

	return a.recorder.Capture(hand)
}
