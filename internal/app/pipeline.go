package app

import (
	"errors"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/store"
)

// ErrNoRecentHand is returned by CaptureSample when no hand was detected
// recently enough to record.
var ErrNoRecentHand = errors.New("no hand detected recently")

// runPipeline is the frame loop. It idles at IdleFPS until the motion gate
// opens, runs detection and matching at ActiveFPS while something moves,
// and drops back to idle after IdleTimeout of stillness.
//
// Per active frame:
//  1. read frame, update motion gate
//  2. detect hands, remember the freshest one for capture triggers
//  3. rank the hand against the pose database
//  4. publish the ranking, fire the matched hook (debounced)
func (a *App) runPipeline() {
	activeMode := false
	lastMotionTime := time.Now()

	frameInterval := time.Second / time.Duration(IdleFPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				if !activeMode {
					activeMode = true
					a.camera.SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode && time.Since(lastMotionTime) > IdleTimeout {
				activeMode = false
				a.camera.SetFPS(IdleFPS)
				frameInterval = time.Second / time.Duration(IdleFPS)
				ticker.Reset(frameInterval)
				log.Println("Switched to idle mode")
			}

			if !activeMode || a.detector == nil {
				frame.Close()
				continue
			}

			hands, err := a.detector.Detect(frame)
			frame.Close()

			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}

			if len(hands) == 0 {
				continue
			}

			for i := range hands {
				a.processHand(&hands[i])
			}
		}
	}
}

// processHand runs one detected hand through matching and hook dispatch.
// A bad frame is logged and skipped; the pipeline never stops over one.
func (a *App) processHand(hand *detector.HandLandmarks) {
	a.mu.Lock()
	a.lastHand = hand
	a.lastSeen = time.Now()
	callbacks := a.onRanking
	a.mu.Unlock()

	// While a capture session runs, frames feed the recorder, not the
	// matcher, so half-made poses never trigger hooks.
	if a.recorder != nil && a.recorder.Active() {
		return
	}

	ranking, err := a.matcher.Rank(hand)
	if err != nil {
		log.Printf("Error ranking hand: %v", err)
		return
	}

	for _, fn := range callbacks {
		fn(ranking)
	}

	best, ok := ranking.Best()
	if !ok || !best.Within {
		return
	}

	a.mu.Lock()
	last := a.lastFired[best.Label]
	if time.Since(last) < MatchCooldown {
		a.mu.Unlock()
		return
	}
	a.lastFired[best.Label] = time.Now()
	a.mu.Unlock()

	log.Printf("Pose matched: %s (score: %.3f)", best.Label, best.Score)
	a.dispatchHook(best)
}

// dispatchHook looks up the action bound to a matched pose and executes
// its plugin. Hooks run in their own goroutine so a slow plugin cannot
// stall the frame loop.
func (a *App) dispatchHook(entry pose.Entry) {
	if a.config.Store == nil {
		return
	}

	p, err := a.config.Store.Poses().GetByName(entry.Label)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Error looking up pose %s: %v", entry.Label, err)
		}
		return
	}

	action, err := a.config.Store.Actions().GetByPoseID(p.ID)
	if err != nil {
		log.Printf("Error looking up action for %s: %v", entry.Label, err)
		return
	}
	if action == nil || !action.Enabled {
		return
	}

	plg, err := a.pluginMgr.Get(action.PluginName)
	if err != nil {
		log.Printf("Plugin %s not found for pose %s", action.PluginName, entry.Label)
		return
	}

	req := &plugin.Request{
		Action: action.ActionName,
		Pose:   entry.Label,
		Score:  entry.Score,
		Config: action.Config,
	}

	go func() {
		resp, err := a.pluginExec.Execute(plg, req)
		if err != nil {
			log.Printf("Hook %s/%s failed: %v", action.PluginName, action.ActionName, err)
			return
		}
		if !resp.Success {
			log.Printf("Hook %s/%s reported failure: %s", action.PluginName, action.ActionName, resp.Error)
		}
	}()
}
