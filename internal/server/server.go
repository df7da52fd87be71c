// Package server provides the HTTP control surface for the Mudra pose
// classifier.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server is the HTTP server for the Mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		// The live matcher, when the pipeline is running, so pose CRUD
		// takes effect without a restart.
		var matcher *pose.Matcher
		if s.config.App != nil {
			matcher = s.config.App.Matcher()
		}

		poseHandler := api.NewPoseHandler(s.config.Store, matcher)
		samplesHandler := api.NewSamplesHandler(s.config.Store)

		// Route between the pose CRUD handler and the nested samples
		// handler: /api/poses/{id}/samples
		poseRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			poseHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/poses", poseRouter)
		s.mux.Handle("/api/poses/", poseRouter)

		actionHandler := api.NewActionHandler(s.config.Store)
		s.mux.Handle("/api/actions", actionHandler)
		s.mux.Handle("/api/actions/", actionHandler)
	}

	if s.config.App != nil {
		captureHandler := NewCaptureHandler(s.config.App)
		s.mux.Handle("/api/capture/", captureHandler)

		streamHandler := NewStreamHandler(s.config.App.Camera())
		s.mux.Handle("/api/stream", streamHandler)

		matchesHandler := NewMatchesHandler()
		s.config.App.OnRanking(matchesHandler.Publish)
		s.mux.Handle("/api/matches", matchesHandler)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
