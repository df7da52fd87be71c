// Package plugin discovers and executes match hooks: external programs
// run when a pose is recognized.
package plugin

import "encoding/json"

// Manifest describes a hook plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin on its stdin when a pose match fires.
type Request struct {
	Action string          `json:"action"`
	Pose   string          `json:"pose"`  // matched label
	Score  float64         `json:"score"` // match score, lower is better
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response is what a plugin writes to its stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered hook with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
