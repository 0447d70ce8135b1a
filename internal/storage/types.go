package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file (<path>, append-only)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxEntries  int           // sqlite only; 0 keeps everything
}

// Action is what the daemon asked the notification service to do.
type Action string

const (
	ActionRender  Action = "render"
	ActionDismiss Action = "dismiss"
)

// Entry records one request to the notification service.
// Keep it compact and schema-stable.
type Entry struct {
	At      time.Time `json:"at"`
	Action  Action    `json:"action"`
	App     string    `json:"app"`
	Summary string    `json:"summary,omitempty"`
	Body    string    `json:"body,omitempty"`
	Urgency string    `json:"urgency,omitempty"`
	Handle  uint32    `json:"handle"`
	Error   string    `json:"error,omitempty"`
}
