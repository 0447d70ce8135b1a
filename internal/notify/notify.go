// Package notify renders desktop notifications.
//
// The core only needs two calls from a notification service: Render, which
// displays a bubble and returns a handle, and Dismiss, which closes it again.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ParseUrgency accepts "low", "normal" or "critical" (case-insensitive).
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow, nil
	case "", "normal":
		return UrgencyNormal, nil
	case "critical":
		return UrgencyCritical, nil
	default:
		return UrgencyNormal, fmt.Errorf("unknown urgency %q", s)
	}
}

// Timeout is the expire timeout in milliseconds, using the freedesktop convention:
// -1 lets the server decide, 0 never expires.
type Timeout int32

const (
	TimeoutDefault Timeout = -1
	TimeoutNever   Timeout = 0
)

// Milliseconds returns a fixed expire timeout.
func Milliseconds(n int32) Timeout { return Timeout(n) }

func (t Timeout) String() string {
	switch {
	case t < 0:
		return "default"
	case t == 0:
		return "never"
	default:
		return fmt.Sprintf("%dms", int32(t))
	}
}

// Notification contains data for a desktop notification.
type Notification struct {
	AppName string
	Summary string
	Body    string // optional
	Icon    string // path to image file or icon name (optional)
	Urgency Urgency
	Timeout Timeout
}

// Handle identifies a displayed notification. Only the renderer that returned it
// can interpret it.
type Handle uint32

// Renderer displays and dismisses notifications.
type Renderer interface {
	Render(ctx context.Context, n Notification) (Handle, error)
	Dismiss(ctx context.Context, h Handle) error
}

// ErrUnavailable is returned when no notification service can be reached.
var ErrUnavailable = errors.New("notification service unavailable")

const (
	BackendAuto  = "auto"
	BackendDBus  = "dbus"
	BackendBeeep = "beeep"
	BackendNone  = "none"
)

// New creates the renderer for backend. "auto" prefers D-Bus and falls back to beeep.
func New(backend string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto:
		if r, err := newDBus(); err == nil {
			return r, nil
		}
		return beeepRenderer{}, nil
	case BackendDBus:
		return newDBus()
	case BackendBeeep:
		return beeepRenderer{}, nil
	case BackendNone:
		return nopRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown notification backend %q", backend)
	}
}

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, Notification) (Handle, error) { return 0, nil }
func (nopRenderer) Dismiss(context.Context, Handle) error                { return nil }
