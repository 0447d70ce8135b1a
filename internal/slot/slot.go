// Package slot holds at most one live desktop notification per semantic category.
package slot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sysnotifd/internal/notify"
)

// Placeholder in a body template that is replaced with the live value.
const Placeholder = "%v"

// Config is the presentation template of one slot. Immutable after load.
type Config struct {
	Urgency notify.Urgency
	Summary string
	Body    *string // nil: no body
	Icon    string  // empty: no icon
	Timeout notify.Timeout
}

// Slot owns zero or one handle to a displayed notification.
//
// Show while a handle is live is a no-op; callers Close first to force a replacement.
// The mutex is held across the renderer call, so concurrent Show/Close on the same
// slot serialize behind the notification service.
type Slot struct {
	name    string
	appName string
	cfg     Config
	r       notify.Renderer

	mu     sync.Mutex
	handle notify.Handle
	live   bool
}

func New(name, appName string, cfg Config, r notify.Renderer) *Slot {
	return &Slot{name: name, appName: appName, cfg: cfg, r: r}
}

func (s *Slot) Name() string { return s.name }

// Live reports whether the slot currently holds a handle.
func (s *Slot) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Show renders the template with value if nothing is live.
// On render failure the slot stays empty, so the next Show retries.
func (s *Slot) Show(ctx context.Context, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		return nil
	}
	h, err := s.r.Render(ctx, s.notification(value))
	if err != nil {
		return fmt.Errorf("slot %s: render: %w", s.name, err)
	}
	s.handle = h
	s.live = true
	return nil
}

// Close dismisses the live notification, if any. The handle is cleared even
// when the dismiss request fails.
func (s *Slot) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live {
		return nil
	}
	h := s.handle
	s.handle = 0
	s.live = false
	if err := s.r.Dismiss(ctx, h); err != nil {
		return fmt.Errorf("slot %s: dismiss: %w", s.name, err)
	}
	return nil
}

// Replace closes the live notification and shows a fresh one with value.
func (s *Slot) Replace(ctx context.Context, value any) error {
	closeErr := s.Close(ctx)
	if err := s.Show(ctx, value); err != nil {
		return err
	}
	return closeErr
}

func (s *Slot) notification(value any) notify.Notification {
	n := notify.Notification{
		AppName: s.appName,
		Summary: s.cfg.Summary,
		Icon:    s.cfg.Icon,
		Urgency: s.cfg.Urgency,
		Timeout: s.cfg.Timeout,
	}
	if s.cfg.Body != nil {
		n.Body = strings.ReplaceAll(*s.cfg.Body, Placeholder, fmt.Sprint(value))
	}
	return n
}
