// Package backlight watches a sysfs backlight device and reads its level.
package backlight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

// DefaultDevice is the usual Intel backlight directory.
const DefaultDevice = "/sys/class/backlight/intel_backlight"

// DefaultDebounce collapses the burst of writes a brightness key produces.
const DefaultDebounce = 50 * time.Millisecond

// Source emits a Brightness trigger after the device's brightness file is written.
type Source struct {
	dir      string
	debounce time.Duration
	log      logx.Logger
}

func NewSource(dir string, debounce time.Duration, log logx.Logger) *Source {
	if dir == "" {
		dir = DefaultDevice
	}
	if debounce < 0 {
		debounce = 0
	}
	return &Source{dir: dir, debounce: debounce, log: log.With(logx.String("comp", "backlight"))}
}

func (s *Source) Name() string { return "backlight" }

// Run returns an error when the watcher breaks; the caller restarts it.
func (s *Source) Run(ctx context.Context, out chan<- events.Event) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("backlight: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("backlight: watch %s: %w", s.dir, err)
	}
	s.log.Debug("backlight watcher started", logx.String("dir", s.dir))

	fire := make(chan struct{}, 1)
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	signal := func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	}
	trigger := func() {
		if s.debounce == 0 {
			signal()
			return
		}
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.debounce, signal)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-fire:
			if !events.Send(ctx, out, events.Brightness(s.Name())) {
				return ctx.Err()
			}
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("backlight: watcher closed")
			}
			if isBrightnessWrite(ev) {
				trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("backlight: watcher closed")
			}
			if err != nil {
				s.log.Warn("backlight watch error", logx.Err(err), logx.String("dir", s.dir))
				// missed events: let the machine re-read once
				trigger()
			}
		}
	}
}

func isBrightnessWrite(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) {
		return false
	}
	switch filepath.Base(ev.Name) {
	case "brightness", "actual_brightness":
		return true
	}
	return false
}

// Reader reports brightness as a percentage of max_brightness.
type Reader struct {
	Dir string
}

func (r Reader) Read(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dir := r.Dir
	if dir == "" {
		dir = DefaultDevice
	}
	cur, err := readInt(filepath.Join(dir, "brightness"))
	if err != nil {
		return 0, err
	}
	limit, err := readInt(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return 0, err
	}
	return Percent(cur, limit)
}

// Percent rounds cur/limit to the nearest whole percent.
func Percent(cur, limit int) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("backlight: max_brightness %d", limit)
	}
	cur = min(max(cur, 0), limit)
	return (cur*100 + limit/2) / limit, nil
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("backlight: %w", err)
	}
	s := strings.TrimSpace(string(b))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("backlight: %s: %q: %w", filepath.Base(path), s, err)
	}
	return n, nil
}
