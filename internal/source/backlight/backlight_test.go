package backlight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

func TestPercent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cur, limit, want int
	}{
		{cur: 0, limit: 255, want: 0},
		{cur: 255, limit: 255, want: 100},
		{cur: 128, limit: 255, want: 50},
		{cur: 937, limit: 19200, want: 5},
		{cur: 300, limit: 255, want: 100},
	}
	for _, tt := range tests {
		got, err := Percent(tt.cur, tt.limit)
		if err != nil {
			t.Fatalf("Percent(%d, %d) error: %v", tt.cur, tt.limit, err)
		}
		if got != tt.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", tt.cur, tt.limit, got, tt.want)
		}
	}
	if _, err := Percent(1, 0); err == nil {
		t.Fatal("zero max should fail")
	}
}

func writeDevice(t *testing.T, dir, cur, limit string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte(cur), 0o644); err != nil {
		t.Fatal(err)
	}
	if limit != "" {
		if err := os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(limit), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDevice(t, dir, "9600\n", "19200\n")
	got, err := Reader{Dir: dir}.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got != 50 {
		t.Fatalf("Read() = %d, want 50", got)
	}

	writeDevice(t, dir, "bright\n", "")
	if _, err := (Reader{Dir: dir}).Read(context.Background()); err == nil {
		t.Fatal("garbage brightness should fail")
	}
	if _, err := (Reader{Dir: filepath.Join(dir, "missing")}).Read(context.Background()); err == nil {
		t.Fatal("missing device should fail")
	}
}

func TestSourceDebouncesWrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDevice(t, dir, "10", "100")

	src := NewSource(dir, 100*time.Millisecond, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan events.Event, 8)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	// let the watcher attach before writing
	time.Sleep(100 * time.Millisecond)
	for _, v := range []string{"20", "30", "40"} {
		writeDevice(t, dir, v, "")
	}

	select {
	case e := <-out:
		if e.Category != events.CategoryBrightness {
			t.Fatalf("event = %v", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no brightness event")
	}
	select {
	case e := <-out:
		t.Fatalf("burst produced a second event: %v", e)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() err = %v", err)
	}
}

func TestSourceMissingDevice(t *testing.T) {
	t.Parallel()
	src := NewSource(filepath.Join(t.TempDir(), "none"), 0, logx.Nop())
	if err := src.Run(context.Background(), make(chan events.Event)); err == nil {
		t.Fatal("Run() should fail for a missing device")
	}
}
