package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoRecoversPanicAndRecordsError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("boom", func(ctx context.Context) error { panic("kaboom") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil {
		t.Fatal("expected recorded panic error")
	}
	if s.Counters().Started != 1 || s.Counters().Active != 0 {
		t.Fatalf("counters = %+v", s.Counters())
	}
}

func TestGoRestartRetriesUntilCleanExit(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	exited := make(chan struct{})
	s.GoRestart("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, func() { close(exited) }, WithRestartBackoff(time.Millisecond, 2*time.Millisecond))

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("restart loop did not finish")
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestGoRestartGivesUp(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	exited := make(chan struct{})
	s.GoRestart("broken", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("always")
	}, func() { close(exited) }, WithRestartBackoff(time.Millisecond, time.Millisecond), WithMaxRestarts(2))

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("restart loop did not give up")
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3 (initial + 2 restarts)", got)
	}
}

func TestCancelOnError(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))
	s.Go("fatal", func(ctx context.Context) error { return errors.New("fatal") })

	select {
	case <-s.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled")
	}
}
