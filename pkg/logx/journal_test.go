package logx

import (
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func TestJournalKey(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"comp":      "COMP",
		"err":       "ERR",
		"slot.name": "SLOT_NAME",
		"_hidden":   "HIDDEN",
		"9lives":    "F_9LIVES",
		"___":       "",
	}
	for in, want := range tests {
		if got := journalKey(in); got != want {
			t.Errorf("journalKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJournalEntryDecodesZerologLine(t *testing.T) {
	t.Parallel()
	line := []byte(`{"level":"warn","time":"2026-01-01T00:00:00Z","comp":"battery","err":"no battery","message":"poll failed"}`)
	it, ok := journalEntry(zerolog.WarnLevel, line)
	if !ok {
		t.Fatal("expected entry")
	}
	if it.msg != "poll failed" {
		t.Fatalf("msg = %q", it.msg)
	}
	if it.pri != journal.PriWarning {
		t.Fatalf("pri = %v, want %v", it.pri, journal.PriWarning)
	}
	if it.vars["COMP"] != "battery" || it.vars["ERR"] != "no battery" {
		t.Fatalf("vars = %v", it.vars)
	}
	if _, ok := it.vars["TIME"]; ok {
		t.Fatal("timestamp must not be forwarded as a field")
	}
}

func TestJournalWriterHonorsMinLevelAndRate(t *testing.T) {
	t.Parallel()
	s := &Service{
		jq:       make(chan journalItem, 8),
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		minLevel: zerolog.WarnLevel,
	}
	w := &journalWriter{svc: s}

	_, _ = w.WriteLevel(zerolog.InfoLevel, []byte(`{"message":"below min"}`))
	_, _ = w.WriteLevel(zerolog.ErrorLevel, []byte(`{"message":"first"}`))
	_, _ = w.WriteLevel(zerolog.ErrorLevel, []byte(`{"message":"rate limited"}`))

	if got := len(s.jq); got != 1 {
		t.Fatalf("queued = %d, want 1", got)
	}
	if it := <-s.jq; it.msg != "first" {
		t.Fatalf("msg = %q, want first", it.msg)
	}
}
