package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/rs/zerolog"
)

type journalItem struct {
	msg  string
	pri  journal.Priority
	vars map[string]string
}

type journalSendFunc func(msg string, pri journal.Priority, vars map[string]string) error

func sendJournal(msg string, pri journal.Priority, vars map[string]string) error {
	return journal.Send(msg, pri, vars)
}

func journalAvailable() bool { return journal.Enabled() }

func (s *Service) journalWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-s.jq:
			_ = s.jSend(it.msg, it.pri, it.vars)
		}
	}
}

func (s *Service) enqueueJournal(it journalItem) {
	// Never block core logging.
	select {
	case s.jq <- it:
	default:
	}
}

// journalWriter is a zerolog LevelWriter that forwards JSON lines to the journal.
type journalWriter struct{ svc *Service }

func (w *journalWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *journalWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	if s == nil {
		return len(p), nil
	}

	s.mu.Lock()
	lim := s.limiter
	min := s.minLevel
	s.mu.Unlock()

	if lim == nil || level < min {
		return len(p), nil
	}
	if !lim.Allow() {
		return len(p), nil
	}

	it, ok := journalEntry(level, p)
	if !ok {
		return len(p), nil
	}
	s.enqueueJournal(it)
	return len(p), nil
}

// journalEntry decodes a zerolog JSON line into a journal message and its fields.
// Field names are upper-cased as the journal protocol requires.
func journalEntry(level zerolog.Level, p []byte) (journalItem, bool) {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		msg := strings.TrimSpace(string(p))
		if msg == "" {
			return journalItem{}, false
		}
		return journalItem{msg: msg, pri: journalPriority(level)}, true
	}

	msg, _ := m[zerolog.MessageFieldName].(string)
	vars := make(map[string]string, len(m))
	for k, v := range m {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName:
			continue
		}
		key := journalKey(k)
		if key == "" {
			continue
		}
		vars[key] = fmt.Sprint(v)
	}
	return journalItem{msg: msg, pri: journalPriority(level), vars: vars}, true
}

func journalKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(k) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "_")
	if out == "" {
		return ""
	}
	// Fields may not start with a digit.
	if out[0] >= '0' && out[0] <= '9' {
		out = "F_" + out
	}
	return out
}

func journalPriority(level zerolog.Level) journal.Priority {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return journal.PriDebug
	case zerolog.InfoLevel:
		return journal.PriInfo
	case zerolog.WarnLevel:
		return journal.PriWarning
	case zerolog.ErrorLevel:
		return journal.PriErr
	default:
		return journal.PriCrit
	}
}
