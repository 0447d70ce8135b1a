package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	Journal JournalConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// JournalConfig controls the systemd journal sink.
// RatePerSec <= 0 falls back to 5 entries per second.
type JournalConfig struct {
	Enabled    bool
	MinLevel   string
	RatePerSec int
}

// Service owns the log sinks. Loggers derived from it follow Apply().
type Service struct {
	mu  sync.Mutex
	cfg Config

	root atomic.Value // stores zerolog.Logger

	file *os.File

	// journal sink worker
	jq      chan journalItem
	jOnce   sync.Once
	jCancel context.CancelFunc
	jWG     sync.WaitGroup
	jSend   journalSendFunc

	// guarded by mu
	limiter  *rate.Limiter
	minLevel zerolog.Level
}

// New creates the logging service, applies the initial config immediately,
// and returns both the Service and a root Logger.
func New(cfg Config) (*Service, Logger) {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = consoleTimeFormat

	s := &Service{
		cfg:   cfg,
		jq:    make(chan journalItem, 256),
		jSend: sendJournal,
	}
	s.root.Store(zerolog.New(newConsoleWriter(Stderr())).Level(parseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger())
	s.Apply(cfg)

	return s, Logger{svc: s}
}

func (s *Service) current() zerolog.Logger {
	v := s.root.Load()
	if v == nil {
		return zerolog.Nop()
	}
	zl, ok := v.(zerolog.Logger)
	if !ok {
		return zerolog.Nop()
	}
	return zl
}

func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	cancel := s.jCancel
	s.jCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.jWG.Wait()
	}
	if f != nil {
		return f.Close()
	}
	return nil
}

// Apply swaps logger outputs/levels. It is safe to call concurrently.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg

	s.minLevel = parseLevel(cfg.Journal.MinLevel, zerolog.WarnLevel)
	rps := cfg.Journal.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	writers := make([]io.Writer, 0, 3)
	if cfg.Console {
		writers = append(writers, newConsoleWriter(Stderr()))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = "./sysnotifd.log"
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: failed opening log file %q: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if cfg.Journal.Enabled {
		if journalAvailable() {
			s.jOnce.Do(func() {
				ctx, cancel := context.WithCancel(context.Background())
				s.jCancel = cancel
				s.jWG.Add(1)
				go func() {
					defer s.jWG.Done()
					s.journalWorker(ctx)
				}()
			})
			writers = append(writers, &journalWriter{svc: s})
		} else {
			fmt.Fprintln(os.Stderr, "logx: journal logging enabled but the systemd journal socket is not available")
		}
	}
	if len(writers) == 0 {
		writers = append(writers, newConsoleWriter(Stderr()))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(parseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
	s.root.Store(zl)
}

func newConsoleWriter(w io.Writer) io.Writer {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	cw.FormatCaller = func(i interface{}) string {
		s, _ := i.(string)
		return s
	}
	return cw
}

// Stderr returns the configured stderr sink.
func Stderr() io.Writer { return os.Stderr }
