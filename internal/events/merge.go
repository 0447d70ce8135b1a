package events

import (
	"context"
	"sync"
	"time"

	"sysnotifd/internal/runtime/supervisor"
	logx "sysnotifd/pkg/logx"
)

// Source is one adapter. Run sends events to out until ctx is canceled or the
// underlying subscription ends. A nil return means the source is exhausted; an
// error makes the merger restart it with backoff.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- Event) error
}

// MergerConfig tunes the merged stream.
type MergerConfig struct {
	Buffer     int           // merged channel capacity; <=0 means 64
	MinBackoff time.Duration // restart backoff for failing sources
	MaxBackoff time.Duration
	// MaxRestarts gives up on a source after that many consecutive restarts; 0 means never.
	MaxRestarts int
}

// Merger combines sources into one stream.
//
// Ordering: events from one source keep their order. Between sources the order is
// whatever the scheduler produces; nothing may depend on it.
type Merger struct {
	cfg     MergerConfig
	sup     *supervisor.Supervisor
	log     logx.Logger
	sources []Source
}

func NewMerger(cfg MergerConfig, sup *supervisor.Supervisor, log logx.Logger, sources ...Source) *Merger {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &Merger{cfg: cfg, sup: sup, log: log, sources: sources}
}

// Run starts every source and returns the merged stream. The channel is closed
// once all sources are exhausted or the supervisor context is canceled.
// Run must be called once.
func (m *Merger) Run() <-chan Event {
	out := make(chan Event, m.cfg.Buffer)

	var wg sync.WaitGroup
	wg.Add(len(m.sources))
	for _, src := range m.sources {
		src := src
		log := m.log.With(logx.String("source", src.Name()))
		m.sup.GoRestart("source."+src.Name(), func(ctx context.Context) error {
			// failures are reported by the supervisor when it restarts the source
			log.Debug("source started")
			return src.Run(ctx, out)
		}, func() {
			log.Debug("source exhausted")
			wg.Done()
		}, supervisor.WithRestartBackoff(m.cfg.MinBackoff, m.cfg.MaxBackoff), supervisor.WithMaxRestarts(m.cfg.MaxRestarts))
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Send delivers e unless ctx is done. Sources use it so a shutdown never blocks
// on a full merged channel.
func Send(ctx context.Context, out chan<- Event, e Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
