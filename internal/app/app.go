// Package app wires configuration, sources, category machines and the
// notification service into one daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/godbus/dbus/v5"

	"sysnotifd/internal/category"
	"sysnotifd/internal/config"
	"sysnotifd/internal/dispatch"
	"sysnotifd/internal/events"
	"sysnotifd/internal/notify"
	"sysnotifd/internal/runtime/supervisor"
	"sysnotifd/internal/source/audio"
	"sysnotifd/internal/source/backlight"
	"sysnotifd/internal/source/poll"
	"sysnotifd/internal/source/power"
	"sysnotifd/internal/storage"
	logx "sysnotifd/pkg/logx"
)

type App struct {
	cfg  *config.Config
	log  logx.Logger
	logs *logx.Service

	store    storage.Store
	renderer notify.Renderer
	disp     *dispatch.Dispatcher
	sources  []events.Source
	mcfg     events.MergerConfig

	sup *supervisor.Supervisor
}

type options struct {
	renderer         notify.Renderer
	sources          []events.Source
	sourcesSet       bool
	batteryReader    category.BatteryReader
	brightnessReader category.BrightnessReader
}

type Option func(*options)

// WithRenderer replaces the configured notification backend.
func WithRenderer(r notify.Renderer) Option { return func(o *options) { o.renderer = r } }

// WithSources replaces every configured event source.
func WithSources(src ...events.Source) Option {
	return func(o *options) { o.sources, o.sourcesSet = src, true }
}

func WithBatteryReader(r category.BatteryReader) Option {
	return func(o *options) { o.batteryReader = r }
}

func WithBrightnessReader(r category.BrightnessReader) Option {
	return func(o *options) { o.brightnessReader = r }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logs, log := logx.New(mapLogConfig(cfg))
	a := &App{cfg: cfg, logs: logs, log: log.With(logx.String("comp", "app"))}

	ok := false
	defer func() {
		if !ok {
			a.closeResources()
		}
	}()

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	r := o.renderer
	if r == nil {
		var err error
		if r, err = notify.New(cfg.Notifications.Backend); err != nil {
			return nil, err
		}
	}
	rt, err := mapRenderTimeout(cfg)
	if err != nil {
		return nil, err
	}
	r = notify.WithTimeout(r, rt)
	if a.store != nil {
		r = notify.WithHistory(r, a.store, log.With(logx.String("comp", "history")))
	}
	a.renderer = r

	machines, sources, err := a.build(o, log)
	if err != nil {
		return nil, err
	}
	if o.sourcesSet {
		sources = o.sources
	}
	a.sources = sources

	dcfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.disp = dispatch.New(dcfg, log, machines)
	if a.mcfg, err = mapMergerConfig(cfg); err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// build creates the machines of every enabled category and their default sources.
func (a *App) build(o options, log logx.Logger) (map[events.Category]dispatch.Machine, []events.Source, error) {
	cfg := a.cfg
	f := slotFactory{r: a.renderer}
	machines := map[events.Category]dispatch.Machine{}
	var sources []events.Source

	var sysBus *dbus.Conn
	systemBus := func() (*dbus.Conn, error) {
		if sysBus != nil {
			return sysBus, nil
		}
		c, err := dbus.SystemBus()
		if err != nil {
			return nil, fmt.Errorf("system bus: %w", err)
		}
		sysBus = c
		return c, nil
	}
	// Without configured sources nothing needs the system bus.
	wantSources := !o.sourcesSet

	if b := cfg.Battery; b.IsEnabled() {
		slots, err := mapBatterySlots(cfg, f)
		if err != nil {
			return nil, nil, err
		}
		reader := o.batteryReader
		if reader == nil {
			switch b.Reader {
			case "sysfs":
				reader = power.NewDeviceReader(b.Index)
			default:
				conn, err := systemBus()
				if err != nil {
					return nil, nil, err
				}
				reader = power.NewUPowerReader(conn)
			}
		}
		machines[events.CategoryBattery] = category.NewBattery(slots, mapThresholds(cfg), reader, log.With(logx.String("comp", "battery")))

		if wantSources {
			spec, err := mapPollSpec(cfg)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, poll.New(spec, log))
			switch b.AC {
			case "acpid":
				sources = append(sources, power.NewACPIDSource(b.ACPIDSocket, log))
			case "upower":
				conn, err := systemBus()
				if err != nil {
					return nil, nil, err
				}
				sources = append(sources, power.NewUPowerACSource(conn, log))
			}
		}
	}

	if ac := cfg.Audio; ac.IsEnabled() {
		vol, err := f.slot("audio", "volume", ac.AppName, ac.Volume)
		if err != nil {
			return nil, nil, err
		}
		mute, err := f.slot("audio", "mute", ac.AppName, ac.Mute)
		if err != nil {
			return nil, nil, err
		}
		machines[events.CategoryAudio] = category.NewAudio(vol, mute)
		if wantSources {
			name, dial := mapAudioBackend(cfg)
			keepalive, err := mapAudioKeepalive(cfg)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, audio.NewSource(name, dial, ac.Sink, keepalive, log))
		}
	}

	if bc := cfg.Brightness; bc.IsEnabled() {
		s, err := f.slot("brightness", "notification", bc.AppName, bc.Notification)
		if err != nil {
			return nil, nil, err
		}
		reader := o.brightnessReader
		if reader == nil {
			reader = backlight.Reader{Dir: bc.Device}
		}
		machines[events.CategoryBrightness] = category.NewBrightness(s, reader)
		if wantSources {
			debounce, err := mapDebounce(cfg)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, backlight.NewSource(bc.Device, debounce, log))
		}
	}
	return machines, sources, nil
}

// Done is closed when the app supervisor context is canceled or the event
// stream ended.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	// a dispatcher failure leaves nothing to deliver events, so it ends the run
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	merged := events.NewMerger(a.mcfg, a.sup, a.log.With(logx.String("comp", "events")), a.sources...).Run()
	a.sup.Go("dispatch", func(ctx context.Context) error {
		err := a.disp.Run(ctx, merged)
		if err == nil {
			// every source is exhausted; nothing left to do
			a.log.Warn("event stream ended")
			a.sup.Cancel()
		}
		return err
	})
	a.startWatchdog()
	sdNotify(a.log, sdReady)

	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	a.log.Info("app started", logx.Int("sources", len(names)), logx.Any("source_names", names))
	return nil
}

// Stop cancels all sources, waits for the dispatcher and dismisses every live
// notification. It never extends the caller's deadline.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeResources()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, sdStopping)
	a.sup.Cancel()

	var errs []error
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	}

	step("supervisor", 3*time.Second, a.sup.Wait)
	step("notifications", 2*time.Second, a.disp.CloseAll)
	if st := a.disp.Stats(); st.Routed > 0 {
		a.log.Info("dispatch summary",
			logx.Any("routed", st.Routed), logx.Any("handled", st.Handled),
			logx.Any("failed", st.Failed), logx.Any("dropped", st.Dropped))
	}
	if c := a.sup.Counters(); c.Active > 0 {
		a.log.Warn("goroutines still running after stop", logx.Any("active", c.Active), logx.Any("started", c.Started))
	} else {
		a.log.Debug("goroutines stopped", logx.Any("started", c.Started))
	}
	a.log.Info("stopped")
	a.closeResources()
	return errors.Join(errs...)
}

func (a *App) closeResources() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
		a.logs = nil
	}
}
