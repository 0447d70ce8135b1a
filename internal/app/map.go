package app

import (
	"fmt"
	"strings"
	"time"

	"sysnotifd/internal/category"
	"sysnotifd/internal/config"
	"sysnotifd/internal/dispatch"
	"sysnotifd/internal/events"
	"sysnotifd/internal/notify"
	"sysnotifd/internal/slot"
	"sysnotifd/internal/source/audio"
	"sysnotifd/internal/source/poll"
	"sysnotifd/internal/storage"
	logx "sysnotifd/pkg/logx"
)

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		Journal: logx.JournalConfig{
			Enabled:    l.Journal.Enabled,
			MinLevel:   l.Journal.MinLevel,
			RatePerSec: l.Journal.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := parseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, MaxEntries: sc.MaxEntries}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapRenderTimeout(cfg *config.Config) (time.Duration, error) {
	return parseDurationOrDefault("notifications.render_timeout", cfg.Notifications.RenderTimeout, 2*time.Second)
}

func mapSlotConfig(path string, n config.NotifConfig) (slot.Config, error) {
	u, err := notify.ParseUrgency(n.Urgency)
	if err != nil {
		return slot.Config{}, fmt.Errorf("%s.urgency: %w", path, err)
	}
	var body *string
	if n.Body != nil {
		b := *n.Body
		body = &b
	}
	return slot.Config{
		Urgency: u,
		Summary: n.Summary,
		Body:    body,
		Icon:    n.Icon,
		Timeout: n.Timeout.Notify(),
	}, nil
}

// slotFactory builds slots that share one renderer.
type slotFactory struct {
	r notify.Renderer
}

func (f slotFactory) slot(path, name, appName string, n config.NotifConfig) (*slot.Slot, error) {
	sc, err := mapSlotConfig(path+"."+name, n)
	if err != nil {
		return nil, err
	}
	return slot.New(path+"."+name, appName, sc, f.r), nil
}

func mapThresholds(cfg *config.Config) category.Thresholds {
	b := cfg.Battery
	return category.Thresholds{Critical: b.CritPercentage, Low: b.LowPercentage, Full: b.FullPercentage}
}

func mapBatterySlots(cfg *config.Config, f slotFactory) (category.BatterySlots, error) {
	b := cfg.Battery
	var (
		s   category.BatterySlots
		err error
	)
	for _, it := range []struct {
		name string
		n    config.NotifConfig
		dst  **slot.Slot
	}{
		{"critical", b.Critical, &s.Critical},
		{"low", b.Low, &s.Low},
		{"full", b.Full, &s.Full},
		{"charging", b.Charging, &s.Charging},
		{"discharging", b.Discharging, &s.Discharging},
	} {
		if *it.dst, err = f.slot("battery", it.name, b.AppName, it.n); err != nil {
			return category.BatterySlots{}, err
		}
	}
	return s, nil
}

func mapPollSpec(cfg *config.Config) (poll.Spec, error) {
	spec, err := poll.ParseSchedule(cfg.Battery.Poll)
	if err != nil {
		return poll.Spec{}, fmt.Errorf("battery.poll: %w", err)
	}
	return spec, nil
}

func mapDebounce(cfg *config.Config) (time.Duration, error) {
	d, err := config.ParseDurationField("brightness.debounce", cfg.Brightness.Debounce)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func mapAudioBackend(cfg *config.Config) (string, audio.Dialer) {
	ac := cfg.Audio
	if ac.Backend == "pactl" {
		return "pactl", audio.Pactl{Path: ac.Pactl}.Dial
	}
	return "pulse", audio.Pulse{Server: ac.Server}.Dial
}

func mapAudioKeepalive(cfg *config.Config) (time.Duration, error) {
	return parseDurationOrDefault("audio.keepalive", cfg.Audio.Keepalive, audio.DefaultKeepalive)
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	d, err := parseDurationOrDefault("dispatch.handle_timeout", cfg.Dispatch.HandleTimeout, dispatch.DefaultHandleTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{HandleTimeout: d, InboxSize: cfg.Dispatch.InboxSize}, nil
}

func mapMergerConfig(cfg *config.Config) (events.MergerConfig, error) {
	minB, err := parseDurationOrDefault("dispatch.restart_min_backoff", cfg.Dispatch.RestartMinBackoff, 500*time.Millisecond)
	if err != nil {
		return events.MergerConfig{}, err
	}
	maxB, err := parseDurationOrDefault("dispatch.restart_max_backoff", cfg.Dispatch.RestartMaxBackoff, 30*time.Second)
	if err != nil {
		return events.MergerConfig{}, err
	}
	if maxB < minB {
		return events.MergerConfig{}, fmt.Errorf("dispatch.restart_max_backoff must be >= restart_min_backoff")
	}
	return events.MergerConfig{MinBackoff: minB, MaxBackoff: maxB, MaxRestarts: cfg.Dispatch.RestartLimit}, nil
}

// Validate runs config validation plus every mapping New would perform,
// without touching the system.
func Validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapRenderTimeout(cfg); err != nil {
		return err
	}
	if _, err := mapDispatchConfig(cfg); err != nil {
		return err
	}
	if _, err := mapMergerConfig(cfg); err != nil {
		return err
	}
	if cfg.Battery.IsEnabled() {
		if _, err := mapPollSpec(cfg); err != nil {
			return err
		}
	}
	if cfg.Audio.IsEnabled() {
		if _, err := mapAudioKeepalive(cfg); err != nil {
			return err
		}
	}
	if cfg.Brightness.IsEnabled() {
		if _, err := mapDebounce(cfg); err != nil {
			return err
		}
	}
	return nil
}
