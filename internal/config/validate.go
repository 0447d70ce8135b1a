package config

import (
	"errors"
	"fmt"
	"strings"

	"sysnotifd/internal/notify"
)

// Validate reports every problem at once, each wrapped with ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	check := func(err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
		}
	}

	switch strings.ToLower(c.Notifications.Backend) {
	case "", "auto", "dbus", "beeep", "none":
	default:
		add("notifications.backend: unknown backend %q", c.Notifications.Backend)
	}
	_, err := ParseDurationField("notifications.render_timeout", c.Notifications.RenderTimeout)
	check(err)

	b := c.Battery
	if b.IsEnabled() {
		if !(0 <= b.CritPercentage && b.CritPercentage < b.LowPercentage && b.LowPercentage < b.FullPercentage && b.FullPercentage <= 100) {
			add("battery: thresholds must satisfy 0 <= crit_percentage < low_percentage < full_percentage <= 100 (got %d/%d/%d)",
				b.CritPercentage, b.LowPercentage, b.FullPercentage)
		}
		switch b.Reader {
		case "upower", "sysfs":
		default:
			add("battery.reader: unknown reader %q", b.Reader)
		}
		if b.Index < 0 {
			add("battery.index: must be >= 0")
		}
		switch b.AC {
		case "upower", "acpid", "none":
		default:
			add("battery.ac: unknown source %q", b.AC)
		}
		if strings.TrimSpace(b.Poll) == "" {
			add("battery.poll: schedule required")
		}
		for name, n := range map[string]NotifConfig{
			"critical": b.Critical, "low": b.Low, "full": b.Full,
			"charging": b.Charging, "discharging": b.Discharging,
		} {
			check(n.validate("battery." + name))
		}
	}
	if c.Audio.IsEnabled() {
		check(c.Audio.Volume.validate("audio.volume"))
		check(c.Audio.Mute.validate("audio.mute"))
		switch c.Audio.Backend {
		case "pulse", "pactl":
		default:
			add("audio.backend: unknown backend %q", c.Audio.Backend)
		}
		_, err := ParseDurationField("audio.keepalive", c.Audio.Keepalive)
		check(err)
	}
	if c.Brightness.IsEnabled() {
		check(c.Brightness.Notification.validate("brightness.notification"))
		if strings.TrimSpace(c.Brightness.Device) == "" {
			add("brightness.device: path required")
		}
		_, err := ParseDurationField("brightness.debounce", c.Brightness.Debounce)
		check(err)
	}

	for path, raw := range map[string]string{
		"dispatch.handle_timeout":      c.Dispatch.HandleTimeout,
		"dispatch.restart_min_backoff": c.Dispatch.RestartMinBackoff,
		"dispatch.restart_max_backoff": c.Dispatch.RestartMaxBackoff,
		"storage.busy_timeout":         c.Storage.BusyTimeout,
	} {
		_, err := ParseDurationField(path, raw)
		check(err)
	}
	if c.Dispatch.InboxSize < 0 {
		add("dispatch.inbox_size: must be >= 0")
	}
	if c.Dispatch.RestartLimit < 0 {
		add("dispatch.restart_limit: must be >= 0")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			add("storage.path: required for driver %q", c.Storage.Driver)
		}
	default:
		add("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	return errors.Join(errs...)
}

func (n NotifConfig) validate(path string) error {
	if _, err := notify.ParseUrgency(n.Urgency); err != nil {
		return fmt.Errorf("%s.urgency: %v", path, err)
	}
	if strings.TrimSpace(n.Summary) == "" {
		return fmt.Errorf("%s.summary: required", path)
	}
	return nil
}
