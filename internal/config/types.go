// Package config loads the daemon configuration.
//
// A single file (JSON, YAML or TOML) is decoded on top of Default, so any
// field left out keeps its built-in value. Unknown fields are rejected.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sysnotifd/internal/notify"
)

type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	Notifications NotificationsConfig `json:"notifications"`
	Battery       BatteryConfig       `json:"battery"`
	Audio         AudioConfig         `json:"audio"`
	Brightness    BrightnessConfig    `json:"brightness"`
	Dispatch      DispatchConfig      `json:"dispatch"`
	Storage       StorageConfig       `json:"storage"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file"`
	Journal JournalConfig `json:"journal"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// JournalConfig sends log entries to the systemd journal.
// RatePerSec caps entries per second; excess entries are dropped.
type JournalConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// NotificationsConfig selects the notification service.
//
// Backend values: "auto" (D-Bus, falling back to beeep), "dbus", "beeep", "none".
type NotificationsConfig struct {
	Backend       string `json:"backend"`
	RenderTimeout string `json:"render_timeout"`
}

// NotifConfig is the presentation template of one notification.
// A "%v" in Body is replaced with the live value; a null Body shows no body.
type NotifConfig struct {
	Urgency string  `json:"urgency"`
	Summary string  `json:"summary"`
	Body    *string `json:"body"`
	Icon    string  `json:"icon,omitempty"`
	Timeout Timeout `json:"timeout"`
}

// BatteryConfig covers the five battery notifications and their sources.
//
// Reader: "upower" or "sysfs" (Index picks the battery, 0 is the first).
// AC: "upower", "acpid" or "none".
// Poll is a schedule such as "@every 8s", "8s" or a cron expression.
type BatteryConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	AppName string `json:"appname"`

	Critical    NotifConfig `json:"critical"`
	Low         NotifConfig `json:"low"`
	Full        NotifConfig `json:"full"`
	Charging    NotifConfig `json:"charging"`
	Discharging NotifConfig `json:"discharging"`

	CritPercentage int `json:"crit_percentage"`
	LowPercentage  int `json:"low_percentage"`
	FullPercentage int `json:"full_percentage"`

	Reader      string `json:"reader"`
	Index       int    `json:"index,omitempty"`
	AC          string `json:"ac"`
	ACPIDSocket string `json:"acpid_socket,omitempty"`
	Poll        string `json:"poll"`
}

type AudioConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	AppName string `json:"appname"`

	Volume NotifConfig `json:"volume"`
	Mute   NotifConfig `json:"mute"`

	// Backend: "pulse" (native protocol) or "pactl".
	Backend   string `json:"backend"`
	Server    string `json:"server,omitempty"`
	Pactl     string `json:"pactl,omitempty"`
	Sink      string `json:"sink,omitempty"`
	Keepalive string `json:"keepalive,omitempty"`
}

type BrightnessConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	AppName string `json:"appname"`

	Notification NotifConfig `json:"notification"`

	Device   string `json:"device"`
	Debounce string `json:"debounce"`
}

// DispatchConfig tunes event routing. Durations are Go duration strings.
type DispatchConfig struct {
	HandleTimeout     string `json:"handle_timeout"`
	InboxSize         int    `json:"inbox_size"`
	RestartMinBackoff string `json:"restart_min_backoff"`
	RestartMaxBackoff string `json:"restart_max_backoff"`
	// RestartLimit gives up on a source after that many consecutive failures; 0 means never.
	RestartLimit int `json:"restart_limit"`
}

// StorageConfig records notification history.
//
// Driver values: "" / "none" (disabled), "file" (JSON Lines), "sqlite".
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	MaxEntries  int    `json:"max_entries,omitempty"`
}

func enabled(p *bool) bool { return p == nil || *p }

func (c BatteryConfig) IsEnabled() bool    { return enabled(c.Enabled) }
func (c AudioConfig) IsEnabled() bool      { return enabled(c.Enabled) }
func (c BrightnessConfig) IsEnabled() bool { return enabled(c.Enabled) }

// Timeout accepts "default", "never", a number of milliseconds, or a Go
// duration string such as "5s".
type Timeout notify.Timeout

func (t Timeout) Notify() notify.Timeout { return notify.Timeout(t) }

func (t *Timeout) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseTimeout(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("timeout: want \"default\", \"never\", milliseconds or a duration: %w", err)
	}
	return t.setMillis(ms)
}

func (t Timeout) MarshalJSON() ([]byte, error) {
	switch {
	case t < 0:
		return []byte(`"default"`), nil
	case t == 0:
		return []byte(`"never"`), nil
	default:
		return []byte(strconv.Itoa(int(t))), nil
	}
}

func (t *Timeout) setMillis(ms int64) error {
	if ms <= 0 || ms > int64(^uint32(0)>>1) {
		return fmt.Errorf("timeout %dms out of range", ms)
	}
	*t = Timeout(ms)
	return nil
}

func ParseTimeout(s string) (Timeout, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "default", "":
		return Timeout(notify.TimeoutDefault), nil
	case "never":
		return Timeout(notify.TimeoutNever), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
		ms = d.Milliseconds()
	}
	var t Timeout
	if err := t.setMillis(ms); err != nil {
		return 0, err
	}
	return t, nil
}
