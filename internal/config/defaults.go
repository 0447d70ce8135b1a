package config

import "sysnotifd/internal/notify"

const defaultTimeout = Timeout(5000)

func body(s string) *string { return &s }

func notif(summary string, b *string) NotifConfig {
	return NotifConfig{Urgency: "normal", Summary: summary, Body: b, Timeout: defaultTimeout}
}

// Default returns the built-in configuration.
func Default() *Config {
	critical := notif("Battery", body("Battery Critical"))
	critical.Urgency = "critical"
	critical.Timeout = Timeout(notify.TimeoutNever)

	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Journal: JournalConfig{MinLevel: "info", RatePerSec: 5},
		},
		Notifications: NotificationsConfig{
			Backend:       "auto",
			RenderTimeout: "2s",
		},
		Battery: BatteryConfig{
			AppName:        "battery",
			Critical:       critical,
			Low:            notif("Battery", body("Battery Low")),
			Full:           notif("Battery", body("Battery Full")),
			Charging:       notif("Battery", body("Plugged")),
			Discharging:    notif("Battery", body("Unplugged")),
			CritPercentage: 5,
			LowPercentage:  20,
			FullPercentage: 100,
			Reader:         "upower",
			AC:             "upower",
			Poll:           "@every 8s",
		},
		Audio: AudioConfig{
			AppName: "volume",
			Volume:  notif("Volume", body("%v")),
			Mute:    notif("Volume", body("%v")),
			Backend: "pulse",
		},
		Brightness: BrightnessConfig{
			AppName:      "brightness",
			Notification: notif("Brightness", body("%v")),
			Device:       "/sys/class/backlight/intel_backlight",
			Debounce:     "50ms",
		},
		Dispatch: DispatchConfig{
			HandleTimeout:     "10s",
			InboxSize:         32,
			RestartMinBackoff: "500ms",
			RestartMaxBackoff: "30s",
		},
		Storage: StorageConfig{Driver: "none"},
	}
}
