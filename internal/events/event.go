// Package events defines the daemon's domain events and merges the adapter streams.
package events

import (
	"fmt"
	"time"
)

// Category selects the state machine that owns an event.
type Category uint8

const (
	CategoryBrightness Category = iota + 1
	CategoryBattery
	CategoryAudio
)

func (c Category) String() string {
	switch c {
	case CategoryBrightness:
		return "brightness"
	case CategoryBattery:
		return "battery"
	case CategoryAudio:
		return "audio"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// BatteryEvent is the kind of a battery event.
type BatteryEvent uint8

const (
	// BatteryPoll asks the battery machine to re-read charge state (level-triggered).
	BatteryPoll BatteryEvent = iota + 1
	// BatteryPlugged and BatteryUnplugged are AC adapter edges.
	BatteryPlugged
	BatteryUnplugged
)

func (b BatteryEvent) String() string {
	switch b {
	case BatteryPoll:
		return "poll"
	case BatteryPlugged:
		return "plugged"
	case BatteryUnplugged:
		return "unplugged"
	default:
		return fmt.Sprintf("battery(%d)", uint8(b))
	}
}

// AudioReading is one snapshot of the default sink.
type AudioReading struct {
	Volume int // percent of nominal volume, first channel
	Mute   bool
}

// ChargeState is the battery charging state reported by the OS.
type ChargeState uint8

const (
	ChargeUnknown ChargeState = iota
	ChargeCharging
	ChargeDischarging
	ChargeFull
	ChargeNotCharging
)

func (s ChargeState) String() string {
	switch s {
	case ChargeCharging:
		return "charging"
	case ChargeDischarging:
		return "discharging"
	case ChargeFull:
		return "full"
	case ChargeNotCharging:
		return "not-charging"
	default:
		return "unknown"
	}
}

// BatteryReading is recomputed from the OS on every poll.
type BatteryReading struct {
	State      ChargeState
	Percentage int // 0..100
}

// Event is a tagged domain event. Exactly one of the payload fields is
// meaningful, selected by Category.
type Event struct {
	Category Category
	Source   string
	Time     time.Time

	Battery BatteryEvent // CategoryBattery
	Audio   AudioReading // CategoryAudio
}

func Brightness(source string) Event {
	return Event{Category: CategoryBrightness, Source: source, Time: time.Now()}
}

func Battery(source string, kind BatteryEvent) Event {
	return Event{Category: CategoryBattery, Source: source, Time: time.Now(), Battery: kind}
}

func Audio(source string, r AudioReading) Event {
	return Event{Category: CategoryAudio, Source: source, Time: time.Now(), Audio: r}
}

func (e Event) String() string {
	switch e.Category {
	case CategoryBattery:
		return "battery/" + e.Battery.String()
	case CategoryAudio:
		return fmt.Sprintf("audio/volume=%d,mute=%t", e.Audio.Volume, e.Audio.Mute)
	default:
		return e.Category.String()
	}
}
