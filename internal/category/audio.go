package category

import (
	"context"
	"errors"
	"fmt"

	"sysnotifd/internal/events"
	"sysnotifd/internal/slot"
)

// Percent renders as "NN%".
type Percent int

func (p Percent) String() string { return fmt.Sprintf("%d%%", int(p)) }

// MuteLabel is shown in the mute notification body.
func MuteLabel(muted bool) string {
	if muted {
		return "Muted"
	}
	return "Unmuted"
}

// Audio shows volume and mute changes of the default sink.
//
// A mute change wins over a simultaneous volume change: toggling mute often moves
// the volume as a side effect, and one bubble per change is enough.
type Audio struct {
	volume *slot.Slot
	mute   *slot.Slot

	last *events.AudioReading
}

func NewAudio(volume, mute *slot.Slot) *Audio {
	return &Audio{volume: volume, mute: mute}
}

func (a *Audio) Handle(ctx context.Context, ev events.Event) error {
	return a.Update(ctx, ev.Audio)
}

// Update compares r with the previous reading. The baseline (first reading)
// shows both notifications.
func (a *Audio) Update(ctx context.Context, r events.AudioReading) error {
	last := a.last
	a.last = &r

	if last == nil {
		muteErr := a.mute.Replace(ctx, MuteLabel(r.Mute))
		return errors.Join(muteErr, a.volume.Replace(ctx, Percent(r.Volume)))
	}
	if r.Mute != last.Mute {
		return a.mute.Replace(ctx, MuteLabel(r.Mute))
	}
	if r.Volume != last.Volume {
		return a.volume.Replace(ctx, Percent(r.Volume))
	}
	return nil
}

// Last returns the previous reading, if any.
func (a *Audio) Last() (events.AudioReading, bool) {
	if a.last == nil {
		return events.AudioReading{}, false
	}
	return *a.last, true
}

func (a *Audio) CloseAll(ctx context.Context) error {
	return closeAll(ctx, a.mute, a.volume)
}
