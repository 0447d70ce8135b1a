package category

import (
	"context"
	"fmt"
	"time"

	"sysnotifd/internal/events"
	"sysnotifd/internal/slot"
)

// BrightnessReader returns the backlight level in percent.
type BrightnessReader interface {
	Read(ctx context.Context) (int, error)
}

// RepeatWindow is how long an identical reading is treated as the same change.
// The notification server may expire a bubble at any time, so the window stays short.
const RepeatWindow = time.Second

// Brightness replaces its bubble on every backlight change.
type Brightness struct {
	slot   *slot.Slot
	reader BrightnessReader
	now    func() time.Time

	last   int
	lastAt time.Time
}

func NewBrightness(s *slot.Slot, reader BrightnessReader) *Brightness {
	return &Brightness{slot: s, reader: reader, now: time.Now}
}

func (b *Brightness) Handle(ctx context.Context, _ events.Event) error {
	v, err := b.reader.Read(ctx)
	if err != nil {
		return fmt.Errorf("brightness read: %w", err)
	}
	now := b.now()
	// one key press can write brightness and actual_brightness separately
	if !b.lastAt.IsZero() && v == b.last && now.Sub(b.lastAt) < RepeatWindow && b.slot.Live() {
		return nil
	}
	b.last, b.lastAt = v, now
	return b.slot.Replace(ctx, v)
}

func (b *Brightness) CloseAll(ctx context.Context) error {
	return b.slot.Close(ctx)
}
