package category

import (
	"context"
	"errors"
	"fmt"

	"sysnotifd/internal/events"
	"sysnotifd/internal/slot"
	logx "sysnotifd/pkg/logx"
)

// BatteryReader returns the current charge state on demand.
type BatteryReader interface {
	Read(ctx context.Context) (events.BatteryReading, error)
}

// Thresholds are charge percentages. Valid configs satisfy
// 0 <= Critical < Low < Full <= 100; the config loader rejects anything else.
type Thresholds struct {
	Critical int
	Low      int
	Full     int
}

// BatterySlots are the five battery notifications.
type BatterySlots struct {
	Critical    *slot.Slot
	Low         *slot.Slot
	Full        *slot.Slot
	Charging    *slot.Slot
	Discharging *slot.Slot
}

func (s BatterySlots) all() []*slot.Slot {
	return []*slot.Slot{s.Critical, s.Low, s.Full, s.Charging, s.Discharging}
}

// Battery maps polled readings (level-triggered) and AC edges (edge-triggered)
// onto its slots. The two paths do not consult each other.
type Battery struct {
	slots  BatterySlots
	th     Thresholds
	reader BatteryReader
	log    logx.Logger
}

func NewBattery(slots BatterySlots, th Thresholds, reader BatteryReader, log logx.Logger) *Battery {
	return &Battery{slots: slots, th: th, reader: reader, log: log}
}

func (b *Battery) Handle(ctx context.Context, ev events.Event) error {
	switch ev.Battery {
	case events.BatteryPoll:
		r, err := b.reader.Read(ctx)
		if err != nil {
			return fmt.Errorf("battery read: %w", err)
		}
		return b.Update(ctx, r)
	case events.BatteryPlugged:
		return b.Plugged(ctx)
	case events.BatteryUnplugged:
		return b.Unplugged(ctx)
	default:
		return fmt.Errorf("unexpected battery event %v", ev.Battery)
	}
}

// Update re-evaluates the thresholds for one reading.
func (b *Battery) Update(ctx context.Context, r events.BatteryReading) error {
	p := r.Percentage
	switch r.State {
	case events.ChargeDischarging:
		switch {
		case p < b.th.Critical:
			return b.slots.Critical.Show(ctx, p)
		case p < b.th.Low:
			return b.slots.Low.Show(ctx, p)
		default:
			return closeAll(ctx, b.slots.Low, b.slots.Critical)
		}
	case events.ChargeCharging, events.ChargeFull:
		// Full is reported while on AC power, so it follows the charging rules.
		closeErr := b.slots.Critical.Close(ctx)
		var err error
		if p > b.th.Full {
			err = b.slots.Full.Show(ctx, p)
		} else {
			err = b.slots.Full.Close(ctx)
		}
		return errors.Join(closeErr, err)
	default:
		b.log.Debug("battery state ignored", logx.String("state", r.State.String()), logx.Int("percentage", p))
		return nil
	}
}

// Plugged handles the AC adapter being connected.
func (b *Battery) Plugged(ctx context.Context) error {
	closeErr := closeAll(ctx, b.slots.Critical, b.slots.Low, b.slots.Discharging)
	return errors.Join(closeErr, b.slots.Charging.Show(ctx, "plugged"))
}

// Unplugged handles the AC adapter being disconnected.
func (b *Battery) Unplugged(ctx context.Context) error {
	closeErr := closeAll(ctx, b.slots.Full, b.slots.Charging)
	return errors.Join(closeErr, b.slots.Discharging.Show(ctx, "unplugged"))
}

func (b *Battery) CloseAll(ctx context.Context) error {
	return closeAll(ctx, b.slots.all()...)
}

func closeAll(ctx context.Context, slots ...*slot.Slot) error {
	var errs []error
	for _, s := range slots {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
