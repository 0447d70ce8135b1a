package power

import (
	"context"
	"errors"
	"fmt"

	"github.com/distatus/battery"

	"sysnotifd/internal/events"
)

// DeviceReader reads a battery through the platform's native interface
// (power_supply in sysfs on Linux). Index 0 is the first battery found.
type DeviceReader struct {
	Index int

	getAll func() ([]*battery.Battery, error)
}

func NewDeviceReader(index int) DeviceReader {
	return DeviceReader{Index: index, getAll: battery.GetAll}
}

func (r DeviceReader) Read(ctx context.Context) (events.BatteryReading, error) {
	if err := ctx.Err(); err != nil {
		return events.BatteryReading{}, err
	}
	getAll := r.getAll
	if getAll == nil {
		getAll = battery.GetAll
	}
	bats, err := getAll()
	if r.Index < 0 || r.Index >= len(bats) || bats[r.Index] == nil {
		if err != nil {
			return events.BatteryReading{}, fmt.Errorf("battery: %w", err)
		}
		return events.BatteryReading{}, ErrNoBattery
	}
	if err := deviceErr(err, r.Index); err != nil {
		return events.BatteryReading{}, fmt.Errorf("battery %d: %w", r.Index, err)
	}
	b := bats[r.Index]
	if b.Full <= 0 {
		return events.BatteryReading{}, fmt.Errorf("battery %d: no full capacity reported", r.Index)
	}
	return events.BatteryReading{
		State:      parseDeviceState(b.State.String()),
		Percentage: clampPercent(b.Current / b.Full * 100),
	}, nil
}

// deviceErr picks the error for battery idx out of a GetAll result. Missing
// fields this reader does not use (voltage, charge rate, design capacity) are fine.
func deviceErr(err error, idx int) error {
	if err == nil {
		return nil
	}
	var errs battery.Errors
	if !errors.As(err, &errs) {
		return err
	}
	if idx >= len(errs) || errs[idx] == nil {
		return nil
	}
	var partial battery.ErrPartial
	if errors.As(errs[idx], &partial) {
		return errors.Join(partial.State, partial.Current, partial.Full)
	}
	return errs[idx]
}

// parseDeviceState maps the library's state names.
func parseDeviceState(s string) events.ChargeState {
	switch s {
	case "Charging":
		return events.ChargeCharging
	case "Discharging", "Empty":
		return events.ChargeDischarging
	case "Full":
		return events.ChargeFull
	case "Idle":
		return events.ChargeNotCharging
	default:
		return events.ChargeUnknown
	}
}
