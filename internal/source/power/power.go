// Package power reads battery charge and watches the AC adapter.
//
// Two backends are provided: UPower on the system bus and the platform's
// native battery interface (sysfs on Linux) through distatus/battery. AC plug
// edges come from UPower's OnBattery property or from the acpid event socket.
package power

import (
	"errors"

	"sysnotifd/internal/events"
)

// ErrNoBattery is returned when no battery device is present.
var ErrNoBattery = errors.New("no battery found")

// UPower device states (org.freedesktop.UPower.Device.State).
const (
	upStateUnknown          uint32 = 0
	upStateCharging         uint32 = 1
	upStateDischarging      uint32 = 2
	upStateEmpty            uint32 = 3
	upStateFullyCharged     uint32 = 4
	upStatePendingCharge    uint32 = 5
	upStatePendingDischarge uint32 = 6
)

func parseUPowerState(v uint32) events.ChargeState {
	switch v {
	case upStateCharging:
		return events.ChargeCharging
	case upStateDischarging, upStateEmpty, upStatePendingDischarge:
		return events.ChargeDischarging
	case upStateFullyCharged:
		return events.ChargeFull
	case upStatePendingCharge:
		return events.ChargeNotCharging
	default:
		return events.ChargeUnknown
	}
}

// clampPercent truncates a fractional percentage into [0,100].
func clampPercent(f float64) int {
	p := int(f)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
