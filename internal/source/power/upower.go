package power

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

const (
	upowerDest          = "org.freedesktop.UPower"
	upowerPath          = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerDisplayDevice = dbus.ObjectPath("/org/freedesktop/UPower/devices/DisplayDevice")
	upowerDeviceIface   = "org.freedesktop.UPower.Device"
	propertiesIface     = "org.freedesktop.DBus.Properties"

	// device type 2 is "Battery"
	upowerTypeBattery uint32 = 2
)

// UPowerReader reads the aggregated display device.
type UPowerReader struct {
	conn *dbus.Conn
}

func NewUPowerReader(conn *dbus.Conn) *UPowerReader {
	return &UPowerReader{conn: conn}
}

func (r *UPowerReader) Read(ctx context.Context) (events.BatteryReading, error) {
	var props map[string]dbus.Variant
	obj := r.conn.Object(upowerDest, upowerDisplayDevice)
	if err := obj.CallWithContext(ctx, propertiesIface+".GetAll", 0, upowerDeviceIface).Store(&props); err != nil {
		return events.BatteryReading{}, fmt.Errorf("upower: %w", err)
	}
	return readingFromProps(props)
}

func readingFromProps(props map[string]dbus.Variant) (events.BatteryReading, error) {
	present, _ := variantValue[bool](props, "IsPresent")
	typ, _ := variantValue[uint32](props, "Type")
	if !present || typ != upowerTypeBattery {
		return events.BatteryReading{}, ErrNoBattery
	}
	state, ok := variantValue[uint32](props, "State")
	if !ok {
		return events.BatteryReading{}, fmt.Errorf("upower: missing State property")
	}
	pct, ok := variantValue[float64](props, "Percentage")
	if !ok {
		return events.BatteryReading{}, fmt.Errorf("upower: missing Percentage property")
	}
	return events.BatteryReading{State: parseUPowerState(state), Percentage: clampPercent(pct)}, nil
}

func variantValue[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	t, ok := v.Value().(T)
	return t, ok
}

// UPowerACSource emits Plugged/Unplugged when the daemon's OnBattery property flips.
// The initial value is only a baseline; nothing is emitted for it.
type UPowerACSource struct {
	conn *dbus.Conn
	log  logx.Logger
}

func NewUPowerACSource(conn *dbus.Conn, log logx.Logger) *UPowerACSource {
	return &UPowerACSource{conn: conn, log: log.With(logx.String("comp", "upower"))}
}

func (s *UPowerACSource) Name() string { return "upower" }

func (s *UPowerACSource) Run(ctx context.Context, out chan<- events.Event) error {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(upowerPath),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, upowerDest),
	}
	if err := s.conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("upower: add match: %w", err)
	}
	defer func() { _ = s.conn.RemoveMatchSignal(match...) }()

	ch := make(chan *dbus.Signal, 8)
	s.conn.Signal(ch)
	defer s.conn.RemoveSignal(ch)

	var onBattery bool
	v, err := s.conn.Object(upowerDest, upowerPath).GetProperty(upowerDest + ".OnBattery")
	if err != nil {
		return fmt.Errorf("upower: OnBattery: %w", err)
	}
	onBattery, _ = v.Value().(bool)
	s.log.Debug("ac baseline", logx.Bool("on_battery", onBattery))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return fmt.Errorf("upower: signal channel closed")
			}
			next, changed := onBatteryChange(sig, onBattery)
			if !changed {
				continue
			}
			onBattery = next
			kind := events.BatteryPlugged
			if next {
				kind = events.BatteryUnplugged
			}
			if !events.Send(ctx, out, events.Battery(s.Name(), kind)) {
				return ctx.Err()
			}
		}
	}
}

// onBatteryChange extracts OnBattery from a PropertiesChanged signal.
func onBatteryChange(sig *dbus.Signal, prev bool) (bool, bool) {
	if sig == nil || sig.Path != upowerPath || sig.Name != propertiesIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return prev, false
	}
	if iface, _ := sig.Body[0].(string); iface != upowerDest {
		return prev, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return prev, false
	}
	v, ok := changed["OnBattery"]
	if !ok {
		return prev, false
	}
	next, ok := v.Value().(bool)
	if !ok || next == prev {
		return prev, false
	}
	return next, true
}
