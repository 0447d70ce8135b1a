package power

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/distatus/battery"
	"github.com/godbus/dbus/v5"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

func TestReadingFromProps(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		props   map[string]dbus.Variant
		want    events.BatteryReading
		wantErr error
	}{
		{
			name: "discharging",
			props: map[string]dbus.Variant{
				"IsPresent":  dbus.MakeVariant(true),
				"Type":       dbus.MakeVariant(uint32(2)),
				"State":      dbus.MakeVariant(uint32(2)),
				"Percentage": dbus.MakeVariant(19.9),
			},
			want: events.BatteryReading{State: events.ChargeDischarging, Percentage: 19},
		},
		{
			name: "fully charged",
			props: map[string]dbus.Variant{
				"IsPresent":  dbus.MakeVariant(true),
				"Type":       dbus.MakeVariant(uint32(2)),
				"State":      dbus.MakeVariant(uint32(4)),
				"Percentage": dbus.MakeVariant(100.0),
			},
			want: events.BatteryReading{State: events.ChargeFull, Percentage: 100},
		},
		{
			name: "desktop without battery",
			props: map[string]dbus.Variant{
				"IsPresent": dbus.MakeVariant(false),
				"Type":      dbus.MakeVariant(uint32(0)),
			},
			wantErr: ErrNoBattery,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readingFromProps(tt.props)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readingFromProps() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOnBatteryChange(t *testing.T) {
	t.Parallel()
	sig := func(iface string, onBattery any) *dbus.Signal {
		return &dbus.Signal{
			Path: upowerPath,
			Name: propertiesIface + ".PropertiesChanged",
			Body: []any{iface, map[string]dbus.Variant{"OnBattery": dbus.MakeVariant(onBattery)}, []string{}},
		}
	}
	if next, ok := onBatteryChange(sig(upowerDest, true), false); !ok || !next {
		t.Fatalf("unplug not detected: %v %v", next, ok)
	}
	if _, ok := onBatteryChange(sig(upowerDest, false), false); ok {
		t.Fatal("unchanged value reported as change")
	}
	if _, ok := onBatteryChange(sig(upowerDeviceIface, true), false); ok {
		t.Fatal("other interface reported as change")
	}
	if _, ok := onBatteryChange(nil, false); ok {
		t.Fatal("nil signal reported as change")
	}
}

func TestDeviceReader(t *testing.T) {
	t.Parallel()
	errRead := errors.New("permission denied")
	tests := []struct {
		name    string
		index   int
		bats    []*battery.Battery
		err     error
		want    events.BatteryReading
		wantErr error
	}{
		{
			name: "first battery",
			bats: []*battery.Battery{{Current: 38000, Full: 50000}},
			want: events.BatteryReading{State: events.ChargeUnknown, Percentage: 76},
		},
		{
			name:  "second battery",
			index: 1,
			bats:  []*battery.Battery{{Current: 1, Full: 2}, {Current: 4999, Full: 5000}},
			want:  events.BatteryReading{State: events.ChargeUnknown, Percentage: 99},
		},
		{
			name: "unused fields missing",
			bats: []*battery.Battery{{Current: 10, Full: 100}},
			err:  battery.Errors{battery.ErrPartial{Design: errRead, ChargeRate: errRead}},
			want: events.BatteryReading{State: events.ChargeUnknown, Percentage: 10},
		},
		{
			name:    "charge unreadable",
			bats:    []*battery.Battery{{Full: 100}},
			err:     battery.Errors{battery.ErrPartial{Current: errRead}},
			wantErr: errRead,
		},
		{name: "no batteries", wantErr: ErrNoBattery},
		{name: "index out of range", index: 2, bats: []*battery.Battery{{Current: 1, Full: 2}}, wantErr: ErrNoBattery},
		{name: "listing failed", err: errRead, wantErr: errRead},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := DeviceReader{Index: tt.index, getAll: func() ([]*battery.Battery, error) { return tt.bats, tt.err }}
			got, err := r.Read(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Read() err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDeviceState(t *testing.T) {
	t.Parallel()
	tests := map[string]events.ChargeState{
		"Charging":    events.ChargeCharging,
		"Discharging": events.ChargeDischarging,
		"Empty":       events.ChargeDischarging,
		"Full":        events.ChargeFull,
		"Idle":        events.ChargeNotCharging,
		"Unknown":     events.ChargeUnknown,
		"":            events.ChargeUnknown,
	}
	for in, want := range tests {
		if got := parseDeviceState(in); got != want {
			t.Fatalf("parseDeviceState(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseACPIDLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want events.BatteryEvent
		ok   bool
	}{
		{line: "ac_adapter ACPI0003:00 00000080 00000001", want: events.BatteryPlugged, ok: true},
		{line: "ac_adapter ACPI0003:00 00000080 00000000", want: events.BatteryUnplugged, ok: true},
		{line: "ac_adapter/AC0 AC0 00000080 00000001", want: events.BatteryPlugged, ok: true},
		{line: "button/lid LID close", ok: false},
		{line: "battery PNP0C0A:00 00000080 00000001", ok: false},
		{line: "ac_adapter ACPI0003:00 00000080 zz", ok: false},
		{line: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseACPIDLine(tt.line)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("ParseACPIDLine(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestACPIDSource(t *testing.T) {
	t.Parallel()
	sock := filepath.Join(t.TempDir(), "a.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = c.Write([]byte("button/power PBTN 00000080 00000001\nac_adapter ACPI0003:00 00000080 00000000\nac_adapter ACPI0003:00 00000080 00000001\n"))
		_ = c.Close()
	}()

	out := make(chan events.Event, 4)
	src := NewACPIDSource(sock, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = src.Run(ctx, out)
	if err == nil {
		t.Fatal("Run() should report the closed socket")
	}
	close(out)
	var got []events.BatteryEvent
	for e := range out {
		got = append(got, e.Battery)
	}
	if len(got) != 2 || got[0] != events.BatteryUnplugged || got[1] != events.BatteryPlugged {
		t.Fatalf("events = %v", got)
	}
}
