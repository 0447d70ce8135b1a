package category

import (
	"context"

	"sysnotifd/internal/events"
	"sysnotifd/internal/notify"
	"sysnotifd/internal/notify/notifytest"
	"sysnotifd/internal/slot"
	logx "sysnotifd/pkg/logx"
)

// testSlot uses the slot name as summary so recorded renders identify their slot.
func testSlot(name string, rec *notifytest.Recorder) *slot.Slot {
	body := slot.Placeholder
	return slot.New(name, "test", slot.Config{Summary: name, Body: &body, Urgency: notify.UrgencyNormal}, rec)
}

type fakeBatteryReader struct {
	reading events.BatteryReading
	err     error
}

func (f *fakeBatteryReader) Read(context.Context) (events.BatteryReading, error) {
	return f.reading, f.err
}

type batteryFixture struct {
	rec    *notifytest.Recorder
	reader *fakeBatteryReader
	slots  BatterySlots
	m      *Battery
}

func newBatteryFixture(th Thresholds) *batteryFixture {
	rec := notifytest.New()
	slots := BatterySlots{
		Critical:    testSlot("critical", rec),
		Low:         testSlot("low", rec),
		Full:        testSlot("full", rec),
		Charging:    testSlot("charging", rec),
		Discharging: testSlot("discharging", rec),
	}
	reader := &fakeBatteryReader{}
	return &batteryFixture{
		rec:    rec,
		reader: reader,
		slots:  slots,
		m:      NewBattery(slots, th, reader, logx.Nop()),
	}
}

// live returns the names of live slots in a fixed order.
func (f *batteryFixture) live() []string {
	var out []string
	for _, s := range f.slots.all() {
		if s.Live() {
			out = append(out, s.Name())
		}
	}
	return out
}

func renderedSummaries(rec *notifytest.Recorder) []string {
	var out []string
	for _, c := range rec.Renders() {
		out = append(out, c.Notification.Summary)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
