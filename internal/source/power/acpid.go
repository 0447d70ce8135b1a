package power

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

// DefaultACPIDSocket is where acpid publishes kernel ACPI events.
const DefaultACPIDSocket = "/var/run/acpid.socket"

// ACPIDSource reads "ac_adapter" lines from the acpid socket.
type ACPIDSource struct {
	Socket string
	log    logx.Logger
}

func NewACPIDSource(socket string, log logx.Logger) *ACPIDSource {
	if socket == "" {
		socket = DefaultACPIDSocket
	}
	return &ACPIDSource{Socket: socket, log: log.With(logx.String("comp", "acpid"))}
}

func (s *ACPIDSource) Name() string { return "acpid" }

func (s *ACPIDSource) Run(ctx context.Context, out chan<- events.Event) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", s.Socket)
	if err != nil {
		return fmt.Errorf("acpid: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		kind, ok := ParseACPIDLine(sc.Text())
		if !ok {
			continue
		}
		if !events.Send(ctx, out, events.Battery(s.Name(), kind)) {
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("acpid: read: %w", err)
	}
	return fmt.Errorf("acpid: socket closed")
}

// ParseACPIDLine decodes lines like "ac_adapter ACPI0003:00 00000080 00000001".
// The last field is the adapter state: 1 plugged, 0 unplugged.
func ParseACPIDLine(line string) (events.BatteryEvent, bool) {
	f := strings.Fields(line)
	if len(f) < 4 || !strings.HasPrefix(f[0], "ac_adapter") {
		return 0, false
	}
	v, err := strconv.ParseUint(f[3], 16, 32)
	if err != nil {
		return 0, false
	}
	if v == 0 {
		return events.BatteryUnplugged, true
	}
	return events.BatteryPlugged, true
}
