//go:build linux

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// dbusRenderer sends notifications via D-Bus.
type dbusRenderer struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func newDBus() (Renderer, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	obj := conn.Object(dbusNotifyDest, dbusNotifyPath)
	return &dbusRenderer{conn: conn, obj: obj}, nil
}

func (r *dbusRenderer) Render(ctx context.Context, n Notification) (Handle, error) {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(n.Urgency)),
	}

	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := r.obj.CallWithContext(ctx,
		dbusNotifyInterface+".Notify",
		0,
		n.AppName,
		uint32(0),
		n.Icon,
		n.Summary,
		n.Body,
		[]string{},
		hints,
		int32(n.Timeout),
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return Handle(id), nil
}

func (r *dbusRenderer) Dismiss(ctx context.Context, h Handle) error {
	return r.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, uint32(h)).Err
}
