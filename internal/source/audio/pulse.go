package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/jfreymuth/pulse/proto"

	"sysnotifd/internal/events"
)

// volumeNorm is the channel volume that means 100%.
const volumeNorm = 0x10000

// Pulse speaks the PulseAudio native protocol, which pipewire-pulse serves as
// well. Replies are binary, so nothing depends on the user's locale.
type Pulse struct {
	// Server overrides $PULSE_SERVER and the per-user socket.
	Server string
}

func (p Pulse) Dial(ctx context.Context) (Mixer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, conn, err := proto.Connect(p.Server)
	if err != nil {
		return nil, fmt.Errorf("pulse connect: %w", err)
	}
	m := &pulseMixer{client: c, conn: conn, changes: make(chan struct{}, 1)}
	c.Callback = m.onMessage

	props := proto.PropList{"application.name": proto.PropListString("sysnotifd")}
	if err := c.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pulse set client name: %w", err)
	}
	return m, nil
}

type pulseMixer struct {
	client  *proto.Client
	conn    net.Conn
	changes chan struct{}
}

// onMessage runs on the protocol's read loop and must not block or issue requests.
func (m *pulseMixer) onMessage(msg interface{}) {
	if _, ok := msg.(*proto.SubscribeEvent); !ok {
		return
	}
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *pulseMixer) Changes(ctx context.Context) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mask := proto.SubscriptionMaskSink | proto.SubscriptionMaskServer
	if err := m.client.Request(&proto.Subscribe{Mask: mask}, nil); err != nil {
		return nil, fmt.Errorf("pulse subscribe: %w", err)
	}
	return m.changes, nil
}

func (m *pulseMixer) Sink(ctx context.Context, name string) (events.AudioReading, error) {
	if err := ctx.Err(); err != nil {
		return events.AudioReading{}, err
	}
	var info proto.GetSinkInfoReply
	if err := m.client.Request(&proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: name}, &info); err != nil {
		return events.AudioReading{}, fmt.Errorf("pulse sink %s: %w", name, err)
	}
	if len(info.ChannelVolumes) == 0 {
		return events.AudioReading{}, errors.New("pulse sink " + name + ": no channels")
	}
	return events.AudioReading{Volume: volumePercent(uint32(info.ChannelVolumes[0])), Mute: info.Mute}, nil
}

func (m *pulseMixer) Close() error { return m.conn.Close() }

// volumePercent rounds a raw channel volume to percent. Values above 100% are kept.
func volumePercent(v uint32) int {
	return int(math.Round(float64(v) * 100 / volumeNorm))
}
