package audio

import (
	"context"

	"sysnotifd/internal/events"
)

// DefaultSink names the server's current default output.
const DefaultSink = "@DEFAULT_SINK@"

// Mixer is one connection to the sound server.
type Mixer interface {
	// Changes subscribes to sink and server changes. Bursts may be coalesced.
	// The channel is closed if the subscription ends.
	Changes(ctx context.Context) (<-chan struct{}, error)
	// Sink reads the volume (first channel, percent) and mute flag of a sink.
	Sink(ctx context.Context, name string) (events.AudioReading, error)
	Close() error
}

// Dialer opens a Mixer. Source dials again after every failure.
type Dialer func(ctx context.Context) (Mixer, error)
