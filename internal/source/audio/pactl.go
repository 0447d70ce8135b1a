package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"sysnotifd/internal/events"
)

// Runner runs pactl. Tests substitute canned output.
type Runner interface {
	Output(ctx context.Context, args ...string) ([]byte, error)
	// Stream starts a long-running pactl command. Closing the reader stops it.
	Stream(ctx context.Context, args ...string) (io.ReadCloser, error)
}

// Pactl runs the pactl binary found at Path (or on $PATH).
//
// pactl translates its output, so every invocation runs under the C locale.
type Pactl struct {
	Path string
}

func (p Pactl) bin() string {
	if p.Path == "" {
		return "pactl"
	}
	return p.Path
}

func (p Pactl) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.bin(), args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	return cmd
}

func (p Pactl) Output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := p.command(ctx, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("pactl %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

func (p Pactl) Stream(ctx context.Context, args ...string) (io.ReadCloser, error) {
	cmd := p.command(ctx, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pactl %s: %w", strings.Join(args, " "), err)
	}
	return &streamCloser{ReadCloser: stdout, cmd: cmd}, nil
}

// Dial returns a Mixer driven by this binary.
func (p Pactl) Dial(context.Context) (Mixer, error) { return NewPactlMixer(p), nil }

type streamCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (s *streamCloser) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.ReadCloser.Close()
	_ = s.cmd.Wait()
	return nil
}

// NewPactlMixer drives pactl through r: `subscribe` for changes,
// get-sink-volume and get-sink-mute for readings.
func NewPactlMixer(r Runner) Mixer {
	return &pactlMixer{r: r}
}

type pactlMixer struct {
	r Runner

	mu     sync.Mutex
	stream io.ReadCloser
}

func (m *pactlMixer) Changes(ctx context.Context) (<-chan struct{}, error) {
	stream, err := m.r.Stream(ctx, "subscribe")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(stream)
		for sc.Scan() {
			if !IsSinkChange(sc.Text()) {
				continue
			}
			select {
			case ch <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (m *pactlMixer) Sink(ctx context.Context, name string) (events.AudioReading, error) {
	volOut, err := m.r.Output(ctx, "get-sink-volume", name)
	if err != nil {
		return events.AudioReading{}, err
	}
	vol, err := ParseVolume(string(volOut))
	if err != nil {
		return events.AudioReading{}, err
	}
	muteOut, err := m.r.Output(ctx, "get-sink-mute", name)
	if err != nil {
		return events.AudioReading{}, err
	}
	mute, err := ParseMute(string(muteOut))
	if err != nil {
		return events.AudioReading{}, err
	}
	return events.AudioReading{Volume: vol, Mute: mute}, nil
}

func (m *pactlMixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}
	err := m.stream.Close()
	m.stream = nil
	return err
}

var reVolumePercent = regexp.MustCompile(`(\d+)%`)

// ParseVolume returns the first channel's percentage from get-sink-volume output.
func ParseVolume(out string) (int, error) {
	m := reVolumePercent.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("pactl: no volume in %q", strings.TrimSpace(out))
	}
	return strconv.Atoi(m[1])
}

// ParseMute reads "Mute: yes" / "Mute: no" (C locale).
func ParseMute(out string) (bool, error) {
	s := strings.TrimSpace(out)
	v, ok := strings.CutPrefix(s, "Mute:")
	if !ok {
		return false, fmt.Errorf("pactl: unexpected mute output %q", s)
	}
	switch strings.TrimSpace(v) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("pactl: unexpected mute value %q", strings.TrimSpace(v))
	}
}

// IsSinkChange reports whether a `pactl subscribe` line can affect the default sink.
// Server changes cover a switch of the default sink.
func IsSinkChange(line string) bool {
	_, rest, ok := strings.Cut(line, " on ")
	if !ok {
		return false
	}
	return strings.HasPrefix(rest, "sink #") || strings.HasPrefix(rest, "server")
}
