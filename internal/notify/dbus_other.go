//go:build !linux

package notify

import "fmt"

func newDBus() (Renderer, error) {
	return nil, fmt.Errorf("%w: d-bus notifications are only supported on linux", ErrUnavailable)
}
