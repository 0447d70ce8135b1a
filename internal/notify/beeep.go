package notify

import (
	"context"

	"github.com/gen2brain/beeep"
)

// beeepRenderer is the portable fallback. beeep cannot close what it shows,
// so handles are always 0 and Dismiss only forgets them.
type beeepRenderer struct{}

func (beeepRenderer) Render(ctx context.Context, n Notification) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if n.Urgency == UrgencyCritical {
		return 0, beeep.Alert(n.Summary, n.Body, n.Icon)
	}
	return 0, beeep.Notify(n.Summary, n.Body, n.Icon)
}

func (beeepRenderer) Dismiss(context.Context, Handle) error { return nil }
