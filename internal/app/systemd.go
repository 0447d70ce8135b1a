package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "sysnotifd/pkg/logx"
)

const (
	sdReady    = daemon.SdNotifyReady
	sdStopping = daemon.SdNotifyStopping
)

// sdNotify is a no-op outside a Type=notify unit.
func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// startWatchdog pings systemd at half the WatchdogSec interval.
func (a *App) startWatchdog() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		a.log.Warn("watchdog check failed", logx.Err(err))
		return
	}
	if interval <= 0 {
		return
	}
	a.log.Info("watchdog enabled", logx.Duration("interval", interval))
	a.sup.Go0("watchdog", func(ctx context.Context) {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					a.log.Warn("watchdog ping failed", logx.Err(err))
				}
			}
		}
	})
}
