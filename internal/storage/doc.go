// Package storage provides the optional notification history.
//
// It records every render/dismiss request sent to the notification service,
// so `sysnotifd -history N` can show what the daemon displayed recently.
package storage
