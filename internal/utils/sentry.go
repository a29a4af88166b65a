// internal/utils/sentry.go
package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initializes Sentry for error tracking. An empty DSN leaves
// reporting disabled and returns false.
func InitSentry(dsn, environment string) (bool, error) {
	if dsn == "" {
		GetLogger().Info("Sentry disabled (SENTRY_DSN not set)", nil)
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, err
	}

	GetLogger().Info("Sentry initialized", map[string]interface{}{"environment": environment})
	return true, nil
}

// CaptureError reports err to Sentry with the given tags. It is a no-op when
// Sentry was not initialized.
func CaptureError(hub *sentry.Hub, err error, tags map[string]string) {
	if err == nil {
		return
	}
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// FlushSentry waits for buffered events before shutdown
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}
