package logx

import (
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled atomic.Bool

// InitSentry enables error reporting. An empty dsn leaves reporting disabled.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return err
	}

	sentryEnabled.Store(true)
	return nil
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry() {
	if sentryEnabled.Load() {
		sentry.Flush(2 * time.Second)
	}
}
