package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// pingWithRetry calls ping until it succeeds, attempts run out or ctx ends.
// The wait doubles after each failure. Containers started together often
// bring the app up before PostgreSQL or Redis accept connections.
func pingWithRetry(ctx context.Context, log zerolog.Logger, target string, attempts int, backoff time.Duration, ping func(context.Context) error) error {
	var err error
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = ping(pingCtx)
		cancel()
		if err == nil || i >= attempts {
			return err
		}

		log.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", i).
			Dur("retry_in", backoff).
			Msg("Connection not ready, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
