package servers

import (
	"context"
	"time"
)

// PeekChecker is the part of Querier the peek watch needs.
type PeekChecker interface {
	CheckPeekActivity(period time.Duration, minPlayers int) string
}

// StartPeekWatch checks for new activity peaks right away and then every
// interval until ctx is done. Non-empty announcements go to notify.
// Returns a channel closed once the watch has stopped.
func StartPeekWatch(ctx context.Context, q PeekChecker, interval, period time.Duration, minPlayers int, notify func(string)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if msg := q.CheckPeekActivity(period, minPlayers); msg != "" {
				notify(msg)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
