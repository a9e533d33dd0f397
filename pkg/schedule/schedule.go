package schedule

import (
	"context"
	"time"
)

// Every runs fn in a goroutine right away and then once per interval until
// ctx is done. Unlike Scheduler tasks it is never coordinated across nodes.
func Every(ctx context.Context, interval time.Duration, fn func()) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			fn()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
