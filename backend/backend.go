package backend

import (
	"context"
	"fmt"
	"time"
)

// Prober is the lifecycle surface every adapter exposes. Probe is issued
// exactly once at startup; the process refuses to bind its transport until
// it succeeds. Close releases whatever the adapter holds and must tolerate
// being called after a failed Probe.
type Prober interface {
	Probe(ctx context.Context) error
	Close(ctx context.Context) error
}

// ElapsedMS returns whole milliseconds since start.
func ElapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// Elapsed renders milliseconds since start as the "15ms" form used in tool
// results.
func Elapsed(start time.Time) string {
	return FormatElapsed(ElapsedMS(start))
}

// FormatElapsed renders a millisecond count as "15ms".
func FormatElapsed(ms int64) string {
	return fmt.Sprintf("%dms", ms)
}
