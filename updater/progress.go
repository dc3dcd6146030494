package updater

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives (downloaded, total) bytes. total is 0 when the size is unknown.
// Unifies the two signatures spec.md §9 notes existed in the source (a double-based one and
// a size_t-based one) into the single (i64, i64) form it asks for.
type ProgressFunc func(downloaded, totalOrZero int64)

// Throttle serializes and rate-limits progress callback delivery per spec.md §5: at most
// one update every 200ms, or immediately on a >=1% delta, or on a new byte count when the
// total is unknown. One Throttle instance is meant to be shared by everything reporting
// progress for a single logical operation (e.g. one file download), matching the "single
// shared mutex" language in spec.md §5.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	next     ProgressFunc

	lastEmit    time.Time
	lastPercent float64
	lastBytes   int64
	started     bool
}

// NewThrottle wraps next so that calls through Report() are coalesced per spec.md §5.
// A nil next is fine; Report becomes a no-op.
func NewThrottle(next ProgressFunc) *Throttle {
	return &Throttle{interval: 200 * time.Millisecond, next: next}
}

// Report is safe to call concurrently; it decides whether to forward to the wrapped
// ProgressFunc or drop the update.
func (t *Throttle) Report(downloaded, total int64) {
	if t == nil || t.next == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	emit := !t.started
	var pct float64
	if total > 0 {
		pct = float64(downloaded) / float64(total) * 100
		if pct-t.lastPercent >= 1 {
			emit = true
		}
	} else if downloaded != t.lastBytes {
		emit = true
	}
	if now.Sub(t.lastEmit) >= t.interval {
		emit = true
	}
	if !emit {
		return
	}

	t.started = true
	t.lastEmit = now
	t.lastBytes = downloaded
	t.lastPercent = pct
	t.next(downloaded, total)
}

// BarProgress renders a terminal progress bar via schollz/progressbar, formatting byte
// counts with dustin/go-humanize, and returns a ProgressFunc suitable for wrapping in a
// Throttle. label identifies the operation ("manifest", a file path, an archive name, ...).
func BarProgress(label string, total int64) ProgressFunc {
	desc := label
	if total > 0 {
		desc = label + " (" + humanize.Bytes(uint64(total)) + ")"
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionClearOnFinish(),
	)
	return func(downloaded, totalOrZero int64) {
		_ = bar.Set64(downloaded)
	}
}

// FormatBytes is a small wrapper kept so other components can log human-readable sizes
// without importing go-humanize directly.
func FormatBytes(n int64) string {
	if n < 0 {
		return humanize.Bytes(0)
	}
	return humanize.Bytes(uint64(n))
}

// sampleInterval is how often RunWithMonitor's auxiliary goroutine calls sample.
const sampleInterval = 5 * time.Second

// RunWithMonitor runs work alongside the optional progress-monitor auxiliary spec.md §5
// describes ("the only parallel element is optional — a progress-monitor auxiliary that may
// sample in-flight download state"). sample is invoked periodically while work runs; it
// stops as soon as work returns. Both goroutines share ctx, so a panic-free error from
// either unwinds the other.
func RunWithMonitor(ctx context.Context, work func(ctx context.Context) error, sample func()) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return work(gctx)
	})

	if sample != nil {
		g.Go(func() error {
			ticker := time.NewTicker(sampleInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return nil
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					sample()
				}
			}
		})
	}

	return g.Wait()
}
