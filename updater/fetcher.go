package updater

// Grounded on the teacher's updater.go:download_file_http (http.Client.Get + io.Copy to a
// file), extended with the resilience spec.md §4.1 asks for: a fixed user-agent, a
// connect-timeout, a low-speed watchdog, and separate general/download timeouts. Retry on
// transient network errors is grounded on Livepeer-FrameWorks-monorepo's
// pkg/clients/failsafe.go (failsafe-go retry policy).

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	userAgent          = "McUpdaterClient/1.0"
	connectTimeout     = 10 * time.Second
	keepAliveIdle      = 10 * time.Second
	lowSpeedThreshold  = 1024 // bytes/sec
	lowSpeedWindow     = 30 * time.Second
	minDownloadTimeout = 60 * time.Second
	maxDownloadTimeout = 600 * time.Second
	downloadTimeoutStep = 30 * time.Second
	downloadSizeStep    = 10 * 1024 * 1024 // 10 MiB
)

// Fetcher is the sole HTTP collaborator. Everything else in the package downloads through
// it rather than touching net/http directly.
type Fetcher struct {
	client  *http.Client
	general time.Duration
	retry   failsafe.Executor[any]
}

// NewFetcher builds a Fetcher from Settings. general is the timeout used for manifest GETs
// (spec.md §4.1); per-download timeouts are computed from payload size via
// DownloadTimeout and override it.
func NewFetcher(s Settings) *Fetcher {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: keepAliveIdle}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		IdleConnTimeout:     keepAliveIdle,
		TLSHandshakeTimeout: connectTimeout,
	}
	general := s.APITimeout
	if general <= 0 {
		general = 60 * time.Second
	}

	retry := retrypolicy.NewBuilder[any]().
		WithBackoff(200*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		HandleIf(func(_ any, err error) bool {
			return err != nil
		}).
		Build()

	return &Fetcher{
		client:  &http.Client{Transport: transport},
		general: general,
		retry:   failsafe.With[any](retry),
	}
}

// DownloadTimeout implements spec.md §4.1's formula:
// min(600, 60 + 30 * floor(size / 10 MiB)) seconds.
func DownloadTimeout(size int64) time.Duration {
	if size <= 0 {
		return minDownloadTimeout
	}
	steps := size / downloadSizeStep
	t := minDownloadTimeout + time.Duration(steps)*downloadTimeoutStep
	if t > maxDownloadTimeout {
		return maxDownloadTimeout
	}
	return t
}

// GetText performs a GET and returns the full body, using the general timeout. Used for
// manifest fetches, which can never legitimately be empty.
func (f *Fetcher) GetText(ctx context.Context, url string) ([]byte, error) {
	data, err := f.getBytes(ctx, url, f.general, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, newErr(KindNetwork, "fetcher.GetText", fmt.Errorf("empty response from %s", url))
	}
	return data, nil
}

// DownloadToMemory performs a GET and returns the full body, using a download timeout
// derived from sizeHint (0 if unknown), reporting progress through progress if non-nil.
func (f *Fetcher) DownloadToMemory(ctx context.Context, url string, sizeHint int64, progress ProgressFunc) ([]byte, error) {
	timeout := f.general
	if sizeHint > 0 {
		timeout = DownloadTimeout(sizeHint)
	}
	return f.getBytes(ctx, url, timeout, progress)
}

// DownloadToFile performs a GET and streams the body to path, removing any partially
// written output on failure (spec.md §4.1).
func (f *Fetcher) DownloadToFile(ctx context.Context, url, path string, sizeHint int64, progress ProgressFunc) error {
	timeout := f.general
	if sizeHint > 0 {
		timeout = DownloadTimeout(sizeHint)
	}

	out, err := os.Create(path)
	if err != nil {
		return newErr(KindFilesystem, "fetcher.DownloadToFile", err)
	}

	_, ferr := f.retry.WithContext(ctx).Get(func() (any, error) {
		if _, err := out.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if err := out.Truncate(0); err != nil {
			return nil, err
		}
		return nil, f.stream(ctx, url, timeout, out, progress)
	})
	closeErr := out.Close()
	if ferr != nil {
		os.Remove(path)
		return newErr(KindNetwork, "fetcher.DownloadToFile", ferr)
	}
	if closeErr != nil {
		os.Remove(path)
		return newErr(KindFilesystem, "fetcher.DownloadToFile", closeErr)
	}
	return nil
}

// getBytes performs the GET and returns whatever body came back, including an empty one.
// A 0-byte response is a legitimate outcome for a directory entry's archive download
// (spec.md §8) and is left for the caller to judge — only GetText rejects it.
func (f *Fetcher) getBytes(ctx context.Context, url string, timeout time.Duration, progress ProgressFunc) ([]byte, error) {
	var buf writeBuffer
	_, err := f.retry.WithContext(ctx).Get(func() (any, error) {
		buf.reset()
		return nil, f.stream(ctx, url, timeout, &buf, progress)
	})
	if err != nil {
		return nil, newErr(KindNetwork, "fetcher.getBytes", err)
	}
	return buf.data, nil
}

// stream performs one GET attempt (no retry of its own — the caller's failsafe executor
// handles that) and copies the body into w, watching for the low-speed condition as it
// goes and reporting progress.
func (f *Fetcher) stream(ctx context.Context, url string, timeout time.Duration, w io.Writer, progress ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status fetching %s: %s", url, resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	watchdog := newLowSpeedWatchdog(cancel)
	defer watchdog.stop()

	reader := &countingReader{r: resp.Body, onRead: watchdog.observe}
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("download stalled below %d B/s for %s: %w", lowSpeedThreshold, lowSpeedWindow, ctx.Err())
			}
			return rerr
		}
	}
	return nil
}

// countingReader tracks every read for the low-speed watchdog.
type countingReader struct {
	r      io.Reader
	onRead func(n int)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.onRead != nil {
		c.onRead(n)
	}
	return n, err
}

// lowSpeedWatchdog cancels its context if fewer than lowSpeedThreshold*lowSpeedWindow
// bytes arrive within one lowSpeedWindow tick (fixed windows counted from the start of the
// transfer), implementing spec.md §4.1's
// "low-speed watchdog aborts if throughput stays below 1 KB/s for 30s".
type lowSpeedWatchdog struct {
	cancel context.CancelFunc
	ticker *time.Ticker
	done   chan struct{}

	bytesSinceTick chan int
}

func newLowSpeedWatchdog(cancel context.CancelFunc) *lowSpeedWatchdog {
	w := &lowSpeedWatchdog{
		cancel:         cancel,
		ticker:         time.NewTicker(lowSpeedWindow),
		done:           make(chan struct{}),
		bytesSinceTick: make(chan int, 1024),
	}
	go w.run()
	return w
}

func (w *lowSpeedWatchdog) run() {
	count := 0
	for {
		select {
		case <-w.done:
			w.ticker.Stop()
			return
		case n := <-w.bytesSinceTick:
			count += n
		case <-w.ticker.C:
			if count < lowSpeedThreshold*int(lowSpeedWindow/time.Second) {
				w.cancel()
				w.ticker.Stop()
				return
			}
			count = 0
		}
	}
}

func (w *lowSpeedWatchdog) observe(n int) {
	select {
	case w.bytesSinceTick <- n:
	default:
	}
}

func (w *lowSpeedWatchdog) stop() {
	close(w.done)
}

// writeBuffer is an in-memory io.Writer with a reset hook, used by getBytes so a retried
// attempt starts from a clean slate instead of appending to a partial prior attempt.
type writeBuffer struct {
	data []byte
}

func (b *writeBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *writeBuffer) reset() {
	b.data = b.data[:0]
}
