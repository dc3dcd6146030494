package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleEmitsFirstCallImmediately(t *testing.T) {
	var calls int
	th := NewThrottle(func(downloaded, total int64) { calls++ })
	th.Report(0, 100)
	assert.Equal(t, 1, calls)
}

func TestThrottleSuppressesRapidSmallDeltas(t *testing.T) {
	var calls []int64
	th := NewThrottle(func(downloaded, total int64) { calls = append(calls, downloaded) })
	th.Report(0, 1000)
	th.Report(1, 1000) // well under 1% and well under 200ms: suppressed
	assert.Equal(t, []int64{0}, calls)
}

func TestThrottleEmitsOnOnePercentDelta(t *testing.T) {
	var calls []int64
	th := NewThrottle(func(downloaded, total int64) { calls = append(calls, downloaded) })
	th.Report(0, 100)
	th.Report(2, 100) // 2% jump, forces emission regardless of elapsed time
	assert.Equal(t, []int64{0, 2}, calls)
}

func TestThrottleEmitsAfterInterval(t *testing.T) {
	var calls []int64
	th := NewThrottle(func(downloaded, total int64) { calls = append(calls, downloaded) })
	th.interval = time.Millisecond
	th.Report(0, 1000)
	time.Sleep(5 * time.Millisecond)
	th.Report(1, 1000)
	assert.Equal(t, []int64{0, 1}, calls)
}

func TestThrottleNilIsNoOp(t *testing.T) {
	var th *Throttle
	assert.NotPanics(t, func() { th.Report(1, 2) })

	th2 := NewThrottle(nil)
	assert.NotPanics(t, func() { th2.Report(1, 2) })
}

func TestThrottleUnknownTotalEmitsOnByteChange(t *testing.T) {
	var calls []int64
	th := NewThrottle(func(downloaded, total int64) { calls = append(calls, downloaded) })
	th.Report(0, 0)
	th.Report(5, 0)
	assert.Equal(t, []int64{0, 5}, calls)
}

func TestFormatBytes(t *testing.T) {
	assert.NotEmpty(t, FormatBytes(1024))
	assert.NotEmpty(t, FormatBytes(-1))
}

func TestRunWithMonitorSucceeds(t *testing.T) {
	err := RunWithMonitor(context.Background(), func(ctx context.Context) error {
		return nil
	}, nil)
	assert.NoError(t, err)
}

func TestRunWithMonitorPropagatesWorkError(t *testing.T) {
	wantErr := errors.New("boom")
	err := RunWithMonitor(context.Background(), func(ctx context.Context) error {
		return wantErr
	}, func() {})
	require.Error(t, err)
	assert.Equal(t, wantErr, err)
}

func TestRunWithMonitorStopsSamplerWhenWorkFinishes(t *testing.T) {
	var samples int
	err := RunWithMonitor(context.Background(), func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}, func() { samples++ })
	require.NoError(t, err)
	assert.Equal(t, 0, samples, "work finishes well before sampleInterval elapses, so the sampler never fires")
}
