package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireInstanceLockExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireInstanceLock(dir)
	require.NoError(t, err)
	defer first.Release()

	_, err = AcquireInstanceLock(dir)
	assert.Error(t, err, "a second instance lock on the same directory must fail")
}

func TestInstanceLockReleaseThenReacquire(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireInstanceLock(dir)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := AcquireInstanceLock(dir)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestInstanceLockReleaseNilIsSafe(t *testing.T) {
	var l *InstanceLock
	assert.NoError(t, l.Release())
}
