package updater

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "NetworkError", KindNetwork.String())
	assert.Equal(t, "SelfUpdateError", KindSelfUpdate.String())
	assert.Equal(t, "UnknownError", ErrorKind(99).String())
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	wrapped := newErr(KindFilesystem, "fetcher.download", inner)

	assert.Equal(t, inner, errors.Unwrap(wrapped))
	assert.Contains(t, wrapped.Error(), "FilesystemError")
	assert.Contains(t, wrapped.Error(), "fetcher.download")
	assert.Contains(t, wrapped.Error(), "boom")

	var target *Error
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, KindFilesystem, target.Kind)
}

func TestErrorNilInner(t *testing.T) {
	err := newErr(KindConfig, "config.LoadConfig", nil)
	assert.Contains(t, err.Error(), "ConfigError")
	assert.Contains(t, err.Error(), "config.LoadConfig")
}
