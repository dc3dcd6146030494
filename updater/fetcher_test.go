package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadTimeout(t *testing.T) {
	assert.Equal(t, minDownloadTimeout, DownloadTimeout(0))
	assert.Equal(t, minDownloadTimeout, DownloadTimeout(-1))
	assert.Equal(t, minDownloadTimeout, DownloadTimeout(5*1024*1024))
	assert.Equal(t, minDownloadTimeout+downloadTimeoutStep, DownloadTimeout(10*1024*1024))
	assert.Equal(t, maxDownloadTimeout, DownloadTimeout(1000*1024*1024))
}

func TestFetcherGetText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"1.0.0"}`))
	}))
	defer srv.Close()

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	body, err := f.GetText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"version":"1.0.0"}`, string(body))
}

func TestFetcherGetTextNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	_, err := f.GetText(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetcherDownloadToFile(t *testing.T) {
	payload := []byte("the quick brown fox")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	err := f.DownloadToFile(context.Background(), srv.URL, dest, int64(len(payload)), nil)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetcherDownloadToFileRemovesPartialOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	err := f.DownloadToFile(context.Background(), srv.URL, dest, 0, nil)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcherDownloadToMemory(t *testing.T) {
	payload := []byte("memory payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	got, err := f.DownloadToMemory(context.Background(), srv.URL, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetcherGetTextEmptyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	_, err := f.GetText(context.Background(), srv.URL)
	require.Error(t, err, "a manifest fetch can never legitimately be empty")
}

func TestFetcherDownloadToMemoryToleratesEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewFetcher(Settings{APITimeout: 5 * time.Second})
	got, err := f.DownloadToMemory(context.Background(), srv.URL, 0, nil)
	require.NoError(t, err, "an empty directory-entry archive is a legitimate 0-byte payload, per spec.md §8")
	assert.Empty(t, got)
}
