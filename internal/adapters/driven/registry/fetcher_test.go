package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

func TestFetcher_FetchDocument_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"streams":[]}`))
	}))
	defer srv.Close()
	f := NewFetcher(Config{})

	body, err := f.FetchDocument(context.Background(), srv.URL+"/catalog.json")

	require.NoError(t, err)
	assert.JSONEq(t, `{"streams":[]}`, string(body))
}

func TestFetcher_FetchDocument_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	f := NewFetcher(Config{})

	body, err := f.FetchDocument(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_FetchDocument_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	f := NewFetcher(Config{Retries: 2})

	_, err := f.FetchDocument(context.Background(), srv.URL)

	assert.ErrorContains(t, err, "status 503")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcher_FetchDocument_NotFoundFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	f := NewFetcher(Config{})

	_, err := f.FetchDocument(context.Background(), srv.URL)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestFetcher_FetchDocument_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"streams":[]}`), 0644))
	f := NewFetcher(Config{})

	body, err := f.FetchDocument(context.Background(), path)

	require.NoError(t, err)
	assert.JSONEq(t, `{"streams":[]}`, string(body))
}

func TestFetcher_FetchDocument_LocalFileMissing(t *testing.T) {
	f := NewFetcher(Config{})

	_, err := f.FetchDocument(context.Background(), filepath.Join(t.TempDir(), "nope.json"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetcher_FetchSpec_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"connectionSpecification":{"title":"Stripe","properties":{}}}`))
	}))
	defer srv.Close()
	f := NewFetcher(Config{})

	doc, err := f.FetchSpec(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, doc, "connectionSpecification")
}

func TestFetcher_FetchSpec_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	spec := "connectionSpecification:\n  title: Stripe\n  properties:\n    api_key:\n      type: string\n"
	require.NoError(t, os.WriteFile(path, []byte(spec), 0644))
	f := NewFetcher(Config{})

	doc, err := f.FetchSpec(context.Background(), path)

	require.NoError(t, err)
	conn, ok := doc["connectionSpecification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Stripe", conn["title"])
}

func TestFetcher_FetchSpec_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some words"), 0644))
	f := NewFetcher(Config{})

	_, err := f.FetchSpec(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrSpecInvalid)
}

func TestParseSpec_JSONNull(t *testing.T) {
	_, err := parseSpec([]byte("null"))

	assert.ErrorIs(t, err, domain.ErrSpecInvalid)
}
