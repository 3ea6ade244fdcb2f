package luftmetrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lm "github.com/hausgeist/luftmetrics/internal"
)

func testURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHttpClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		io.WriteString(w, `{"ok": true}`)
	}))
	defer srv.Close()

	log := zerolog.Nop()
	body, err := lm.NewHttpClient(time.Second).Get(context.Background(), &log, lm.URLOpt(testURL(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, string(body))
}

func TestHttpClient_GetBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	log := zerolog.Nop()
	body, err := lm.NewHttpClient(time.Second).Get(context.Background(), &log, lm.URLOpt(testURL(t, srv.URL)))
	assert.ErrorIs(t, err, lm.ErrFailedRequest)
	assert.Nil(t, body)
}

func TestHttpClient_GetTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	log := zerolog.Nop()
	_, err := lm.NewHttpClient(time.Second).Get(context.Background(), &log, lm.URLOpt(testURL(t, srv.URL)))
	assert.ErrorIs(t, err, lm.ErrFailedRequest)
}

func TestHttpClient_GetCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := zerolog.Nop()
	_, err := lm.NewHttpClient(time.Second).Get(ctx, &log, lm.URLOpt(testURL(t, srv.URL)))
	assert.ErrorIs(t, err, lm.ErrFailedRequest)
}
