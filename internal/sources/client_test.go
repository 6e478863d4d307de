package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"TradeValue":10,"qty":1}]}`))
	}))
	defer srv.Close()

	cfg := comtradeConfig(srv.URL)
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond

	res := NewComtradeClient(cfg).FetchTradePrice(context.Background(), "GH", 2024)
	require.True(t, res.OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := comtradeConfig(srv.URL)
	cfg.MaxRetries = 3
	cfg.RetryBackoff = time.Millisecond

	res := NewComtradeClient(cfg).FetchTradePrice(context.Background(), "GH", 2024)
	assert.Equal(t, ReasonHTTPStatus, res.Reason)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSingleAttemptByDefault(t *testing.T) {
	srv, calls := newComtradeServer(t, http.StatusInternalServerError, "")

	res := NewComtradeClient(comtradeConfig(srv.URL)).FetchTradePrice(context.Background(), "GH", 2024)
	assert.Equal(t, Unavailable, res.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRetryStopsOnCancel(t *testing.T) {
	srv, _ := newComtradeServer(t, http.StatusBadGateway, "")
	cfg := comtradeConfig(srv.URL)
	cfg.MaxRetries = 5
	cfg.RetryBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := NewComtradeClient(cfg).FetchTradePrice(ctx, "GH", 2024)
	assert.Equal(t, Unavailable, res.Status)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestResultHelpers(t *testing.T) {
	var zero Result[int]
	assert.Equal(t, NotAttempted, zero.Status)
	assert.Equal(t, "not_attempted", zero.Status.String())
	assert.Equal(t, 7, zero.ValueOr(7))

	ok := AvailableResult(3)
	v, present := ok.Get()
	assert.True(t, present)
	assert.Equal(t, 3, v)
	assert.Equal(t, "available", ok.Status.String())
}
