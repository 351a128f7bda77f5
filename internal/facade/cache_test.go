package facade_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/visago/payments/internal/facade"
	"github.com/visago/payments/internal/gateway"
)

type stubSource struct {
	calls  int
	status facade.TransactionStatus
	err    error
}

func (s *stubSource) CheckStatus(_ context.Context, _ string) (facade.TransactionStatus, error) {
	s.calls++
	if s.err != nil {
		return facade.TransactionStatus{}, s.err
	}
	return s.status, nil
}

func newCache(t *testing.T, source facade.StatusSource, ttl time.Duration) (facade.StatusCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return facade.StatusCache{R: client, Source: source, TTL: ttl}, mr
}

func TestStatusCacheReadThrough(t *testing.T) {
	source := &stubSource{status: facade.TransactionStatus{
		TransactionID: "TXN-1",
		Status:        facade.StatusProcessing,
		Amount:        100,
		Currency:      "UZS",
		Gateway:       gateway.Payme,
	}}
	cache, _ := newCache(t, source, time.Second)
	ctx := context.Background()

	first, err := cache.CheckStatus(ctx, "TXN-1")
	require.NoError(t, err)
	require.Equal(t, facade.StatusProcessing, first.Status)
	require.Equal(t, 1, source.calls)

	second, err := cache.CheckStatus(ctx, "TXN-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.calls, "second read must be served from cache")
}

func TestStatusCacheExpiry(t *testing.T) {
	source := &stubSource{status: facade.TransactionStatus{
		TransactionID: "TXN-2",
		Status:        facade.StatusPending,
		Gateway:       gateway.Click,
	}}
	cache, mr := newCache(t, source, 500*time.Millisecond)
	ctx := context.Background()

	_, err := cache.CheckStatus(ctx, "TXN-2")
	require.NoError(t, err)
	mr.FastForward(time.Second)

	_, err = cache.CheckStatus(ctx, "TXN-2")
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

func TestStatusCacheSourceErrorsPassThrough(t *testing.T) {
	source := &stubSource{err: facade.ErrUnreachable}
	cache, _ := newCache(t, source, time.Second)

	_, err := cache.CheckStatus(context.Background(), "TXN-3")
	require.ErrorIs(t, err, facade.ErrUnreachable)
}

func TestStatusCacheDisabledWithoutRedis(t *testing.T) {
	source := &stubSource{status: facade.TransactionStatus{TransactionID: "TXN-4", Status: facade.StatusPending}}
	cache := facade.StatusCache{Source: source, TTL: time.Second}

	_, err := cache.CheckStatus(context.Background(), "TXN-4")
	require.NoError(t, err)
	_, err = cache.CheckStatus(context.Background(), "TXN-4")
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

func TestStatusCacheCorruptEntryFallsBack(t *testing.T) {
	source := &stubSource{status: facade.TransactionStatus{TransactionID: "TXN-5", Status: facade.StatusPending}}
	cache, mr := newCache(t, source, time.Second)

	require.NoError(t, mr.Set("payments:status:TXN-5", "{not json"))
	status, err := cache.CheckStatus(context.Background(), "TXN-5")
	require.NoError(t, err)
	require.Equal(t, facade.StatusPending, status.Status)
	require.Equal(t, 1, source.calls)
	require.False(t, errors.Is(err, facade.ErrUnreachable))
}
