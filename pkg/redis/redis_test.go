package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxquery/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	limiter := NewRateLimiter(client, "test")

	allowed, remaining, err := limiter.Allow(context.Background(), KRXRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, KRXRateLimit.Limit, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), NaverRateLimit))
}

func TestRateLimiter_MembersUnique(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(NewFromClient(db), "krxquery")

	var members []string
	capture := func(expected, actual []interface{}) error {
		if len(actual) != 9 {
			return fmt.Errorf("want 9 args, got %d", len(actual))
		}
		members = append(members, fmt.Sprint(actual[len(actual)-1]))
		return nil
	}
	for i := 0; i < 2; i++ {
		mock.CustomMatch(capture).
			ExpectEvalSha(slidingWindow.Hash(), []string{"krxquery:ratelimit:krx"}).
			SetVal([]interface{}{int64(1), int64(1 - i)})
	}

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(context.Background(), KRXRateLimit)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	require.Len(t, members, 2)
	assert.NotEqual(t, members[0], members[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitConfig_PerSecond(t *testing.T) {
	cfg := KRXRateLimit.PerSecond(7)
	assert.Equal(t, "krx", cfg.Key)
	assert.Equal(t, 7, cfg.Limit)
	assert.Equal(t, time.Second, cfg.Window)
	assert.Equal(t, 2, KRXRateLimit.Limit, "predefined config must not change")

	assert.Equal(t, NaverRateLimit, NaverRateLimit.PerSecond(0))
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	cache := NewCache(client, "test", time.Minute)

	body, found, err := cache.Get(context.Background(), "key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, body)
	assert.NoError(t, cache.Set(context.Background(), "key", []byte("x")))
}

func TestCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "krxquery", time.Hour)

	mock.ExpectGet("krxquery:cache:k1").SetVal(`{"OutBlock_1":[]}`)

	body, found, err := cache.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"OutBlock_1":[]}`, string(body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetOrFetch_MissStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "krxquery", time.Hour)

	mock.ExpectGet("krxquery:cache:k2").RedisNil()
	mock.ExpectSet("krxquery:cache:k2", []byte("fresh"), time.Hour).SetVal("OK")

	calls := 0
	body, err := cache.GetOrFetch(context.Background(), "k2", func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(body))
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetOrFetch_FetchErrorNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "krxquery", time.Hour)

	mock.ExpectGet("krxquery:cache:k3").RedisNil()

	upstream := errors.New("upstream 500")
	_, err := cache.GetOrFetch(context.Background(), "k3", func() ([]byte, error) {
		return nil, upstream
	})
	assert.ErrorIs(t, err, upstream)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestKey(t *testing.T) {
	a := RequestKey("MDCSTAT01501", url.Values{"mktId": {"STK"}, "trdDd": {"20240115"}})
	b := RequestKey("MDCSTAT01501", url.Values{"trdDd": {"20240115"}, "mktId": {"STK"}})
	c := RequestKey("MDCSTAT01501", url.Values{"mktId": {"KSQ"}, "trdDd": {"20240115"}})

	assert.Equal(t, a, b, "parameter order must not matter")
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "MDCSTAT01501:")
}
