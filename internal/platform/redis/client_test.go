package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/platform/config"
)

func TestOptions(t *testing.T) {
	opts, err := Options(config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/2",
		PoolSize:    20,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	_, err = Options(config.RedisConfig{URL: "http://cache.internal"})
	assert.Error(t, err)
}

func TestNewWithoutURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
