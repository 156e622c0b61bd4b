package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, WithAddress("127.0.0.1:1"), WithDialTimeout(100*time.Millisecond))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis at 127.0.0.1:1")
}

func TestKeyPrefix(t *testing.T) {
	c := &Cache{prefix: "booth-feedback:"}
	assert.Equal(t, "booth-feedback:aggregation:a01", c.key("aggregation:a01"))
}

func TestNop(t *testing.T) {
	var c Nop
	var dest string

	assert.ErrorIs(t, c.Get(context.Background(), "k", &dest), ErrMiss)
	assert.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	assert.ErrorIs(t, c.Get(context.Background(), "k", &dest), ErrMiss)
	assert.NoError(t, c.Delete(context.Background(), "k"))
	assert.NoError(t, c.Close())
}
