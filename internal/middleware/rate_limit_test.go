package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	// 桶空了
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(2, 5)
	tb.Allow()
	tb.Allow()
	assert.False(t, tb.Allow())

	// 把时钟拨回去模拟一秒过去
	tb.mu.Lock()
	tb.lastRefill = tb.lastRefill.Add(-1100 * time.Millisecond)
	tb.mu.Unlock()

	assert.True(t, tb.Allow())
}

func TestTokenBucketNeverExceedsCapacity(t *testing.T) {
	tb := NewTokenBucket(2, 100)

	tb.mu.Lock()
	tb.lastRefill = tb.lastRefill.Add(-10 * time.Second)
	tb.mu.Unlock()

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}
