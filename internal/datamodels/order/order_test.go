package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "ORDERED", "CANCELED"} {
		st, ok := ParseStatus(s)
		assert.True(t, ok, s)
		assert.Equal(t, Status(s), st)
	}

	for _, s := range []string{"", "pending", "SHIPPED", "BOGUS"} {
		_, ok := ParseStatus(s)
		assert.False(t, ok, s)
	}
}

func TestCanTransition(t *testing.T) {
	// CANCELED 是终态
	assert.False(t, StatusCanceled.CanTransition(StatusPending))
	assert.False(t, StatusCanceled.CanTransition(StatusOrdered))

	// 其它状态之间自由迁移
	assert.True(t, StatusPending.CanTransition(StatusOrdered))
	assert.True(t, StatusPending.CanTransition(StatusCanceled))
	assert.True(t, StatusOrdered.CanTransition(StatusPending))
	assert.True(t, StatusOrdered.CanTransition(StatusCanceled))
}
