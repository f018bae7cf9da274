package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCountersAndStats(t *testing.T) {
	m := &Monitor{}

	m.RecordOrderRequest()
	m.RecordOrderRequest()
	m.RecordOrderCreated()
	m.RecordOrderFailed()
	m.RecordDecrementError()
	m.RecordCompensationPublished()
	m.RecordWorkerProcessed()
	m.RecordWorkerFailed()

	stats := m.GetStats()
	orders, ok := stats["orders"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(2), orders["requests"])
	assert.Equal(t, int64(1), orders["created"])
	assert.Equal(t, float64(50), orders["success_rate"])

	worker, ok := stats["worker"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(50), worker["success_rate"])

	m.Reset()
	stats = m.GetStats()
	orders = stats["orders"].(map[string]interface{})
	assert.Equal(t, int64(0), orders["requests"])
	assert.Equal(t, float64(0), orders["success_rate"])
}
