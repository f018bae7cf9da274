package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，统计下单链路的错误与吞吐
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors     int64
	MQErrors        int64
	DBErrors        int64
	DecrementErrors int64

	// 业务统计
	OrderRequests         int64
	OrdersCreated         int64
	OrdersFailed          int64
	CompensationsPublished int64
	WorkerProcessed       int64
	WorkerFailed          int64

	// 时间统计
	LastRedisError time.Time
	LastMQError    time.Time
	LastDBError    time.Time
	LastOrderTime  time.Time
	LastWorkerTime time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError 记录 Redis 错误
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError 记录 MQ 错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordOrderRequest 记录下单请求
func (m *Monitor) RecordOrderRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderRequests++
	m.LastOrderTime = time.Now()
}

// RecordOrderCreated 记录下单成功
func (m *Monitor) RecordOrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCreated++
}

// RecordOrderFailed 记录下单失败
func (m *Monitor) RecordOrderFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersFailed++
}

// RecordDecrementError 记录库存扣减失败
func (m *Monitor) RecordDecrementError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecrementErrors++
}

// RecordCompensationPublished 记录补偿事件发布
func (m *Monitor) RecordCompensationPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompensationsPublished++
}

// RecordWorkerProcessed 记录补偿 worker 处理成功
func (m *Monitor) RecordWorkerProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerProcessed++
	m.LastWorkerTime = time.Now()
}

// RecordWorkerFailed 记录补偿 worker 处理失败
func (m *Monitor) RecordWorkerFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerFailed++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	successRate := float64(0)
	if m.OrderRequests > 0 {
		successRate = float64(m.OrdersCreated) / float64(m.OrderRequests) * 100
	}

	workerSuccessRate := float64(0)
	totalWorker := m.WorkerProcessed + m.WorkerFailed
	if totalWorker > 0 {
		workerSuccessRate = float64(m.WorkerProcessed) / float64(totalWorker) * 100
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"redis":     m.RedisErrors,
			"mq":        m.MQErrors,
			"db":        m.DBErrors,
			"decrement": m.DecrementErrors,
		},
		"orders": map[string]interface{}{
			"requests":                m.OrderRequests,
			"created":                 m.OrdersCreated,
			"failed":                  m.OrdersFailed,
			"success_rate":            successRate,
			"compensations_published": m.CompensationsPublished,
		},
		"worker": map[string]interface{}{
			"processed":    m.WorkerProcessed,
			"failed":       m.WorkerFailed,
			"success_rate": workerSuccessRate,
		},
		"last_events": map[string]interface{}{
			"redis_error": m.LastRedisError,
			"mq_error":    m.LastMQError,
			"db_error":    m.LastDBError,
			"last_order":  m.LastOrderTime,
			"last_worker": m.LastWorkerTime,
		},
	}
}

// Reset 重置统计（测试用）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors = 0
	m.MQErrors = 0
	m.DBErrors = 0
	m.DecrementErrors = 0
	m.OrderRequests = 0
	m.OrdersCreated = 0
	m.OrdersFailed = 0
	m.CompensationsPublished = 0
	m.WorkerProcessed = 0
	m.WorkerFailed = 0
}
