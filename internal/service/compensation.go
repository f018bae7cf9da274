package service

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StockRestoreQueue 库存回补补偿队列
const StockRestoreQueue = "stock_restore_queue"

// StockRestoreEvent 库存回补事件：下单过程中扣减中断时，
// 把已经扣掉的那部分明细发出去，由 order-worker 补回。
type StockRestoreEvent struct {
	EventID string          `json:"event_id"`
	OrderID int64           `json:"order_id"`
	Items   map[int64]int64 `json:"items"` // productID -> quantity
}

// CompensationPublisher 补偿事件发布方
type CompensationPublisher interface {
	PublishStockRestore(ctx context.Context, ev *StockRestoreEvent) error
}

// MQCompensationPublisher 基于 RabbitMQ 的补偿发布实现
type MQCompensationPublisher struct {
	conn *amqp.Connection
}

// NewMQCompensationPublisher 创建发布器
func NewMQCompensationPublisher(conn *amqp.Connection) *MQCompensationPublisher {
	return &MQCompensationPublisher{conn: conn}
}

func (p *MQCompensationPublisher) PublishStockRestore(ctx context.Context, ev *StockRestoreEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(StockRestoreQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		StockRestoreQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
