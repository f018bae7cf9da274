package main

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/infra/mq"
	"github.com/hoyoungleee/say4team-eks/internal/repository/mysql"
	"github.com/hoyoungleee/say4team-eks/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db := mysql.Init(&cfg.MySQL)
	mqConn := mq.Init(&cfg.RabbitMQ)

	productRepo := mysql.NewProductRepository(db)
	productSvc := service.NewProductService(productRepo)

	ch, err := mqConn.Channel()
	if err != nil {
		zap.L().Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(service.StockRestoreQueue, true, false, false, false, nil); err != nil {
		zap.L().Fatal("failed to declare queue", zap.Error(err))
	}

	// 手动确认模式，处理失败的消息重新入队
	msgs, err := ch.Consume(service.StockRestoreQueue, "", false, false, false, false, nil)
	if err != nil {
		zap.L().Fatal("failed to consume", zap.Error(err))
	}

	zap.L().Info("order worker started, waiting for stock restore events...")

	for d := range msgs {
		var ev service.StockRestoreEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			zap.L().Warn("invalid message, dropping", zap.Error(err))
			// 消息格式错误，拒绝并丢弃
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(context.Background(), productSvc, &ev, d)
	}
}

// handleEvent 回补一条补偿事件里记录的全部明细
func handleEvent(ctx context.Context, productSvc *service.ProductService, ev *service.StockRestoreEvent, d amqp.Delivery) {
	if err := productSvc.RestoreStock(ctx, ev.Items); err != nil {
		zap.L().Error("restore stock failed",
			zap.String("event_id", ev.EventID),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err))
		service.GetMonitor().RecordWorkerFailed()
		// 拒绝消息并重新入队
		_ = d.Nack(false, true)
		return
	}

	zap.L().Info("stock restored",
		zap.String("event_id", ev.EventID),
		zap.Int64("order_id", ev.OrderID),
		zap.Int("products", len(ev.Items)))
	service.GetMonitor().RecordWorkerProcessed()

	if err := d.Ack(false); err != nil {
		zap.L().Error("failed to ack message", zap.Error(err))
	}
}
