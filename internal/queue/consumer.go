package queue

import (
	"context"
	"encoding/json"
	"log"

	"farm_market/internal/inventory"
	"farm_market/internal/reconcile"
	"farm_market/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Consumer 消费对账事件，幂等补回库存。
// Kafka 是 at-least-once，幂等性靠 event_id 维度的 SETNX 锁保证：
// 同一事件重复投递最多只会落一次库存。
type Consumer struct {
	r      *kafka.Reader
	rdb    *rd.Client
	ledger *inventory.Ledger
}

func NewConsumer(brokers []string, topic, groupID string, rdb *rd.Client, ledger *inventory.Ledger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		rdb:    rdb,
		ledger: ledger,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var ev reconcile.Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := ev.Validate(); err != nil {
			log.Printf("consumer invalid event: %v", err)
			continue
		}

		ok, err := redis.AcquireReleaseOnce(ctx, c.rdb, "event:"+ev.EventID)
		if err != nil {
			log.Printf("consumer acquire once event_id=%s: %v", ev.EventID, err)
			continue
		}
		if !ok {
			continue // 重复投递，已处理过
		}

		if err := c.ledger.Release(ctx, ev.ProductID, ev.Quantity); err != nil {
			// 留给人工排查：锁已占用，避免自动重试把库存加多
			log.Printf("consumer release order_no=%s product=%d qty=%d: %v",
				ev.OrderNo, ev.ProductID, ev.Quantity, err)
			continue
		}
		log.Printf("consumer released order_no=%s product=%d qty=%d reason=%s",
			ev.OrderNo, ev.ProductID, ev.Quantity, ev.Reason)
	}
}
