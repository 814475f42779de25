package reconcile

import (
	"context"
	"fmt"

	rd "github.com/redis/go-redis/v9"
)

// Journal 对账日志的写入口。实现必须是追加式的。
type Journal interface {
	Append(ctx context.Context, ev Event) error
}

// StreamJournal 基于 Redis Stream 的对账日志：
// XADD 之后由 Relay 转发 Kafka、消费侧幂等补库存。
type StreamJournal struct {
	rdb    *rd.Client
	stream string
}

func NewStreamJournal(rdb *rd.Client, stream string) *StreamJournal {
	return &StreamJournal{rdb: rdb, stream: stream}
}

func (j *StreamJournal) Append(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("ev.Validate: %w", err)
	}
	if err := j.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: j.stream,
		Values: ev.StreamValues(),
	}).Err(); err != nil {
		return fmt.Errorf("rdb.XAdd: %w", err)
	}
	return nil
}
