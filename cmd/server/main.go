package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"farm_market/internal/config"
	"farm_market/internal/directory"
	"farm_market/internal/inventory"
	"farm_market/internal/model"
	"farm_market/internal/order"
	"farm_market/internal/queue"
	"farm_market/internal/reconcile"
	"farm_market/internal/router"
	"farm_market/internal/stats"
	rediskey "farm_market/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// 1. 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Product{}, &model.Order{}, &model.TrackingUpdate{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// 2. Redis：会话 / 限流 / 库存缓存 / 对账日志
	rdb := rd.NewClient(&rd.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	// 3. 核心组件装配
	ledger := inventory.NewLedger(db, rdb, cfg.StockCacheTTL)
	dir := directory.NewService(db)
	journal := reconcile.NewStreamJournal(rdb, cfg.ReconcileStream)
	guard := releaseGuard{rdb: rdb}
	orders := order.NewService(order.NewStore(db), ledger, dir, journal, guard)
	aggregator := stats.NewAggregator(db)

	// 4. 对账管道：Stream → Kafka → 幂等补库存
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	relay := queue.NewRelay(rdb, producer, cfg.ReconcileStream, cfg.ReconcileGroup, cfg.ReconcileConsumer)
	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, rdb, ledger)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go relay.Run(ctx)
	go consumer.Run(ctx)

	r := gin.Default()
	router.Setup(r, router.Deps{
		DB:     db,
		RDB:    rdb,
		Orders: orders,
		Dir:    dir,
		Ledger: ledger,
		Stats:  aggregator,
		Cfg:    cfg,
	})

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("http server: %v", err)
	}
}

// releaseGuard 把 Redis SETNX 锁适配到订单服务的回补幂等端口。
type releaseGuard struct {
	rdb *rd.Client
}

func (g releaseGuard) AcquireOnce(ctx context.Context, scope string) (bool, error) {
	return rediskey.AcquireReleaseOnce(ctx, g.rdb, scope)
}
