package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/AutoDeal/AutoDeal/internal/common/config"
	"github.com/AutoDeal/AutoDeal/internal/common/db"
	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/AutoDeal/AutoDeal/internal/notify"
	"github.com/AutoDeal/AutoDeal/internal/vehicle"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	configPath = flag.String("config", "configs/sale-worker.json", "配置文件路径")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	var gormDB *gorm.DB
	if cfg.Database.DSN != "" {
		gormDB, err = db.NewMySQLFromDSN(cfg.Database.DSN, cfg.Database.MaxIdle, cfg.Database.MaxOpen)
	} else {
		gormDB, err = db.NewMySQL(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Database,
			cfg.Database.MaxIdle,
			cfg.Database.MaxOpen,
		)
	}
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer rdb.Close()

	// worker 只回退草稿，不发起销售，publisher 置 nil
	svc := vehicle.NewService(vehicle.NewRepo(gormDB), nil, log)
	consumer := notify.NewCancelConsumer(rdb, cfg.Queue.CancelQueue, svc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("sale-worker exited with error: %v", err)
	}
}
