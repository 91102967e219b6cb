package main

import (
	"flag"
	"fmt"

	"github.com/AutoDeal/AutoDeal/internal/common/config"
	"github.com/AutoDeal/AutoDeal/internal/common/db"
	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/AutoDeal/AutoDeal/internal/common/middleware"
	"github.com/AutoDeal/AutoDeal/internal/common/server"
	"github.com/AutoDeal/AutoDeal/internal/common/tracing"
	"github.com/AutoDeal/AutoDeal/internal/notify"
	"github.com/AutoDeal/AutoDeal/internal/vehicle"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	configPath = flag.String("config", "configs/vehicle-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
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
	if err := gormDB.AutoMigrate(&vehicle.Brand{}, &vehicle.Vehicle{}, &vehicle.SaleRecord{}); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// Redis：支付发起事件的出站队列
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer rdb.Close()

	pub := notify.NewQueuePublisher(rdb, cfg.Queue.PaymentQueue, log)
	svc := vehicle.NewService(vehicle.NewRepo(gormDB), pub, log)
	api := vehicle.NewHTTPServer(svc, log)

	// 启动统一的 HTTP 服务模板
	if err := server.RunServer(cfg, log, api.RegisterRoutes,
		server.WithRateLimit(middleware.NewTokenBucket(200, 100)),
	); err != nil {
		log.Fatalf("vehicle-service exited with error: %v", err)
	}
}
