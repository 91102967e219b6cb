package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/config"
	"github.com/AutoDeal/AutoDeal/internal/common/discovery"
	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/AutoDeal/AutoDeal/internal/common/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// RegisterFunc 业务方注册路由的回调
type RegisterFunc func(r gin.IRouter) error

// Options 服务运行选项
type Options struct {
	shutdownTimeout time.Duration
	rateLimiter     middleware.RateLimiter
	grpcHealth      bool
}

// Option 配置选项函数
type Option func(*Options)

// WithShutdownTimeout 设置优雅退出的等待时间
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) { o.shutdownTimeout = d }
}

// WithRateLimit 设置 HTTP 层限流器
func WithRateLimit(l middleware.RateLimiter) Option {
	return func(o *Options) { o.rateLimiter = l }
}

// WithGRPCHealth 在 GRPCPort 上开启 gRPC health + reflection（供 Consul 探测）
func WithGRPCHealth() Option {
	return func(o *Options) { o.grpcHealth = true }
}

// RunServer 通用 HTTP 服务启动模板：
// 1. 构建 gin engine + 中间件链
// 2. 启动 HTTP server（以及可选的 gRPC health server）
// 3. 注册到 Consul
// 4. 等待退出信号，优雅关闭并注销服务
func RunServer(cfg *config.Config, log logger.Logger, register RegisterFunc, opts ...Option) error {
	options := &Options{
		shutdownTimeout: 10 * time.Second,
		grpcHealth:      true,
	}
	for _, opt := range opts {
		opt(options)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		Recovery(log),
		Tracing(cfg.Server.Name),
		AccessLog(log),
	)
	if options.rateLimiter != nil {
		engine.Use(RateLimit(options.rateLimiter))
	}
	engine.Use(
		JWTAuth(cfg.Auth, log),
		RBAC(cfg.Auth),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.Server.Name})
	})

	if register != nil {
		if err := register(engine); err != nil {
			return fmt.Errorf("failed to register routes: %w", err)
		}
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		log.Infof("%s HTTP server listening on %s", cfg.Server.Name, httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("http serve: %w", err)
		}
	}()

	// gRPC 侧只挂 health + reflection，端口供 Consul GRPC 健康检查使用
	var grpcSrv *grpc.Server
	if options.grpcHealth {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen grpc port: %w", err)
		}
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, health.NewServer())
		reflection.Register(grpcSrv)
		go func() {
			log.Infof("%s health server listening on %s", cfg.Server.Name, lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	// 注册 Consul；失败不阻断启动（本地开发可能没有 Consul）
	var registry *discovery.ServiceRegistry
	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Warnf("Failed to create consul client: %v", err)
	} else {
		serviceID := fmt.Sprintf("%s-%s", cfg.Server.Name, uuid.New().String())
		registry = discovery.NewServiceRegistry(
			consulClient, serviceID, cfg.Server.Name,
			cfg.Server.Host, cfg.Server.GRPCPort,
			[]string{"autodeal", "http"},
		)
		if !options.grpcHealth {
			registry = registry.WithHTTPCheck(cfg.Server.HTTPPort)
		}
		if err := registry.Register(); err != nil {
			log.Warnf("Failed to register service to consul: %v", err)
			registry = nil
		} else {
			log.Infof("Service registered to consul: %s", serviceID)
		}
	}
	defer func() {
		if registry != nil {
			if err := registry.Deregister(); err != nil {
				log.Warnf("Failed to deregister service: %v", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		log.Infof("Received signal %v, shutting down...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), options.shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}

	if grpcSrv != nil {
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(options.shutdownTimeout):
			grpcSrv.Stop()
		}
	}

	log.Info("Server exited")
	return nil
}
