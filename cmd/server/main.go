// Roster 排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/database"
	"github.com/paiban/roster/internal/handler"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/internal/security"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/scheduler"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	fmt.Printf("Roster 排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("初始化存储失败")
		os.Exit(1)
	}
	defer closeStore()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	var limiter *security.RateLimiter
	if cfg.API.RateLimit > 0 {
		limiter = security.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateWindow)
		defer limiter.Stop()
	}
	keys := security.NewAPIKeyManager(cfg.API.Keys)
	if !keys.Enabled() && cfg.IsProduction() {
		logger.Warn().Msg("生产环境未配置 API_KEYS，接口不做认证")
	}

	api := handler.New(scheduler.NewEngine(), store, handler.Options{
		Timeout:      cfg.API.Timeout,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		Optimizer:    cfg.Optimizer.Options(),
		Weights:      cfg.Weights.Weights(),
		MetricsPath:  metricsPath,
		Version:      Version,
		APIKeys:      keys,
		RateLimiter:  limiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      api,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("database", cfg.Database.Enabled).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		return
	}

	logger.Info().Msg("服务器已关闭")
}

// openStore 启用数据库时使用 PostgreSQL，否则使用内存存储
func openStore(cfg *config.Config) (repository.ScheduleStore, func(), error) {
	if !cfg.Database.Enabled {
		logger.Warn().Msg("未启用数据库，排班方案仅保存在内存中")
		return repository.NewMemoryScheduleStore(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	metrics.Registry.MustRegister(collectors.NewDBStatsCollector(db.DB, cfg.Database.Name))

	return repository.NewScheduleRepository(db), func() { db.Close() }, nil
}
