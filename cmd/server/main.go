// LinePlan 产线排产服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/lineplan/internal/config"
	"github.com/paiban/lineplan/internal/database"
	"github.com/paiban/lineplan/internal/handler"
	"github.com/paiban/lineplan/internal/metrics"
	"github.com/paiban/lineplan/internal/middleware"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/internal/repository"
	"github.com/paiban/lineplan/pkg/logger"
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
	logger.Init(cfg.Logger())

	// 数据库不可用时只在内存中保存排产表
	var store handler.Store
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，排产结果不会持久化")
	} else {
		defer db.Close()
		store = repository.NewScheduleRepository(db)
	}

	planHandler := handler.New(
		planfile.Defaults{Horizon: cfg.Planner.Horizon(), Naming: cfg.Planner.Naming()},
		cfg.Planner.Session(),
		store,
	)

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "service": cfg.App.Name, "database": "disabled"}
		if db != nil {
			status["database"] = "ok"
			if err := db.Health(r.Context()); err != nil {
				status["database"] = "unavailable"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	planHandler.Register(mux)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	// 中间件由外到内：recovery -> requestID -> logging -> headers -> cors -> rateLimit -> apiKey
	mws := []middleware.Middleware{
		middleware.Recovery,
		middleware.RequestID,
		middleware.Logging,
		middleware.SecurityHeaders,
	}
	if cfg.API.CORS.Enabled {
		mws = append(mws, middleware.CORS(cfg.API.CORS.Origins))
	}
	if cfg.API.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewRateLimiter(float64(cfg.API.RateLimit))))
	}
	mws = append(mws, middleware.APIKey(cfg.App.APIKey, "/health", "/version", cfg.Metrics.Path))

	port := fmt.Sprintf("%d", cfg.App.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + cfg.Planner.SolveTimeout*2,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("port", port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("persistence", store != nil).
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}
