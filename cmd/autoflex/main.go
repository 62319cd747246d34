package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/yasfei/inventory-autoflex/internal/api"
	"github.com/yasfei/inventory-autoflex/internal/config"
	"github.com/yasfei/inventory-autoflex/internal/domain/inventory"
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
	"github.com/yasfei/inventory-autoflex/internal/infra/db"
	httpx "github.com/yasfei/inventory-autoflex/internal/infra/http"
	"github.com/yasfei/inventory-autoflex/internal/infra/logger"
	"github.com/yasfei/inventory-autoflex/internal/infra/notify"
	"github.com/yasfei/inventory-autoflex/migrations"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return migrations.Up(sqlDB)
}

func buildNotifier(cfg config.Config, log *slog.Logger) notify.Notifier {
	n := notify.Multi{notify.NewLog(log)}
	if cfg.Telegram.Token == "" {
		return n
	}
	tg, err := notify.NewTelegramFromToken(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Warn("telegram notifications disabled", "err", err)
		return n
	}
	return append(n, tg)
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	h := api.New(log,
		materials.NewRepo(pool),
		products.NewRepo(pool),
		inventory.NewRepo(pool),
		buildNotifier(cfg, log),
		api.Options{CORSOrigins: cfg.HTTP.CORSOrigins, LowThreshold: cfg.Stock.LowThreshold},
	)

	srv := httpx.New(cfg.HTTP.Addr, h.Router(), cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
