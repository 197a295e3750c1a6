package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"schedule-assistant/api/internal/chat"
	"schedule-assistant/api/internal/config"
	"schedule-assistant/api/internal/directory"
	"schedule-assistant/api/internal/handle"
	"schedule-assistant/api/internal/httpserver"
	"schedule-assistant/api/internal/llm/gemini"
	"schedule-assistant/api/internal/safety"
	"schedule-assistant/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}
	defer engine.Close()

	dir := directory.Default()
	svc := chat.NewService(dir, engine, safety.NewModelChecker(engine))
	svc.Channel = "http"

	h := handle.New(svc, cfg.ChatTimeout)

	// журнал обменов: только если задана БД
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := store.Open(ctx, dsn)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		log.Printf("db connected: %s", store.SafeDSNSummary(dsn))

		repo := store.NewExchangeRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		if n, err := repo.ApplyRetention(ctx, cfg.ExchangeRetention); err != nil {
			log.Printf("purge exchanges: %v", err)
		} else if n > 0 {
			log.Printf("purged %d exchanges older than %s", n, cfg.ExchangeRetention)
		}
		svc.Recorder = repo
		h.Ping = db
	}

	log.Printf("schedule assistant: model=%s students=%d", engine.Model, dir.Len())
	if err := httpserver.Run(ctx, ":"+cfg.Port, h.Routes(cfg.StaticDir)); err != nil {
		log.Fatal(err)
	}
}
