package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"schedule-assistant/api/internal/chat"
	"schedule-assistant/api/internal/config"
	"schedule-assistant/api/internal/directory"
	"schedule-assistant/api/internal/httpserver"
	"schedule-assistant/api/internal/llm/gemini"
	"schedule-assistant/api/internal/safety"
	"schedule-assistant/api/internal/store"
	"schedule-assistant/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}
	defer engine.Close()

	svc := chat.NewService(directory.Default(), engine, safety.NewModelChecker(engine))
	svc.Channel = "telegram"

	var db *sql.DB
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err = store.Open(ctx, dsn)
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
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	r := &telegram.Router{Bot: bot, Chat: svc, Timeout: cfg.ChatTimeout}

	// DefaultServeMux: ListenForWebhook регистрирует обработчик именно там
	http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			if err := db.PingContext(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, webhookURL)
	} else {
		startPollingMode(ctx, addr, bot, r)
	}
}

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			go r.HandleUpdate(ctx, upd)
		}
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	if err := httpserver.Run(ctx, addr, http.DefaultServeMux); err != nil {
		log.Fatal(err)
	}
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	// health-сервер нужен платформе и в режиме polling
	go func() {
		if err := httpserver.Run(ctx, addr, http.DefaultServeMux); err != nil {
			log.Printf("health server: %v", err)
		}
	}()

	log.Printf("polling as @%s", bot.Self.UserName)
	telegram.RunPolling(ctx, bot, func(upd tgbotapi.Update) {
		go r.HandleUpdate(ctx, upd)
	})
}

func shortHash(s string) string {
	// лёгкий хэш для пути вебхука (не крипто, но стабильно для токена)
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
