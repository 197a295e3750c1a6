package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"schedule-assistant/api/internal/chat"
)

// Answerer описывает то, что нужно HTTP-слою от конвейера чата.
type Answerer interface {
	Answer(ctx context.Context, message string) (chat.Reply, error)
}

// Pinger проверяет зависимость для /healthz (например, БД журнала).
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handle struct {
	chat    Answerer
	timeout time.Duration

	// Ping может быть nil
	Ping Pinger
}

func New(a Answerer, timeout time.Duration) *Handle {
	return &Handle{chat: a, timeout: timeout}
}

// Routes регистрирует API, статику и healthz на новом mux.
func (h *Handle) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	})
	return mux
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
