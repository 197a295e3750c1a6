package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedule-assistant/api/internal/chat"
	"schedule-assistant/api/internal/directory"
	"schedule-assistant/api/internal/llm"
	"schedule-assistant/api/internal/safety"
)

type stubGen struct {
	reply string
	err   error
	calls int
}

func (g *stubGen) Generate(context.Context, string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func safeAs(v bool) safety.Classifier {
	return safety.ClassifierFunc(func(context.Context, string) (bool, error) { return v, nil })
}

func newTestHandle(gen llm.Generator, checker safety.Classifier) (*Handle, http.Handler) {
	dir := directory.New(directory.Entry{
		ID:     "S1",
		Record: directory.Record{Name: "Ana", Classes: []string{"Math", "Art"}},
	})
	h := New(chat.NewService(dir, gen, checker), 0)
	return h, h.Routes("testdata")
}

func postChat(t *testing.T, srv http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestChatAnswersScheduleQuestion(t *testing.T) {
	gen := &stubGen{reply: "Ana is enrolled in Math and Art."}
	_, srv := newTestHandle(gen, safeAs(true))

	rec := postChat(t, srv, `{"message": "What classes is Ana in?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, ChatResponse{Message: "Ana is enrolled in Math and Art."}, decode[ChatResponse](t, rec))
	assert.Equal(t, 1, gen.calls)
}

func TestChatEscapesRefusal(t *testing.T) {
	refusal := `I'm sorry, but grades are confidential. I can only share "class" <schedules>.`
	_, srv := newTestHandle(&stubGen{reply: refusal}, safeAs(true))

	rec := postChat(t, srv, `{"message": "What is Ana's grade in Math?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ChatResponse](t, rec)
	assert.Equal(t, chat.Escape(refusal), got.Message)
	assert.Equal(t, "I&#x27;m sorry, but grades are confidential. I can only share &quot;class&quot; &lt;schedules&gt;.", got.Message)
}

func TestChatUnsafeReturnsApology(t *testing.T) {
	_, srv := newTestHandle(&stubGen{reply: "something harmful"}, safeAs(false))

	rec := postChat(t, srv, `{"message": "What classes is Ana in?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ChatResponse{Message: chat.Apology}, decode[ChatResponse](t, rec))
}

func TestChatGenerationFailure(t *testing.T) {
	_, srv := newTestHandle(&stubGen{err: errors.New("dial tcp: network is unreachable")}, safeAs(true))

	rec := postChat(t, srv, `{"message": "What classes is Ana in?"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail": "An internal error occurred."}`, rec.Body.String())
}

func TestChatSafetyFailure(t *testing.T) {
	checker := safety.ClassifierFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("quota exceeded")
	})
	_, srv := newTestHandle(&stubGen{reply: "ok"}, checker)

	rec := postChat(t, srv, `{"message": "What classes is Ana in?"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail": "An internal error occurred."}`, rec.Body.String())
}

func TestChatValidationRejectsBeforeGeneration(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType string
	}{
		{"empty message", `{"message": ""}`, "string_too_short"},
		{"whitespace message", `{"message": "   \n\t "}`, "string_too_short"},
		{"too long", `{"message": "` + strings.Repeat("a", chat.MaxMessageLen+1) + `"}`, "string_too_long"},
		{"missing field", `{}`, "missing"},
		{"not a string", `{"message": 42}`, "string_type"},
		{"null message", `{"message": null}`, "string_type"},
		{"trailing garbage", `{"message": "hi"} trailing`, "json_invalid"},
		{"two objects", `{"message": "hi"}{"message": "again"}`, "json_invalid"},
		{"bad json", `{"message": `, "json_invalid"},
		{"empty body", ``, "json_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGen{reply: "unused"}
			_, srv := newTestHandle(gen, safeAs(true))

			rec := postChat(t, srv, tt.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var body struct {
				Detail []validationIssue `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Len(t, body.Detail, 1)
			assert.Equal(t, tt.wantType, body.Detail[0].Type)
			assert.Zero(t, gen.calls)
		})
	}
}

func TestChatAcceptsMessageAtLimit(t *testing.T) {
	gen := &stubGen{reply: "ok"}
	_, srv := newTestHandle(gen, safeAs(true))

	rec := postChat(t, srv, `{"message": "  `+strings.Repeat("a", chat.MaxMessageLen)+`  "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gen.calls)
}

func TestChatMethodNotAllowed(t *testing.T) {
	_, srv := newTestHandle(&stubGen{}, safeAs(true))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatTimeoutAppliedToContext(t *testing.T) {
	var deadline bool
	gen := llm.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		_, deadline = ctx.Deadline()
		return "ok", nil
	})
	dir := directory.New()
	h := New(chat.NewService(dir, gen, safeAs(true)), time.Minute)

	rec := postChat(t, h.Routes("testdata"), `{"message": "hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deadline)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	h, srv := newTestHandle(&stubGen{}, safeAs(true))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	h.Ping = stubPinger{err: errors.New("connection refused")}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStaticRoutes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>schedule</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	h := New(chat.NewService(directory.New(), &stubGen{}, safeAs(true)), 0)
	srv := h.Routes(dir)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>schedule</h1>")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatAcceptsTrailingWhitespace(t *testing.T) {
	gen := &stubGen{reply: "Ana is enrolled in Math and Art."}
	_, srv := newTestHandle(gen, safeAs(true))

	rec := postChat(t, srv, "{\"message\": \"What classes is Ana in?\"}\n\t ")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gen.calls)
}
