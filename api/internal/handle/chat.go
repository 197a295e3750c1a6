package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"schedule-assistant/api/internal/chat"
)

const internalErrorDetail = "An internal error occurred."

type ChatRequest struct {
	Message *string `json:"message"`
}

type ChatResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

type validationIssue struct {
	Type string   `json:"type"`
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
}

func (h *Handle) Chat(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, issue := decodeChatRequest(io.LimitReader(r.Body, 64<<10))
	if issue != nil {
		writeValidation(w, *issue)
		return
	}
	// длину проверяем до любого вызова модели
	if _, err := chat.ValidateMessage(*req.Message); err != nil {
		writeValidation(w, messageIssue(err))
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reqID := uuid.NewString()
	out, err := h.chat.Answer(ctx, *req.Message)
	if err != nil {
		if chat.IsValidation(err) {
			writeValidation(w, messageIssue(err))
			return
		}
		log.Printf("chat %s: an error occurred: %v", reqID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: internalErrorDetail})
		return
	}
	log.Printf("chat %s: answered (safe=%t)", reqID, out.Safe)

	writeJSON(w, http.StatusOK, ChatResponse{Message: out.Message})
}

func writeValidation(w http.ResponseWriter, issue validationIssue) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: []validationIssue{issue}})
}

func messageIssue(err error) validationIssue {
	loc := []string{"body", "message"}
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return validationIssue{Type: "string_too_short", Loc: loc, Msg: "String should have at least 1 character"}
	default:
		return validationIssue{Type: "string_too_long", Loc: loc, Msg: fmt.Sprintf("String should have at most %d characters", chat.MaxMessageLen)}
	}
}

// decodeChatRequest разбирает тело ровно из одного JSON-объекта.
// null в message считается ошибкой типа, а не отсутствием поля.
func decodeChatRequest(body io.Reader) (ChatRequest, *validationIssue) {
	var raw struct {
		Message json.RawMessage `json:"message"`
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return ChatRequest{}, jsonInvalid(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ChatRequest{}, jsonInvalid(errors.New("unexpected data after JSON object"))
	}

	loc := []string{"body", "message"}
	if raw.Message == nil {
		return ChatRequest{}, &validationIssue{Type: "missing", Loc: loc, Msg: "Field required"}
	}
	var msg string
	if bytes.Equal(bytes.TrimSpace(raw.Message), []byte("null")) || json.Unmarshal(raw.Message, &msg) != nil {
		return ChatRequest{}, &validationIssue{Type: "string_type", Loc: loc, Msg: "Input should be a valid string"}
	}
	return ChatRequest{Message: &msg}, nil
}

func jsonInvalid(err error) *validationIssue {
	return &validationIssue{Type: "json_invalid", Loc: []string{"body"}, Msg: "JSON decode error: " + err.Error()}
}
