package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"schedule-assistant/api/internal/directory"
	"schedule-assistant/api/internal/llm"
	"schedule-assistant/api/internal/prompt"
	"schedule-assistant/api/internal/safety"
)

const (
	MaxMessageLen = 500

	Apology = "I'm sorry, I cannot provide a response to that."
)

var (
	ErrEmptyMessage   = errors.New("message must not be empty")
	ErrMessageTooLong = fmt.Errorf("message must be at most %d characters", MaxMessageLen)
)

// IsValidation сообщает, что запрос отклонён до обращения к модели.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMessageTooLong)
}

// ValidateMessage обрезает пробелы по краям и проверяет длину в символах.
func ValidateMessage(raw string) (string, error) {
	msg := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(msg)
	switch {
	case n == 0:
		return "", ErrEmptyMessage
	case n > MaxMessageLen:
		return "", ErrMessageTooLong
	}
	return msg, nil
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Escape делает разметку инертной. Строка без &<>"' не меняется.
func Escape(s string) string { return escaper.Replace(s) }

type Reply struct {
	Message string
	Safe    bool
}

// Exchange описывает отданный ответ для журнала.
type Exchange struct {
	ID        uuid.UUID
	Channel   string
	Question  string
	Answer    string
	Safe      bool
	CreatedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// Service выполняет конвейер: промпт -> генерация -> проверка -> ответ.
type Service struct {
	dir     *directory.Directory
	gen     llm.Generator
	checker safety.Classifier

	// Channel пишется в журнал ("http", "telegram").
	Channel  string
	Recorder Recorder
}

func NewService(dir *directory.Directory, gen llm.Generator, checker safety.Classifier) *Service {
	return &Service{dir: dir, gen: gen, checker: checker}
}

func (s *Service) Answer(ctx context.Context, raw string) (Reply, error) {
	msg, err := ValidateMessage(raw)
	if err != nil {
		return Reply{}, err
	}

	p := prompt.Build(prompt.SystemInstruction, s.dir.Format(), msg)

	generated, err := s.gen.Generate(ctx, p)
	if err != nil {
		return Reply{}, fmt.Errorf("generate: %w", err)
	}

	// проверка идёт строго после генерации, на вход ей нужен ответ модели
	ok, err := s.checker.Classify(ctx, generated)
	if err != nil {
		return Reply{}, fmt.Errorf("safety check: %w", err)
	}

	out := Reply{Message: Apology}
	if ok {
		out = Reply{Message: Escape(generated), Safe: true}
	}

	s.record(ctx, msg, out)
	return out, nil
}

func (s *Service) record(ctx context.Context, question string, r Reply) {
	if s.Recorder == nil {
		return
	}
	ex := Exchange{
		ID:        uuid.New(),
		Channel:   s.Channel,
		Question:  question,
		Answer:    r.Message,
		Safe:      r.Safe,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Recorder.Record(ctx, ex); err != nil {
		log.Printf("chat: record exchange %s: %v", ex.ID, err)
	}
}
