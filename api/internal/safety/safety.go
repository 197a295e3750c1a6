package safety

import (
	"context"
	"strings"

	"schedule-assistant/api/internal/llm"
	"schedule-assistant/api/internal/prompt"
)

// Classifier решает, можно ли отдавать сгенерированный текст пользователю.
type Classifier interface {
	Classify(ctx context.Context, text string) (bool, error)
}

type ClassifierFunc func(ctx context.Context, text string) (bool, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (bool, error) {
	return f(ctx, text)
}

// ModelChecker спрашивает ту же модель, есть ли в тексте вредный контент.
// Это эвристика, а не гарантия.
type ModelChecker struct {
	gen llm.Generator
}

func NewModelChecker(gen llm.Generator) *ModelChecker {
	return &ModelChecker{gen: gen}
}

func (c *ModelChecker) Classify(ctx context.Context, text string) (bool, error) {
	reply, err := c.gen.Generate(ctx, prompt.Moderation(text))
	if err != nil {
		return false, err
	}
	return Verdict(reply), nil
}

// Verdict: безопасно, если в ответе модели (в нижнем регистре) где угодно
// встречается подстрока "no". Это грубая проверка: "unknown", "not sure"
// и "nope" тоже дают true.
func Verdict(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "no")
}
