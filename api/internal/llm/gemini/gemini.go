package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("gemini: empty response")

// Engine держит один клиент на весь процесс; genai.Client безопасен для
// конкурентного использования.
type Engine struct {
	Model string

	cl *genai.Client
	m  *genai.GenerativeModel
}

func New(ctx context.Context, apiKey, model string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	model = strings.TrimSpace(model)
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		_ = cl.Close()
		return nil, fmt.Errorf("gemini: model %q is nil", model)
	}
	return &Engine{Model: model, cl: cl, m: m}, nil
}

func (e *Engine) Close() error { return e.cl.Close() }

// Generate делает один вызов generateContent, без ретраев.
func (e *Engine) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := e.m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", e.Model, err)
	}
	txt, ok := responseText(resp)
	if !ok {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

// responseText склеивает текстовые части первого кандидата с контентом.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		found := false
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
				found = true
			}
		}
		if found {
			return sb.String(), true
		}
	}
	return "", false
}
