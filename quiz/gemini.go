package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"github.com/recyclebuddy/recyclebuddy/utils"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("model temporarily unavailable")

// GeminiModel calls the Gemini API through the official genai SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a client for the Gemini Developer API.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Generate sends the prompt, with the image as an inline part when present, and returns the reply text.
func (g *GeminiModel) Generate(ctx context.Context, prompt string, image *Image) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if image != nil {
		parts = append(parts, genai.NewPartFromBytes(image.Data, image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}

// BreakerSettings controls when the breaker opens and how long it stays open.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures int
	Cooldown            time.Duration
}

// BreakerModel fails fast once the wrapped model keeps failing.
type BreakerModel struct {
	next Model
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerModel wraps next in a circuit breaker.
func NewBreakerModel(next Model, s BreakerSettings) *BreakerModel {
	if s.Name == "" {
		s.Name = "gemini"
	}
	if s.ConsecutiveFailures <= 0 {
		s.ConsecutiveFailures = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	threshold := uint32(s.ConsecutiveFailures)
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// callers giving up is not an upstream failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			utils.Sugar.Warnw("model circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerModel{next: next, cb: cb}
}

func (b *BreakerModel) Generate(ctx context.Context, prompt string, image *Image) (string, error) {
	out, err := b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, prompt, image)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, err
}

// State exposes the breaker state for health reporting.
func (b *BreakerModel) State() string {
	return b.cb.State().String()
}
