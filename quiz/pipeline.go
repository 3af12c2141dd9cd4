// Package quiz turns a photo into a recycling multiple-choice question using a
// vision-language model, and keeps the pending question of each player until it is answered.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRecognition = errors.New("item recognition failed")
	ErrGeneration  = errors.New("quiz generation failed")
)

// failureMarkers in a recognition reply mean the model could not identify the item.
var failureMarkers = []string{"失敗", "錯誤"}

// Image is an uploaded photo as sent to the model.
type Image struct {
	Data     []byte
	MIMEType string
}

// Model is a text generation backend. image may be nil for text-only prompts.
type Model interface {
	Generate(ctx context.Context, prompt string, image *Image) (string, error)
}

// Pipeline runs recognition followed by quiz generation. It holds no per-request state.
type Pipeline struct {
	model   Model
	timeout time.Duration
}

// NewPipeline wraps model; timeout bounds each model call, zero means no extra bound.
func NewPipeline(model Model, timeout time.Duration) *Pipeline {
	return &Pipeline{model: model, timeout: timeout}
}

func (p *Pipeline) call(ctx context.Context, prompt string, image *Image) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.model.Generate(ctx, prompt, image)
}

// Recognize asks the model what item the photo shows.
func (p *Pipeline) Recognize(ctx context.Context, img Image) (string, error) {
	reply, err := p.call(ctx, RecognitionPrompt, &img)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	item := strings.TrimSpace(reply)
	if item == "" {
		return "", fmt.Errorf("%w: empty reply", ErrRecognition)
	}
	for _, marker := range failureMarkers {
		if strings.Contains(item, marker) {
			return "", fmt.Errorf("%w: %s", ErrRecognition, item)
		}
	}
	return item, nil
}

// Generate asks for a quiz about the recognised item and parses the reply.
func (p *Pipeline) Generate(ctx context.Context, item string) (Result, error) {
	reply, err := p.call(ctx, QuizPrompt(item), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return Parse(reply), nil
}
