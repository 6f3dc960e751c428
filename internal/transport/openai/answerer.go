package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/segment"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Compile-time checks.
var (
	_ domain.Answerer      = (*Answerer)(nil)
	_ domain.HealthChecker = (*Answerer)(nil)
)

const systemPromptHeader = "Use the following pieces of context to answer the user's question. \n" +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n" +
	"----------------\n"

// AnswererConfig holds the chat model settings.
type AnswererConfig struct {
	ClientConfig
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Answerer answers questions from supplied context with one chat completion ("stuff" chain).
type Answerer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewAnswerer creates a chat completion answerer.
func NewAnswerer(cfg *AnswererConfig) *Answerer {
	return &Answerer{
		client:      newClient(cfg.ClientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Answer sends all segments, in order, as context together with the question.
func (a *Answerer) Answer(ctx context.Context, question string, segments []segment.Segment) (domain.Answer, error) {
	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.requestTemperature(),
		MaxTokens:   a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(segments)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(callCtx, req)
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AnswerTotal.WithLabelValues("error").Inc()
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.Answer{}, fmt.Errorf("chat completion exceeded %s: %w",
				a.timeout, errors.Join(domain.ErrProviderTimeout, domain.ErrAnswererError))
		}
		return domain.Answer{}, wrapAPIError("chat", domain.ErrAnswererError, err)
	}
	if len(resp.Choices) == 0 {
		metrics.AnswerTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, fmt.Errorf("empty chat completion response: %w", domain.ErrAnswererError)
	}

	metrics.AnswerTotal.WithLabelValues("success").Inc()
	a.logger.Debug("Chat completion finished",
		zap.String("model", a.model),
		zap.Int("context_segments", len(segments)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	used := make([]segment.Segment, len(segments))
	copy(used, segments)
	return domain.Answer{Text: strings.TrimSpace(resp.Choices[0].Message.Content), Used: used}, nil
}

// HealthCheck verifies API availability via ListModels.
func (a *Answerer) HealthCheck(ctx context.Context) error {
	return listModels(ctx, a.client)
}

// requestTemperature maps 0 to the smallest positive float: go-openai drops a zero
// temperature (omitempty) and the server would then apply its default of 1.
func (a *Answerer) requestTemperature() float32 {
	if a.temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return a.temperature
}

func buildSystemPrompt(segments []segment.Segment) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	for i := range segments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(segments[i].Text())
	}
	return b.String()
}
