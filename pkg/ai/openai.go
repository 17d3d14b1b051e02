package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "revizor",
		Subsystem: "judge",
		Name:      "completion_duration_seconds",
		Help:      "Duration of judge completion requests",
	}, []string{"model"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revizor",
		Subsystem: "judge",
		Name:      "completion_failures_total",
		Help:      "Number of failed judge completion requests",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI-backed judge.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIJudge implements Judge against an OpenAI-compatible chat completion API.
type OpenAIJudge struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIJudge builds a judge client using the provided configuration.
func NewOpenAIJudge(cfg OpenAIConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	tracer := otel.Tracer("github.com/revizorlab/revizor-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIJudge{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_judge").Logger(),
	}, nil
}

// Complete sends the assembled prompt and returns the raw reply text. The
// call is bounded by the configured timeout; any failure, including expiry,
// surfaces as an error with no retry at this layer.
func (j *OpenAIJudge) Complete(parent context.Context, prompt string) (string, error) {
	ctx, span := j.tracer.Start(parent, "judge.complete", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
		attribute.Int("prompt_chars", len(prompt)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := j.client.CreateChatCompletion(ctx, request)
	judgeDuration.WithLabelValues(j.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues(j.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("judge completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from judge")
		judgeFailures.WithLabelValues(j.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	j.logger.Debug().Int("reply_chars", len(reply)).Msg("judge reply received")
	return reply, nil
}
