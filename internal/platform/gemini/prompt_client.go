// Package gemini implements the prompt-completion integration against
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/tasker-api/internal/config"
	"github.com/phrazzld/tasker-api/internal/platform/metrics"
	"github.com/phrazzld/tasker-api/internal/task"
)

const apiName = "gemini"

// PromptClient implements task.PromptCompleter using the Gemini API. Retry
// policy lives in the task runner, so this client makes exactly one call
// per Complete and classifies its failures.
type PromptClient struct {
	client       *genai.Client
	defaultModel string
	logger       *slog.Logger
}

// New creates a PromptClient from the LLM configuration. An empty API key
// yields an unconfigured client whose completions fail permanently; prompt
// tasks then fail fast while the rest of the service runs normally.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*PromptClient, error) {
	pc := &PromptClient{
		defaultModel: cfg.ModelName,
		logger:       logger.With("component", "gemini_client"),
	}

	if cfg.GeminiAPIKey == "" {
		pc.logger.Warn("no gemini API key configured, prompt tasks will fail")
		return pc, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	pc.client = client
	return pc, nil
}

// Complete sends one prompt-completion request to the Gemini API.
func (c *PromptClient) Complete(ctx context.Context, req task.CompletionRequest) (*task.Completion, error) {
	if c.client == nil {
		return nil, task.Permanentf("prompt completion is not configured: missing gemini API key")
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: req.MaxTokens,
		Temperature:     genai.Ptr(req.Temperature),
	}

	c.logger.Debug("calling gemini",
		"model", model,
		"prompt_length", len(req.Prompt),
		"max_tokens", req.MaxTokens)

	started := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genCfg)
	metrics.ExternalAPIDuration.WithLabelValues(apiName).Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.ExternalAPIRequests.WithLabelValues(apiName, "error").Inc()
		return nil, classifyGeminiError(err)
	}
	metrics.ExternalAPIRequests.WithLabelValues(apiName, "success").Inc()

	if len(resp.Candidates) == 0 {
		return nil, task.Transientf("gemini returned no candidates")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, task.Permanentf("prompt blocked by safety filters")
	}

	text := resp.Text()
	if text == "" {
		return nil, task.Transientf("gemini returned an empty completion")
	}

	completion := &task.Completion{
		Response: text,
		Model:    model,
	}
	if usage := resp.UsageMetadata; usage != nil {
		completion.PromptTokens = usage.PromptTokenCount
		completion.CompletionTokens = usage.CandidatesTokenCount
		completion.TotalTokens = usage.TotalTokenCount
	}

	return completion, nil
}

// classifyGeminiError partitions API failures: client-side rejections are
// permanent, everything else (timeouts, rate limits, server errors) is worth
// a retry.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return task.TransientWrap(err, "gemini request cancelled")
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return task.TransientWrap(err, "gemini rate limit exceeded")
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return task.PermanentWrap(err, "gemini rejected the request")
		}
	}

	return task.TransientWrap(err, "gemini request failed")
}

var _ task.PromptCompleter = (*PromptClient)(nil)
