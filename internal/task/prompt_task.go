package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/tasker-api/internal/config"
)

// Prompt kind limits beyond the configurable ones.
const (
	maxPromptTokens      = 4000
	defaultPromptTokens  = 1000
	defaultTemperature   = 0.7
	maxPromptTemperature = 2.0
)

// CompletionRequest describes one prompt-completion call.
type CompletionRequest struct {
	Prompt      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// Completion is the outcome of a prompt-completion call.
type Completion struct {
	Response         string
	Model            string
	PromptTokens     int32
	CompletionTokens int32
	TotalTokens      int32
}

// PromptCompleter defines the interface for prompt-completion services.
// This is the boundary between the execution engine and the external LLM
// integration; implementations classify their failures with ErrPermanent
// and ErrTransient.
type PromptCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// validatePromptParams enforces the prompt kind's input rules.
func validatePromptParams(cfg config.TasksConfig) ValidateFunc {
	return func(params map[string]any) error {
		raw, present := params["prompt"]
		if !present {
			return fmt.Errorf("parameter 'prompt' is required for prompt task")
		}

		prompt, ok := raw.(string)
		if !ok {
			return fmt.Errorf("parameter 'prompt' must be a string")
		}

		trimmed := strings.TrimSpace(prompt)
		if trimmed == "" {
			return fmt.Errorf("parameter 'prompt' must be a non-empty string")
		}

		if len(trimmed) > cfg.MaxPromptLength {
			return fmt.Errorf("parameter 'prompt' exceeds maximum length of %d characters", cfg.MaxPromptLength)
		}

		if _, present := params["max_tokens"]; present {
			maxTokens, ok := intParam(params, "max_tokens")
			if !ok || maxTokens <= 0 {
				return fmt.Errorf("parameter 'max_tokens' must be a positive integer")
			}
			if maxTokens > maxPromptTokens {
				return fmt.Errorf("parameter 'max_tokens' cannot exceed %d", maxPromptTokens)
			}
		}

		if _, present := params["temperature"]; present {
			temperature, ok := numberParam(params, "temperature")
			if !ok {
				return fmt.Errorf("parameter 'temperature' must be a number")
			}
			if temperature < 0 || temperature > maxPromptTemperature {
				return fmt.Errorf("parameter 'temperature' must be between 0 and %g", maxPromptTemperature)
			}
		}

		return nil
	}
}

// executePrompt builds the prompt kind's execution body around the given
// completion client.
func executePrompt(completer PromptCompleter) ExecuteFunc {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		prompt, ok := stringParam(params, "prompt")
		if !ok || strings.TrimSpace(prompt) == "" {
			return nil, Permanentf("parameter 'prompt' must be a non-empty string")
		}

		req := CompletionRequest{
			Prompt:      prompt,
			MaxTokens:   defaultPromptTokens,
			Temperature: defaultTemperature,
		}

		if model, ok := stringParam(params, "model"); ok && model != "" {
			req.Model = model
		}
		if maxTokens, ok := intParam(params, "max_tokens"); ok {
			req.MaxTokens = int32(maxTokens)
		}
		if temperature, ok := numberParam(params, "temperature"); ok {
			req.Temperature = float32(temperature)
		}

		completion, err := completer.Complete(ctx, req)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"prompt":   prompt,
			"response": completion.Response,
			"model":    completion.Model,
			"usage": map[string]any{
				"prompt_tokens":     completion.PromptTokens,
				"completion_tokens": completion.CompletionTokens,
				"total_tokens":      completion.TotalTokens,
			},
		}, nil
	}
}
