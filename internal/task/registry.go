package task

import (
	"fmt"

	"github.com/phrazzld/tasker-api/internal/config"
	"github.com/phrazzld/tasker-api/internal/domain"
)

// Handler pairs a task kind's submission-time validator with its execution
// body.
type Handler struct {
	Validate ValidateFunc
	Execute  ExecuteFunc
}

// Registry is the static mapping from task kind to handler. It is built
// once at process start from the closed set of kinds; there is no runtime
// registration.
type Registry map[domain.TaskKind]Handler

// NewRegistry builds the kind table. Adding a task kind means adding an
// entry here plus its validator and body.
func NewRegistry(cfg config.TasksConfig, completer PromptCompleter, weather WeatherClient) Registry {
	return Registry{
		domain.TaskKindSum: {
			Validate: validateSumParams(cfg),
			Execute:  executeSum,
		},
		domain.TaskKindPrompt: {
			Validate: validatePromptParams(cfg),
			Execute:  executePrompt(completer),
		},
		domain.TaskKindWeather: {
			Validate: validateWeatherParams(cfg),
			Execute:  executeWeather(weather),
		},
	}
}

// Handler returns the handler for the given kind.
func (r Registry) Handler(kind domain.TaskKind) (Handler, bool) {
	h, ok := r[kind]
	return h, ok
}

// ValidateSubmission checks kind and parameters before any durable state is
// created. The returned error wraps domain.ErrUnknownTaskKind or
// domain.ErrValidation so the ingress layer can map it to a client error.
func (r Registry) ValidateSubmission(kind domain.TaskKind, params map[string]any) error {
	h, ok := r[kind]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownTaskKind, kind)
	}

	if err := h.Validate(params); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	return nil
}
