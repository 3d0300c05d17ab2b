package toolreg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestquant/nestquant/internal/observability"
	"github.com/nestquant/nestquant/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrToolNotFound is returned when no registered tool matches the
	// requested name. There is no fallback to a default tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidInput is returned when a tool's input fails schema
	// validation before the handler runs.
	ErrInvalidInput = errors.New("invalid tool input")
)

// Handler executes a tool call against a raw input payload.
type Handler func(ctx context.Context, input string) (string, error)

// Definition describes one registered tool. InputSchema is an optional
// JSON Schema document; when present, UseTool validates input against it
// before invoking the handler.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"input_schema,omitempty"`
	Handler     Handler
}

// Registry holds the tool collection. The collection is ordered and
// fixed at construction; lookup resolves to the first name match.
type Registry struct {
	tools   []Definition
	schemas []*gojsonschema.Schema
	logger  zerolog.Logger
}

// New creates a registry over defs. Schemas compile eagerly so that a
// malformed schema fails construction rather than the first call.
// Duplicate names are allowed; lookup resolves to the first.
func New(defs []Definition, logger zerolog.Logger) (*Registry, error) {
	observability.EnsureRegistered()

	r := &Registry{
		tools:   make([]Definition, 0, len(defs)),
		schemas: make([]*gojsonschema.Schema, 0, len(defs)),
		logger:  logger.With().Str("component", "toolreg").Logger(),
	}

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("tool %s: handler is required", def.Name)
		}

		var schema *gojsonschema.Schema
		if def.InputSchema != "" {
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def.InputSchema))
			if err != nil {
				return nil, fmt.Errorf("tool %s: invalid input schema: %w", def.Name, err)
			}
			schema = compiled
		}

		if seen[def.Name] {
			r.logger.Warn().Str("tool", def.Name).Msg("Duplicate tool name; lookup resolves to the first registration")
		}
		seen[def.Name] = true

		r.tools = append(r.tools, def)
		r.schemas = append(r.schemas, schema)
	}

	r.logger.Info().Int("tools", len(r.tools)).Msg("Tool registry initialized")

	return r, nil
}

// UseTool locates the first tool named name and invokes its handler with
// input. A missing name fails with ErrToolNotFound without invoking any
// handler; handler failures propagate unchanged.
func (r *Registry) UseTool(ctx context.Context, name, input string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.WithToolName(ctx, name)
	ctx, span := tracing.StartSpan(
		ctx,
		"nestquant.toolreg",
		"toolreg.use_tool",
		attribute.String("tool", name),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, r.logger)

	idx := -1
	for i, def := range r.tools {
		if def.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		err := fmt.Errorf("%w: %s", ErrToolNotFound, name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Msg("Tool lookup failed")
		return "", err
	}

	if schema := r.schemas[idx]; schema != nil {
		result, err := schema.Validate(gojsonschema.NewStringLoader(input))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
		}
		if !result.Valid() {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, result.Errors())
		}
	}

	start := time.Now()
	output, err := r.tools[idx].Handler(ctx, input)
	duration := time.Since(start)

	observability.RecordToolInvocation(name, duration, err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Dur("duration", duration).Err(err).Msg("Tool invocation failed")
		return "", err
	}

	logger.Debug().Dur("duration", duration).Msg("Tool invocation completed")
	return output, nil
}

// Names returns the registered tool names in registration order,
// including duplicates.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, def := range r.tools {
		names[i] = def.Name
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}
