package chartspec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ridepulse/ridepulse/internal/engine"
	"github.com/ridepulse/ridepulse/internal/inference"
	"github.com/ridepulse/ridepulse/internal/observability"
)

// specSampleRows caps how many result rows are shown to the model.
const specSampleRows = 5

// GenerationError reports an exhausted spec attempt budget.
type GenerationError struct {
	Attempts int
	Findings []string
	Err      error
}

func (e *GenerationError) Error() string {
	if len(e.Findings) > 0 {
		return fmt.Sprintf("no valid chart spec after %d attempts: %s", e.Attempts, strings.Join(e.Findings, "; "))
	}
	return fmt.Sprintf("no valid chart spec after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator drives the bounded generate-validate-correct loop for the
// chart spec stage. Unlike the SQL stage there is no engine probe; the
// validator alone decides acceptance.
type Generator struct {
	provider    inference.Provider
	prompts     *PromptBuilder
	validator   *Validator
	maxAttempts int
	logger      *slog.Logger
}

func NewGenerator(provider inference.Provider, prompts *PromptBuilder, validator *Validator, maxAttempts int, logger *slog.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider:    provider,
		prompts:     prompts,
		validator:   validator,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (g *Generator) Generate(ctx context.Context, question string, result engine.Result) (Spec, error) {
	var lastRaw string
	var lastFindings []string
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		prompt := g.prompts.InitialSpec(question, result, specSampleRows)
		if attempt > 1 && lastRaw != "" {
			prompt = g.prompts.CorrectionSpec(question, lastRaw, lastFindings, result)
		}

		raw, err := g.provider.Generate(ctx, prompt)
		if err != nil {
			observability.ObserveGenerationAttempt("chart_spec", "provider_error")
			if ctx.Err() != nil {
				observability.ObserveGenerationLoop("chart_spec", "aborted")
				return Spec{}, fmt.Errorf("chart spec generation aborted: %w", err)
			}
			lastErr = err
			lastFindings = []string{fmt.Sprintf("the model call failed: %v", err)}
			g.logger.Warn("chart spec attempt failed", "attempt", attempt, "error", err)
			continue
		}
		lastRaw = strings.TrimSpace(raw)

		spec, err := Parse(raw)
		if err != nil {
			observability.ObserveGenerationAttempt("chart_spec", "unparseable")
			lastFindings = []string{fmt.Sprintf("the response could not be parsed: %v", err)}
			lastErr = nil
			g.logger.Warn("chart spec unparseable", "attempt", attempt, "error", err)
			continue
		}

		findings := g.validator.Validate(spec, result.Columns)
		if len(findings) == 0 {
			observability.ObserveGenerationAttempt("chart_spec", "valid")
			observability.ObserveGenerationLoop("chart_spec", "success")
			g.logger.Debug("chart spec accepted", "attempt", attempt, "kind", string(spec.Kind))
			return spec, nil
		}

		observability.ObserveGenerationAttempt("chart_spec", "invalid")
		lastFindings = findings
		lastErr = nil
		g.logger.Info("chart spec rejected by validator",
			"attempt", attempt,
			"findings", strings.Join(findings, "; "))
	}

	observability.ObserveGenerationLoop("chart_spec", "exhausted")
	return Spec{}, &GenerationError{
		Attempts: g.maxAttempts,
		Findings: lastFindings,
		Err:      lastErr,
	}
}
