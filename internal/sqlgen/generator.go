package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ridepulse/ridepulse/internal/engine"
	"github.com/ridepulse/ridepulse/internal/inference"
	"github.com/ridepulse/ridepulse/internal/observability"
)

// Artifact is a statement that passed every validation class, together
// with the catalog tables it reads.
type Artifact struct {
	SQL      string
	Tables   []string
	Attempts int
}

// GenerationError reports that the attempt budget ran out without a
// valid statement. Findings hold the last attempt's rejection reasons.
type GenerationError struct {
	Attempts int
	Findings []string
	Err      error
}

func (e *GenerationError) Error() string {
	if len(e.Findings) > 0 {
		return fmt.Sprintf("no valid SQL after %d attempts: %s", e.Attempts, strings.Join(e.Findings, "; "))
	}
	return fmt.Sprintf("no valid SQL after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator drives the bounded generate-validate-correct loop for the
// SQL stage.
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

// Generate runs the loop until a statement passes every check or the
// attempt budget runs out. A provider failure consumes an attempt like
// any other rejection; a cancelled context instead ends the loop
// immediately, since every remaining attempt would fail the same way.
func (g *Generator) Generate(ctx context.Context, question string) (Artifact, error) {
	var lastSQL string
	var lastFindings []string
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		prompt := g.prompts.InitialSQL(question)
		if attempt > 1 && lastSQL != "" {
			prompt = g.prompts.CorrectionSQL(question, lastSQL, lastFindings)
		}

		raw, err := g.provider.Generate(ctx, prompt)
		if err != nil {
			observability.ObserveGenerationAttempt("sql", "provider_error")
			if ctx.Err() != nil {
				observability.ObserveGenerationLoop("sql", "aborted")
				return Artifact{}, fmt.Errorf("sql generation aborted: %w", err)
			}
			lastErr = err
			lastFindings = []string{fmt.Sprintf("the model call failed: %v", err)}
			g.logger.Warn("sql generation attempt failed", "attempt", attempt, "error", err)
			continue
		}

		candidate := CleanModelSQL(raw)
		if candidate == "" {
			observability.ObserveGenerationAttempt("sql", "empty")
			lastFindings = []string{"the response contained no SQL statement"}
			g.logger.Warn("sql generation attempt produced no statement", "attempt", attempt)
			continue
		}
		lastSQL = candidate

		findings, err := g.validator.Validate(ctx, candidate)
		if err != nil {
			observability.ObserveGenerationLoop("sql", "engine_unavailable")
			return Artifact{}, err
		}
		if len(findings) == 0 {
			observability.ObserveGenerationAttempt("sql", "valid")
			observability.ObserveGenerationLoop("sql", "success")
			g.logger.Debug("sql accepted", "attempt", attempt, "sql", candidate)
			return Artifact{
				SQL:      candidate,
				Tables:   g.validator.Tables(candidate),
				Attempts: attempt,
			}, nil
		}

		observability.ObserveGenerationAttempt("sql", "invalid")
		lastFindings = findings
		lastErr = nil
		g.logger.Info("sql rejected by validator",
			"attempt", attempt,
			"findings", strings.Join(findings, "; "))
	}

	observability.ObserveGenerationLoop("sql", "exhausted")
	return Artifact{}, &GenerationError{
		Attempts: g.maxAttempts,
		Findings: lastFindings,
		Err:      lastErr,
	}
}

// IsEngineUnavailable reports whether the loop stopped because the
// engine itself was unreachable rather than because attempts ran out.
func IsEngineUnavailable(err error) bool {
	return errors.Is(err, engine.ErrUnavailable)
}

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	prefixPattern = regexp.MustCompile(`(?is)^.*?\b(select|with)\b`)
)

// CleanModelSQL strips markdown fences and any prose the model wrapped
// around the statement, returning bare SQL without a trailing semicolon.
func CleanModelSQL(raw string) string {
	text := strings.TrimSpace(raw)
	if match := fencePattern.FindStringSubmatch(text); match != nil {
		text = strings.TrimSpace(match[1])
	}
	lower := strings.ToLower(text)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		loc := prefixPattern.FindStringSubmatchIndex(text)
		if loc == nil {
			return ""
		}
		text = text[loc[2]:]
	}
	if idx := strings.Index(text, ";"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
