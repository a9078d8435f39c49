package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ridepulse/ridepulse/internal/chartrender"
	"github.com/ridepulse/ridepulse/internal/chartspec"
	"github.com/ridepulse/ridepulse/internal/config"
	"github.com/ridepulse/ridepulse/internal/engine"
	"github.com/ridepulse/ridepulse/internal/sqlgen"
	"github.com/ridepulse/ridepulse/internal/templates"
)

// Response modes. Error mode carries a message and no artifacts.
const (
	ModeGenerated = "generated-answer"
	ModeTemplated = "templated-answer"
	ModeDirect    = "direct-query"
	ModeError     = "error"
)

// Result is the full outcome of one question or direct query.
type Result struct {
	Question       string               `json:"question,omitempty"`
	Answer         string               `json:"answer,omitempty"`
	Error          string               `json:"error,omitempty"`
	Mode           string               `json:"mode"`
	SQL            string               `json:"sql,omitempty"`
	Columns        []engine.Column      `json:"columns,omitempty"`
	Data           []map[string]any     `json:"data,omitempty"`
	DataPreview    []map[string]any     `json:"data_preview,omitempty"`
	Truncated      bool                 `json:"truncated,omitempty"`
	ChartKind      string               `json:"chart_kind,omitempty"`
	Chart          *chartrender.Payload `json:"chart,omitempty"`
	ChartImagePath string               `json:"-"`
	Sources        []string             `json:"sources,omitempty"`
	CacheHit       bool                 `json:"cache_hit"`
}

// SQLGenerator produces a validated statement for a question.
type SQLGenerator interface {
	Generate(ctx context.Context, question string) (sqlgen.Artifact, error)
}

// SpecGenerator produces a validated chart spec for a result.
type SpecGenerator interface {
	Generate(ctx context.Context, question string, result engine.Result) (chartspec.Spec, error)
}

// ChartRenderer draws a validated spec deterministically.
type ChartRenderer interface {
	Render(spec chartspec.Spec, result engine.Result) (chartrender.Output, error)
}

// Deps wires the pipeline stages together. Interfaces keep each stage
// replaceable in tests.
type Deps struct {
	SQLGenerator  SQLGenerator
	SQLValidator  *sqlgen.Validator
	Executor      engine.Executor
	SpecGenerator SpecGenerator
	Renderer      ChartRenderer
	Templates     *templates.Library
	SchemaVersion string
	Logger        *slog.Logger
}

// Pipeline orchestrates question to answer: generate SQL, execute,
// choose a chart, render, phrase the answer. Identical in-flight
// questions share one execution; successful results are cached until
// the TTL or a schema change invalidates them.
type Pipeline struct {
	enabled       bool
	previewRows   int
	deps          Deps
	cache         *responseCache
	group         singleflight.Group
	schemaVersion string
	logger        *slog.Logger
}

func New(cfg config.PipelineConfig, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	previewRows := cfg.PreviewRows
	if previewRows <= 0 {
		previewRows = 10
	}
	return &Pipeline{
		enabled:       cfg.Enabled,
		previewRows:   previewRows,
		deps:          deps,
		cache:         newResponseCache(cfg.CacheTTL, cfg.CacheCapacity),
		schemaVersion: deps.SchemaVersion,
		logger:        logger,
	}
}

// Ask answers a natural language question. Pipeline-level failures are
// reported as an error-mode Result, not a Go error; the error return is
// reserved for cancellation.
func (p *Pipeline) Ask(ctx context.Context, question string) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return p.errorResult(question, "question must not be empty"), nil
	}

	key := cacheKey(question, p.schemaVersion)
	if cached, ok := p.cache.get(key); ok {
		cached.CacheHit = true
		return cached, nil
	}

	value, err, _ := p.group.Do(key, func() (any, error) {
		result := p.run(ctx, question)
		if result.Mode != ModeError {
			p.cache.put(key, result)
		}
		return result, nil
	})
	if err != nil {
		return Result{}, err
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	return value.(Result), nil
}

// Direct validates and executes caller-supplied SQL without any model
// involvement. Direct queries bypass the cache.
func (p *Pipeline) Direct(ctx context.Context, sqlText string) (Result, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return p.errorResult("", "sql must not be empty"), nil
	}

	findings, err := p.deps.SQLValidator.Validate(ctx, sqlText)
	if err != nil {
		return p.errorResult("", "the query engine is unavailable"), nil
	}
	if len(findings) > 0 {
		return p.errorResult("", strings.Join(findings, "; ")), nil
	}

	result, err := p.deps.Executor.Execute(ctx, sqlText)
	if err != nil {
		return p.errorResult("", fmt.Sprintf("query failed: %v", err)), nil
	}

	out := p.baseResult("", sqlText, result)
	out.Mode = ModeDirect
	out.Answer = phraseAnswer(result)
	out.Sources = p.deps.SQLValidator.Tables(sqlText)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, question string) Result {
	if !p.enabled {
		return p.runTemplated(ctx, question)
	}
	return p.runGenerated(ctx, question)
}

func (p *Pipeline) runGenerated(ctx context.Context, question string) Result {
	artifact, err := p.deps.SQLGenerator.Generate(ctx, question)
	if err != nil {
		if errors.Is(err, engine.ErrUnavailable) {
			return p.errorResult(question, "the query engine is unavailable")
		}
		var genErr *sqlgen.GenerationError
		if errors.As(err, &genErr) {
			p.logger.Warn("sql generation exhausted", "question", question, "error", err)
			return p.errorResult(question, "could not produce a valid query for this question")
		}
		return p.errorResult(question, fmt.Sprintf("query generation failed: %v", err))
	}

	result, err := p.deps.Executor.Execute(ctx, artifact.SQL)
	if err != nil {
		p.logger.Warn("query execution failed", "sql", artifact.SQL, "error", err)
		return p.errorResult(question, fmt.Sprintf("query failed: %v", err))
	}

	out := p.baseResult(question, artifact.SQL, result)
	out.Mode = ModeGenerated
	out.Answer = phraseAnswer(result)
	out.Sources = artifact.Tables
	p.attachChart(ctx, &out, question, result)
	return out
}

func (p *Pipeline) runTemplated(ctx context.Context, question string) Result {
	tpl, ok := p.deps.Templates.Match(question)
	if !ok {
		return p.errorResult(question, "the generation pipeline is disabled and no template matches this question")
	}

	result, err := p.deps.Executor.Execute(ctx, tpl.SQL)
	if err != nil {
		p.logger.Warn("template query failed", "template", tpl.Name, "error", err)
		return p.errorResult(question, fmt.Sprintf("query failed: %v", err))
	}

	out := p.baseResult(question, tpl.SQL, result)
	out.Mode = ModeTemplated
	out.Answer = tpl.Answer
	out.Sources = p.deps.SQLValidator.Tables(tpl.SQL)
	p.renderChart(&out, tpl.Spec, result)
	return out
}

// attachChart asks the model for a spec and renders it. Chart failures
// degrade the response to answer-plus-data instead of failing it.
func (p *Pipeline) attachChart(ctx context.Context, out *Result, question string, result engine.Result) {
	if p.deps.SpecGenerator == nil || p.deps.Renderer == nil {
		return
	}
	spec, err := p.deps.SpecGenerator.Generate(ctx, question, result)
	if err != nil {
		p.logger.Warn("chart spec generation failed", "question", question, "error", err)
		return
	}
	p.renderChart(out, spec, result)
}

func (p *Pipeline) renderChart(out *Result, spec chartspec.Spec, result engine.Result) {
	out.ChartKind = string(spec.Kind)
	if spec.Kind == chartspec.KindNone || p.deps.Renderer == nil {
		return
	}
	rendered, err := p.deps.Renderer.Render(spec, result)
	if err != nil {
		p.logger.Warn("chart rendering failed", "kind", string(spec.Kind), "error", err)
		out.ChartKind = ""
		return
	}
	out.Chart = rendered.Payload
	out.ChartImagePath = rendered.ImagePath
}

func (p *Pipeline) baseResult(question, sqlText string, result engine.Result) Result {
	return Result{
		Question:    question,
		SQL:         sqlText,
		Columns:     result.Columns,
		Data:        result.RowMaps(0),
		DataPreview: result.RowMaps(p.previewRows),
		Truncated:   result.Truncated,
	}
}

func (p *Pipeline) errorResult(question, message string) Result {
	return Result{Question: question, Mode: ModeError, Error: message}
}
