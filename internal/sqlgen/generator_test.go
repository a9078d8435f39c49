package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ridepulse/ridepulse/internal/engine"
)

type scriptedProvider struct {
	outputs []string
	errs    []error
	prompts []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, prompt string) (string, error) {
	call := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	if call < len(p.errs) && p.errs[call] != nil {
		return "", p.errs[call]
	}
	if call < len(p.outputs) {
		return p.outputs[call], nil
	}
	return "", fmt.Errorf("no scripted output for call %d", call)
}

func newTestGenerator(t *testing.T, provider *scriptedProvider, prober Prober, maxAttempts int) *Generator {
	t.Helper()
	catalog := testCatalog(t)
	return NewGenerator(provider, NewPromptBuilder(catalog), NewValidator(catalog, prober), maxAttempts, nil)
}

func TestGenerateAcceptsFirstValidStatement(t *testing.T) {
	provider := &scriptedProvider{outputs: []string{
		"SELECT company, COUNT(*) AS trips FROM fhv_with_company GROUP BY company",
	}}
	generator := newTestGenerator(t, provider, &fakeProber{}, 3)

	artifact, err := generator.Generate(context.Background(), "trips per company")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if artifact.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", artifact.Attempts)
	}
	if len(artifact.Tables) != 1 || artifact.Tables[0] != "fhv_with_company" {
		t.Fatalf("Tables = %v", artifact.Tables)
	}
	if !strings.Contains(provider.prompts[0], "trips per company") {
		t.Fatal("initial prompt missing the question")
	}
}

func TestGenerateFeedsFindingsIntoCorrectionPrompt(t *testing.T) {
	provider := &scriptedProvider{outputs: []string{
		"SELECT fare_amount FROM fhv_with_company",
		"SELECT driver_pay FROM fhv_with_company",
	}}
	generator := newTestGenerator(t, provider, &fakeProber{}, 3)

	artifact, err := generator.Generate(context.Background(), "driver pay")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if artifact.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", artifact.Attempts)
	}
	correction := provider.prompts[1]
	if !strings.Contains(correction, "fare_amount") {
		t.Fatal("correction prompt missing the rejected column")
	}
	if !strings.Contains(correction, "SELECT fare_amount FROM fhv_with_company") {
		t.Fatal("correction prompt missing the rejected statement")
	}
}

func TestGenerateStopsAtAttemptBudget(t *testing.T) {
	provider := &scriptedProvider{outputs: []string{
		"DROP TABLE fhv_with_company",
		"DROP TABLE fhv_with_company",
		"DROP TABLE fhv_with_company",
	}}
	generator := newTestGenerator(t, provider, &fakeProber{}, 3)

	_, err := generator.Generate(context.Background(), "anything")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type = %T, want *GenerationError", err)
	}
	if genErr.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", genErr.Attempts)
	}
	if len(genErr.Findings) == 0 {
		t.Fatal("GenerationError carries no findings")
	}
	if len(provider.prompts) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(provider.prompts))
	}
}

func TestGenerateCountsProviderErrorsAgainstBudget(t *testing.T) {
	provider := &scriptedProvider{
		outputs: []string{"", "SELECT company FROM fhv_with_company"},
		errs:    []error{fmt.Errorf("model overloaded"), nil},
	}
	generator := newTestGenerator(t, provider, &fakeProber{}, 3)

	artifact, err := generator.Generate(context.Background(), "companies")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if artifact.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", artifact.Attempts)
	}
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &scriptedProvider{errs: []error{context.Canceled}}
	generator := newTestGenerator(t, provider, &fakeProber{}, 3)

	_, err := generator.Generate(ctx, "anything")
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("provider calls = %d, want 1 (no retries after cancellation)", len(provider.prompts))
	}
}

func TestGenerateShortCircuitsWhenEngineUnavailable(t *testing.T) {
	provider := &scriptedProvider{outputs: []string{
		"SELECT company FROM fhv_with_company",
		"SELECT company FROM fhv_with_company",
	}}
	prober := &fakeProber{err: fmt.Errorf("%w: connection refused", engine.ErrUnavailable)}
	generator := newTestGenerator(t, provider, prober, 3)

	_, err := generator.Generate(context.Background(), "companies")
	if !IsEngineUnavailable(err) {
		t.Fatalf("error = %v, want engine unavailable", err)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("provider calls = %d, want 1 (no retry against a dead engine)", len(provider.prompts))
	}
}

func TestCleanModelSQL(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
	}{
		"bare": {
			raw:  "SELECT 1",
			want: "SELECT 1",
		},
		"fenced": {
			raw:  "```sql\nSELECT company FROM fhv_with_company\n```",
			want: "SELECT company FROM fhv_with_company",
		},
		"prose prefix": {
			raw:  "Here is the query you asked for:\n\nSELECT company FROM fhv_with_company",
			want: "SELECT company FROM fhv_with_company",
		},
		"trailing semicolon": {
			raw:  "SELECT company FROM fhv_with_company;",
			want: "SELECT company FROM fhv_with_company",
		},
		"cte": {
			raw:  "WITH t AS (SELECT 1) SELECT * FROM t",
			want: "WITH t AS (SELECT 1) SELECT * FROM t",
		},
		"no sql": {
			raw:  "I cannot answer that.",
			want: "",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := CleanModelSQL(tc.raw); got != tc.want {
				t.Fatalf("CleanModelSQL(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
