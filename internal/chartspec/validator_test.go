package chartspec

import (
	"strings"
	"testing"

	"github.com/ridepulse/ridepulse/internal/engine"
)

var resultColumns = []engine.Column{
	{Name: "pickup_date", Type: engine.TypeDatetime},
	{Name: "company", Type: engine.TypeText},
	{Name: "trips", Type: engine.TypeNumber},
}

func TestValidateAcceptsCompleteSpec(t *testing.T) {
	validator := NewValidator(2000)
	spec := Spec{
		Kind:   KindLine,
		X:      &Axis{Col: "pickup_date", DType: DTypeDatetime, Sort: true},
		Y:      &Axis{Col: "trips"},
		Series: &Series{Col: "company"},
	}
	if findings := validator.Validate(spec, resultColumns); len(findings) != 0 {
		t.Fatalf("findings = %v, want none", findings)
	}
}

func TestValidateAcceptsNoneWithoutAxes(t *testing.T) {
	validator := NewValidator(2000)
	if findings := validator.Validate(Spec{Kind: KindNone}, resultColumns); len(findings) != 0 {
		t.Fatalf("findings = %v, want none", findings)
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	validator := NewValidator(2000)
	findings := validator.Validate(Spec{Kind: Kind("pie")}, resultColumns)
	if len(findings) != 1 || !strings.Contains(findings[0], "unknown chart type") {
		t.Fatalf("findings = %v", findings)
	}
}

func TestValidateRejectsMissingColumns(t *testing.T) {
	validator := NewValidator(2000)
	spec := Spec{
		Kind: KindBar,
		X:    &Axis{Col: "borough"},
		Y:    &Axis{Col: "trips"},
	}
	findings := validator.Validate(spec, resultColumns)
	if len(findings) != 1 || !strings.Contains(findings[0], `"borough"`) {
		t.Fatalf("findings = %v", findings)
	}
}

func TestValidateRequiresNumericY(t *testing.T) {
	validator := NewValidator(2000)
	spec := Spec{
		Kind: KindBar,
		X:    &Axis{Col: "pickup_date"},
		Y:    &Axis{Col: "company"},
	}
	findings := validator.Validate(spec, resultColumns)
	if len(findings) != 1 || !strings.Contains(findings[0], "must be numeric") {
		t.Fatalf("findings = %v", findings)
	}
}

func TestValidateChecksDTypeHints(t *testing.T) {
	validator := NewValidator(2000)
	spec := Spec{
		Kind: KindLine,
		X:    &Axis{Col: "company", DType: DTypeNumber},
		Y:    &Axis{Col: "trips"},
	}
	findings := validator.Validate(spec, resultColumns)
	if len(findings) != 1 || !strings.Contains(findings[0], "declared number") {
		t.Fatalf("findings = %v", findings)
	}
}

func TestValidateRequiresNumericHistogramX(t *testing.T) {
	validator := NewValidator(2000)
	spec := Spec{Kind: KindHistogram, X: &Axis{Col: "company"}}
	findings := validator.Validate(spec, resultColumns)
	if len(findings) != 1 || !strings.Contains(findings[0], "must be numeric") {
		t.Fatalf("findings = %v", findings)
	}
}

func TestValidateChecksTopK(t *testing.T) {
	validator := NewValidator(2000)
	spec := Spec{
		Kind: KindBar,
		X:    &Axis{Col: "company"},
		Y:    &Axis{Col: "trips"},
		TopK: &TopK{K: 0, By: "fares", Order: "sideways"},
	}
	findings := validator.Validate(spec, resultColumns)
	if len(findings) != 3 {
		t.Fatalf("findings = %v, want 3", findings)
	}
}

func TestValidateCapsMaxPoints(t *testing.T) {
	validator := NewValidator(500)
	spec := Spec{
		Kind:   KindLine,
		X:      &Axis{Col: "pickup_date"},
		Y:      &Axis{Col: "trips"},
		Limits: &Limits{MaxPoints: 100000},
	}
	findings := validator.Validate(spec, resultColumns)
	if len(findings) != 1 || !strings.Contains(findings[0], "must not exceed 500") {
		t.Fatalf("findings = %v", findings)
	}
}
