package chartspec

import (
	"fmt"
	"strings"

	"github.com/ridepulse/ridepulse/internal/engine"
)

// Validator checks a parsed spec against the shape of the query result
// it will be rendered from. Findings are phrased for correction prompts.
type Validator struct {
	maxPoints int
}

func NewValidator(maxPoints int) *Validator {
	return &Validator{maxPoints: maxPoints}
}

func (v *Validator) Validate(spec Spec, columns []engine.Column) []string {
	if !spec.Kind.Valid() {
		return []string{fmt.Sprintf("unknown chart type %q; use one of line, bar, scatter, histogram, box, heatmap or none", spec.Kind)}
	}
	if spec.Kind == KindNone {
		return nil
	}

	byName := map[string]engine.ColumnType{}
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		byName[strings.ToLower(col.Name)] = col.Type
		names = append(names, col.Name)
	}

	var findings []string
	requireCol := func(role, col string) (engine.ColumnType, bool) {
		if col == "" {
			findings = append(findings, fmt.Sprintf("%s is required for a %s chart", role, spec.Kind))
			return "", false
		}
		colType, ok := byName[strings.ToLower(col)]
		if !ok {
			findings = append(findings, fmt.Sprintf("%s column %q is not in the result; available columns: %s", role, col, strings.Join(names, ", ")))
			return "", false
		}
		return colType, true
	}

	var xCol, yCol string
	if spec.X != nil {
		xCol = spec.X.Col
	}
	if spec.Y != nil {
		yCol = spec.Y.Col
	}

	switch spec.Kind {
	case KindHistogram:
		if colType, ok := requireCol("x", xCol); ok && colType != engine.TypeNumber {
			findings = append(findings, fmt.Sprintf("histogram x column %q must be numeric", xCol))
		}
	case KindHeatmap:
		requireCol("x", xCol)
		requireCol("y", yCol)
		if colType, ok := requireCol("series", spec.SeriesCol()); ok && colType != engine.TypeNumber {
			findings = append(findings, fmt.Sprintf("heatmap series column %q holds the cell values and must be numeric", spec.SeriesCol()))
		}
	case KindBox:
		if colType, ok := requireCol("y", yCol); ok && colType != engine.TypeNumber {
			findings = append(findings, fmt.Sprintf("box y column %q must be numeric", yCol))
		}
		if xCol != "" {
			requireCol("x", xCol)
		}
	default:
		requireCol("x", xCol)
		if colType, ok := requireCol("y", yCol); ok && colType != engine.TypeNumber {
			findings = append(findings, fmt.Sprintf("y column %q must be numeric", yCol))
		}
	}

	if spec.X != nil && spec.X.DType != "" {
		findings = append(findings, v.dtypeFindings("x", spec.X, byName)...)
	}
	if spec.Y != nil && spec.Y.DType != "" {
		findings = append(findings, v.dtypeFindings("y", spec.Y, byName)...)
	}

	if series := spec.SeriesCol(); series != "" {
		requireCol("series", series)
	}

	if spec.TopK != nil {
		if spec.TopK.K <= 0 {
			findings = append(findings, "top_k.k must be a positive integer")
		}
		if spec.TopK.By != "" {
			requireCol("top_k.by", spec.TopK.By)
		}
		switch strings.ToLower(spec.TopK.Order) {
		case "", "asc", "desc":
		default:
			findings = append(findings, fmt.Sprintf("top_k.order %q must be asc or desc", spec.TopK.Order))
		}
	}

	switch strings.ToLower(spec.Orientation) {
	case "", "vertical", "horizontal":
	default:
		findings = append(findings, fmt.Sprintf("orientation %q must be vertical or horizontal", spec.Orientation))
	}

	if spec.Limits != nil && spec.Limits.MaxPoints < 0 {
		findings = append(findings, "limits.max_points must not be negative")
	}
	if spec.Limits != nil && v.maxPoints > 0 && spec.Limits.MaxPoints > v.maxPoints {
		findings = append(findings, fmt.Sprintf("limits.max_points must not exceed %d", v.maxPoints))
	}
	return findings
}

func (v *Validator) dtypeFindings(role string, axis *Axis, byName map[string]engine.ColumnType) []string {
	colType, ok := byName[strings.ToLower(axis.Col)]
	if !ok {
		return nil
	}
	switch axis.DType {
	case DTypeNumber:
		if colType != engine.TypeNumber {
			return []string{fmt.Sprintf("%s column %q is declared number but the result column is %s", role, axis.Col, colType)}
		}
	case DTypeDatetime:
		if colType == engine.TypeNumber {
			return []string{fmt.Sprintf("%s column %q is declared datetime but the result column is numeric", role, axis.Col)}
		}
	case DTypeCategory:
	default:
		return []string{fmt.Sprintf("%s dtype %q must be datetime, category or number", role, axis.DType)}
	}
	return nil
}
