package chartspec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the chart family a spec requests. KindNone is a valid
// terminal answer meaning the result should not be charted.
type Kind string

const (
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
	KindScatter   Kind = "scatter"
	KindHistogram Kind = "histogram"
	KindBox       Kind = "box"
	KindHeatmap   Kind = "heatmap"
	KindNone      Kind = "none"
)

// kindAliases maps shorthand the model tends to emit onto canonical kinds.
var kindAliases = map[string]Kind{
	"hist":        KindHistogram,
	"barh":        KindBar,
	"column":      KindBar,
	"timeseries":  KindLine,
	"null":        KindNone,
	"no_chart":    KindNone,
	"none_needed": KindNone,
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("chart type must be a string: %w", err)
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := kindAliases[normalized]; ok {
		*k = alias
		return nil
	}
	*k = Kind(normalized)
	return nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindLine, KindBar, KindScatter, KindHistogram, KindBox, KindHeatmap, KindNone:
		return true
	default:
		return false
	}
}

// DType hints how an axis column should be interpreted when rendering.
type DType string

const (
	DTypeDatetime DType = "datetime"
	DTypeCategory DType = "category"
	DTypeNumber   DType = "number"
)

// Axis names a result column for one chart axis. On the wire it is
// either a bare column name or an object with dtype and sort hints.
type Axis struct {
	Col   string `json:"col"`
	DType DType  `json:"dtype,omitempty"`
	Sort  bool   `json:"sort,omitempty"`
}

func (a *Axis) UnmarshalJSON(data []byte) error {
	var col string
	if err := json.Unmarshal(data, &col); err == nil {
		*a = Axis{Col: strings.TrimSpace(col)}
		return nil
	}
	type axisObject Axis
	var obj axisObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("axis must be a column name or an object: %w", err)
	}
	obj.Col = strings.TrimSpace(obj.Col)
	obj.DType = DType(strings.ToLower(strings.TrimSpace(string(obj.DType))))
	*a = Axis(obj)
	return nil
}

// Series names the column whose distinct values split the data into
// multiple plotted series. null and empty both mean a single series.
type Series struct {
	Col string `json:"col"`
}

func (s *Series) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = Series{}
		return nil
	}
	var col string
	if err := json.Unmarshal(data, &col); err == nil {
		*s = Series{Col: strings.TrimSpace(col)}
		return nil
	}
	type seriesObject Series
	var obj seriesObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("series must be a column name, an object or null: %w", err)
	}
	obj.Col = strings.TrimSpace(obj.Col)
	*s = Series(obj)
	return nil
}

// TopK keeps only the K best rows ranked by a column before plotting.
type TopK struct {
	K     int    `json:"k"`
	By    string `json:"by,omitempty"`
	Order string `json:"order,omitempty"`
}

type Limits struct {
	MaxPoints int `json:"max_points,omitempty"`
}

// Spec is the validated chart request produced by the generation loop
// and consumed by the renderer.
type Spec struct {
	Kind        Kind    `json:"type"`
	Title       string  `json:"title,omitempty"`
	X           *Axis   `json:"x,omitempty"`
	Y           *Axis   `json:"y,omitempty"`
	Series      *Series `json:"series,omitempty"`
	TopK        *TopK   `json:"top_k,omitempty"`
	Orientation string  `json:"orientation,omitempty"`
	Stacked     bool    `json:"stacked,omitempty"`
	Limits      *Limits `json:"limits,omitempty"`
}

// SeriesCol returns the series column name or "" for a single series.
func (s Spec) SeriesCol() string {
	if s.Series == nil {
		return ""
	}
	return s.Series.Col
}
