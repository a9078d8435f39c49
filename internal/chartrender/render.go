package chartrender

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ridepulse/ridepulse/internal/chartspec"
	"github.com/ridepulse/ridepulse/internal/config"
	"github.com/ridepulse/ridepulse/internal/engine"
	"github.com/ridepulse/ridepulse/internal/observability"
)

// Payload is the structured chart data returned instead of an image
// when the renderer runs in data mode.
type Payload struct {
	Kind        string          `json:"kind"`
	Title       string          `json:"title,omitempty"`
	XLabel      string          `json:"x_label,omitempty"`
	YLabel      string          `json:"y_label,omitempty"`
	X           []string        `json:"x"`
	Series      []PayloadSeries `json:"series"`
	Orientation string          `json:"orientation,omitempty"`
	Stacked     bool            `json:"stacked,omitempty"`
	Downsampled bool            `json:"downsampled,omitempty"`
}

type PayloadSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Output carries exactly one rendering: an image file in image mode, a
// structured payload in data mode.
type Output struct {
	ImagePath string
	Payload   *Payload
}

// Renderer turns a validated chart spec and query result into a chart.
// Rendering is fully deterministic; no model is involved past this point.
type Renderer struct {
	mode      string
	dir       string
	maxPoints int
	logger    *slog.Logger
}

func NewRenderer(cfg config.ChartConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	maxPoints := cfg.MaxPoints
	if maxPoints <= 0 {
		maxPoints = 2000
	}
	return &Renderer{mode: cfg.Output, dir: cfg.Dir, maxPoints: maxPoints, logger: logger}
}

func (r *Renderer) Render(spec chartspec.Spec, result engine.Result) (Output, error) {
	if spec.Kind == chartspec.KindNone {
		return Output{}, fmt.Errorf("nothing to render for chart type none")
	}
	payload, err := r.buildPayload(spec, result)
	if err != nil {
		observability.IncrementRenderFailure()
		return Output{}, err
	}
	if r.mode == "data" {
		return Output{Payload: payload}, nil
	}
	path, err := r.renderImage(payload)
	if err != nil {
		observability.IncrementRenderFailure()
		return Output{}, fmt.Errorf("render %s chart: %w", spec.Kind, err)
	}
	return Output{ImagePath: path}, nil
}

func (r *Renderer) buildPayload(spec chartspec.Spec, result engine.Result) (*Payload, error) {
	switch spec.Kind {
	case chartspec.KindHistogram:
		return r.buildHistogramPayload(spec, result)
	case chartspec.KindBox:
		return r.buildBoxPayload(spec, result)
	case chartspec.KindHeatmap:
		return r.buildHeatmapPayload(spec, result)
	default:
		return r.buildXYPayload(spec, result)
	}
}

// buildXYPayload covers line, bar and scatter: top-k, pivot to wide
// form, x ordering, then downsampling.
func (r *Renderer) buildXYPayload(spec chartspec.Spec, result engine.Result) (*Payload, error) {
	xIdx, err := columnIndex(result, spec.X.Col)
	if err != nil {
		return nil, err
	}
	yIdx, err := columnIndex(result, spec.Y.Col)
	if err != nil {
		return nil, err
	}
	seriesIdx := -1
	if col := spec.SeriesCol(); col != "" {
		if seriesIdx, err = columnIndex(result, col); err != nil {
			return nil, err
		}
	}

	rows := ApplyTopK(result.Rows, spec.TopK, yIdx, result)
	keys, seriesNames, cells := Pivot(rows, xIdx, yIdx, seriesIdx)
	OrderKeys(keys, spec.X != nil && spec.X.Sort)

	payload := &Payload{
		Kind:        string(spec.Kind),
		Title:       spec.Title,
		XLabel:      spec.X.Col,
		YLabel:      spec.Y.Col,
		Orientation: strings.ToLower(spec.Orientation),
		Stacked:     spec.Stacked,
	}
	for _, key := range keys {
		payload.X = append(payload.X, key.label)
	}
	for _, name := range seriesNames {
		values := make([]float64, len(keys))
		for i, key := range keys {
			values[i] = cells[cellKey{x: key.label, series: name}]
		}
		payload.Series = append(payload.Series, PayloadSeries{Name: name, Values: values})
	}

	limit := r.pointLimit(spec)
	if len(payload.X) > limit {
		Downsample(payload, limit)
		r.logger.Debug("downsampled chart data", "kind", payload.Kind, "points", len(payload.X), "limit", limit)
	}
	return payload, nil
}

func (r *Renderer) buildHistogramPayload(spec chartspec.Spec, result engine.Result) (*Payload, error) {
	xIdx, err := columnIndex(result, spec.X.Col)
	if err != nil {
		return nil, err
	}
	var values []float64
	for _, row := range result.Rows {
		if v, ok := toFloat(row[xIdx]); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to bin", spec.X.Col)
	}
	return &Payload{
		Kind:   string(spec.Kind),
		Title:  spec.Title,
		XLabel: spec.X.Col,
		Series: []PayloadSeries{{Name: spec.X.Col, Values: values}},
	}, nil
}

// buildBoxPayload emits one series per x group holding the raw samples.
func (r *Renderer) buildBoxPayload(spec chartspec.Spec, result engine.Result) (*Payload, error) {
	yIdx, err := columnIndex(result, spec.Y.Col)
	if err != nil {
		return nil, err
	}
	xIdx := -1
	if spec.X != nil && spec.X.Col != "" {
		if xIdx, err = columnIndex(result, spec.X.Col); err != nil {
			return nil, err
		}
	}

	var groups []string
	grouped := map[string][]float64{}
	for _, row := range result.Rows {
		value, ok := toFloat(row[yIdx])
		if !ok {
			continue
		}
		group := spec.Y.Col
		if xIdx >= 0 {
			group = formatLabel(row[xIdx])
		}
		if _, seen := grouped[group]; !seen {
			groups = append(groups, group)
		}
		grouped[group] = append(grouped[group], value)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to plot", spec.Y.Col)
	}

	payload := &Payload{
		Kind:   string(spec.Kind),
		Title:  spec.Title,
		YLabel: spec.Y.Col,
		X:      groups,
	}
	if spec.X != nil {
		payload.XLabel = spec.X.Col
	}
	for _, group := range groups {
		payload.Series = append(payload.Series, PayloadSeries{Name: group, Values: grouped[group]})
	}
	return payload, nil
}

// buildHeatmapPayload emits one series per y category with one value
// per x category, last-observed cell winning and gaps filled with zero.
func (r *Renderer) buildHeatmapPayload(spec chartspec.Spec, result engine.Result) (*Payload, error) {
	xIdx, err := columnIndex(result, spec.X.Col)
	if err != nil {
		return nil, err
	}
	yIdx, err := columnIndex(result, spec.Y.Col)
	if err != nil {
		return nil, err
	}
	valueIdx, err := columnIndex(result, spec.SeriesCol())
	if err != nil {
		return nil, err
	}

	var xKeys []xKey
	xSeen := map[string]struct{}{}
	var yLabels []string
	ySeen := map[string]struct{}{}
	cells := map[cellKey]float64{}
	for _, row := range result.Rows {
		x := formatLabel(row[xIdx])
		y := formatLabel(row[yIdx])
		if _, ok := xSeen[x]; !ok {
			xSeen[x] = struct{}{}
			xKeys = append(xKeys, newXKey(row[xIdx]))
		}
		if _, ok := ySeen[y]; !ok {
			ySeen[y] = struct{}{}
			yLabels = append(yLabels, y)
		}
		if v, ok := toFloat(row[valueIdx]); ok {
			cells[cellKey{x: x, series: y}] = v
		}
	}
	OrderKeys(xKeys, spec.X != nil && spec.X.Sort)

	payload := &Payload{
		Kind:   string(spec.Kind),
		Title:  spec.Title,
		XLabel: spec.X.Col,
		YLabel: spec.Y.Col,
	}
	for _, key := range xKeys {
		payload.X = append(payload.X, key.label)
	}
	for _, y := range yLabels {
		values := make([]float64, len(xKeys))
		for i, key := range xKeys {
			values[i] = cells[cellKey{x: key.label, series: y}]
		}
		payload.Series = append(payload.Series, PayloadSeries{Name: y, Values: values})
	}
	return payload, nil
}

func (r *Renderer) pointLimit(spec chartspec.Spec) int {
	if spec.Limits != nil && spec.Limits.MaxPoints > 0 && spec.Limits.MaxPoints < r.maxPoints {
		return spec.Limits.MaxPoints
	}
	return r.maxPoints
}

// ApplyTopK keeps the k best rows ranked by the top_k.by column, or the
// y column when none is given. The sort is stable, so ties keep their
// original row order. A nil topK returns the rows unchanged.
func ApplyTopK(rows [][]any, topK *chartspec.TopK, yIdx int, result engine.Result) [][]any {
	if topK == nil || topK.K <= 0 {
		return rows
	}
	rankIdx := yIdx
	if topK.By != "" {
		if idx, err := columnIndex(result, topK.By); err == nil {
			rankIdx = idx
		}
	}
	ascending := strings.EqualFold(topK.Order, "asc")

	ranked := make([][]any, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, aOK := toFloat(ranked[i][rankIdx])
		b, bOK := toFloat(ranked[j][rankIdx])
		if aOK != bOK {
			return aOK
		}
		if !aOK {
			return false
		}
		if ascending {
			return a < b
		}
		return a > b
	})
	if len(ranked) > topK.K {
		ranked = ranked[:topK.K]
	}
	return ranked
}

type cellKey struct {
	x      string
	series string
}

type xKey struct {
	label  string
	num    float64
	isNum  bool
	stamp  time.Time
	isTime bool
}

func newXKey(value any) xKey {
	key := xKey{label: formatLabel(value)}
	if t, ok := value.(time.Time); ok {
		key.stamp = t
		key.isTime = true
		return key
	}
	if v, ok := toFloat(value); ok {
		key.num = v
		key.isNum = true
	}
	return key
}

// Pivot turns long-form rows into wide form keyed by x. The last
// observed row wins for a repeated (x, series) pair; series discovered
// later leave zero-filled gaps for earlier x values.
func Pivot(rows [][]any, xIdx, yIdx, seriesIdx int) (keys []xKey, seriesNames []string, cells map[cellKey]float64) {
	cells = map[cellKey]float64{}
	xSeen := map[string]struct{}{}
	seriesSeen := map[string]struct{}{}
	for _, row := range rows {
		x := formatLabel(row[xIdx])
		series := ""
		if seriesIdx >= 0 {
			series = formatLabel(row[seriesIdx])
		}
		if _, ok := xSeen[x]; !ok {
			xSeen[x] = struct{}{}
			keys = append(keys, newXKey(row[xIdx]))
		}
		if _, ok := seriesSeen[series]; !ok {
			seriesSeen[series] = struct{}{}
			seriesNames = append(seriesNames, series)
		}
		value, ok := toFloat(row[yIdx])
		if !ok {
			value = 0
		}
		cells[cellKey{x: x, series: series}] = value
	}
	return keys, seriesNames, cells
}

// OrderKeys sorts x values numerically or chronologically when every
// key coerces; otherwise encounter order is kept unless force is set,
// which falls back to a lexical sort.
func OrderKeys(keys []xKey, force bool) {
	allNum, allTime := len(keys) > 0, len(keys) > 0
	for _, key := range keys {
		if !key.isNum {
			allNum = false
		}
		if !key.isTime {
			allTime = false
		}
	}
	switch {
	case allTime:
		sort.SliceStable(keys, func(i, j int) bool { return keys[i].stamp.Before(keys[j].stamp) })
	case allNum:
		sort.SliceStable(keys, func(i, j int) bool { return keys[i].num < keys[j].num })
	case force:
		sort.SliceStable(keys, func(i, j int) bool { return keys[i].label < keys[j].label })
	}
}

// Downsample thins the payload to at most limit x positions, always
// keeping the first and last point of every series.
func Downsample(payload *Payload, limit int) {
	n := len(payload.X)
	if limit < 2 || n <= limit {
		return
	}
	indices := make([]int, 0, limit)
	last := -1
	for i := 0; i < limit; i++ {
		idx := i * (n - 1) / (limit - 1)
		if idx != last {
			indices = append(indices, idx)
			last = idx
		}
	}

	x := make([]string, 0, len(indices))
	for _, idx := range indices {
		x = append(x, payload.X[idx])
	}
	payload.X = x
	for s := range payload.Series {
		values := make([]float64, 0, len(indices))
		for _, idx := range indices {
			values = append(values, payload.Series[s].Values[idx])
		}
		payload.Series[s].Values = values
	}
	payload.Downsampled = true
}

func columnIndex(result engine.Result, name string) (int, error) {
	for i, col := range result.Columns {
		if strings.EqualFold(col.Name, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q is not in the result", name)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func formatLabel(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
