// Package templates holds the precomputed question templates used when
// the generation pipeline is disabled. Each template pairs a fixed SQL
// statement with a ready-made chart spec and answer line, so common
// questions still work without any model in the loop.
package templates

import (
	"strings"

	"github.com/ridepulse/ridepulse/internal/chartspec"
)

type Template struct {
	Name     string
	Keywords []string
	SQL      string
	Answer   string
	Spec     chartspec.Spec
}

type Library struct {
	templates []Template
}

func NewLibrary() *Library {
	return &Library{templates: []Template{
		{
			Name:     "hourly_trips_by_company",
			Keywords: []string{"hour", "hourly", "company", "time of day"},
			SQL: `SELECT pickup_hour, company, COUNT(*) AS trips
				FROM fhv_with_company
				GROUP BY pickup_hour, company
				ORDER BY pickup_hour`,
			Answer: "Hourly trip volume for each company across the dataset.",
			Spec: chartspec.Spec{
				Kind:   chartspec.KindLine,
				Title:  "Trips per hour by company",
				X:      &chartspec.Axis{Col: "pickup_hour", DType: chartspec.DTypeNumber, Sort: true},
				Y:      &chartspec.Axis{Col: "trips"},
				Series: &chartspec.Series{Col: "company"},
			},
		},
		{
			Name:     "market_share",
			Keywords: []string{"market share", "share", "split", "proportion"},
			SQL: `SELECT company, COUNT(*) AS trips,
					ROUND(100.0 * COUNT(*) / SUM(COUNT(*)) OVER (), 2) AS share_pct
				FROM fhv_with_company
				GROUP BY company
				ORDER BY trips DESC`,
			Answer: "Trip counts and market share per company.",
			Spec: chartspec.Spec{
				Kind:  chartspec.KindBar,
				Title: "Market share by company",
				X:     &chartspec.Axis{Col: "company"},
				Y:     &chartspec.Axis{Col: "share_pct"},
			},
		},
		{
			Name:     "top_zones",
			Keywords: []string{"top", "zone", "zones", "busiest", "popular"},
			SQL: `SELECT pickup_zone, COUNT(*) AS trips
				FROM fhv_with_company
				WHERE pickup_zone IS NOT NULL
				GROUP BY pickup_zone
				ORDER BY trips DESC
				LIMIT 10`,
			Answer: "The ten busiest pickup zones by trip count.",
			Spec: chartspec.Spec{
				Kind:        chartspec.KindBar,
				Title:       "Top pickup zones",
				X:           &chartspec.Axis{Col: "pickup_zone"},
				Y:           &chartspec.Axis{Col: "trips"},
				Orientation: "horizontal",
			},
		},
		{
			Name:     "daily_volume",
			Keywords: []string{"day", "daily", "trend", "over time", "volume"},
			SQL: `SELECT pickup_date, COUNT(*) AS trips
				FROM fhv_with_company
				GROUP BY pickup_date
				ORDER BY pickup_date`,
			Answer: "Daily trip volume across the dataset.",
			Spec: chartspec.Spec{
				Kind:  chartspec.KindLine,
				Title: "Daily trips",
				X:     &chartspec.Axis{Col: "pickup_date", DType: chartspec.DTypeDatetime, Sort: true},
				Y:     &chartspec.Axis{Col: "trips"},
			},
		},
	}}
}

func (l *Library) Templates() []Template {
	out := make([]Template, len(l.templates))
	copy(out, l.templates)
	return out
}

// Match scores templates by keyword hits against the question and
// returns the best one. A template needs at least one hit to match.
func (l *Library) Match(question string) (Template, bool) {
	lowered := strings.ToLower(question)
	best := -1
	bestScore := 0
	for i, tpl := range l.templates {
		score := 0
		for _, keyword := range tpl.Keywords {
			if strings.Contains(lowered, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return Template{}, false
	}
	return l.templates[best], true
}
