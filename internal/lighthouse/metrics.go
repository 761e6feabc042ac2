// Package lighthouse invokes the Lighthouse CLI and reads its JSON reports.
// Lighthouse itself is treated as a black-box metric producer.
package lighthouse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// ErrNoMetrics is returned when a report carries none of the known audits
var ErrNoMetrics = errors.New("lighthouse report contains no metrics")

// Metrics holds one page's measurements. Any metric may be absent, e.g. INP
// on a page without interaction.
type Metrics struct {
	LCP         *float64 `json:"lcp,omitempty" yaml:"lcp,omitempty"`
	INP         *float64 `json:"inp,omitempty" yaml:"inp,omitempty"`
	CLS         *float64 `json:"cls,omitempty" yaml:"cls,omitempty"`
	TBT         *float64 `json:"tbt,omitempty" yaml:"tbt,omitempty"`
	FCP         *float64 `json:"fcp,omitempty" yaml:"fcp,omitempty"`
	TTFB        *float64 `json:"ttfb,omitempty" yaml:"ttfb,omitempty"`
	Performance *float64 `json:"performance,omitempty" yaml:"performance,omitempty"`
}

// PageMetrics are the aggregated metrics for one URL
type PageMetrics struct {
	URL     string  `json:"url" yaml:"url"`
	Runs    int     `json:"runs" yaml:"runs"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Values returns the present metrics keyed by threshold name
func (m Metrics) Values() map[string]float64 {
	values := make(map[string]float64)
	for name, v := range m.fields() {
		if *v != nil {
			values[name] = **v
		}
	}
	return values
}

// Get returns a metric by name
func (m Metrics) Get(name string) (float64, bool) {
	v, ok := m.fields()[name]
	if !ok || *v == nil {
		return 0, false
	}
	return **v, true
}

// Set assigns a metric by name
func (m *Metrics) Set(name string, value float64) error {
	v, ok := m.fields()[name]
	if !ok {
		return fmt.Errorf("unknown metric: %s", name)
	}
	*v = &value
	return nil
}

func (m *Metrics) fields() map[string]**float64 {
	return map[string]**float64{
		"lcp":         &m.LCP,
		"inp":         &m.INP,
		"cls":         &m.CLS,
		"tbt":         &m.TBT,
		"fcp":         &m.FCP,
		"ttfb":        &m.TTFB,
		"performance": &m.Performance,
	}
}

// MetricNames lists every metric in display order
var MetricNames = []string{"lcp", "inp", "cls", "tbt", "fcp", "ttfb", "performance"}

type report struct {
	Audits     map[string]audit    `json:"audits"`
	Categories map[string]category `json:"categories"`
}

type audit struct {
	NumericValue *float64 `json:"numericValue"`
}

type category struct {
	Score *float64 `json:"score"`
}

var auditIDs = map[string][]string{
	"lcp":  {"largest-contentful-paint"},
	"inp":  {"interaction-to-next-paint", "experimental-interaction-to-next-paint"},
	"cls":  {"cumulative-layout-shift"},
	"tbt":  {"total-blocking-time"},
	"fcp":  {"first-contentful-paint"},
	"ttfb": {"server-response-time"},
}

// ParseReport extracts metrics from a Lighthouse JSON report
func ParseReport(data []byte) (Metrics, error) {
	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return Metrics{}, fmt.Errorf("failed to parse lighthouse report: %w", err)
	}

	var m Metrics
	found := false
	for name, ids := range auditIDs {
		for _, id := range ids {
			a, ok := r.Audits[id]
			if !ok || a.NumericValue == nil {
				continue
			}
			_ = m.Set(name, *a.NumericValue)
			found = true
			break
		}
	}

	if perf, ok := r.Categories["performance"]; ok && perf.Score != nil {
		_ = m.Set("performance", *perf.Score*100)
		found = true
	}

	if !found {
		return Metrics{}, ErrNoMetrics
	}
	return m, nil
}

// Median aggregates samples per metric, ignoring absent values
func Median(samples []Metrics) Metrics {
	var out Metrics
	for _, name := range MetricNames {
		var values []float64
		for _, s := range samples {
			if v, ok := s.Get(name); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		_ = out.Set(name, median(values))
	}
	return out
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
