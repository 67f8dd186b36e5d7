// Package chart implements the chart-enrichment hook.
//
// The hook inspects the text of the first choice, looks for a numeric
// series, and when one is found renders a PNG bar chart entirely in memory.
// The chart is attached as an additional image_url content part carrying a
// base64 data URI; the original text part is left unchanged and stays first.
//
// When no series is detected the completion passes through untouched, so a
// plain conversational answer keeps its scalar string content.
package chart

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/chartgate/chartgate/internal/api"
	"github.com/chartgate/chartgate/internal/monitoring"
	"github.com/chartgate/chartgate/internal/store"
)

const dataURIPrefix = "data:image/png;base64,"

// Options tune detection and rendering.
type Options struct {
	Title     string // chart title, defaults to "Detected Data"
	MaxPoints int    // series longer than this are truncated, defaults to 12
	Height    int    // rendered image height in pixels, defaults to 512
}

func (o *Options) withDefaults() Options {
	out := Options{Title: "Detected Data", MaxPoints: 12, Height: 512}
	if o == nil {
		return out
	}
	if o.Title != "" {
		out.Title = o.Title
	}
	if o.MaxPoints > 0 {
		out.MaxPoints = o.MaxPoints
	}
	if o.Height > 0 {
		out.Height = o.Height
	}
	return out
}

// Hook renders bar charts for responses that contain numeric data.
type Hook struct {
	opts    Options
	cache   store.Store
	metrics *monitoring.MetricsCollector
}

// New creates the chart hook. cache and metrics may be nil.
func New(opts *Options, cache store.Store, metrics *monitoring.MetricsCollector) *Hook {
	return &Hook{opts: opts.withDefaults(), cache: cache, metrics: metrics}
}

// Name returns the hook identifier.
func (h *Hook) Name() string { return "chart" }

// Transform attaches a chart image part when the response text carries a
// numeric series. Responses without one pass through unchanged.
func (h *Hook) Transform(_ context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error) {
	if len(resp.Choices) == 0 {
		return resp, nil
	}

	msg := &resp.Choices[0].Message
	text := msg.Content.Text()
	series := Detect(text)
	if series == nil {
		return resp, nil
	}
	if len(series.Labels) > h.opts.MaxPoints {
		series.Labels = series.Labels[:h.opts.MaxPoints]
		series.Values = series.Values[:h.opts.MaxPoints]
	}

	uri, err := h.renderCached(series)
	if err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	msg.Content = api.Parts(api.TextPart(text), api.ImagePart(uri))
	return resp, nil
}

// renderCached returns the data URI for the series, consulting the cache
// keyed by series fingerprint before rendering.
func (h *Hook) renderCached(s *Series) (string, error) {
	key := s.fingerprint()
	if h.cache != nil {
		if uri, ok := h.cache.Get(key); ok {
			if h.metrics != nil {
				h.metrics.RecordCacheHit()
			}
			return uri, nil
		}
		if h.metrics != nil {
			h.metrics.RecordCacheMiss()
		}
	}

	png, err := h.render(s)
	if err != nil {
		return "", err
	}
	uri := dataURIPrefix + base64.StdEncoding.EncodeToString(png)

	if h.metrics != nil {
		h.metrics.RecordChartRendered()
	}
	if h.cache != nil {
		_ = h.cache.Set(key, uri)
	}
	return uri, nil
}

// render draws the bar chart to an in-memory PNG. No files are written.
func (h *Hook) render(s *Series) ([]byte, error) {
	bars := make([]chart.Value, len(s.Values))
	for i, v := range s.Values {
		bars[i] = chart.Value{Value: v, Label: s.Labels[i]}
	}

	graph := chart.BarChart{
		Title:    h.opts.Title,
		Height:   h.opts.Height,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fingerprint is a stable cache key for the series content.
func (s *Series) fingerprint() string {
	sum := sha256.New()
	for i := range s.Values {
		fmt.Fprintf(sum, "%s=%g;", s.Labels[i], s.Values[i])
	}
	return fmt.Sprintf("chart:%x", sum.Sum(nil))
}
