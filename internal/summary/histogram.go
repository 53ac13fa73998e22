// Package summary builds the distribution summaries a run logs for model tensors.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultBins is the bucket count used when none is requested.
	DefaultBins = 64
	// MaxBins is the largest bucket count a histogram may carry.
	MaxBins = 512
)

var (
	// ErrTooManyBins is returned when a histogram would exceed MaxBins buckets.
	ErrTooManyBins = errors.New("summary: too many bins")
	// ErrBadEdges is returned when bucket edges do not match the counts or are not increasing.
	ErrBadEdges = errors.New("summary: bucket edges do not match counts")
)

// Histogram is an equal-or-explicit-width bucketed distribution. Bins holds the bucket
// edges, one more than Values.
type Histogram struct {
	Values []int64
	Bins   []float64
}

type histogramJSON struct {
	Type   string    `json:"_type"`
	Values []int64   `json:"values"`
	Bins   []float64 `json:"bins"`
}

// NewHistogram buckets values into bins equal-width buckets over [min, max]. The last
// bucket is closed on the right. NaN and ±Inf are ignored. When every value is equal, or
// the range is too narrow for bins distinct edges, the range is widened around its middle
// (to [v-0.5, v+0.5] for ordinary magnitudes); with no finite values the range is [0, 1].
// Ranges spanning the whole float64 line are supported. bins <= 0 selects DefaultBins.
func NewHistogram(values []float64, bins int) (*Histogram, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	if bins > MaxBins {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyBins, bins, MaxBins)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	finite := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	switch {
	case finite == 0:
		lo, hi = 0, 1
	case lo == hi:
		lo, hi = widen(lo)
	}

	edges := equalEdges(lo, hi, bins)
	if !increasing(edges) {
		lo, hi = widen(lo/2 + hi/2)
		edges = equalEdges(lo, hi, bins)
	}

	h := &Histogram{
		Values: make([]int64, bins),
		Bins:   edges,
	}
	// Halved operands keep the span finite when lo and hi have opposite signs near ±MaxFloat64.
	span := hi/2 - lo/2
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		idx := int((v/2 - lo/2) / span * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h.Values[idx]++
	}
	return h, nil
}

// equalEdges returns bins+1 edges from lo to hi, interpolated so no intermediate overflows.
func equalEdges(lo, hi float64, bins int) []float64 {
	edges := make([]float64, bins+1)
	for i := range edges {
		f := float64(i) / float64(bins)
		edges[i] = lo*(1-f) + hi*f
	}
	edges[0], edges[bins] = lo, hi
	return edges
}

func increasing(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return false
		}
	}
	return true
}

// widen returns a finite range around v wide enough for MaxBins distinct edges:
// half-width 0.5, or 2^-20 of |v| for large magnitudes.
func widen(v float64) (lo, hi float64) {
	d := math.Max(0.5, math.Abs(v)*0x1p-20)
	lo, hi = v-d, v+d
	switch {
	case math.IsInf(hi, 1):
		lo, hi = v-2*d, v
	case math.IsInf(lo, -1):
		lo, hi = v, v+2*d
	}
	return lo, hi
}

// FromCounts builds a histogram from precomputed counts and edges
// (len(edges) == len(counts)+1, strictly increasing).
func FromCounts(counts []int64, edges []float64) (*Histogram, error) {
	if len(counts) > MaxBins {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyBins, len(counts), MaxBins)
	}
	if len(edges) != len(counts)+1 {
		return nil, fmt.Errorf("%w: %d edges for %d counts", ErrBadEdges, len(edges), len(counts))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("%w: edge %d is not increasing", ErrBadEdges, i)
		}
	}
	h := &Histogram{
		Values: append([]int64(nil), counts...),
		Bins:   append([]float64(nil), edges...),
	}
	return h, nil
}

// Total returns the number of values counted.
func (h *Histogram) Total() int64 {
	var n int64
	for _, c := range h.Values {
		n += c
	}
	return n
}

// MarshalJSON encodes the histogram as {"_type":"histogram","values":[...],"bins":[...]}.
func (h *Histogram) MarshalJSON() ([]byte, error) {
	return json.Marshal(histogramJSON{Type: "histogram", Values: h.Values, Bins: h.Bins})
}

// UnmarshalJSON decodes and validates the JSON form.
func (h *Histogram) UnmarshalJSON(b []byte) error {
	var raw histogramJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Type != "histogram" {
		return fmt.Errorf("summary: _type %q is not histogram", raw.Type)
	}
	parsed, err := FromCounts(raw.Values, raw.Bins)
	if err != nil {
		return err
	}
	*h = *parsed
	return nil
}
