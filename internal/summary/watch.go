package summary

import (
	"fmt"
	"sort"

	"runtelemetry/internal/telemetry"
	"runtelemetry/internal/telemetry/domain"
)

// WatchOptions controls which tensors a Watcher summarizes and how often.
type WatchOptions struct {
	// Parameters enables parameters/<name> histograms.
	Parameters bool
	// Gradients enables gradients/<name> histograms.
	Gradients bool
	// Every summarizes only steps divisible by Every; <= 0 means every step.
	Every int64
	// Bins is the bucket count; <= 0 selects DefaultBins.
	Bins int
}

// Watcher turns named model tensors into per-step histogram summaries. Creating one
// marks feature.watch on the run's telemetry.
type Watcher struct {
	opts WatchOptions
}

// NewWatcher returns a Watcher for the run recorded by rec (rec may be nil).
func NewWatcher(rec *telemetry.Recorder, opts WatchOptions) *Watcher {
	if rec != nil {
		rec.Update(func(tel *domain.Record) { tel.Features().Watch = true })
	}
	return &Watcher{opts: opts}
}

// Summarize returns the histograms to log at step, keyed parameters/<name> and
// gradients/<name>. It returns nil for steps skipped by WatchOptions.Every.
func (w *Watcher) Summarize(step int64, params, grads map[string][]float64) (map[string]*Histogram, error) {
	if w.opts.Every > 0 && step%w.opts.Every != 0 {
		return nil, nil
	}
	out := make(map[string]*Histogram)
	if w.opts.Parameters {
		if err := w.add(out, "parameters", params); err != nil {
			return nil, err
		}
	}
	if w.opts.Gradients {
		if err := w.add(out, "gradients", grads); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (w *Watcher) add(out map[string]*Histogram, prefix string, tensors map[string][]float64) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h, err := NewHistogram(tensors[name], w.opts.Bins)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", prefix, name, err)
		}
		out[prefix+"/"+name] = h
	}
	return nil
}
