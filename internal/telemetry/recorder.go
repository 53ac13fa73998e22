package telemetry

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"runtelemetry/internal/telemetry/domain"
)

// ErrAlreadyFinished is returned by Finish when the run's record was already serialized.
var ErrAlreadyFinished = errors.New("telemetry: record already finished")

// Recorder accumulates the telemetry record of a single run. It is safe for concurrent use.
// The record is created with the Recorder and serialized exactly once by Finish.
type Recorder struct {
	mu       sync.Mutex
	runID    string
	entity   string
	project  string
	record   domain.Record
	emitter  EventEmitter
	finished bool
	now      func() time.Time
}

// NewRecorder returns a Recorder for runID. emitter may be nil; Finish then only builds the report.
func NewRecorder(runID, entity, project string, emitter EventEmitter) *Recorder {
	return &Recorder{
		runID:   runID,
		entity:  entity,
		project: project,
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunID returns the run the record belongs to.
func (r *Recorder) RunID() string { return r.runID }

// Update applies fn to a copy of the record and merges the result back, so fn can set
// flags and strings but cannot clear them. Returns false (and does nothing) once the
// record has been finished.
func (r *Recorder) Update(fn func(tel *domain.Record)) bool {
	if fn == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		log.Printf("telemetry: update after finish ignored (run %s)", r.runID)
		return false
	}
	draft := r.record.Clone()
	fn(&draft)
	r.record.Merge(draft)
	return true
}

// Snapshot returns a copy of the current record.
func (r *Recorder) Snapshot() domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record.Clone()
}

// Finished reports whether Finish has been called.
func (r *Recorder) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Finish marks feature.finish, freezes the record and emits it once. The report is returned
// even when the emitter fails. A second call returns ErrAlreadyFinished.
func (r *Recorder) Finish(ctx context.Context) (*domain.Report, error) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return nil, ErrAlreadyFinished
	}
	r.record.Features().Finish = true
	r.finished = true
	report := &domain.Report{
		RunID:     r.runID,
		Entity:    r.entity,
		Project:   r.project,
		Record:    r.record.Clone(),
		CreatedAt: r.now(),
	}
	r.mu.Unlock()

	if r.emitter == nil {
		return report, nil
	}
	if err := r.emitter.Emit(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}
