// Package deprecate records the use of deprecated client features in a run's telemetry
// and warns the user once per message.
package deprecate

import (
	"log"
	"sync"

	"runtelemetry/internal/telemetry"
	"runtelemetry/internal/telemetry/domain"
)

// Warner shows a warning to the user.
type Warner interface {
	Warn(message string)
}

type logWarner struct{}

func (logWarner) Warn(message string) { log.Printf("warning: %s", message) }

// Tracker remembers which warnings were already shown.
type Tracker struct {
	mu     sync.Mutex
	shown  map[string]bool
	warner Warner
}

// NewTracker returns a Tracker that warns through w; nil selects the standard logger.
func NewTracker(w Warner) *Tracker {
	if w == nil {
		w = logWarner{}
	}
	return &Tracker{shown: make(map[string]bool), warner: w}
}

// Deprecate sets feature in rec's deprecated flags and shows message unless the same
// message was already shown by this Tracker. rec may be nil when no run is active; the
// warning is still shown.
func (t *Tracker) Deprecate(rec *telemetry.Recorder, feature domain.DeprecatedFeature, message string) error {
	if _, err := domain.ParseDeprecatedFeature(string(feature)); err != nil {
		return err
	}
	if rec != nil {
		rec.Update(func(tel *domain.Record) { _ = tel.Deprecations().Set(feature) })
	}
	t.warnOnce(message)
	return nil
}

func (t *Tracker) warnOnce(message string) {
	if message == "" {
		return
	}
	t.mu.Lock()
	if t.shown[message] {
		t.mu.Unlock()
		return
	}
	t.shown[message] = true
	t.mu.Unlock()
	t.warner.Warn(message)
}

var messages = map[domain.DeprecatedFeature]string{
	domain.KerasCallbackDataType: "the data_type argument of the keras callback is deprecated and will be removed in a future release",
	domain.RunMode:               "the run mode setting is deprecated; set mode to offline or disabled instead",
	domain.RunSaveNoArgs:         "calling save without a glob is deprecated and has no effect",
	domain.RunJoin:               "join is deprecated; call finish instead",
}

// Message returns the warning shown for feature, or "" for an unknown feature.
func Message(feature domain.DeprecatedFeature) string {
	return messages[feature]
}

var defaultTracker = NewTracker(nil)

// Deprecate records feature on rec and warns through the process-wide Tracker.
func Deprecate(rec *telemetry.Recorder, feature domain.DeprecatedFeature, message string) error {
	return defaultTracker.Deprecate(rec, feature, message)
}
