// Package playerctx tracks the active PlayerScope and publishes
// scope-change notifications, per spec.md §4.6.
//
// Grounded on the teacher's internal/game/state_manager.go: a mutex-guarded
// current value that only notifies subscribers when the value actually
// changes.
package playerctx

import (
	"sync"

	"titrack/internal/logparser"
	"titrack/internal/model"
)

// ScopeChange describes a transition the Collector must react to atomically:
// flush the prior scope's open run, load the new scope's slot state, reset
// the segmenter, and notify the Cloud Sync Worker.
type ScopeChange struct {
	Prior   model.PlayerScope
	Current model.PlayerScope
}

// Tracker observes PlayerField events and derives the active PlayerScope.
type Tracker struct {
	mu    sync.RWMutex
	scope model.PlayerScope

	onChange func(ScopeChange)
}

// New constructs a Tracker. onChange is invoked synchronously, on the
// caller's goroutine, whenever a PlayerField event changes the scope's
// Key() (a field change that leaves Key() the same does not fire it).
func New(onChange func(ScopeChange)) *Tracker {
	return &Tracker{onChange: onChange}
}

// Current returns the active PlayerScope (thread-safe).
func (t *Tracker) Current() model.PlayerScope {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scope
}

// ApplyField folds one PlayerField event into scope, matching field keys by
// exact name against the log's Player@ key vocabulary. Unrecognized keys
// return scope unchanged. Shared by Feed and the Collector's cold-start
// accumulation so both derive a scope the same way.
func ApplyField(scope model.PlayerScope, ev logparser.Event) model.PlayerScope {
	if ev.Kind != logparser.EventPlayerField {
		return scope
	}
	switch ev.FieldKey {
	case "PlayerId", "RoleId", "Uid":
		scope.PlayerId = ev.FieldValue
	case "Name", "RoleName":
		scope.Name = ev.FieldValue
	case "SeasonId", "Season":
		scope.SeasonId = ev.FieldValue
	}
	return scope
}

// Feed processes one PlayerField event, updating scope and firing
// onChange if the resulting scope differs from the prior one.
func (t *Tracker) Feed(ev logparser.Event) {
	if ev.Kind != logparser.EventPlayerField {
		return
	}

	t.mu.Lock()
	prior := t.scope
	next := ApplyField(prior, ev)
	if next == prior {
		t.mu.Unlock()
		return
	}
	t.scope = next
	t.mu.Unlock()

	if prior.Key() == next.Key() {
		return
	}
	if t.onChange != nil {
		t.onChange(ScopeChange{Prior: prior, Current: next})
	}
}

// Seed sets the scope directly without firing onChange, used by the cold
// start backward scan (spec.md §4.1/§4.6) to establish the scope before the
// collector's write path is active.
func (t *Tracker) Seed(scope model.PlayerScope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scope = scope
}
