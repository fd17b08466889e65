// Package runsegmenter converts the sequence of LevelEnter/LevelOpen events
// into run lifecycles per spec.md §4.5.
//
// Grounded on the teacher's stateFn scanning idiom
// (internal/proxy/game_detector.go), generalized to the three-state
// Idle/InMap/InSubZone machine and the sub-zone splice rule described in
// the spec, itself distilled from
// original_source/src/titrack/collector/collector.go's zone-transition
// handling.
package runsegmenter

import (
	"time"

	"titrack/internal/model"
	"titrack/internal/zones"
)

type stateKind int

const (
	stateIdle stateKind = iota
	stateInMap
	stateInSubZone
)

// OpenRun mirrors model.Run's open-run fields during active segmentation;
// the Collector assigns IDs when persisting and translates into model.Run.
type OpenRun struct {
	Scope           model.PlayerScope
	StartTs         time.Time
	ZoneSignature   string
	ZoneDisplayName string
	LevelId         int
	LevelType       int
	LevelUid        int
	IsHubZone       bool
	IsSubZone       bool
	ParentRunId     *model.RunId
}

// Closed is emitted whenever the segmenter closes a run.
type Closed struct {
	Run   OpenRun
	EndTs time.Time
	// SpliceParent is set when this close is a sub-zone splice: the
	// caller must resume attributing deltas to SpliceParent without
	// opening a new run.
	SpliceParent *model.RunId
}

// Opened is emitted whenever the segmenter opens a new run.
type Opened struct {
	Run OpenRun
}

// Transition is the result of feeding one LevelEnter into the machine.
type Transition struct {
	Closed []Closed
	Opened *Opened
}

// Segmenter holds the live run state of the active PlayerScope. Not safe
// for concurrent use; the Collector owns one and resets it on every scope
// change.
type Segmenter struct {
	state stateKind

	outer   OpenRun
	outerId model.RunId
	sub     OpenRun
	subId   model.RunId

	nextRunId func() model.RunId
}

// New constructs an idle Segmenter. nextRunId is called once per opened run
// to obtain an id for it (the Collector supplies process-local placeholder
// ids and maps them to the Store's own run ids); tests may supply a simple
// counter.
func New(nextRunId func() model.RunId) *Segmenter {
	return &Segmenter{state: stateIdle, nextRunId: nextRunId}
}

// Reset returns the segmenter to Idle without emitting close events,
// per spec.md §4.6's scope-change semantics (the caller flushes the run
// itself before calling Reset).
func (s *Segmenter) Reset() {
	s.state = stateIdle
	s.outer = OpenRun{}
	s.sub = OpenRun{}
}

// Enter feeds one resolved LevelEnter into the machine.
func (s *Segmenter) Enter(scope model.PlayerScope, levelPath string, levelUid, levelType, levelId int, ts time.Time) Transition {
	resolved := zones.Resolve(levelPath, levelId)
	candidate := OpenRun{
		Scope:           scope,
		StartTs:         ts,
		ZoneSignature:   resolved.Signature,
		ZoneDisplayName: resolved.DisplayName,
		LevelId:         levelId,
		LevelType:       levelType,
		LevelUid:        levelUid,
		IsHubZone:       resolved.IsHub,
		IsSubZone:       resolved.IsSubZone,
	}

	switch {
	case resolved.IsHub:
		return s.handleHub(ts)
	case resolved.IsSubZone:
		return s.handleSubZone(candidate, ts)
	default:
		return s.handlePlainZone(candidate, ts)
	}
}

func (s *Segmenter) handleHub(ts time.Time) Transition {
	var closed []Closed
	switch s.state {
	case stateInSubZone:
		closed = append(closed, Closed{Run: s.sub, EndTs: ts})
		closed = append(closed, Closed{Run: s.outer, EndTs: ts})
	case stateInMap:
		closed = append(closed, Closed{Run: s.outer, EndTs: ts})
	}
	s.Reset()
	return Transition{Closed: closed}
}

func (s *Segmenter) handleSubZone(candidate OpenRun, ts time.Time) Transition {
	switch s.state {
	case stateInMap:
		parent := s.outerId
		candidate.ParentRunId = &parent
		s.subId = s.nextRunId()
		s.sub = candidate
		s.state = stateInSubZone
		return Transition{Opened: &Opened{Run: candidate}}

	case stateInSubZone:
		// A further sub-zone while already in one: close the current
		// sub-run and open a fresh one under the same outer run.
		closedSub := Closed{Run: s.sub, EndTs: ts}
		parent := s.outerId
		candidate.ParentRunId = &parent
		s.subId = s.nextRunId()
		s.sub = candidate
		return Transition{
			Closed: []Closed{closedSub},
			Opened: &Opened{Run: candidate},
		}

	default: // Idle
		s.outerId = s.nextRunId()
		s.outer = candidate
		s.state = stateInMap
		return Transition{Opened: &Opened{Run: candidate}}
	}
}

func (s *Segmenter) handlePlainZone(candidate OpenRun, ts time.Time) Transition {
	switch s.state {
	case stateIdle:
		s.outerId = s.nextRunId()
		s.outer = candidate
		s.state = stateInMap
		return Transition{Opened: &Opened{Run: candidate}}

	case stateInMap:
		if s.outer.ZoneSignature == candidate.ZoneSignature && s.outer.LevelId == candidate.LevelId {
			closedOuter := Closed{Run: s.outer, EndTs: ts}
			s.outerId = s.nextRunId()
			s.outer = candidate
			return Transition{
				Closed: []Closed{closedOuter},
				Opened: &Opened{Run: candidate},
			}
		}
		closedOuter := Closed{Run: s.outer, EndTs: ts}
		s.outerId = s.nextRunId()
		s.outer = candidate
		return Transition{
			Closed: []Closed{closedOuter},
			Opened: &Opened{Run: candidate},
		}

	case stateInSubZone:
		if candidate.ZoneSignature == s.outer.ZoneSignature {
			// Splice: close the sub-run, resume the outer run without
			// opening anything new.
			parent := s.outerId
			closedSub := Closed{Run: s.sub, EndTs: ts, SpliceParent: &parent}
			s.sub = OpenRun{}
			s.state = stateInMap
			return Transition{Closed: []Closed{closedSub}}
		}
		closedSub := Closed{Run: s.sub, EndTs: ts}
		closedOuter := Closed{Run: s.outer, EndTs: ts}
		s.outerId = s.nextRunId()
		s.outer = candidate
		s.state = stateInMap
		return Transition{
			Closed: []Closed{closedSub, closedOuter},
			Opened: &Opened{Run: candidate},
		}
	}

	return Transition{}
}

// LoadActiveRun restores segmenter state from runs the Store already had
// open when the process started, grounded on
// original_source/src/titrack/collector/collector.py's initialize() calling
// run_segmenter.load_active_run(active_run). open and ids must be the same
// length and ordered outer-then-sub (Store.GetActiveRuns returns them
// start_ts ASC, which satisfies this since the outer run always opens
// first). A single element restores a plain stateInMap run; two restore
// stateInSubZone with the outer run paused underneath, matching
// handleSubZone's stateInMap case.
func (s *Segmenter) LoadActiveRun(open []OpenRun, ids []model.RunId) {
	if len(open) == 0 {
		return
	}
	s.state = stateInMap
	s.outer = open[0]
	s.outerId = ids[0]
	if len(open) < 2 {
		return
	}
	s.state = stateInSubZone
	s.sub = open[1]
	s.subId = ids[1]
}

// ActiveRunId returns the run a delta observed right now should attribute
// to: the sub-run when one is open (it still belongs to the same outer
// run's accounting once spliced back, but while open it is its own run),
// otherwise the outer run, otherwise none.
func (s *Segmenter) ActiveRunId() (model.RunId, bool) {
	switch s.state {
	case stateInSubZone:
		return s.subId, true
	case stateInMap:
		return s.outerId, true
	}
	return 0, false
}
