// Package collector owns the live ingest pipeline B→C,D→E,F,G→A of
// spec.md §2/§4: it drives the Tailer, dispatches parsed events to the
// Exchange Parser, Delta Engine, Run Segmenter, and Player Context, and
// serializes every resulting write through the Store.
//
// Grounded on the teacher's internal/proxy/streaming/pipeline.go
// processDataSync idiom: one goroutine, no channels, each line processed
// to completion (parse → derive → persist) before the next is read. This
// is what preserves the delta engine's "previous value" invariant without
// locks inside it, per spec.md §5.
package collector

import (
	"context"
	"time"

	"titrack/internal/deltaengine"
	"titrack/internal/exchange"
	"titrack/internal/log"
	"titrack/internal/logparser"
	"titrack/internal/metrics"
	"titrack/internal/model"
	"titrack/internal/playerctx"
	"titrack/internal/runsegmenter"
	"titrack/internal/store"
	"titrack/internal/tailer"
	"titrack/internal/zones"
)

// ScopeNotifiee is notified when the active scope changes, so the Cloud
// Sync Worker can re-evaluate its season partition (spec.md §4.6d).
type ScopeNotifiee interface {
	SetScope(scope model.PlayerScope, season string)
}

// Collector is the single owner of the live pipeline for one log path.
// Not safe for concurrent use from more than one goroutine; Run drives it
// entirely on its own goroutine.
type Collector struct {
	store *store.Store
	bus   *EventBus

	tail    *tailer.Tailer
	logPath string

	scope     *playerctx.Tracker
	exchange  *exchange.Parser
	segmenter *runsegmenter.Segmenter
	bag       deltaengine.Bag

	pendingContext   []model.ContextTag
	pendingLevelPath string

	cloudNotifiee ScopeNotifiee

	nextRunIDSeq  int64
	runningRunIDs map[model.RunId]bool

	// runIDTranslation maps the segmenter's process-local placeholder run
	// ids (see allocateRunID) onto the Store's authoritative autoincrement
	// id, populated in openRun/resumeActiveRun and consulted in
	// applyBagEvent before a delta is persisted.
	runIDTranslation map[model.RunId]int64

	sourceUnavailable bool

	metrics *metrics.Metrics
}

// SetMetrics attaches the Prometheus metric set the collector reports
// through; nil (the default) disables instrumentation.
func (c *Collector) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Status summarizes the collector's live state for the HTTP boundary's
// status resource (spec.md §6).
type Status struct {
	LogPath          string
	LogPathMissing   bool
	WaitingForPlayer bool
	Running          bool
}

// New constructs a Collector for logPath whose tailer resumes from
// resumeFrom. The PlayerScope and any open run are restored later, by
// ColdStart.
func New(st *store.Store, logPath string, resumeFrom tailer.Position, cloudNotifiee ScopeNotifiee) *Collector {
	c := &Collector{
		store:            st,
		bus:              NewEventBus(),
		tail:             tailer.New(logPath, resumeFrom),
		logPath:          logPath,
		exchange:         exchange.New(),
		bag:              deltaengine.Bag{},
		cloudNotifiee:    cloudNotifiee,
		runningRunIDs:    map[model.RunId]bool{},
		runIDTranslation: map[model.RunId]int64{},
	}
	c.scope = playerctx.New(c.handleScopeChange)
	c.segmenter = runsegmenter.New(c.allocateRunID)
	return c
}

// Bus exposes the change-notification bus for HTTP boundary subscribers.
func (c *Collector) Bus() *EventBus { return c.bus }

// CurrentScope exposes the active PlayerScope for HTTP boundary handlers
// that need to query the Store on behalf of "the current player".
func (c *Collector) CurrentScope() model.PlayerScope { return c.scope.Current() }

// ColdStart performs the bounded backward scan of spec.md §4.1/§4.6: it
// seeds the PlayerScope before the live tailer starts, so the collector's
// write path never observes an unscoped event. Scope is accumulated
// locally and applied with a single Seed call rather than Feed, so the
// scan never fires the onChange side effects (segmenter reset, cloud
// notify) that a live scope change would.
func (c *Collector) ColdStart(maxBytes int64) error {
	lines, err := c.tail.ColdStartScan(maxBytes)
	if err != nil && err != tailer.ErrSourceUnavailable {
		return err
	}
	scope := c.scope.Current()
	for _, line := range lines {
		ev := logparser.ParseLine(line)
		if ev.Kind == logparser.EventPlayerField {
			scope = playerctx.ApplyField(scope, ev)
		}
	}
	if scope.IsZero() {
		return nil
	}
	c.scope.Seed(scope)
	c.loadScopeState(scope)
	if err := c.resumeActiveRun(scope); err != nil {
		log.Error("collector: resume active run failed: " + err.Error())
	}
	return nil
}

// Run polls the tailer until ctx is cancelled, processing every line
// synchronously to completion before reading the next.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

// Status reports the collector's current state for the HTTP boundary.
func (c *Collector) Status() Status {
	return Status{
		LogPath:          c.logPath,
		LogPathMissing:   c.sourceUnavailable,
		WaitingForPlayer: c.scope.Current().IsZero(),
		Running:          !c.sourceUnavailable,
	}
}

func (c *Collector) pollOnce() {
	start := time.Now()
	lines, err := c.tail.Poll()
	if err != nil {
		c.sourceUnavailable = err == tailer.ErrSourceUnavailable
		if c.metrics != nil {
			c.metrics.CollectorRunning.Set(boolToFloat(!c.sourceUnavailable))
		}
		if err != tailer.ErrSourceUnavailable {
			log.Warn("collector: tailer error: " + err.Error())
		}
		return
	}
	c.sourceUnavailable = false
	if c.metrics != nil {
		c.metrics.CollectorRunning.Set(1)
	}

	now := time.Now()
	for _, line := range lines {
		c.processLine(line, now)
	}
	if c.metrics != nil && len(lines) > 0 {
		c.metrics.LinesProcessed.Add(float64(len(lines)))
	}
	if learned, ok := c.exchange.PollTimeout(now); ok {
		c.applyLearned(learned, now)
	}

	pos := c.tail.Position()
	if err := c.store.SetLogPosition(c.logPath, pos.Offset, pos.Inode, pos.Size); err != nil {
		log.Error("collector: persist log position failed: " + err.Error())
	}

	if c.metrics != nil {
		c.metrics.IngestLatency.Observe(time.Since(start).Seconds())
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ProcessLine feeds a single raw log line through the same parsing and
// event-application path as the live tailer. Exposed for tests in other
// packages that need to drive scope/delta state without a real log file.
func (c *Collector) ProcessLine(line string, now time.Time) {
	c.processLine(line, now)
}

func (c *Collector) processLine(line string, now time.Time) {
	ev := logparser.ParseLine(line)

	switch ev.Kind {
	case logparser.EventNone:
		return

	case logparser.EventPlayerField:
		c.scope.Feed(ev)

	case logparser.EventContextBegin:
		tag, ok := model.ContextTagForProtoName[ev.ContextProtoName]
		if !ok {
			tag = model.ContextOther
		}
		c.pendingContext = append(c.pendingContext, tag)

	case logparser.EventContextEnd:
		if len(c.pendingContext) > 0 {
			c.pendingContext = c.pendingContext[:len(c.pendingContext)-1]
		}

	case logparser.EventBagInit, logparser.EventBagModify, logparser.EventBagRemove:
		c.applyBagEvent(ev, now)

	case logparser.EventLevelOpen:
		c.pendingLevelPath = ev.LevelPath

	case logparser.EventLevelEnter:
		c.applyLevelEnter(ev, now)

	case logparser.EventExchangeFragment:
		if learned, ok := c.exchange.Feed(ev, now); ok {
			c.applyLearned(learned, now)
		}
	}
}

func (c *Collector) currentContext() model.ContextTag {
	if len(c.pendingContext) == 0 {
		return model.ContextOther
	}
	return c.pendingContext[len(c.pendingContext)-1]
}

func (c *Collector) applyBagEvent(ev logparser.Event, now time.Time) {
	// Exclusion is handled inside deltaengine.Apply for Init/Modify, where
	// TypeId is known; a BagRemove for a never-tracked (excluded) slot
	// naturally yields no delta and no bag mutation since prev never existed.
	deltas := deltaengine.Apply(c.bag, ev, now)
	if len(deltas) == 0 {
		if ev.Kind != logparser.EventBagInit {
			return
		}
		c.persistSlotState(ev.Slot)
		return
	}

	scope := c.scope.Current()
	context := c.currentContext()
	runID, hasRun := c.segmenter.ActiveRunId()

	for i := range deltas {
		deltas[i].Scope = scope
		deltas[i].Context = context
		if hasRun {
			if real, ok := c.runIDTranslation[runID]; ok {
				id := real
				deltas[i].RunId = &id
			}
		}
		if _, err := c.store.InsertDelta(deltas[i]); err != nil {
			log.Error("collector: insert delta failed: " + err.Error())
			continue
		}
		if c.metrics != nil {
			c.metrics.DeltasPersisted.WithLabelValues(string(deltas[i].Context)).Inc()
		}
		c.bus.Fire(ChangeEvent{Kind: ChangeSlotState, Data: deltas[i]})
	}

	c.persistSlotState(ev.Slot)
}

func (c *Collector) persistSlotState(slot model.SlotKey) {
	state := c.bag[slot]
	if err := c.store.SaveSlotState(c.scope.Current(), slot, state); err != nil {
		log.Error("collector: save slot state failed: " + err.Error())
	}
}

func (c *Collector) applyLevelEnter(ev logparser.Event, now time.Time) {
	// A LevelEnter without a preceding LevelOpen still needs a signature;
	// zones.Resolve degrades gracefully on an empty path via its exact
	// levelId table.
	path := c.pendingLevelPath
	c.pendingLevelPath = ""

	scope := c.scope.Current()
	tr := c.segmenter.Enter(scope, path, ev.LevelUid, ev.LevelType, ev.LevelId, now)

	for _, closed := range tr.Closed {
		c.closeRun(closed, now)
	}
	if tr.Opened != nil {
		c.openRun(tr.Opened.Run)
	}
}

func (c *Collector) openRun(r runsegmenter.OpenRun) {
	run := model.Run{
		Scope:           r.Scope,
		StartTs:         r.StartTs,
		ZoneSignature:   r.ZoneSignature,
		ZoneDisplayName: r.ZoneDisplayName,
		LevelId:         r.LevelId,
		LevelType:       r.LevelType,
		LevelUid:        r.LevelUid,
		IsHubZone:       r.IsHubZone,
		IsSubZone:       r.IsSubZone,
		ParentRunId:     r.ParentRunId,
	}
	id, err := c.store.InsertRun(run)
	if err != nil {
		log.Error("collector: insert run failed: " + err.Error())
		return
	}
	c.runningRunIDs[id] = true
	if placeholder, ok := c.segmenter.ActiveRunId(); ok {
		c.runIDTranslation[placeholder] = int64(id)
	}
	run.Id = id
	if c.metrics != nil {
		c.metrics.RunsOpened.Inc()
	}
	c.bus.Fire(ChangeEvent{Kind: ChangeRunOpened, Data: run})
}

// closeRun persists the segmenter's close decision. The segmenter's own
// run ids are a process-local sequence (see allocateRunID); the
// authoritative row is found by matching the still-open run with the same
// scope, start time, and zone signature.
func (c *Collector) closeRun(closed runsegmenter.Closed, now time.Time) {
	if err := c.flushOpenRunByFields(closed, now); err != nil {
		log.Error("collector: close run failed: " + err.Error())
	}
}

func (c *Collector) flushOpenRunByFields(closed runsegmenter.Closed, endTs time.Time) error {
	runs, err := c.store.ListRuns(closed.Run.Scope, 5)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if r.EndTs == nil && r.StartTs.Equal(closed.Run.StartTs) && r.ZoneSignature == closed.Run.ZoneSignature {
			if err := c.store.CloseRun(r.Id, endTs); err != nil {
				return err
			}
			delete(c.runningRunIDs, r.Id)
			for placeholder, real := range c.runIDTranslation {
				if real == int64(r.Id) {
					delete(c.runIDTranslation, placeholder)
				}
			}
			if c.metrics != nil {
				c.metrics.RunsClosed.Inc()
			}
			c.bus.Fire(ChangeEvent{Kind: ChangeRunClosed, Data: r.Id})
			return nil
		}
	}
	return nil
}

// resumeActiveRun restores segmenter state for any run(s) the Store still
// has open (end_ts IS NULL) for scope, e.g. after a mid-run process
// restart. Without this, the segmenter starts Idle and a subsequent
// LevelEnter would open a second, colliding run while the old row's
// end_ts stays null forever, violating spec.md §3's one-open-run
// invariant. Grounded on
// original_source/src/titrack/collector/collector.py's initialize()
// (get_active_run + run_segmenter.load_active_run).
func (c *Collector) resumeActiveRun(scope model.PlayerScope) error {
	runs, err := c.store.GetActiveRuns(scope)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	open := make([]runsegmenter.OpenRun, len(runs))
	ids := make([]model.RunId, len(runs))
	for i, r := range runs {
		open[i] = runsegmenter.OpenRun{
			Scope:           r.Scope,
			StartTs:         r.StartTs,
			ZoneSignature:   r.ZoneSignature,
			ZoneDisplayName: r.ZoneDisplayName,
			LevelId:         r.LevelId,
			LevelType:       r.LevelType,
			LevelUid:        r.LevelUid,
			IsHubZone:       r.IsHubZone,
			IsSubZone:       r.IsSubZone,
			ParentRunId:     r.ParentRunId,
		}
		placeholder := c.allocateRunID()
		ids[i] = placeholder
		c.runIDTranslation[placeholder] = int64(r.Id)
		c.runningRunIDs[r.Id] = true
	}
	c.segmenter.LoadActiveRun(open, ids)
	return nil
}

// ResetSegmenter returns the live segmenter to Idle and clears its
// in-memory run bookkeeping, used by the runs HTTP resource after
// ResetRuns deletes a scope's rows out from under a run the segmenter
// still believes is open, grounded on
// original_source/src/titrack/collector/collector.py's reinitialize()
// ("call this after clearing run data to sync in-memory state").
func (c *Collector) ResetSegmenter() {
	c.segmenter.Reset()
	c.runningRunIDs = map[model.RunId]bool{}
	c.runIDTranslation = map[model.RunId]int64{}
	c.pendingContext = nil
}

// allocateRunID hands the segmenter a placeholder id sequence; the
// authoritative id is the Store's autoincrement id assigned in openRun.
// The segmenter only uses this id to detect "same run" via
// ActiveRunId/ParentRunId bookkeeping within one process lifetime.
func (c *Collector) allocateRunID() model.RunId {
	c.nextRunIDSeq++
	return model.RunId(c.nextRunIDSeq)
}

func (c *Collector) applyLearned(l exchange.Learned, now time.Time) {
	scope := c.scope.Current()
	price := model.Price{
		Scope:     scope.Key(),
		TypeId:    l.TypeId,
		Value:     l.ReferencePrice,
		Source:    model.PriceSourceExchangeLearned,
		UpdatedTs: now,
	}
	if err := c.store.UpsertPrice(price); err != nil {
		log.Error("collector: upsert learned price failed: " + err.Error())
		return
	}

	if l.TypeId != model.BaseCurrencyTypeId {
		if _, err := c.store.EnqueueOutbox(model.OutboxEntry{TypeId: l.TypeId, Value: l.ReferencePrice, CapturedTs: now}); err != nil {
			log.Error("collector: enqueue outbox failed: " + err.Error())
		}
	}

	if c.metrics != nil {
		c.metrics.PricesLearned.Inc()
	}
	c.bus.Fire(ChangeEvent{Kind: ChangePriceLearned, Data: price})
}

func (c *Collector) handleScopeChange(change playerctx.ScopeChange) {
	now := time.Now()

	// (a) flush any open run to the prior scope.
	if !change.Prior.IsZero() {
		runs, err := c.store.GetActiveRuns(change.Prior)
		if err == nil {
			for _, r := range runs {
				c.store.CloseRun(r.Id, now)
			}
		}
	}

	// (b) load new scope's slot state, (c) reset segmenter.
	c.loadScopeState(change.Current)
	c.segmenter.Reset()
	c.pendingContext = nil

	// (d) notify cloud sync worker.
	if c.cloudNotifiee != nil {
		c.cloudNotifiee.SetScope(change.Current, change.Current.SeasonId)
	}

	c.bus.Fire(ChangeEvent{Kind: ChangeScope, Data: change})
}

func (c *Collector) loadScopeState(scope model.PlayerScope) {
	state, err := c.store.LoadSlotState(scope)
	if err != nil {
		log.Error("collector: load slot state failed: " + err.Error())
		return
	}
	c.bag = deltaengine.Bag(state)
}

// ResolveZone exposes the zones package for the HTTP boundary's read-only
// zone lookups (e.g. rendering a run's display name).
func ResolveZone(levelPath string, levelId int) zones.Resolved {
	return zones.Resolve(levelPath, levelId)
}
