// Package cloudsync implements the Uplink and Downlink cooperative loops
// of spec.md §4.8: draining the local outbox to a remote price-aggregation
// service, and pulling down community-aggregated prices and history.
//
// Grounded on the teacher's main.go signal-driven shutdown and context
// propagation idiom, generalized to two independent cooperative loops;
// rate limiting uses golang.org/x/time/rate (sourced from the wider
// example pack's kasuganosora-rpgmakermvmmo go.mod, which the teacher
// itself does not need since it has no outbound network client of its
// own).
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"titrack/internal/log"
	"titrack/internal/metrics"
	"titrack/internal/model"
)

// DefaultUplinkPeriod and DefaultDownlinkPeriod are P_up and P_down.
const (
	DefaultUplinkPeriod   = 60 * time.Second
	DefaultDownlinkPeriod = 300 * time.Second
	MaxBackoff            = time.Hour
	PriceHistoryWindow    = 72 * time.Hour
	RemotePageSize        = 1000
)

// RetryableHTTPError marks a failure the Uplink/Downlink loops should
// retry with backoff (network errors, 5xx, and 429).
type RetryableHTTPError struct {
	StatusCode int
	Err        error
}

func (e *RetryableHTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable cloud error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("retryable cloud error (status %d)", e.StatusCode)
}

// Remote is the network boundary the worker drives. The production
// implementation wraps net/http against the configured base URL and
// anonymous key; tests supply a stub.
type Remote interface {
	SubmitPrice(ctx context.Context, deviceUUID string, typeID model.TypeId, value float64, capturedTs time.Time) error
	FetchSeasonPrices(ctx context.Context, season string, offset, limit int) ([]model.CloudPrice, error)
	FetchPriceHistory(ctx context.Context, typeID model.TypeId, since time.Time, offset, limit int) ([]model.PriceHistoryRow, error)
}

// Outbox is the subset of the store the Uplink loop needs.
type Outbox interface {
	ListOutboxFIFO(limit int) ([]model.OutboxEntry, error)
	DeleteOutboxEntry(id int64) error
	RetryOutboxEntry(id int64, attempts int, nextAttempt time.Time, lastErr string) error
	OutboxDepth() (int, error)
}

// PriceSink is the subset of the store the Downlink loop writes to.
type PriceSink interface {
	UpsertCloudPrice(model.CloudPrice) error
	InsertPriceHistoryRow(model.PriceHistoryRow) error
	PresentTypeIds(scope model.PlayerScope) ([]model.TypeId, error)
}

// Worker owns the Uplink and Downlink loops for one device.
type Worker struct {
	remote     Remote
	outbox     Outbox
	prices     PriceSink
	deviceUUID string

	uplinkPeriod   time.Duration
	downlinkPeriod time.Duration
	limiter        *rate.Limiter

	scope   model.PlayerScope
	season  string
	enabled bool

	metrics *metrics.Metrics
}

// SetMetrics attaches the Prometheus metric set the worker reports
// through; nil (the default) disables instrumentation.
func (w *Worker) SetMetrics(m *metrics.Metrics) {
	w.metrics = m
}

// New constructs a Worker. ~100 submissions/device/hour matches the
// remote's documented rate cap (spec.md §4.8); the limiter's burst allows
// a small catch-up batch after a cold start without exceeding the hourly
// cap in steady state.
func New(remote Remote, outbox Outbox, prices PriceSink, deviceUUID string) *Worker {
	return &Worker{
		remote:         remote,
		outbox:         outbox,
		prices:         prices,
		deviceUUID:     deviceUUID,
		uplinkPeriod:   DefaultUplinkPeriod,
		downlinkPeriod: DefaultDownlinkPeriod,
		limiter:        rate.NewLimiter(rate.Every(time.Hour/100), 10),
		enabled:        true,
	}
}

// SetScope updates the scope the Downlink loop evaluates "present TypeIds"
// against, per the Player Context's scope-change notification.
func (w *Worker) SetScope(scope model.PlayerScope, season string) {
	w.scope = scope
	w.season = season
}

// SetEnabled toggles the cloud feature per the settings resource of
// spec.md §6; disabling leaves the outbox queued rather than draining it.
func (w *Worker) SetEnabled(enabled bool) {
	w.enabled = enabled
}

// Status reports the worker's current state for the cloud status endpoint.
type Status struct {
	Enabled bool
	Scope   model.PlayerScope
	Season  string
}

func (w *Worker) Status() Status {
	return Status{Enabled: w.enabled, Scope: w.scope, Season: w.season}
}

// TriggerUplink runs one uplink drain cycle immediately, outside of its
// ticker cadence, for the manual-sync endpoint.
func (w *Worker) TriggerUplink(ctx context.Context) {
	if !w.enabled {
		return
	}
	w.uplinkOnce(ctx)
}

// TriggerDownlink runs one downlink fetch cycle immediately.
func (w *Worker) TriggerDownlink(ctx context.Context) {
	if !w.enabled {
		return
	}
	w.downlinkOnce(ctx)
}

// RunUplink drains the Outbox in FIFO order until ctx is cancelled,
// sleeping uplinkPeriod between drain cycles.
func (w *Worker) RunUplink(ctx context.Context) {
	ticker := time.NewTicker(w.uplinkPeriod)
	defer ticker.Stop()

	w.uplinkOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.uplinkOnce(ctx)
		}
	}
}

func (w *Worker) uplinkOnce(ctx context.Context) {
	if !w.enabled {
		return
	}
	entries, err := w.outbox.ListOutboxFIFO(100)
	if err != nil {
		log.Error(fmt.Sprintf("cloudsync: list outbox failed: %v", err))
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.TypeId == model.BaseCurrencyTypeId {
			w.outbox.DeleteOutboxEntry(e.Id)
			continue
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		err := w.remote.SubmitPrice(ctx, w.deviceUUID, e.TypeId, e.Value, e.CapturedTs)
		if err == nil {
			w.outbox.DeleteOutboxEntry(e.Id)
			w.countUplink("ok")
			continue
		}

		var retryable *RetryableHTTPError
		if errors.As(err, &retryable) {
			attempts := e.Attempts + 1
			backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			w.outbox.RetryOutboxEntry(e.Id, attempts, time.Now().Add(backoff), err.Error())
			w.countUplink("retry")
			continue
		}

		// Non-retryable 4xx: log the error and delete the row so it
		// stops blocking FIFO order. The error is not stored in the
		// outbox; the log line is its only record.
		log.Warn(fmt.Sprintf("cloudsync: dropping outbox entry %d after non-retryable error: %v", e.Id, err))
		w.outbox.DeleteOutboxEntry(e.Id)
		w.countUplink("dropped")
	}

	if w.metrics != nil {
		if depth, err := w.outbox.OutboxDepth(); err == nil {
			w.metrics.OutboxDepth.Set(float64(depth))
		}
	}
}

func (w *Worker) countUplink(outcome string) {
	if w.metrics != nil {
		w.metrics.UplinkOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (w *Worker) countDownlink(outcome string) {
	if w.metrics != nil {
		w.metrics.DownlinkOutcomes.WithLabelValues(outcome).Inc()
	}
}

// RunDownlink fetches season-aggregated prices and per-present-TypeId
// history until ctx is cancelled.
func (w *Worker) RunDownlink(ctx context.Context) {
	ticker := time.NewTicker(w.downlinkPeriod)
	defer ticker.Stop()

	w.downlinkOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.downlinkOnce(ctx)
		}
	}
}

func (w *Worker) downlinkOnce(ctx context.Context) {
	if !w.enabled || w.season == "" {
		return
	}

	if err := w.fetchAllSeasonPrices(ctx); err != nil {
		log.Warn(fmt.Sprintf("cloudsync: downlink season prices failed: %v", err))
		w.countDownlink("error")
		return
	}

	typeIDs, err := w.prices.PresentTypeIds(w.scope)
	if err != nil {
		log.Warn(fmt.Sprintf("cloudsync: list present type ids failed: %v", err))
		w.countDownlink("error")
		return
	}

	since := time.Now().Add(-PriceHistoryWindow)
	outcome := "ok"
	for _, t := range typeIDs {
		if ctx.Err() != nil {
			return
		}
		if err := w.fetchAllPriceHistory(ctx, t, since); err != nil {
			log.Warn(fmt.Sprintf("cloudsync: downlink history for %d failed: %v", t, err))
			outcome = "partial"
		}
	}
	w.countDownlink(outcome)
}

func (w *Worker) fetchAllSeasonPrices(ctx context.Context) error {
	offset := 0
	for {
		page, err := w.remote.FetchSeasonPrices(ctx, w.season, offset, RemotePageSize)
		if err != nil {
			return err
		}
		for _, p := range page {
			if p.TypeId == model.BaseCurrencyTypeId {
				continue
			}
			if err := w.prices.UpsertCloudPrice(p); err != nil {
				return err
			}
		}
		if len(page) < RemotePageSize {
			return nil
		}
		offset += len(page)
	}
}

func (w *Worker) fetchAllPriceHistory(ctx context.Context, typeID model.TypeId, since time.Time) error {
	offset := 0
	for {
		page, err := w.remote.FetchPriceHistory(ctx, typeID, since, offset, RemotePageSize)
		if err != nil {
			return err
		}
		for _, row := range page {
			if err := w.prices.InsertPriceHistoryRow(row); err != nil {
				return err
			}
		}
		if len(page) < RemotePageSize {
			return nil
		}
		offset += len(page)
	}
}

// ClassifyHTTPStatus maps an HTTP status code to a RetryableHTTPError or
// nil-wrapped non-retryable error, per spec.md §4.8/§7's error taxonomy.
func ClassifyHTTPStatus(status int, body error) error {
	switch {
	case status == 0:
		return &RetryableHTTPError{StatusCode: status, Err: body}
	case status == http.StatusTooManyRequests:
		return &RetryableHTTPError{StatusCode: status, Err: body}
	case status >= 500:
		return &RetryableHTTPError{StatusCode: status, Err: body}
	case status >= 400:
		return fmt.Errorf("cloud request rejected (status %d): %w", status, body)
	default:
		return nil
	}
}
