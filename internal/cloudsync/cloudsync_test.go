package cloudsync

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/model"
)

type stubOutbox struct {
	entries []model.OutboxEntry
	deleted []int64
	retried map[int64]int
}

func (s *stubOutbox) ListOutboxFIFO(limit int) ([]model.OutboxEntry, error) { return s.entries, nil }
func (s *stubOutbox) DeleteOutboxEntry(id int64) error {
	s.deleted = append(s.deleted, id)
	var kept []model.OutboxEntry
	for _, e := range s.entries {
		if e.Id != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}
func (s *stubOutbox) RetryOutboxEntry(id int64, attempts int, nextAttempt time.Time, lastErr string) error {
	if s.retried == nil {
		s.retried = map[int64]int{}
	}
	s.retried[id] = attempts
	return nil
}
func (s *stubOutbox) OutboxDepth() (int, error) { return len(s.entries), nil }

type stubRemote struct {
	submitErr error
	submitted []model.TypeId
}

func (r *stubRemote) SubmitPrice(ctx context.Context, deviceUUID string, typeID model.TypeId, value float64, capturedTs time.Time) error {
	if r.submitErr != nil {
		return r.submitErr
	}
	r.submitted = append(r.submitted, typeID)
	return nil
}
func (r *stubRemote) FetchSeasonPrices(ctx context.Context, season string, offset, limit int) ([]model.CloudPrice, error) {
	return nil, nil
}
func (r *stubRemote) FetchPriceHistory(ctx context.Context, typeID model.TypeId, since time.Time, offset, limit int) ([]model.PriceHistoryRow, error) {
	return nil, nil
}

type stubPriceSink struct{}

func (stubPriceSink) UpsertCloudPrice(model.CloudPrice) error                  { return nil }
func (stubPriceSink) InsertPriceHistoryRow(model.PriceHistoryRow) error        { return nil }
func (stubPriceSink) PresentTypeIds(model.PlayerScope) ([]model.TypeId, error) { return nil, nil }

func TestUplinkOnce(t *testing.T) {
	t.Run("drops Base Currency entries without submitting", func(t *testing.T) {
		ob := &stubOutbox{entries: []model.OutboxEntry{{Id: 1, TypeId: model.BaseCurrencyTypeId, Value: 1}}}
		remote := &stubRemote{}
		w := New(remote, ob, stubPriceSink{}, "device-1")
		w.uplinkOnce(context.Background())

		assert.Empty(t, ob.entries)
		assert.Empty(t, remote.submitted)
	})

	t.Run("deletes entry on successful submit", func(t *testing.T) {
		ob := &stubOutbox{entries: []model.OutboxEntry{{Id: 2, TypeId: 100301, Value: 5}}}
		remote := &stubRemote{}
		w := New(remote, ob, stubPriceSink{}, "device-1")
		w.uplinkOnce(context.Background())

		assert.Empty(t, ob.entries)
		assert.Contains(t, remote.submitted, model.TypeId(100301))
	})

	t.Run("retryable failure leaves entry queued with backoff recorded", func(t *testing.T) {
		ob := &stubOutbox{entries: []model.OutboxEntry{{Id: 3, TypeId: 100301, Value: 5, Attempts: 1}}}
		remote := &stubRemote{submitErr: &RetryableHTTPError{StatusCode: http.StatusTooManyRequests}}
		w := New(remote, ob, stubPriceSink{}, "device-1")
		w.uplinkOnce(context.Background())

		require.Len(t, ob.entries, 1)
		assert.Equal(t, 2, ob.retried[3])
	})

	t.Run("non-retryable failure drops the entry", func(t *testing.T) {
		ob := &stubOutbox{entries: []model.OutboxEntry{{Id: 4, TypeId: 100301, Value: 5}}}
		remote := &stubRemote{submitErr: errors.New("bad request")}
		w := New(remote, ob, stubPriceSink{}, "device-1")
		w.uplinkOnce(context.Background())

		assert.Empty(t, ob.entries)
		assert.Contains(t, ob.deleted, int64(4))
	})
}

func TestClassifyHTTPStatus(t *testing.T) {
	var retryable *RetryableHTTPError

	err := ClassifyHTTPStatus(http.StatusTooManyRequests, nil)
	require.True(t, errors.As(err, &retryable))

	err = ClassifyHTTPStatus(http.StatusInternalServerError, nil)
	require.True(t, errors.As(err, &retryable))

	err = ClassifyHTTPStatus(http.StatusBadRequest, nil)
	require.Error(t, err)
	assert.False(t, errors.As(err, &retryable))

	assert.NoError(t, ClassifyHTTPStatus(http.StatusOK, nil))
}

func TestWorkerEnableDisable(t *testing.T) {
	ob := &stubOutbox{entries: []model.OutboxEntry{{Id: 5, TypeId: 100301, Value: 5}}}
	remote := &stubRemote{}
	w := New(remote, ob, stubPriceSink{}, "device-1")
	w.SetScope(model.PlayerScope{PlayerId: "hero-1"}, "season-1")

	assert.True(t, w.Status().Enabled)

	w.SetEnabled(false)
	w.TriggerUplink(context.Background())
	assert.Len(t, ob.entries, 1, "disabled worker must not drain the outbox")

	w.SetEnabled(true)
	w.TriggerUplink(context.Background())
	assert.Empty(t, ob.entries)

	status := w.Status()
	assert.Equal(t, "season-1", status.Season)
	assert.Equal(t, "hero-1", status.Scope.PlayerId)
}
