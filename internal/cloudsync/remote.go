package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"titrack/internal/model"
)

// HTTPRemote is the production Remote: a thin net/http client against the
// community-aggregation service named by spec.md §6's two cloud environment
// variables. No REST client library from the pack fits this shape closely
// enough to be worth adopting over net/http directly (see DESIGN.md).
type HTTPRemote struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewHTTPRemote constructs a Remote against baseURL, authenticating every
// request with anonKey.
func NewHTTPRemote(baseURL, anonKey string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type submitPriceBody struct {
	DeviceUUID string    `json:"device_uuid"`
	TypeId     int64     `json:"type_id"`
	Value      float64   `json:"value"`
	CapturedTs time.Time `json:"captured_ts"`
}

// SubmitPrice implements Remote.
func (r *HTTPRemote) SubmitPrice(ctx context.Context, deviceUUID string, typeID model.TypeId, value float64, capturedTs time.Time) error {
	body, err := json.Marshal(submitPriceBody{
		DeviceUUID: deviceUUID,
		TypeId:     int64(typeID),
		Value:      value,
		CapturedTs: capturedTs,
	})
	if err != nil {
		return err
	}

	req, err := r.newRequest(ctx, http.MethodPost, "/prices/submit", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &RetryableHTTPError{Err: err}
	}
	defer resp.Body.Close()
	return classifyAndWrap(resp.StatusCode)
}

type cloudPriceDTO struct {
	TypeId           int64     `json:"type_id"`
	Median           float64   `json:"median"`
	P10              float64   `json:"p10"`
	P90              float64   `json:"p90"`
	ContributorCount int       `json:"contributor_count"`
	CloudUpdatedTs   time.Time `json:"cloud_updated_ts"`
}

// FetchSeasonPrices implements Remote, paginating with offset/limit per
// spec.md §4.8's "observed 1 000 row cap" note.
func (r *HTTPRemote) FetchSeasonPrices(ctx context.Context, season string, offset, limit int) ([]model.CloudPrice, error) {
	q := url.Values{}
	q.Set("season", season)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var page []cloudPriceDTO
	if err := r.getJSON(ctx, "/prices/season", q, &page); err != nil {
		return nil, err
	}

	out := make([]model.CloudPrice, 0, len(page))
	for _, p := range page {
		out = append(out, model.CloudPrice{
			TypeId:           model.TypeId(p.TypeId),
			Median:           p.Median,
			P10:              p.P10,
			P90:              p.P90,
			ContributorCount: p.ContributorCount,
			CloudUpdatedTs:   p.CloudUpdatedTs,
		})
	}
	return out, nil
}

type priceHistoryDTO struct {
	TypeId            int64     `json:"type_id"`
	HourBucket        time.Time `json:"hour_bucket"`
	Median            float64   `json:"median"`
	P10               float64   `json:"p10"`
	P90               float64   `json:"p90"`
	SubmissionCount   int       `json:"submission_count"`
	UniqueDeviceCount int       `json:"unique_device_count"`
}

// FetchPriceHistory implements Remote.
func (r *HTTPRemote) FetchPriceHistory(ctx context.Context, typeID model.TypeId, since time.Time, offset, limit int) ([]model.PriceHistoryRow, error) {
	q := url.Values{}
	q.Set("type_id", strconv.FormatInt(int64(typeID), 10))
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var page []priceHistoryDTO
	if err := r.getJSON(ctx, "/prices/history", q, &page); err != nil {
		return nil, err
	}

	out := make([]model.PriceHistoryRow, 0, len(page))
	for _, p := range page {
		out = append(out, model.PriceHistoryRow{
			TypeId:            model.TypeId(p.TypeId),
			HourBucket:        p.HourBucket,
			Median:            p.Median,
			P10:               p.P10,
			P90:               p.P90,
			SubmissionCount:   p.SubmissionCount,
			UniqueDeviceCount: p.UniqueDeviceCount,
		})
	}
	return out, nil
}

func (r *HTTPRemote) newRequest(ctx context.Context, method, path string, query url.Values, body *bytes.Reader) (*http.Request, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.anonKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (r *HTTPRemote) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := r.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return &RetryableHTTPError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyAndWrap(resp.StatusCode); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func classifyAndWrap(status int) error {
	return ClassifyHTTPStatus(status, fmt.Errorf("status %d", status))
}
