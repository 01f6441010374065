// Package client provides an HTTP client for an external dose log record
// store. It implements the same LogStore contract the embedded repository
// does, so deployments can point intake submissions at a remote service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/intake-tracker/internal/application"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"

	principalHeader = "X-User-ID"
)

// Client talks to a remote record store speaking the intake tracker API.
// Failed submissions are reported as-is; the caller decides whether to retry.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New constructs a record store client for the given base URL. userID is
// placed in the principal header of every request.
func New(baseURL, userID string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type logTakenRequest struct {
	Date     string  `json:"date"`
	TimeSlot string  `json:"time_slot"`
	TakenAt  *string `json:"taken_at,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type logTakenResponse struct {
	Log doseLogPayload `json:"log"`
}

type doseLogPayload struct {
	ID          string  `json:"id"`
	ScheduleID  string  `json:"schedule_id"`
	ScheduledAt string  `json:"scheduled_at"`
	TakenAt     *string `json:"taken_at"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
	CreatedAt   string  `json:"created_at"`
}

type errorPayload struct {
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors"`
}

// AppendLog implements application.LogStore by submitting the taken-log to
// the remote store and returning its canonical record.
func (c *Client) AppendLog(ctx context.Context, log application.DoseLog) (application.DoseLog, error) {
	if c == nil {
		return application.DoseLog{}, fmt.Errorf("client is nil")
	}

	payload := logTakenRequest{
		Date:     log.ScheduledAt.Format(dateLayout),
		TimeSlot: log.ScheduledAt.Format("15:04"),
		Notes:    log.Notes,
	}
	if log.TakenAt != nil {
		takenAt := log.TakenAt.Format(timestampLayout)
		payload.TakenAt = &takenAt
	}

	target := fmt.Sprintf("%s/user-medications/%s/log-taken", c.baseURL, url.PathEscape(log.ScheduleID))

	body, err := json.Marshal(payload)
	if err != nil {
		return application.DoseLog{}, fmt.Errorf("encode log submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return application.DoseLog{}, fmt.Errorf("build log submission: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(principalHeader, c.userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return application.DoseLog{}, fmt.Errorf("%w: %v", application.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return application.DoseLog{}, translateStatus(resp)
	}

	var decoded logTakenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return application.DoseLog{}, fmt.Errorf("%w: decode response: %v", application.ErrUnavailable, err)
	}
	return toDoseLog(decoded.Log)
}

type indicatorsPayload struct {
	Indicators []dayIndicatorPayload `json:"indicators"`
}

type dayIndicatorPayload struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
	Taken int    `json:"taken"`
}

// Indicators implements application.IndicatorSource by fetching per-day
// adherence aggregates from the remote store on behalf of the given user.
// Day sheets stay local: reconciling a day needs the full schedule context,
// which the remote API does not delegate.
func (c *Client) Indicators(ctx context.Context, userID string, start, end time.Time) ([]application.DayIndicator, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if userID == "" {
		userID = c.userID
	}

	query := url.Values{}
	query.Set("start", start.Format(dateLayout))
	query.Set("end", end.Format(dateLayout))
	target := fmt.Sprintf("%s/user-medications/indicators?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build indicator query: %w", err)
	}
	req.Header.Set(principalHeader, userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", application.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, translateStatus(resp)
	}

	var decoded indicatorsPayload
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", application.ErrUnavailable, err)
	}

	indicators := make([]application.DayIndicator, 0, len(decoded.Indicators))
	for _, payload := range decoded.Indicators {
		date, err := time.Parse(dateLayout, payload.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: parse indicator date: %v", application.ErrUnavailable, err)
		}
		indicators = append(indicators, application.DayIndicator{
			Date:  date,
			Total: payload.Total,
			Taken: payload.Taken,
		})
	}
	return indicators, nil
}

// translateStatus maps the remote store's status codes onto the local error
// taxonomy so callers handle remote and embedded stores uniformly.
func translateStatus(resp *http.Response) error {
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return application.ErrNotFound
	case http.StatusConflict:
		if payload.ErrorCode == "INTAKE_IN_FLIGHT" {
			return application.ErrIntakeInFlight
		}
		return application.ErrConflict
	case http.StatusUnprocessableEntity:
		vErr := &application.ValidationError{FieldErrors: payload.Errors}
		if len(vErr.FieldErrors) == 0 {
			vErr.FieldErrors = map[string]string{"request": payload.Message}
		}
		return vErr
	default:
		if payload.Message != "" {
			return fmt.Errorf("%w: %s", application.ErrUnavailable, payload.Message)
		}
		return fmt.Errorf("%w: unexpected status %d", application.ErrUnavailable, resp.StatusCode)
	}
}

func toDoseLog(payload doseLogPayload) (application.DoseLog, error) {
	scheduledAt, err := time.Parse(timestampLayout, payload.ScheduledAt)
	if err != nil {
		return application.DoseLog{}, fmt.Errorf("%w: parse scheduled_at: %v", application.ErrUnavailable, err)
	}
	createdAt, err := time.Parse(timestampLayout, payload.CreatedAt)
	if err != nil {
		return application.DoseLog{}, fmt.Errorf("%w: parse created_at: %v", application.ErrUnavailable, err)
	}

	log := application.DoseLog{
		ID:          payload.ID,
		ScheduleID:  payload.ScheduleID,
		ScheduledAt: scheduledAt,
		Status:      payload.Status,
		Notes:       payload.Notes,
		CreatedAt:   createdAt,
	}
	if payload.TakenAt != nil {
		takenAt, err := time.Parse(timestampLayout, *payload.TakenAt)
		if err != nil {
			return application.DoseLog{}, fmt.Errorf("%w: parse taken_at: %v", application.ErrUnavailable, err)
		}
		log.TakenAt = &takenAt
	}
	return log, nil
}
