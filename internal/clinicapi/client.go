// Package clinicapi is the HTTP client for the clinic's patient API. All
// portal data comes from here; the portal itself stores nothing but session
// state.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"
)

const defaultUserAgent = "medsuy-patient-portal/0.1"

// Config controls how the clinic API client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the clinic REST endpoints the patient portal consumes.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("clinicapi: base URL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// AvailableAppointments fetches all currently bookable slots, optionally narrowed
// by the filter. Slots come back ordered by instant from the upstream.
func (c *Client) AvailableAppointments(ctx context.Context, filter AvailabilityFilter) ([]Appointment, error) {
	q := url.Values{}
	if s := strings.TrimSpace(filter.Specialty); s != "" {
		q.Set("especialidad", s)
	}
	if filter.DoctorID > 0 {
		q.Set("medico_id", strconv.FormatInt(filter.DoctorID, 10))
	}
	if filter.BranchID > 0 {
		q.Set("sucursal_id", strconv.FormatInt(filter.BranchID, 10))
	}
	if !filter.From.IsZero() {
		q.Set("desde", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		q.Set("hasta", filter.To.Format(time.RFC3339))
	}
	data, err := c.invoke(ctx, http.MethodGet, "/api/patient/appointments/available", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeValidatedList[Appointment](data)
}

// UpcomingAppointments fetches the patient's confirmed future appointments.
func (c *Client) UpcomingAppointments(ctx context.Context, patientID int64) ([]Appointment, error) {
	if patientID <= 0 {
		return nil, errors.New("clinicapi: patient id required")
	}
	path := fmt.Sprintf("/api/patient/%d/appointments/upcoming", patientID)
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeValidatedList[Appointment](data)
}

// ReserveAppointment reserves a slot for the patient. A slot that was taken in
// the meantime surfaces as ErrSlotUnavailable.
func (c *Client) ReserveAppointment(ctx context.Context, patientID, appointmentID int64) (*ReservationConfirmation, error) {
	if patientID <= 0 || appointmentID <= 0 {
		return nil, errors.New("clinicapi: patient and appointment ids required")
	}
	body, err := json.Marshal(struct {
		AppointmentID int64 `json:"consulta_id"`
	}{AppointmentID: appointmentID})
	if err != nil {
		return nil, fmt.Errorf("clinicapi: marshal reserve body: %w", err)
	}
	path := fmt.Sprintf("/api/patient/%d/appointments/reserve", patientID)
	data, err := c.invoke(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var conf ReservationConfirmation
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("clinicapi: decode reservation confirmation: %w", err)
	}
	return &conf, nil
}

// CancelAppointment releases a previously reserved slot back to the pool.
func (c *Client) CancelAppointment(ctx context.Context, patientID, appointmentID int64) error {
	if patientID <= 0 || appointmentID <= 0 {
		return errors.New("clinicapi: patient and appointment ids required")
	}
	path := fmt.Sprintf("/api/patient/%d/appointments/%d/cancel", patientID, appointmentID)
	_, err := c.invoke(ctx, http.MethodPost, path, nil, nil)
	return err
}

// PatientConversations fetches the conversation list for a patient.
func (c *Client) PatientConversations(ctx context.Context, patientID int64) ([]Conversation, error) {
	if patientID <= 0 {
		return nil, errors.New("clinicapi: patient id required")
	}
	path := fmt.Sprintf("/api/patient/%d/conversations", patientID)
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeValidatedList[Conversation](data)
}

// ConversationMessages fetches a conversation's messages in arrival order.
func (c *Client) ConversationMessages(ctx context.Context, patientID, conversationID int64) ([]Message, error) {
	if patientID <= 0 || conversationID <= 0 {
		return nil, errors.New("clinicapi: patient and conversation ids required")
	}
	path := fmt.Sprintf("/api/patient/%d/conversations/%d/messages", patientID, conversationID)
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeValidatedList[Message](data)
}

// SendMessage transmits a message into the conversation and returns the stored
// record once the upstream has confirmed it.
func (c *Client) SendMessage(ctx context.Context, patientID, conversationID int64, text string) (*Message, error) {
	if patientID <= 0 || conversationID <= 0 {
		return nil, errors.New("clinicapi: patient and conversation ids required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("clinicapi: message text required")
	}
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("clinicapi: marshal message body: %w", err)
	}
	path := fmt.Sprintf("/api/patient/%d/conversations/%d/messages", patientID, conversationID)
	data, err := c.invoke(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("clinicapi: decode stored message: %w", err)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.buildURL(path, query)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("clinicapi: build request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("clinicapi: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("clinicapi: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("clinicapi: request failed without response")
}

func (c *Client) buildURL(path string, query url.Values) string {
	trimmedPath := "/" + strings.TrimLeft(path, "/")
	full := c.baseURL + trimmedPath
	if len(query) > 0 {
		full = full + "?" + query.Encode()
	}
	return full
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("clinic API retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

func decodeValidatedList[T interface{ validate() error }](body []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("clinicapi: decode response: %w", err)
	}
	for _, item := range items {
		if err := item.validate(); err != nil {
			return nil, err
		}
	}
	return items, nil
}
