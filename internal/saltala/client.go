// Package saltala is a client for the Saltala public booking API: line
// discovery, availability queries, and the two-step block/reserve booking
// flow. Endpoints respond with a {"success": true, "data": ...} envelope,
// which this client unwraps.
package saltala

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// The public widget sends a browser UA plus the tenant's Origin/Referer; the
// API rejects requests without them.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome Safari"

// ErrNoAvailability marks the gateway's "no se encontraron horas disponibles"
// 404. Callers treat it as an empty result, never as a request failure.
var ErrNoAvailability = errors.New("saltala: no availability")

// APIError is any non-2xx gateway response that is not the no-availability
// case.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("saltala: http status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

type Config struct {
	BaseURL    string
	PublicURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL   string
	publicURL string
	hc        *http.Client
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		publicURL: cfg.PublicURL,
		hc:        hc,
	}
}

// Line is one bookable service line within a unit.
type Line struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Person carries the reservation form fields for one user. Email and Phone
// are optional.
type Person struct {
	Rut       string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Corporation resolves the numeric corporation id behind a tenant's public
// URL slug.
func (c *Client) Corporation(ctx context.Context, publicURL string) (int, error) {
	q := url.Values{}
	q.Set("publicUrl", publicURL)
	data, err := c.get(ctx, "/admin/corporation", q)
	if err != nil {
		return 0, err
	}
	var body struct {
		ID            int `json:"id"`
		CorporationID int `json:"corporationId"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, fmt.Errorf("saltala: decode corporation: %w", err)
	}
	if body.ID != 0 {
		return body.ID, nil
	}
	if body.CorporationID != 0 {
		return body.CorporationID, nil
	}
	return 0, fmt.Errorf("saltala: corporation id not present for %q", publicURL)
}

// Services returns the raw services payload for a corporation. The shape
// varies between tenants, so callers scan it instead of decoding a schema.
func (c *Client) Services(ctx context.Context, corporationID int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("corporationId", strconv.Itoa(corporationID))
	return c.get(ctx, "/schedule/public/services", q)
}

// Lines lists the public lines of a unit. Both the bare-list and the
// {"items": [...]} response shapes are handled; entries without an id and a
// name are dropped.
func (c *Client) Lines(ctx context.Context, unitID int) ([]Line, error) {
	q := url.Values{}
	q.Set("unitId", strconv.Itoa(unitID))
	q.Set("isPublic", "true")
	data, err := c.get(ctx, "/schedule/public/lines", q)
	if err != nil {
		return nil, err
	}

	var items []Line
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Items []Line `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("saltala: decode lines: %w", err)
		}
		items = wrapped.Items
	}

	lines := make([]Line, 0, len(items))
	for _, ln := range items {
		if ln.ID != 0 && ln.Name != "" {
			lines = append(lines, ln)
		}
	}
	return lines, nil
}

// LineDetails fetches a line by id; the payload may carry a scheduleUnitId.
func (c *Client) LineDetails(ctx context.Context, lineID int) (map[string]any, error) {
	data, err := c.get(ctx, fmt.Sprintf("/schedule/public/lines/%d", lineID), nil)
	if err != nil {
		return nil, err
	}
	var details map[string]any
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("saltala: decode line details: %w", err)
	}
	return details, nil
}

// AvailableDays returns the raw payload of open reservation days for a line,
// looking months ahead. rut, when non-empty, is passed as patientRut.
func (c *Client) AvailableDays(ctx context.Context, lineID, months int, rut string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lineId", strconv.Itoa(lineID))
	q.Set("numberOfMonth", strconv.Itoa(months))
	if rut != "" {
		q.Set("patientRut", rut)
	}
	return c.get(ctx, "/schedule/public/getAvailableReservationDays", q)
}

// Reservations returns the raw reservations payload for a line within a
// datetime range (ISO with offset). Open times are scraped out of it by the
// availability package.
func (c *Client) Reservations(ctx context.Context, lineID int, startTime, endTime, rut string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lineId", strconv.Itoa(lineID))
	q.Set("startTime", startTime)
	q.Set("endTime", endTime)
	if rut != "" {
		q.Set("patientRut", rut)
	}
	return c.get(ctx, "/schedule/public/reservations", q)
}

type blockPayload struct {
	LineID     int    `json:"lineId"`
	Date       string `json:"date"`
	PatientRut string `json:"patientRut,omitempty"`
}

// BlockSlot places the gateway's short-lived hold on a slot. dateTime is
// YYYY-MM-DDTHH:MM:00; rut, when non-empty, tags the hold.
func (c *Client) BlockSlot(ctx context.Context, lineID int, dateTime, rut string) error {
	_, err := c.postJSON(ctx, "/schedule/public/addReservationTemporalBlock", blockPayload{
		LineID:     lineID,
		Date:       dateTime,
		PatientRut: rut,
	})
	return err
}

// ReleaseBlock removes a temporary hold. Best effort: holds also expire on
// their own after a gateway-defined TTL.
func (c *Client) ReleaseBlock(ctx context.Context, lineID int, dateTime, rut string) error {
	_, err := c.postJSON(ctx, "/schedule/public/removeReservationTemporalBlock", blockPayload{
		LineID:     lineID,
		Date:       dateTime,
		PatientRut: rut,
	})
	return err
}

type reservationField struct {
	FieldID string `json:"fieldId"`
	Value   string `json:"value"`
}

// GenerateReservation submits the reservation form for a blocked slot. The
// endpoint wants multipart/form-data with a single "payload" field holding
// the JSON body.
func (c *Client) GenerateReservation(ctx context.Context, lineID int, dateTime string, p Person) error {
	fields := []reservationField{
		{FieldID: "rut", Value: p.Rut},
		{FieldID: "nombres", Value: p.FirstName},
		{FieldID: "apellidos", Value: p.LastName},
	}
	if p.Email != "" {
		fields = append(fields, reservationField{FieldID: "correo", Value: p.Email})
	}
	if p.Phone != "" {
		fields = append(fields, reservationField{FieldID: "telefono", Value: p.Phone})
	}

	payload, err := json.Marshal(struct {
		LineID int                `json:"lineId"`
		Date   string             `json:"date"`
		Fields []reservationField `json:"fields"`
	}{LineID: lineID, Date: dateTime, Fields: fields})
	if err != nil {
		return fmt.Errorf("saltala: marshal reservation payload: %w", err)
	}

	_, err = c.postForm(ctx, "/schedule/public/generateReservation", map[string]string{
		"payload": string(payload),
	})
	return err
}

// --- transport ---

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, "")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("saltala: marshal body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, body, "application/json")
}

func (c *Client) postForm(ctx context.Context, path string, fields map[string]string) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("saltala: write form field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("saltala: close form writer: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, buf.Bytes(), w.FormDataContentType())
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (json.RawMessage, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("saltala: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", fmt.Sprintf("https://%s.saltala.com", c.publicURL))
	req.Header.Set("Referer", fmt.Sprintf("https://%s.saltala.com/", c.publicURL))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("saltala: http error: %w", err)
	}
	defer res.Body.Close()

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(res.Body); err != nil {
		return nil, fmt.Errorf("saltala: read response: %w", err)
	}

	if res.StatusCode >= 400 {
		if res.StatusCode == http.StatusNotFound &&
			strings.Contains(strings.ToLower(raw.String()), "no se encontraron") {
			return nil, ErrNoAvailability
		}
		return nil, &APIError{StatusCode: res.StatusCode, Body: raw.String()}
	}

	return unwrap(raw.Bytes()), nil
}

// unwrap peels the {"success": ..., "data": ...} envelope when present.
func unwrap(body []byte) json.RawMessage {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data
	}
	return body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
