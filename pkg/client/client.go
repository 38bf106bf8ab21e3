package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/primeslot/primeslot/pkg/availability"
	"github.com/primeslot/primeslot/pkg/catalog"
	"github.com/primeslot/primeslot/pkg/meeting"
	"github.com/primeslot/primeslot/pkg/roster"
)

// Client talks to the primeslot HTTP API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken sends token as a bearer member token on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. Its cookie jar is
// needed for admin sessions.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// New creates a client for the API at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server address %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AdminLogin opens an admin session; later calls carry its cookie
func (c *Client) AdminLogin(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/api/admin/login", body, nil)
}

// CreateEvent creates an event and returns its id
func (c *Client) CreateEvent(ctx context.Context, in catalog.EventInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/events", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateMember creates a member and returns its id
func (c *Client) CreateMember(ctx context.Context, in roster.MemberInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/members", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// RequestMeeting asks in.BID for a meeting on behalf of in.AID and
// returns the meeting id
func (c *Client) RequestMeeting(ctx context.Context, in meeting.RequestInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/api/members/%s/meetings/request", url.PathEscape(in.BID))
	if err := c.doJSON(ctx, http.MethodPost, path, in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Respond accepts or declines a meeting as in.MemberID
func (c *Client) Respond(ctx context.Context, in meeting.RespondInput) error {
	path := fmt.Sprintf("/api/members/%s/meetings/%s/respond", url.PathEscape(in.MemberID), url.PathEscape(in.MeetingID))
	return c.doJSON(ctx, http.MethodPost, path, in, nil)
}

// Calendar returns memberID's busy and free time. Zero from or to use
// the server's default window.
func (c *Client) Calendar(ctx context.Context, memberID string, from, to int64, eventID string) (*availability.Calendar, error) {
	q := url.Values{}
	if from > 0 {
		q.Set("from", strconv.FormatInt(from, 10))
	}
	if to > 0 {
		q.Set("to", strconv.FormatInt(to, 10))
	}
	if eventID != "" {
		q.Set("eventId", eventID)
	}
	path := fmt.Sprintf("/api/members/%s/calendar", url.PathEscape(memberID))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out availability.Calendar
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Availability returns the common free time of a pair of members
func (c *Client) Availability(ctx context.Context, in availability.PairInput) (*availability.Pair, error) {
	var out availability.Pair
	if err := c.doJSON(ctx, http.MethodPost, "/api/members/availability", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MeetingSummary returns the meeting totals of an event
func (c *Client) MeetingSummary(ctx context.Context, eventID string) (*meeting.Summary, error) {
	var out meeting.Summary
	path := fmt.Sprintf("/api/events/%s/meetings/summary", url.PathEscape(eventID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EventSummary counts all events split into upcoming and past
func (c *Client) EventSummary(ctx context.Context) (*catalog.EventSummary, error) {
	var out catalog.EventSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/events/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportMembers uploads an xlsx or CSV roster for eventID. The server
// picks the format from filename and the file contents.
func (c *Client) ImportMembers(ctx context.Context, eventID, filename string, file io.Reader, dryRun bool) (*roster.ImportSummary, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.WriteField("dryRun", strconv.FormatBool(dryRun)); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	path := fmt.Sprintf("/api/events/%s/members/import", url.PathEscape(eventID))
	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Summary *roster.ImportSummary `json:"summary"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Summary, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
