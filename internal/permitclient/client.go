package permitclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siteops/permitboard/internal/permits"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 10 * time.Second
	// MaxResponseSize is the maximum response body size (1MB).
	MaxResponseSize = 1 * 1024 * 1024
	// RequestIDHeader tags every outgoing request for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// OpenRequest is the body of POST /api/open.
type OpenRequest struct {
	RiskType       permits.RiskType `json:"riskType"`
	Department     string           `json:"department"`
	Point          string           `json:"point"`
	Control        string           `json:"control"`
	Requester      string           `json:"requester"`
	Details        string           `json:"details"`
	StartedAtISO   string           `json:"startedAtISO"`
	OverdueMinutes int              `json:"overdueMinutes"`
}

// LoginResponse is the body of a successful POST /api/login.
type LoginResponse struct {
	OK   bool         `json:"ok"`
	User string       `json:"user"`
	Role permits.Role `json:"role,omitempty"`
}

type meResponse struct {
	OK   bool         `json:"ok"`
	User string       `json:"user"`
	Role permits.Role `json:"role"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client talks to the permit backend. It keeps the backend's session cookie,
// so one Client corresponds to one signed-in browser context.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu sync.Mutex
}

// NewClient creates a new backend client with its own cookie jar.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// Status fetches the full snapshot of open jobs.
func (c *Client) Status(ctx context.Context) (*permits.Snapshot, error) {
	var snap permits.Snapshot
	if err := c.doJSON(ctx, "status", http.MethodGet, "/api/status", nil, &snap); err != nil {
		return nil, err
	}
	normalize(&snap)
	return &snap, nil
}

// Open creates a job and returns the updated snapshot.
func (c *Client) Open(ctx context.Context, req OpenRequest) (*permits.Snapshot, error) {
	var snap permits.Snapshot
	if err := c.doJSON(ctx, "open", http.MethodPost, "/api/open", req, &snap); err != nil {
		return nil, err
	}
	normalize(&snap)
	return &snap, nil
}

// Close removes a job and returns the updated snapshot. A 403 means the
// session is neither the owner nor an admin.
func (c *Client) Close(ctx context.Context, id string) (*permits.Snapshot, error) {
	var snap permits.Snapshot
	body := map[string]string{"id": id}
	if err := c.doJSON(ctx, "close", http.MethodPost, "/api/close", body, &snap); err != nil {
		return nil, err
	}
	normalize(&snap)
	return &snap, nil
}

// SetConfig saves the overdue threshold. Backends that echo the state
// yield a snapshot; otherwise the returned snapshot is nil.
func (c *Client) SetConfig(ctx context.Context, overdueMinutes int) (*permits.Snapshot, error) {
	var raw json.RawMessage
	body := map[string]int{"overdueMinutes": overdueMinutes}
	if err := c.doJSON(ctx, "config", http.MethodPost, "/api/config", body, &raw); err != nil {
		return nil, err
	}

	var snap permits.Snapshot
	if len(raw) == 0 || json.Unmarshal(raw, &snap) != nil || snap.Jobs == nil {
		return nil, nil
	}
	normalize(&snap)
	return &snap, nil
}

// Login exchanges a user name and PIN for a backend session cookie.
func (c *Client) Login(ctx context.Context, user, pin string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"user": user, "pin": pin}
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the backend session. It is best-effort: transport failures
// are ignored and the local cookie jar is reset either way.
func (c *Client) Logout(ctx context.Context) {
	_ = c.doJSON(ctx, "logout", http.MethodPost, "/api/logout", nil, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if jar, err := cookiejar.New(nil); err == nil {
		c.HTTPClient.Jar = jar
	}
}

// Me reports the current backend session. A 401 is not an error: it means
// there is no session and nil is returned.
func (c *Client) Me(ctx context.Context) (*permits.Session, error) {
	var resp meResponse
	err := c.doJSON(ctx, "me", http.MethodGet, "/api/me", nil, &resp)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	if !resp.OK || resp.User == "" {
		return nil, nil
	}
	role := resp.Role
	if role != permits.RoleAdmin {
		role = permits.RoleUser
	}
	return &permits.Session{User: resp.User, Role: role}, nil
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response into target. Non-2xx responses become *APIError.
func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, target interface{}) error {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-store")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	c.mu.Lock()
	httpClient := c.HTTPClient
	c.mu.Unlock()

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	// Limit response size to 1MB
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	if len(body) > MaxResponseSize {
		return fmt.Errorf("%s: %w", op, ErrResponseTooBig)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidJSON, err)
	}
	return nil
}

func normalize(snap *permits.Snapshot) {
	if snap.Jobs == nil {
		snap.Jobs = []permits.Job{}
	}
	if snap.OverdueMinutes <= 0 {
		snap.OverdueMinutes = permits.DefaultOverdueMinutes
	}
}
