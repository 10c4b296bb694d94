// Package client is the authenticated sweeply API client. Credentials
// are attached and refreshed transparently by an http.RoundTripper
// chain: authTransport reads the access token from the secret store
// before every request, refreshTransport interprets 401s, runs the
// single-flight refresh exchange, and replays the failed request once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/me/sweeply/internal/secrets"
	"github.com/me/sweeply/pkg/model"
)

// Client is an HTTP client for the sweeply API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	store  secrets.Store
	events *AuthEvents
}

// New creates a sweeply API client. The secret store holds the token
// pair; events receives refresh notifications for the session layer.
func New(baseURL string, store secrets.Store, events *AuthEvents, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "api-client")

	auth := &authTransport{
		next:  http.DefaultTransport,
		store: store,
	}
	refresh := &refreshTransport{
		next:    auth,
		baseURL: baseURL,
		store:   store,
		events:  events,
		logger:  logger,
		exempt:  defaultExemptPaths(),
	}

	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Transport: refresh},
		Logger:     logger,
		store:      store,
		events:     events,
	}
}

// Events returns the auth event hub the transport notifies.
func (c *Client) Events() *AuthEvents {
	return c.events
}

// Store returns the secret store backing the client.
func (c *Client) Store() secrets.Store {
	return c.store
}

// apiResponse is the parsed envelope.
type apiResponse struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// do performs an HTTP request and returns the parsed envelope.
func (c *Client) do(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	u := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("HTTP request", "method", method, "url", u)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode)

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return &apiResp, apiResp.Error
	}
	return &apiResp, nil
}

// decode unmarshals the envelope's data field into T.
func decode[T any](resp *apiResponse) (T, error) {
	var out T
	if resp.Data == nil {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("unmarshal data: %w", err)
	}
	return out, nil
}

// --- Auth ---

// Login exchanges credentials for a token pair. The caller (session
// controller) is responsible for persisting it.
func (c *Client) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return model.TokenPair{}, err
	}
	return decode[model.TokenPair](resp)
}

// Activate redeems an activation code, setting the account password and
// returning a first token pair.
func (c *Client) Activate(ctx context.Context, code, password string) (model.TokenPair, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/activate", map[string]string{
		"code":     code,
		"password": password,
	})
	if err != nil {
		return model.TokenPair{}, err
	}
	return decode[model.TokenPair](resp)
}

// CurrentUser fetches the authenticated account. The session layer uses
// it as the token-validity probe: the server is the sole authority on
// whether a token is still good.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.User](resp)
}

// --- Assignments ---

// ListAssignments lists daily assignments, filtered by opts.
func (c *Client) ListAssignments(ctx context.Context, opts model.ListOptions) ([]*model.Assignment, error) {
	q := url.Values{}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	if opts.UserID != "" {
		q.Set("user_id", opts.UserID)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	path := "/daily_assignments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]*model.Assignment](resp)
}

// GetAssignment fetches one assignment by id.
func (c *Client) GetAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	resp, err := c.do(ctx, http.MethodGet, "/daily_assignments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Assignment](resp)
}

// UpdateAssignment patches an assignment's status and recorded times,
// returning the server's updated snapshot.
func (c *Client) UpdateAssignment(ctx context.Context, id string, upd model.AssignmentUpdate) (*model.Assignment, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/daily_assignments/"+id, upd)
	if err != nil {
		return nil, err
	}
	return decode[*model.Assignment](resp)
}

// CreateAssignment schedules a task instance (admin only).
func (c *Client) CreateAssignment(ctx context.Context, a *model.Assignment) (*model.Assignment, error) {
	resp, err := c.do(ctx, http.MethodPost, "/daily_assignments", a)
	if err != nil {
		return nil, err
	}
	return decode[*model.Assignment](resp)
}

// --- Reports ---

// CreateReport records the outcome of an assignment.
func (c *Client) CreateReport(ctx context.Context, report *model.Report) (*model.Report, error) {
	resp, err := c.do(ctx, http.MethodPost, "/reports", report)
	if err != nil {
		return nil, err
	}
	return decode[*model.Report](resp)
}

// ListReports lists reports, optionally filtered by assignment.
func (c *Client) ListReports(ctx context.Context, assignmentID string) ([]*model.Report, error) {
	path := "/reports"
	if assignmentID != "" {
		path += "?daily_assignment_id=" + url.QueryEscape(assignmentID)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]*model.Report](resp)
}

// --- Admin CRUD ---

func (c *Client) ListUsers(ctx context.Context) ([]*model.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]*model.User](resp)
}

// CreatedUser is the provisioning result: the account plus its one-time
// activation code. The code is never retrievable again.
type CreatedUser struct {
	User           *model.User `json:"user"`
	ActivationCode string      `json:"activation_code"`
}

func (c *Client) CreateUser(ctx context.Context, u *model.User) (*CreatedUser, error) {
	resp, err := c.do(ctx, http.MethodPost, "/users", u)
	if err != nil {
		return nil, err
	}
	return decode[*CreatedUser](resp)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/users/"+id, nil)
	return err
}

func (c *Client) ListLocations(ctx context.Context) ([]*model.Location, error) {
	resp, err := c.do(ctx, http.MethodGet, "/locations", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]*model.Location](resp)
}

func (c *Client) CreateLocation(ctx context.Context, loc *model.Location) (*model.Location, error) {
	resp, err := c.do(ctx, http.MethodPost, "/locations", loc)
	if err != nil {
		return nil, err
	}
	return decode[*model.Location](resp)
}

func (c *Client) ListRooms(ctx context.Context, locationID string) ([]*model.Room, error) {
	path := "/rooms"
	if locationID != "" {
		path += "?location_id=" + url.QueryEscape(locationID)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]*model.Room](resp)
}

func (c *Client) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	resp, err := c.do(ctx, http.MethodPost, "/rooms", room)
	if err != nil {
		return nil, err
	}
	return decode[*model.Room](resp)
}

func (c *Client) ListTasks(ctx context.Context) ([]*model.Task, error) {
	resp, err := c.do(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]*model.Task](resp)
}

func (c *Client) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	resp, err := c.do(ctx, http.MethodPost, "/tasks", task)
	if err != nil {
		return nil, err
	}
	return decode[*model.Task](resp)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+id, nil)
	return err
}
