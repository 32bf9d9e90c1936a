package policypulse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the PolicyPulse server (e.g. "http://localhost:8080").
	BaseURL string

	// ClientID identifies this collaborator for authentication.
	ClientID string

	// APIKey is the secret used to obtain a JWT token.
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the PolicyPulse legislative tracking API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL  string
	clientID string
	client   *http.Client
	tokenMgr *tokenManager
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL, ClientID, or APIKey is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("policypulse: BaseURL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("policypulse: ClientID is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("policypulse: APIKey is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:  baseURL,
		clientID: cfg.ClientID,
		client:   httpClient,
		tokenMgr: newTokenManager(baseURL, cfg.ClientID, cfg.APIKey, httpClient),
	}, nil
}

// Ingest submits a batch of normalized bills for upsert under one sync run.
func (c *Client) Ingest(ctx context.Context, syncType string, bills []BillRecord) (*IngestResponse, error) {
	body := map[string]any{"bills": bills}
	if syncType != "" {
		body["sync_type"] = syncType
	}
	var resp IngestResponse
	if err := c.post(ctx, "/v1/ingest", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Legislation
// ---------------------------------------------------------------------------

// Page wraps a list result with the server's pagination fields.
type Page[T any] struct {
	Items   []T
	Total   int
	HasMore bool
	Limit   int
	Offset  int
}

// ListOptions are pagination parameters for list endpoints.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListLegislation retrieves bills ordered by most recent update.
func (c *Client) ListLegislation(ctx context.Context, opts *ListOptions) (*Page[Legislation], error) {
	path := "/v1/legislation" + listQuery(opts)
	return getPage[Legislation](ctx, c, path)
}

// GetLegislation retrieves a bill with its latest analysis, latest text,
// sponsors, amendments, priority, and impact ratings.
func (c *Client) GetLegislation(ctx context.Context, id int64) (*LegislationDetail, error) {
	var resp LegislationDetail
	if err := c.get(ctx, "/v1/legislation/"+formatID(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search performs a ranked full-text search over bill titles and descriptions.
func (c *Client) Search(ctx context.Context, query string, opts *ListOptions) (*Page[SearchResult], error) {
	params := url.Values{}
	params.Set("q", query)
	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	return getPage[SearchResult](ctx, c, "/v1/legislation/search?"+params.Encode())
}

// ListTexts retrieves every stored text version of a bill, newest first.
func (c *Client) ListTexts(ctx context.Context, legislationID int64) ([]LegislationText, error) {
	var resp []LegislationText
	if err := c.get(ctx, "/v1/legislation/"+formatID(legislationID)+"/texts", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteLegislation removes a bill and everything attached to it. Requires
// admin role. Returns per-table deletion counts.
func (c *Client) DeleteLegislation(ctx context.Context, id int64) (*DeleteCounts, error) {
	var resp DeleteCounts
	if err := c.doDelete(ctx, "/v1/legislation/"+formatID(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

// CreateAnalysis appends a new immutable analysis version for a bill.
func (c *Client) CreateAnalysis(ctx context.Context, legislationID int64, payload AnalysisPayload) (*CreateAnalysisResponse, error) {
	var resp CreateAnalysisResponse
	if err := c.post(ctx, "/v1/legislation/"+formatID(legislationID)+"/analysis", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAnalyses retrieves all analysis versions for a bill, newest first.
func (c *Client) ListAnalyses(ctx context.Context, legislationID int64) ([]Analysis, error) {
	var resp []Analysis
	if err := c.get(ctx, "/v1/legislation/"+formatID(legislationID)+"/analysis", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// LatestAnalysis retrieves the highest-numbered analysis version for a bill.
func (c *Client) LatestAnalysis(ctx context.Context, legislationID int64) (*Analysis, error) {
	var resp Analysis
	if err := c.get(ctx, "/v1/legislation/"+formatID(legislationID)+"/analysis/latest", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateImpactRating records a category-specific impact assessment.
func (c *Client) CreateImpactRating(ctx context.Context, legislationID int64, rating ImpactRating) (*ImpactRating, error) {
	var resp ImpactRating
	if err := c.post(ctx, "/v1/legislation/"+formatID(legislationID)+"/ratings", rating, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Priority and notifications
// ---------------------------------------------------------------------------

// GetPriority retrieves a bill's priority scores and review state.
func (c *Client) GetPriority(ctx context.Context, legislationID int64) (*Priority, error) {
	var resp Priority
	if err := c.get(ctx, "/v1/legislation/"+formatID(legislationID)+"/priority", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetManualReview records a human priority decision, pinning the bill
// against automatic rescoring.
func (c *Client) SetManualReview(ctx context.Context, legislationID int64, review ManualReview) (*Priority, error) {
	var resp Priority
	if err := c.put(ctx, "/v1/legislation/"+formatID(legislationID)+"/priority/review", review, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PendingNotifications lists bills flagged for notification that have not
// been notified yet.
func (c *Client) PendingNotifications(ctx context.Context, limit int) ([]Priority, error) {
	path := "/v1/notifications/pending"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp []Priority
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// MarkNotified latches a bill's one-shot notification flag after a
// successful send.
func (c *Client) MarkNotified(ctx context.Context, legislationID int64) (*Priority, error) {
	var resp Priority
	if err := c.post(ctx, "/v1/legislation/"+formatID(legislationID)+"/notified", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkNotifiedForUser latches the flag and logs the delivery against the
// user's alert history in one call.
func (c *Client) MarkNotifiedForUser(ctx context.Context, legislationID int64, delivery AlertDelivery) (*Priority, error) {
	var resp Priority
	if err := c.post(ctx, "/v1/legislation/"+formatID(legislationID)+"/notified", delivery, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Sync tracking
// ---------------------------------------------------------------------------

// SyncHistory retrieves recent ingestion runs, newest first.
func (c *Client) SyncHistory(ctx context.Context, limit int) ([]SyncRun, error) {
	path := "/v1/sync/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp []SyncRun
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SyncErrors retrieves per-bill errors recorded against a sync run.
func (c *Client) SyncErrors(ctx context.Context, syncID int64) ([]SyncError, error) {
	var resp []SyncError
	if err := c.get(ctx, "/v1/sync/"+formatID(syncID)+"/errors", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// GetOrCreateUser finds or registers a user by email.
func (c *Client) GetOrCreateUser(ctx context.Context, email string) (*User, error) {
	body := map[string]any{"email": email}
	var resp User
	if err := c.post(ctx, "/v1/users", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SavePreferences replaces a user's display and interest settings.
func (c *Client) SavePreferences(ctx context.Context, userID int64, prefs PreferencesInput) (*UserPreferences, error) {
	var resp UserPreferences
	if err := c.put(ctx, "/v1/users/"+formatID(userID)+"/preferences", prefs, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPreferences retrieves a user's display and interest settings.
func (c *Client) GetPreferences(ctx context.Context, userID int64) (*UserPreferences, error) {
	var resp UserPreferences
	if err := c.get(ctx, "/v1/users/"+formatID(userID)+"/preferences", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveAlertPreferences replaces a user's alert thresholds and channels.
func (c *Client) SaveAlertPreferences(ctx context.Context, userID int64, prefs AlertPreferences) (*AlertPreferences, error) {
	var resp AlertPreferences
	if err := c.put(ctx, "/v1/users/"+formatID(userID)+"/alert-preferences", prefs, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAlertPreferences retrieves a user's alert thresholds and channels.
func (c *Client) GetAlertPreferences(ctx context.Context, userID int64) (*AlertPreferences, error) {
	var resp AlertPreferences
	if err := c.get(ctx, "/v1/users/"+formatID(userID)+"/alert-preferences", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddSearchHistory records a search a user performed.
func (c *Client) AddSearchHistory(ctx context.Context, userID int64, query string, filters, results map[string]any) (*SearchRecord, error) {
	body := map[string]any{"query": query}
	if filters != nil {
		body["filters"] = filters
	}
	if results != nil {
		body["results"] = results
	}
	var resp SearchRecord
	if err := c.post(ctx, "/v1/users/"+formatID(userID)+"/search-history", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSearchHistory retrieves a user's recent searches, newest first.
func (c *Client) GetSearchHistory(ctx context.Context, userID int64, limit int) ([]SearchRecord, error) {
	path := "/v1/users/" + formatID(userID) + "/search-history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp []SearchRecord
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetAlertHistory retrieves a user's alert deliveries, newest first.
func (c *Client) GetAlertHistory(ctx context.Context, userID int64, limit int) ([]AlertRecord, error) {
	path := "/v1/users/" + formatID(userID) + "/alert-history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp []AlertRecord
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Admin and health
// ---------------------------------------------------------------------------

// CreateAPIKey provisions a collaborator credential. Requires admin role.
// Role defaults to "collaborator" when empty.
func (c *Client) CreateAPIKey(ctx context.Context, clientID, apiKey, role string) (*APIKey, error) {
	body := map[string]any{"client_id": clientID, "api_key": apiKey}
	if role != "" {
		body["role"] = role
	}
	var resp APIKey
	if err := c.post(ctx, "/v1/admin/api-keys", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the server's health status. This endpoint does not require
// authentication and will work even if the client has invalid credentials.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.getNoAuth(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiListEnvelope is the server's paginated list wrapper.
type apiListEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func listQuery(opts *ListOptions) string {
	if opts == nil {
		return ""
	}
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func getPage[T any](ctx context.Context, c *Client, path string) (*Page[T], error) {
	body, err := c.getRaw(ctx, path)
	if err != nil {
		return nil, err
	}

	var envelope apiListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("policypulse: decode list envelope: %w", err)
	}

	page := &Page[T]{
		Total:   envelope.Total,
		HasMore: envelope.HasMore,
		Limit:   envelope.Limit,
		Offset:  envelope.Offset,
	}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &page.Items); err != nil {
			return nil, fmt.Errorf("policypulse: decode list items: %w", err)
		}
	}
	return page, nil
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("policypulse: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("policypulse: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(ctx, req, dest)
}

func (c *Client) put(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("policypulse: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("policypulse: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(ctx, req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("policypulse: create request: %w", err)
	}

	return c.doRequest(ctx, req, dest)
}

// getRaw performs an authenticated GET and returns the unparsed body.
func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("policypulse: create request: %w", err)
	}

	token, err := c.tokenMgr.getToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("policypulse: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("policypulse: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, bodyBytes)
	}
	return bodyBytes, nil
}

func (c *Client) doDelete(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("policypulse: create request: %w", err)
	}

	return c.doRequest(ctx, req, dest)
}

func (c *Client) getNoAuth(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("policypulse: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("policypulse: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func (c *Client) doRequest(ctx context.Context, req *http.Request, dest any) error {
	token, err := c.tokenMgr.getToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("policypulse: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("policypulse: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	// 204 No Content carries nothing to decode.
	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("policypulse: decode response envelope: %w", err)
	}

	if envelope.Data == nil {
		// Fallback: some endpoints may not wrap in "data".
		return json.Unmarshal(bodyBytes, dest)
	}

	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
