package model

import "time"

// APIResponse is the standard success envelope.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// AuthTokenRequest is the request body for POST /auth/token.
type AuthTokenRequest struct {
	ClientID string `json:"client_id"`
	APIKey   string `json:"api_key"`
}

// AuthTokenResponse carries an issued collaborator token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IngestRequest is the request body for POST /v1/ingest.
type IngestRequest struct {
	SyncType string       `json:"sync_type,omitempty"`
	Bills    []BillRecord `json:"bills"`
}

// IngestResponse summarizes an ingestion run.
type IngestResponse struct {
	Run     SyncRun        `json:"run"`
	Results []UpsertResult `json:"results"`
}

// CreateAnalysisResponse is returned to the analysis-producing collaborator.
type CreateAnalysisResponse struct {
	ID              int64 `json:"id"`
	AnalysisVersion int   `json:"analysis_version"`
}

// LegislationDetail is the detail-endpoint shape the dashboard consumes:
// the bill plus its latest versions and derived scores.
type LegislationDetail struct {
	Legislation    Legislation      `json:"legislation"`
	LatestAnalysis *Analysis        `json:"latest_analysis,omitempty"`
	LatestText     *LegislationText `json:"latest_text,omitempty"`
	Sponsors       []Sponsor        `json:"sponsors,omitempty"`
	Amendments     []Amendment      `json:"amendments,omitempty"`
	Priority       *Priority        `json:"priority,omitempty"`
	ImpactRatings  []ImpactRating   `json:"impact_ratings,omitempty"`
}

// DeleteCounts itemizes what a full bill deletion removed, per table.
type DeleteCounts struct {
	Legislation   int64 `json:"legislation"`
	Analyses      int64 `json:"analyses"`
	Texts         int64 `json:"texts"`
	Sponsors      int64 `json:"sponsors"`
	Amendments    int64 `json:"amendments"`
	Priorities    int64 `json:"priorities"`
	ImpactRatings int64 `json:"impact_ratings"`
	Requirements  int64 `json:"implementation_requirements"`
	AlertHistory  int64 `json:"alert_history"`
}

// SearchResult is one ranked full-text search hit.
type SearchResult struct {
	Legislation
	Rank float32 `json:"rank"`
}

// SavePreferencesRequest is the request body for PUT /v1/users/{email}/preferences.
type SavePreferencesRequest struct {
	Keywords       []string `json:"keywords,omitempty"`
	HealthFocus    []string `json:"health_focus,omitempty"`
	LocalGovtFocus []string `json:"local_govt_focus,omitempty"`
	Regions        []string `json:"regions,omitempty"`
	DefaultView    *string  `json:"default_view,omitempty"`
	ItemsPerPage   *int     `json:"items_per_page,omitempty"`
	SortBy         *string  `json:"sort_by,omitempty"`
}

// AddSearchHistoryRequest is the request body for POST /v1/users/{id}/search-history.
type AddSearchHistoryRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters,omitempty"`
	Results map[string]any `json:"results,omitempty"`
}
