package policypulse

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Legislation
// ---------------------------------------------------------------------------

// Legislation is the canonical record of one bill.
type Legislation struct {
	ID                 int64          `json:"id"`
	ExternalID         string         `json:"external_id"`
	DataSource         string         `json:"data_source"`
	GovtType           string         `json:"govt_type"`
	GovtSource         string         `json:"govt_source"`
	BillNumber         string         `json:"bill_number"`
	BillType           *string        `json:"bill_type,omitempty"`
	Title              string         `json:"title"`
	Description        *string        `json:"description,omitempty"`
	BillStatus         string         `json:"bill_status"`
	URL                *string        `json:"url,omitempty"`
	StateLink          *string        `json:"state_link,omitempty"`
	BillIntroducedDate *time.Time     `json:"bill_introduced_date,omitempty"`
	BillLastActionDate *time.Time     `json:"bill_last_action_date,omitempty"`
	BillStatusDate     *time.Time     `json:"bill_status_date,omitempty"`
	LastAPICheck       time.Time      `json:"last_api_check"`
	ChangeHash         *string        `json:"change_hash,omitempty"`
	RawAPIResponse     map[string]any `json:"raw_api_response,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Sponsor is one sponsor of a bill.
type Sponsor struct {
	ID            int64   `json:"id"`
	LegislationID int64   `json:"legislation_id"`
	ExternalID    *string `json:"sponsor_external_id,omitempty"`
	Name          string  `json:"sponsor_name"`
	Title         *string `json:"sponsor_title,omitempty"`
	State         *string `json:"sponsor_state,omitempty"`
	Party         *string `json:"sponsor_party,omitempty"`
	Type          *string `json:"sponsor_type,omitempty"`
}

// Content is a text-or-binary payload. Exactly one representation is
// populated; IsBinary tells readers which.
type Content struct {
	Text        string         `json:"text,omitempty"`
	Binary      []byte         `json:"binary,omitempty"`
	IsBinary    bool           `json:"is_binary"`
	ContentType string         `json:"content_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TextContent builds a textual Content payload.
func TextContent(s string) Content {
	return Content{
		Text:        s,
		ContentType: "text/plain",
		Metadata:    map[string]any{"is_binary": false, "encoding": "utf-8", "size_bytes": len(s)},
	}
}

// TextInput is one text version attached to an ingested bill.
type TextInput struct {
	TextType *string    `json:"text_type,omitempty"`
	Content  Content    `json:"content"`
	TextDate *time.Time `json:"text_date,omitempty"`
}

// LegislationText is one stored, versioned text of a bill.
type LegislationText struct {
	ID            int64      `json:"id"`
	LegislationID int64      `json:"legislation_id"`
	VersionNum    int        `json:"version_num"`
	TextType      *string    `json:"text_type,omitempty"`
	Content       Content    `json:"content"`
	TextHash      *string    `json:"text_hash,omitempty"`
	TextDate      *time.Time `json:"text_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SponsorInput is a sponsor attached to an ingested bill.
type SponsorInput struct {
	ExternalID *string `json:"external_id,omitempty"`
	Name       string  `json:"name"`
	Title      *string `json:"title,omitempty"`
	State      *string `json:"state,omitempty"`
	Party      *string `json:"party,omitempty"`
	Type       *string `json:"type,omitempty"`
}

// AmendmentInput is one amendment attached to an ingested bill.
type AmendmentInput struct {
	AmendmentID   string         `json:"amendment_id"`
	Adopted       bool           `json:"adopted"`
	Status        string         `json:"status,omitempty"`
	AmendmentDate *time.Time     `json:"amendment_date,omitempty"`
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Content       *Content       `json:"content,omitempty"`
	AmendmentURL  *string        `json:"amendment_url,omitempty"`
	StateLink     *string        `json:"state_link,omitempty"`
	Chamber       *string        `json:"chamber,omitempty"`
	SponsorInfo   map[string]any `json:"sponsor_info,omitempty"`
}

// Amendment is a stored amendment.
type Amendment struct {
	ID            int64          `json:"id"`
	AmendmentID   string         `json:"amendment_id"`
	LegislationID int64          `json:"legislation_id"`
	Adopted       bool           `json:"adopted"`
	Status        string         `json:"status"`
	AmendmentDate *time.Time     `json:"amendment_date,omitempty"`
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	AmendmentHash *string        `json:"amendment_hash,omitempty"`
	Content       *Content       `json:"content,omitempty"`
	AmendmentURL  *string        `json:"amendment_url,omitempty"`
	StateLink     *string        `json:"state_link,omitempty"`
	Chamber       *string        `json:"chamber,omitempty"`
	SponsorInfo   map[string]any `json:"sponsor_info,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Ingestion
// ---------------------------------------------------------------------------

// BillRecord is one normalized bill submitted for ingestion.
type BillRecord struct {
	ExternalID         string           `json:"external_id"`
	DataSource         string           `json:"data_source"`
	GovtType           string           `json:"govt_type"`
	GovtSource         string           `json:"govt_source"`
	BillNumber         string           `json:"bill_number"`
	BillType           *string          `json:"bill_type,omitempty"`
	Title              string           `json:"title"`
	Description        *string          `json:"description,omitempty"`
	Status             string           `json:"status,omitempty"`
	URL                *string          `json:"url,omitempty"`
	StateLink          *string          `json:"state_link,omitempty"`
	BillIntroducedDate *time.Time       `json:"bill_introduced_date,omitempty"`
	BillLastActionDate *time.Time       `json:"bill_last_action_date,omitempty"`
	BillStatusDate     *time.Time       `json:"bill_status_date,omitempty"`
	RawAPIResponse     map[string]any   `json:"raw_api_response,omitempty"`
	Texts              []TextInput      `json:"texts,omitempty"`
	Sponsors           []SponsorInput   `json:"sponsors,omitempty"`
	Amendments         []AmendmentInput `json:"amendments,omitempty"`
}

// UpsertResult reports what the server did with one submitted bill.
type UpsertResult struct {
	LegislationID int64  `json:"legislation_id"`
	Created       bool   `json:"created"`
	Changed       bool   `json:"changed"`
	Status        string `json:"status"`
}

// SyncRun is one ingestion run's tracking record.
type SyncRun struct {
	ID                 int64          `json:"id"`
	RunID              uuid.UUID      `json:"run_id"`
	LastSync           time.Time      `json:"last_sync"`
	LastSuccessfulSync *time.Time     `json:"last_successful_sync,omitempty"`
	Status             string         `json:"status"`
	SyncType           *string        `json:"sync_type,omitempty"`
	NewBills           int            `json:"new_bills"`
	BillsUpdated       int            `json:"bills_updated"`
	Errors             map[string]any `json:"errors,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// SyncError is one failed bill within a run.
type SyncError struct {
	ID           int64     `json:"id"`
	SyncID       int64     `json:"sync_id"`
	ErrorType    *string   `json:"error_type,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	StackTrace   *string   `json:"stack_trace,omitempty"`
	ErrorTime    time.Time `json:"error_time"`
}

// IngestResponse summarizes an ingestion run.
type IngestResponse struct {
	Run     SyncRun        `json:"run"`
	Results []UpsertResult `json:"results"`
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

// PublicHealthImpacts is the structured public-health impact payload.
type PublicHealthImpacts struct {
	DirectEffects    []string `json:"direct_effects,omitempty"`
	IndirectEffects  []string `json:"indirect_effects,omitempty"`
	FundingImpact    []string `json:"funding_impact,omitempty"`
	VulnerableGroups []string `json:"vulnerable_populations,omitempty"`
}

// LocalGovImpacts is the structured local-government impact payload.
type LocalGovImpacts struct {
	Administrative []string `json:"administrative,omitempty"`
	Fiscal         []string `json:"fiscal,omitempty"`
	Implementation []string `json:"implementation,omitempty"`
}

// EconomicImpacts is the structured economic impact payload.
type EconomicImpacts struct {
	DirectCosts      []string `json:"direct_costs,omitempty"`
	EconomicEffects  []string `json:"economic_effects,omitempty"`
	BenefitsExpected []string `json:"benefits,omitempty"`
	RevenueImpact    []string `json:"revenue_impact,omitempty"`
}

// AnalysisPayload is the input to analysis-version creation. The server
// requires at least a summary or one structured impact section.
type AnalysisPayload struct {
	VersionTag          *string              `json:"version_tag,omitempty"`
	ImpactCategory      *string              `json:"impact_category,omitempty"`
	Impact              *string              `json:"impact,omitempty"`
	Summary             string               `json:"summary,omitempty"`
	KeyPoints           []string             `json:"key_points,omitempty"`
	PublicHealthImpacts *PublicHealthImpacts `json:"public_health_impacts,omitempty"`
	LocalGovImpacts     *LocalGovImpacts     `json:"local_gov_impacts,omitempty"`
	EconomicImpacts     *EconomicImpacts     `json:"economic_impacts,omitempty"`
	EnvironmentalImpact []string             `json:"environmental_impacts,omitempty"`
	EducationImpacts    []string             `json:"education_impacts,omitempty"`
	InfrastructureImpct []string             `json:"infrastructure_impacts,omitempty"`
	StakeholderImpacts  map[string][]string  `json:"stakeholder_impacts,omitempty"`
	RecommendedActions  []string             `json:"recommended_actions,omitempty"`
	ImmediateActions    []string             `json:"immediate_actions,omitempty"`
	ResourceNeeds       []string             `json:"resource_needs,omitempty"`
	RawAnalysis         map[string]any       `json:"raw_analysis,omitempty"`
	ModelVersion        *string              `json:"model_version,omitempty"`
	ConfidenceScore     *float64             `json:"confidence_score,omitempty"`
	ProcessingTimeMS    *int                 `json:"processing_time_ms,omitempty"`
}

// Analysis is one immutable, numbered assessment of a bill.
type Analysis struct {
	ID                  int64                `json:"id"`
	LegislationID       int64                `json:"legislation_id"`
	AnalysisVersion     int                  `json:"analysis_version"`
	VersionTag          *string              `json:"version_tag,omitempty"`
	PreviousVersionID   *int64               `json:"previous_version_id,omitempty"`
	ChangesFromPrevious map[string]any       `json:"changes_from_previous,omitempty"`
	AnalysisDate        time.Time            `json:"analysis_date"`
	ImpactCategory      *string              `json:"impact_category,omitempty"`
	Impact              *string              `json:"impact,omitempty"`
	Summary             *string              `json:"summary,omitempty"`
	KeyPoints           []string             `json:"key_points,omitempty"`
	PublicHealthImpacts *PublicHealthImpacts `json:"public_health_impacts,omitempty"`
	LocalGovImpacts     *LocalGovImpacts     `json:"local_gov_impacts,omitempty"`
	EconomicImpacts     *EconomicImpacts     `json:"economic_impacts,omitempty"`
	EnvironmentalImpact []string             `json:"environmental_impacts,omitempty"`
	EducationImpacts    []string             `json:"education_impacts,omitempty"`
	InfrastructureImpct []string             `json:"infrastructure_impacts,omitempty"`
	StakeholderImpacts  map[string][]string  `json:"stakeholder_impacts,omitempty"`
	RecommendedActions  []string             `json:"recommended_actions,omitempty"`
	ImmediateActions    []string             `json:"immediate_actions,omitempty"`
	ResourceNeeds       []string             `json:"resource_needs,omitempty"`
	RawAnalysis         map[string]any       `json:"raw_analysis,omitempty"`
	ModelVersion        *string              `json:"model_version,omitempty"`
	ConfidenceScore     *float64             `json:"confidence_score,omitempty"`
	ProcessingTimeMS    *int                 `json:"processing_time_ms,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

// CreateAnalysisResponse identifies the appended analysis version.
type CreateAnalysisResponse struct {
	ID              int64 `json:"id"`
	AnalysisVersion int   `json:"analysis_version"`
}

// ImpactRating is one category-specific assessment of a bill.
type ImpactRating struct {
	ID                int64      `json:"id"`
	LegislationID     int64      `json:"legislation_id"`
	ImpactCategory    string     `json:"impact_category"`
	ImpactLevel       string     `json:"impact_level"`
	ImpactDescription *string    `json:"impact_description,omitempty"`
	AffectedEntities  []string   `json:"affected_entities,omitempty"`
	ConfidenceScore   *float64   `json:"confidence_score,omitempty"`
	IsAIGenerated     bool       `json:"is_ai_generated"`
	ReviewedBy        *string    `json:"reviewed_by,omitempty"`
	ReviewDate        *time.Time `json:"review_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Priority
// ---------------------------------------------------------------------------

// Priority holds a bill's relevance scores and review state.
type Priority struct {
	ID                    int64          `json:"id"`
	LegislationID         int64          `json:"legislation_id"`
	PublicHealthRelevance int            `json:"public_health_relevance"`
	LocalGovtRelevance    int            `json:"local_govt_relevance"`
	OverallPriority       int            `json:"overall_priority"`
	AutoCategorized       bool           `json:"auto_categorized"`
	AutoCategories        map[string]any `json:"auto_categories,omitempty"`
	ManuallyReviewed      bool           `json:"manually_reviewed"`
	ManualPriority        int            `json:"manual_priority"`
	ReviewerNotes         *string        `json:"reviewer_notes,omitempty"`
	ReviewDate            *time.Time     `json:"review_date,omitempty"`
	ShouldNotify          bool           `json:"should_notify"`
	NotificationSent      bool           `json:"notification_sent"`
	NotificationDate      *time.Time     `json:"notification_date,omitempty"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// ManualReview is a human priority decision. Once applied, automatic
// rescoring no longer moves the bill's scores.
type ManualReview struct {
	ManualPriority int     `json:"manual_priority"`
	ReviewerNotes  *string `json:"reviewer_notes,omitempty"`
}

// ---------------------------------------------------------------------------
// Detail, search, and admin
// ---------------------------------------------------------------------------

// LegislationDetail is the bill plus its latest versions and derived scores.
type LegislationDetail struct {
	Legislation    Legislation      `json:"legislation"`
	LatestAnalysis *Analysis        `json:"latest_analysis,omitempty"`
	LatestText     *LegislationText `json:"latest_text,omitempty"`
	Sponsors       []Sponsor        `json:"sponsors,omitempty"`
	Amendments     []Amendment      `json:"amendments,omitempty"`
	Priority       *Priority        `json:"priority,omitempty"`
	ImpactRatings  []ImpactRating   `json:"impact_ratings,omitempty"`
}

// SearchResult is one ranked full-text search hit.
type SearchResult struct {
	Legislation
	Rank float32 `json:"rank"`
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

// APIKey identifies a provisioned collaborator credential. The plaintext key
// is never returned by the server.
type APIKey struct {
	ID       uuid.UUID `json:"id"`
	ClientID string    `json:"client_id"`
	Role     string    `json:"role"`
}

// HealthResponse is the server's health status.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	UptimeSec int    `json:"uptime_sec"`
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// User is an application user.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPreferences holds display and interest settings.
type UserPreferences struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Keywords       []string  `json:"keywords,omitempty"`
	HealthFocus    []string  `json:"health_focus,omitempty"`
	LocalGovtFocus []string  `json:"local_govt_focus,omitempty"`
	Regions        []string  `json:"regions,omitempty"`
	DefaultView    string    `json:"default_view"`
	ItemsPerPage   int       `json:"items_per_page"`
	SortBy         string    `json:"sort_by"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PreferencesInput carries the fields to save for a user's preferences.
// Nil fields keep server defaults.
type PreferencesInput struct {
	Keywords       []string `json:"keywords,omitempty"`
	HealthFocus    []string `json:"health_focus,omitempty"`
	LocalGovtFocus []string `json:"local_govt_focus,omitempty"`
	Regions        []string `json:"regions,omitempty"`
	DefaultView    *string  `json:"default_view,omitempty"`
	ItemsPerPage   *int     `json:"items_per_page,omitempty"`
	SortBy         *string  `json:"sort_by,omitempty"`
}

// AlertPreferences holds a user's alert thresholds and channels.
type AlertPreferences struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Email              string    `json:"email"`
	Active             bool      `json:"active"`
	AlertChannels      []string  `json:"alert_channels,omitempty"`
	CustomKeywords     []string  `json:"custom_keywords,omitempty"`
	IgnoreList         []string  `json:"ignore_list,omitempty"`
	AlertRules         []string  `json:"alert_rules,omitempty"`
	HealthThreshold    int       `json:"health_threshold"`
	LocalGovtThreshold int       `json:"local_govt_threshold"`
	NotifyOnNew        bool      `json:"notify_on_new"`
	NotifyOnUpdate     bool      `json:"notify_on_update"`
	NotifyOnAnalysis   bool      `json:"notify_on_analysis"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AlertDelivery describes an alert send to log against a user's history
// while latching the bill's notification flag.
type AlertDelivery struct {
	UserID         int64   `json:"user_id"`
	AlertType      string  `json:"alert_type,omitempty"`
	AlertContent   *string `json:"alert_content,omitempty"`
	DeliveryStatus *string `json:"delivery_status,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
}

// AlertRecord is one alert delivery logged against a user and bill.
type AlertRecord struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	LegislationID  int64     `json:"legislation_id"`
	AlertType      string    `json:"alert_type"`
	AlertContent   *string   `json:"alert_content,omitempty"`
	DeliveryStatus *string   `json:"delivery_status,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SearchRecord is one entry in a user's search history.
type SearchRecord struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Query     *string        `json:"query,omitempty"`
	Filters   map[string]any `json:"filters,omitempty"`
	Results   map[string]any `json:"results,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
