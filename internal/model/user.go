package model

import (
	"fmt"
	"regexp"
	"time"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail rejects addresses that don't look like email.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("model: invalid email format: %s", email)
	}
	return nil
}

// User is an application user. Consumers of the legislative data, never
// producers.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPreferences holds display and interest settings. At most one row per
// user, enforced by a unique constraint.
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

// Validate checks the preference ranges.
func (p UserPreferences) Validate() error {
	if p.ItemsPerPage <= 0 {
		return fmt.Errorf("model: user preferences: items_per_page must be positive")
	}
	return nil
}

// AlertPreferences holds a user's alert thresholds and channels. At most one
// row per user.
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

// Validate checks threshold ranges and the notification address.
func (a AlertPreferences) Validate() error {
	if a.HealthThreshold < 0 || a.HealthThreshold > 100 {
		return fmt.Errorf("model: alert preferences: health_threshold must be in [0,100]")
	}
	if a.LocalGovtThreshold < 0 || a.LocalGovtThreshold > 100 {
		return fmt.Errorf("model: alert preferences: local_govt_threshold must be in [0,100]")
	}
	if err := ValidateEmail(a.Email); err != nil {
		return fmt.Errorf("model: alert preferences: %w", err)
	}
	return nil
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

// AlertType categorizes a dispatched alert.
type AlertType string

const (
	AlertTypeHighPriority     AlertType = "high_priority"
	AlertTypeNewBill          AlertType = "new_bill"
	AlertTypeStatusChange     AlertType = "status_change"
	AlertTypeAnalysisComplete AlertType = "analysis_complete"
)

// Valid reports whether the alert type is a known value.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeHighPriority, AlertTypeNewBill, AlertTypeStatusChange, AlertTypeAnalysisComplete:
		return true
	}
	return false
}

// AlertRecord is one alert delivery attempt logged against a user and bill.
type AlertRecord struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	LegislationID  int64     `json:"legislation_id"`
	AlertType      AlertType `json:"alert_type"`
	AlertContent   *string   `json:"alert_content,omitempty"`
	DeliveryStatus *string   `json:"delivery_status,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
