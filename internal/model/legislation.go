// Package model defines the core domain types for PolicyPulse.
//
// All types correspond directly to database tables. Enum values mirror the
// native Postgres enum types in migrations/001_initial.sql, so a value that
// fails Valid() here would also be rejected at the storage layer.
package model

import (
	"fmt"
	"time"
)

// DataSource identifies the upstream legislative data provider.
type DataSource string

const (
	DataSourceLegiscan    DataSource = "legiscan"
	DataSourceCongressGov DataSource = "congress_gov"
	DataSourceOther       DataSource = "other"
)

// Valid reports whether the data source is a known value.
func (d DataSource) Valid() bool {
	switch d {
	case DataSourceLegiscan, DataSourceCongressGov, DataSourceOther:
		return true
	}
	return false
}

// GovtType is the jurisdiction level of a bill.
type GovtType string

const (
	GovtTypeFederal GovtType = "federal"
	GovtTypeState   GovtType = "state"
	GovtTypeCounty  GovtType = "county"
	GovtTypeCity    GovtType = "city"
)

// Valid reports whether the government type is a known value.
func (g GovtType) Valid() bool {
	switch g {
	case GovtTypeFederal, GovtTypeState, GovtTypeCounty, GovtTypeCity:
		return true
	}
	return false
}

// BillStatus is a bill's lifecycle state.
type BillStatus string

const (
	BillStatusNew        BillStatus = "new"
	BillStatusIntroduced BillStatus = "introduced"
	BillStatusUpdated    BillStatus = "updated"
	BillStatusPassed     BillStatus = "passed"
	BillStatusDefeated   BillStatus = "defeated"
	BillStatusVetoed     BillStatus = "vetoed"
	BillStatusEnacted    BillStatus = "enacted"
	BillStatusPending    BillStatus = "pending"
)

// Valid reports whether the status is a known value.
func (s BillStatus) Valid() bool {
	switch s {
	case BillStatusNew, BillStatusIntroduced, BillStatusUpdated, BillStatusPassed,
		BillStatusDefeated, BillStatusVetoed, BillStatusEnacted, BillStatusPending:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s BillStatus) Terminal() bool {
	switch s {
	case BillStatusDefeated, BillStatusVetoed, BillStatusEnacted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a bill may move from s to next.
// Any transition out of a terminal state is forbidden; everything else is
// allowed, with "updated" acting as the absorbing state for content changes
// that carry no more specific status signal.
func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	if !next.Valid() {
		return false
	}
	if s.Terminal() {
		return s == next
	}
	return true
}

// Legislation is the canonical record of one bill.
type Legislation struct {
	ID                 int64          `json:"id"`
	ExternalID         string         `json:"external_id"`
	DataSource         DataSource     `json:"data_source"`
	GovtType           GovtType       `json:"govt_type"`
	GovtSource         string         `json:"govt_source"`
	BillNumber         string         `json:"bill_number"`
	BillType           *string        `json:"bill_type,omitempty"`
	Title              string         `json:"title"`
	Description        *string        `json:"description,omitempty"`
	BillStatus         BillStatus     `json:"bill_status"`
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

// BillRecord is the normalized bill shape the ingestion collaborator hands
// to the upsert contract. The change hash is computed over the
// externally-sourced mutable fields only; identity fields never feed it.
type BillRecord struct {
	ExternalID         string           `json:"external_id"`
	DataSource         DataSource       `json:"data_source"`
	GovtType           GovtType         `json:"govt_type"`
	GovtSource         string           `json:"govt_source"`
	BillNumber         string           `json:"bill_number"`
	BillType           *string          `json:"bill_type,omitempty"`
	Title              string           `json:"title"`
	Description        *string          `json:"description,omitempty"`
	Status             BillStatus       `json:"status,omitempty"`
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

// Validate checks the identity and enum fields required by the upsert contract.
func (r BillRecord) Validate() error {
	if r.ExternalID == "" {
		return fmt.Errorf("model: bill record: external_id is required")
	}
	if !r.DataSource.Valid() {
		return fmt.Errorf("model: bill record: invalid data_source %q", r.DataSource)
	}
	if !r.GovtType.Valid() {
		return fmt.Errorf("model: bill record: invalid govt_type %q", r.GovtType)
	}
	if r.GovtSource == "" || r.BillNumber == "" {
		return fmt.Errorf("model: bill record: govt_source and bill_number are required")
	}
	if r.Title == "" {
		return fmt.Errorf("model: bill record: title is required")
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("model: bill record: invalid status %q", r.Status)
	}
	return nil
}

// SponsorInput is a sponsor as supplied by the ingestion collaborator.
type SponsorInput struct {
	ExternalID *string `json:"external_id,omitempty"`
	Name       string  `json:"name"`
	Title      *string `json:"title,omitempty"`
	State      *string `json:"state,omitempty"`
	Party      *string `json:"party,omitempty"`
	Type       *string `json:"type,omitempty"`
}

// UpsertResult is what the upsert contract returns to the ingestion
// collaborator: the internal id and whether content actually changed.
type UpsertResult struct {
	LegislationID int64      `json:"legislation_id"`
	Created       bool       `json:"created"`
	Changed       bool       `json:"changed"`
	Status        BillStatus `json:"status"`
}
