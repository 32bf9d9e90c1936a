package model

import (
	"fmt"
	"time"
)

// ImpactCategory classifies which sector an assessment concerns.
type ImpactCategory string

const (
	ImpactCategoryPublicHealth   ImpactCategory = "public_health"
	ImpactCategoryLocalGov       ImpactCategory = "local_gov"
	ImpactCategoryEconomic       ImpactCategory = "economic"
	ImpactCategoryEnvironmental  ImpactCategory = "environmental"
	ImpactCategoryEducation      ImpactCategory = "education"
	ImpactCategoryInfrastructure ImpactCategory = "infrastructure"
	ImpactCategoryHealthcare     ImpactCategory = "healthcare"
	ImpactCategorySocialServices ImpactCategory = "social_services"
	ImpactCategoryJustice        ImpactCategory = "justice"
)

// Valid reports whether the category is a known value.
func (c ImpactCategory) Valid() bool {
	switch c {
	case ImpactCategoryPublicHealth, ImpactCategoryLocalGov, ImpactCategoryEconomic,
		ImpactCategoryEnvironmental, ImpactCategoryEducation, ImpactCategoryInfrastructure,
		ImpactCategoryHealthcare, ImpactCategorySocialServices, ImpactCategoryJustice:
		return true
	}
	return false
}

// ImpactLevel grades the severity of an assessed impact.
type ImpactLevel string

const (
	ImpactLevelLow      ImpactLevel = "low"
	ImpactLevelModerate ImpactLevel = "moderate"
	ImpactLevelHigh     ImpactLevel = "high"
	ImpactLevelCritical ImpactLevel = "critical"
)

// Valid reports whether the level is a known value.
func (l ImpactLevel) Valid() bool {
	switch l {
	case ImpactLevelLow, ImpactLevelModerate, ImpactLevelHigh, ImpactLevelCritical:
		return true
	}
	return false
}

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

// StakeholderImpacts lists per-group effects keyed by stakeholder name.
type StakeholderImpacts map[string][]string

// AnalysisPayload is the input to analysis-version creation. It must carry
// at least a summary or one structured impact section.
type AnalysisPayload struct {
	VersionTag          *string              `json:"version_tag,omitempty"`
	ImpactCategory      *ImpactCategory      `json:"impact_category,omitempty"`
	Impact              *ImpactLevel         `json:"impact,omitempty"`
	Summary             string               `json:"summary,omitempty"`
	KeyPoints           []string             `json:"key_points,omitempty"`
	PublicHealthImpacts *PublicHealthImpacts `json:"public_health_impacts,omitempty"`
	LocalGovImpacts     *LocalGovImpacts     `json:"local_gov_impacts,omitempty"`
	EconomicImpacts     *EconomicImpacts     `json:"economic_impacts,omitempty"`
	EnvironmentalImpact []string             `json:"environmental_impacts,omitempty"`
	EducationImpacts    []string             `json:"education_impacts,omitempty"`
	InfrastructureImpct []string             `json:"infrastructure_impacts,omitempty"`
	StakeholderImpacts  StakeholderImpacts   `json:"stakeholder_impacts,omitempty"`
	RecommendedActions  []string             `json:"recommended_actions,omitempty"`
	ImmediateActions    []string             `json:"immediate_actions,omitempty"`
	ResourceNeeds       []string             `json:"resource_needs,omitempty"`
	RawAnalysis         map[string]any       `json:"raw_analysis,omitempty"`
	ModelVersion        *string              `json:"model_version,omitempty"`
	ConfidenceScore     *float64             `json:"confidence_score,omitempty"`
	ProcessingTimeMS    *int                 `json:"processing_time_ms,omitempty"`
}

// Validate enforces the createAnalysis input contract.
func (p AnalysisPayload) Validate() error {
	if p.Summary == "" && p.PublicHealthImpacts == nil && p.LocalGovImpacts == nil &&
		p.EconomicImpacts == nil && len(p.EnvironmentalImpact) == 0 &&
		len(p.EducationImpacts) == 0 && len(p.InfrastructureImpct) == 0 &&
		len(p.StakeholderImpacts) == 0 {
		return fmt.Errorf("model: analysis payload: summary or structured impacts required")
	}
	if p.ImpactCategory != nil && !p.ImpactCategory.Valid() {
		return fmt.Errorf("model: analysis payload: invalid impact_category %q", *p.ImpactCategory)
	}
	if p.Impact != nil && !p.Impact.Valid() {
		return fmt.Errorf("model: analysis payload: invalid impact %q", *p.Impact)
	}
	if p.ConfidenceScore != nil && (*p.ConfidenceScore < 0 || *p.ConfidenceScore > 1) {
		return fmt.Errorf("model: analysis payload: confidence_score must be in [0,1]")
	}
	return nil
}

// Analysis is one immutable, numbered AI assessment of a bill. Versions form
// a backward chain via PreviousVersionID; the latest version is the row with
// the highest AnalysisVersion, never found by walking the chain.
type Analysis struct {
	ID                  int64                `json:"id"`
	LegislationID       int64                `json:"legislation_id"`
	AnalysisVersion     int                  `json:"analysis_version"`
	VersionTag          *string              `json:"version_tag,omitempty"`
	PreviousVersionID   *int64               `json:"previous_version_id,omitempty"`
	ChangesFromPrevious map[string]any       `json:"changes_from_previous,omitempty"`
	AnalysisDate        time.Time            `json:"analysis_date"`
	ImpactCategory      *ImpactCategory      `json:"impact_category,omitempty"`
	Impact              *ImpactLevel         `json:"impact,omitempty"`
	Summary             *string              `json:"summary,omitempty"`
	KeyPoints           []string             `json:"key_points,omitempty"`
	PublicHealthImpacts *PublicHealthImpacts `json:"public_health_impacts,omitempty"`
	LocalGovImpacts     *LocalGovImpacts     `json:"local_gov_impacts,omitempty"`
	EconomicImpacts     *EconomicImpacts     `json:"economic_impacts,omitempty"`
	EnvironmentalImpact []string             `json:"environmental_impacts,omitempty"`
	EducationImpacts    []string             `json:"education_impacts,omitempty"`
	InfrastructureImpct []string             `json:"infrastructure_impacts,omitempty"`
	StakeholderImpacts  StakeholderImpacts   `json:"stakeholder_impacts,omitempty"`
	RecommendedActions  []string             `json:"recommended_actions,omitempty"`
	ImmediateActions    []string             `json:"immediate_actions,omitempty"`
	ResourceNeeds       []string             `json:"resource_needs,omitempty"`
	RawAnalysis         map[string]any       `json:"raw_analysis,omitempty"`
	ModelVersion        *string              `json:"model_version,omitempty"`
	ConfidenceScore     *float64             `json:"confidence_score,omitempty"`
	ProcessingTimeMS    *int                 `json:"processing_time_ms,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

// ImpactRating is one category-specific assessment of a bill, independent of
// the analysis version chain. Either AI-generated or human-reviewed.
type ImpactRating struct {
	ID                int64          `json:"id"`
	LegislationID     int64          `json:"legislation_id"`
	ImpactCategory    ImpactCategory `json:"impact_category"`
	ImpactLevel       ImpactLevel    `json:"impact_level"`
	ImpactDescription *string        `json:"impact_description,omitempty"`
	AffectedEntities  []string       `json:"affected_entities,omitempty"`
	ConfidenceScore   *float64       `json:"confidence_score,omitempty"`
	IsAIGenerated     bool           `json:"is_ai_generated"`
	ReviewedBy        *string        `json:"reviewed_by,omitempty"`
	ReviewDate        *time.Time     `json:"review_date,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Validate checks the rating's enum and range fields.
func (r ImpactRating) Validate() error {
	if !r.ImpactCategory.Valid() {
		return fmt.Errorf("model: impact rating: invalid impact_category %q", r.ImpactCategory)
	}
	if !r.ImpactLevel.Valid() {
		return fmt.Errorf("model: impact rating: invalid impact_level %q", r.ImpactLevel)
	}
	if r.ConfidenceScore != nil && (*r.ConfidenceScore < 0 || *r.ConfidenceScore > 1) {
		return fmt.Errorf("model: impact rating: confidence_score must be in [0,1]")
	}
	return nil
}

// ImplementationRequirement captures a concrete obligation a bill imposes on
// an implementing entity.
type ImplementationRequirement struct {
	ID                     int64      `json:"id"`
	LegislationID          int64      `json:"legislation_id"`
	RequirementType        string     `json:"requirement_type"`
	Description            string     `json:"description"`
	EstimatedCost          *string    `json:"estimated_cost,omitempty"`
	FundingProvided        bool       `json:"funding_provided"`
	ImplementationDeadline *time.Time `json:"implementation_deadline,omitempty"`
	EntityResponsible      *string    `json:"entity_responsible,omitempty"`
}
