package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/diff"
	"github.com/policypulse/policypulse/internal/model"
)

const analysisColumns = `id, legislation_id, analysis_version, version_tag,
	previous_version_id, changes_from_previous, analysis_date,
	impact_category, impact, summary, key_points,
	public_health_impacts, local_gov_impacts, economic_impacts,
	environmental_impacts, education_impacts, infrastructure_impacts,
	stakeholder_impacts, recommended_actions, immediate_actions, resource_needs,
	raw_analysis, model_version, confidence_score, processing_time_ms, created_at`

func scanAnalysis(row pgx.Row) (model.Analysis, error) {
	var a model.Analysis
	err := row.Scan(
		&a.ID, &a.LegislationID, &a.AnalysisVersion, &a.VersionTag,
		&a.PreviousVersionID, &a.ChangesFromPrevious, &a.AnalysisDate,
		&a.ImpactCategory, &a.Impact, &a.Summary, &a.KeyPoints,
		&a.PublicHealthImpacts, &a.LocalGovImpacts, &a.EconomicImpacts,
		&a.EnvironmentalImpact, &a.EducationImpacts, &a.InfrastructureImpct,
		&a.StakeholderImpacts, &a.RecommendedActions, &a.ImmediateActions, &a.ResourceNeeds,
		&a.RawAnalysis, &a.ModelVersion, &a.ConfidenceScore, &a.ProcessingTimeMS, &a.CreatedAt,
	)
	return a, err
}

// CreateAnalysis appends a new immutable analysis version for a bill.
// The version number is allocated as max existing version + 1 while holding
// a row lock on the parent bill, so concurrent callers serialize and each
// gets a distinct consecutive version. The unique constraint on
// (legislation_id, analysis_version) is the backstop; a violation surfaces
// as ErrConcurrency so callers can retry.
func (db *DB) CreateAnalysis(ctx context.Context, legislationID int64, payload model.AnalysisPayload) (model.Analysis, error) {
	if err := payload.Validate(); err != nil {
		return model.Analysis{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("storage: begin analysis tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var parentID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM legislation WHERE id = $1 FOR UPDATE`, legislationID,
	).Scan(&parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Analysis{}, fmt.Errorf("%w: legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.Analysis{}, fmt.Errorf("storage: lock bill for analysis: %w", err)
	}

	var (
		version    = 1
		previousID *int64
		changes    map[string]any
	)
	prev, err := db.latestAnalysisTx(ctx, tx, legislationID)
	switch {
	case errors.Is(err, ErrNotFound):
		// First version for this bill.
	case err != nil:
		return model.Analysis{}, err
	default:
		version = prev.AnalysisVersion + 1
		previousID = &prev.ID
		changes = analysisChanges(prev, payload)
	}

	a, err := scanAnalysis(tx.QueryRow(ctx,
		`INSERT INTO legislation_analysis (
			legislation_id, analysis_version, version_tag, previous_version_id,
			changes_from_previous, impact_category, impact, summary, key_points,
			public_health_impacts, local_gov_impacts, economic_impacts,
			environmental_impacts, education_impacts, infrastructure_impacts,
			stakeholder_impacts, recommended_actions, immediate_actions,
			resource_needs, raw_analysis, model_version, confidence_score,
			processing_time_ms
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		 RETURNING `+analysisColumns,
		legislationID, version, payload.VersionTag, previousID,
		changes, payload.ImpactCategory, payload.Impact, nullIfEmpty(payload.Summary), payload.KeyPoints,
		payload.PublicHealthImpacts, payload.LocalGovImpacts, payload.EconomicImpacts,
		payload.EnvironmentalImpact, payload.EducationImpacts, payload.InfrastructureImpct,
		payload.StakeholderImpacts, payload.RecommendedActions, payload.ImmediateActions,
		payload.ResourceNeeds, payload.RawAnalysis, payload.ModelVersion, payload.ConfidenceScore,
		payload.ProcessingTimeMS,
	))
	if err != nil {
		if IsUniqueViolation(err, "unique_analysis_version") {
			return model.Analysis{}, fmt.Errorf("%w: analysis version %d for legislation %d already taken",
				ErrConcurrency, version, legislationID)
		}
		return model.Analysis{}, fmt.Errorf("storage: insert analysis: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Analysis{}, fmt.Errorf("storage: commit analysis: %w", err)
	}
	return a, nil
}

func (db *DB) latestAnalysisTx(ctx context.Context, tx pgx.Tx, legislationID int64) (model.Analysis, error) {
	a, err := scanAnalysis(tx.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM legislation_analysis
		 WHERE legislation_id = $1 ORDER BY analysis_version DESC LIMIT 1`, legislationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Analysis{}, fmt.Errorf("%w: no analysis for legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.Analysis{}, fmt.Errorf("storage: latest analysis: %w", err)
	}
	return a, nil
}

// GetLatestAnalysis returns the analysis with the highest version number for
// a bill, never derived by walking the previous-version chain.
func (db *DB) GetLatestAnalysis(ctx context.Context, legislationID int64) (model.Analysis, error) {
	a, err := scanAnalysis(db.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM legislation_analysis
		 WHERE legislation_id = $1 ORDER BY analysis_version DESC LIMIT 1`, legislationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Analysis{}, fmt.Errorf("%w: no analysis for legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.Analysis{}, fmt.Errorf("storage: latest analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns every analysis version for a bill, oldest first.
func (db *DB) ListAnalyses(ctx context.Context, legislationID int64) ([]model.Analysis, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM legislation_analysis
		 WHERE legislation_id = $1 ORDER BY analysis_version`, legislationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list analyses: %w", err)
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// analysisChanges diffs the new payload against the stored previous version
// over their shared JSON field names.
func analysisChanges(prev model.Analysis, next model.AnalysisPayload) map[string]any {
	prevMap := analysisComparable(model.AnalysisPayload{
		ImpactCategory:      prev.ImpactCategory,
		Impact:              prev.Impact,
		Summary:             deref(prev.Summary),
		KeyPoints:           prev.KeyPoints,
		PublicHealthImpacts: prev.PublicHealthImpacts,
		LocalGovImpacts:     prev.LocalGovImpacts,
		EconomicImpacts:     prev.EconomicImpacts,
		EnvironmentalImpact: prev.EnvironmentalImpact,
		EducationImpacts:    prev.EducationImpacts,
		InfrastructureImpct: prev.InfrastructureImpct,
		StakeholderImpacts:  prev.StakeholderImpacts,
		RecommendedActions:  prev.RecommendedActions,
		ImmediateActions:    prev.ImmediateActions,
		ResourceNeeds:       prev.ResourceNeeds,
	})
	d := diff.Compare(prevMap, analysisComparable(next))
	if d.Empty() {
		return nil
	}
	return d.AsMap()
}

// analysisComparable reduces a payload to its content fields as a generic
// JSON map. Provenance fields (model version, timings, raw output) are
// excluded so they do not pollute the recorded change set.
func analysisComparable(p model.AnalysisPayload) map[string]any {
	p.VersionTag = nil
	p.RawAnalysis = nil
	p.ModelVersion = nil
	p.ConfidenceScore = nil
	p.ProcessingTimeMS = nil
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
