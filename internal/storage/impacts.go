package storage

import (
	"context"
	"fmt"

	"github.com/policypulse/policypulse/internal/model"
)

// CreateImpactRating records one category-specific assessment for a bill.
// Ratings sit outside the analysis version chain; each call appends a row.
func (db *DB) CreateImpactRating(ctx context.Context, r model.ImpactRating) (model.ImpactRating, error) {
	if err := r.Validate(); err != nil {
		return model.ImpactRating{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO impact_ratings (
			legislation_id, impact_category, impact_level, impact_description,
			affected_entities, confidence_score, is_ai_generated, reviewed_by, review_date
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id, created_at`,
		r.LegislationID, r.ImpactCategory, r.ImpactLevel, r.ImpactDescription,
		r.AffectedEntities, r.ConfidenceScore, r.IsAIGenerated, r.ReviewedBy, r.ReviewDate,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ImpactRating{}, fmt.Errorf("%w: legislation %d", ErrNotFound, r.LegislationID)
		}
		return model.ImpactRating{}, fmt.Errorf("storage: insert impact rating: %w", err)
	}
	return r, nil
}

// ListImpactRatings returns a bill's ratings, newest first.
func (db *DB) ListImpactRatings(ctx context.Context, legislationID int64) ([]model.ImpactRating, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, legislation_id, impact_category, impact_level, impact_description,
		        affected_entities, confidence_score, is_ai_generated, reviewed_by, review_date, created_at
		 FROM impact_ratings WHERE legislation_id = $1 ORDER BY created_at DESC, id DESC`,
		legislationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list impact ratings: %w", err)
	}
	defer rows.Close()

	var out []model.ImpactRating
	for rows.Next() {
		var r model.ImpactRating
		if err := rows.Scan(&r.ID, &r.LegislationID, &r.ImpactCategory, &r.ImpactLevel,
			&r.ImpactDescription, &r.AffectedEntities, &r.ConfidenceScore,
			&r.IsAIGenerated, &r.ReviewedBy, &r.ReviewDate, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan impact rating: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReviewImpactRating marks a rating as human-reviewed.
func (db *DB) ReviewImpactRating(ctx context.Context, ratingID int64, reviewer string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE impact_ratings SET
			is_ai_generated = false, reviewed_by = $2, review_date = now(), updated_at = now()
		 WHERE id = $1`, ratingID, reviewer,
	)
	if err != nil {
		return fmt.Errorf("storage: review impact rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: impact rating %d", ErrNotFound, ratingID)
	}
	return nil
}

// CreateImplementationRequirement records an obligation a bill imposes.
func (db *DB) CreateImplementationRequirement(ctx context.Context, r model.ImplementationRequirement) (model.ImplementationRequirement, error) {
	if r.RequirementType == "" || r.Description == "" {
		return model.ImplementationRequirement{}, fmt.Errorf("%w: requirement_type and description are required", ErrValidation)
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO implementation_requirements (
			legislation_id, requirement_type, description, estimated_cost,
			funding_provided, implementation_deadline, entity_responsible
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		r.LegislationID, r.RequirementType, r.Description, r.EstimatedCost,
		r.FundingProvided, r.ImplementationDeadline, r.EntityResponsible,
	).Scan(&r.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ImplementationRequirement{}, fmt.Errorf("%w: legislation %d", ErrNotFound, r.LegislationID)
		}
		return model.ImplementationRequirement{}, fmt.Errorf("storage: insert implementation requirement: %w", err)
	}
	return r, nil
}

// ListImplementationRequirements returns a bill's recorded obligations.
func (db *DB) ListImplementationRequirements(ctx context.Context, legislationID int64) ([]model.ImplementationRequirement, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, legislation_id, requirement_type, description, estimated_cost,
		        funding_provided, implementation_deadline, entity_responsible
		 FROM implementation_requirements WHERE legislation_id = $1 ORDER BY id`,
		legislationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list implementation requirements: %w", err)
	}
	defer rows.Close()

	var out []model.ImplementationRequirement
	for rows.Next() {
		var r model.ImplementationRequirement
		if err := rows.Scan(&r.ID, &r.LegislationID, &r.RequirementType, &r.Description,
			&r.EstimatedCost, &r.FundingProvided, &r.ImplementationDeadline, &r.EntityResponsible); err != nil {
			return nil, fmt.Errorf("storage: scan implementation requirement: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
