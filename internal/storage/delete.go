package storage

import (
	"context"
	"fmt"

	"github.com/policypulse/policypulse/internal/model"
)

// DeleteLegislation removes a bill and all dependent rows in one
// transaction. Children are deleted explicitly, child-first, so the returned
// counts are exact even though the schema would also cascade. Alert history
// rows referencing the bill go with it; user rows are never touched.
func (db *DB) DeleteLegislation(ctx context.Context, id int64) (model.DeleteCounts, error) {
	var counts model.DeleteCounts

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("storage: begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM legislation WHERE id = $1 FOR UPDATE)`, id,
	).Scan(&exists); err != nil {
		return counts, fmt.Errorf("storage: check bill for delete: %w", err)
	}
	if !exists {
		return counts, fmt.Errorf("%w: legislation %d", ErrNotFound, id)
	}

	children := []struct {
		table string
		dst   *int64
	}{
		{"alert_history", &counts.AlertHistory},
		{"impact_ratings", &counts.ImpactRatings},
		{"implementation_requirements", &counts.Requirements},
		{"legislation_priorities", &counts.Priorities},
		{"amendments", &counts.Amendments},
		{"legislation_sponsors", &counts.Sponsors},
		{"legislation_text", &counts.Texts},
		{"legislation_analysis", &counts.Analyses},
	}
	for _, c := range children {
		tag, err := tx.Exec(ctx,
			`DELETE FROM `+c.table+` WHERE legislation_id = $1`, id,
		)
		if err != nil {
			return counts, fmt.Errorf("storage: delete from %s: %w", c.table, err)
		}
		*c.dst = tag.RowsAffected()
	}

	if _, err := tx.Exec(ctx, `DELETE FROM legislation WHERE id = $1`, id); err != nil {
		return counts, fmt.Errorf("storage: delete legislation: %w", err)
	}
	counts.Legislation = 1

	if err := tx.Commit(ctx); err != nil {
		return model.DeleteCounts{}, fmt.Errorf("storage: commit delete: %w", err)
	}
	return counts, nil
}
