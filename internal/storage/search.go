package storage

import (
	"context"
	"fmt"

	"github.com/policypulse/policypulse/internal/model"
)

// SearchLegislation runs a ranked full-text search over bill titles and
// descriptions. The search vector is a stored generated column, so results
// always reflect the latest committed title and description. Titles weigh
// heavier than descriptions in the ranking.
func (db *DB) SearchLegislation(ctx context.Context, query string, limit, offset int) ([]model.SearchResult, int, error) {
	if query == "" {
		return nil, 0, fmt.Errorf("%w: search query cannot be empty", ErrValidation)
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM legislation
		 WHERE search_vector @@ websearch_to_tsquery('english', $1)`, query,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count search results: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+legislationColumns+`,
		        ts_rank(search_vector, websearch_to_tsquery('english', $1)) AS rank
		 FROM legislation
		 WHERE search_vector @@ websearch_to_tsquery('english', $1)
		 ORDER BY rank DESC, updated_at DESC
		 LIMIT $2 OFFSET $3`, query, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: search legislation: %w", err)
	}
	defer rows.Close()

	var out []model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(
			&r.ID, &r.ExternalID, &r.DataSource, &r.GovtType, &r.GovtSource, &r.BillNumber,
			&r.BillType, &r.Title, &r.Description, &r.BillStatus, &r.URL, &r.StateLink,
			&r.BillIntroducedDate, &r.BillLastActionDate, &r.BillStatusDate,
			&r.LastAPICheck, &r.ChangeHash, &r.RawAPIResponse, &r.CreatedAt, &r.UpdatedAt,
			&r.Rank,
		); err != nil {
			return nil, 0, fmt.Errorf("storage: scan search result: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
