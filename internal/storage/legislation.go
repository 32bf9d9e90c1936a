package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/model"
)

const legislationColumns = `id, external_id, data_source, govt_type, govt_source, bill_number,
	bill_type, title, description, bill_status, url, state_link,
	bill_introduced_date, bill_last_action_date, bill_status_date,
	last_api_check, change_hash, raw_api_response, created_at, updated_at`

func scanLegislation(row pgx.Row) (model.Legislation, error) {
	var l model.Legislation
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.DataSource, &l.GovtType, &l.GovtSource, &l.BillNumber,
		&l.BillType, &l.Title, &l.Description, &l.BillStatus, &l.URL, &l.StateLink,
		&l.BillIntroducedDate, &l.BillLastActionDate, &l.BillStatusDate,
		&l.LastAPICheck, &l.ChangeHash, &l.RawAPIResponse, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// UpsertLegislation applies the ingestion upsert contract for one bill.
// changeHash must be the canonical hash over the record's externally-sourced
// mutable fields. The whole check-hash-then-write sequence runs under a
// per-bill advisory lock so two concurrent runs for the same bill cannot
// both decide "unchanged" from a stale read.
func (db *DB) UpsertLegislation(ctx context.Context, rec model.BillRecord, changeHash string) (model.UpsertResult, error) {
	if err := rec.Validate(); err != nil {
		return model.UpsertResult{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.UpsertResult{}, fmt.Errorf("storage: begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	identity := string(rec.DataSource) + "|" + rec.GovtSource + "|" + rec.BillNumber
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, identity,
	); err != nil {
		return model.UpsertResult{}, fmt.Errorf("storage: acquire bill lock: %w", err)
	}

	var (
		id         int64
		curStatus  model.BillStatus
		curHash    *string
	)
	err = tx.QueryRow(ctx,
		`SELECT id, bill_status, change_hash FROM legislation
		 WHERE data_source = $1 AND govt_source = $2 AND bill_number = $3`,
		rec.DataSource, rec.GovtSource, rec.BillNumber,
	).Scan(&id, &curStatus, &curHash)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		res, err := db.insertLegislation(ctx, tx, rec, changeHash)
		if err != nil {
			return model.UpsertResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return model.UpsertResult{}, fmt.Errorf("storage: commit upsert: %w", err)
		}
		return res, nil

	case err != nil:
		return model.UpsertResult{}, fmt.Errorf("storage: lookup bill: %w", err)
	}

	if curHash != nil && *curHash == changeHash {
		// Content identical upstream: touch last_api_check and nothing else.
		if _, err := tx.Exec(ctx,
			`UPDATE legislation SET last_api_check = now() WHERE id = $1`, id,
		); err != nil {
			return model.UpsertResult{}, fmt.Errorf("storage: touch last_api_check: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return model.UpsertResult{}, fmt.Errorf("storage: commit upsert: %w", err)
		}
		return model.UpsertResult{LegislationID: id, Changed: false, Status: curStatus}, nil
	}

	nextStatus := db.resolveStatus(curStatus, rec.Status)

	if _, err := tx.Exec(ctx,
		`UPDATE legislation SET
			external_id = $2, bill_type = $3, title = $4, description = $5,
			bill_status = $6, url = $7, state_link = $8,
			bill_introduced_date = $9, bill_last_action_date = $10, bill_status_date = $11,
			last_api_check = now(), change_hash = $12, raw_api_response = $13,
			updated_at = now()
		 WHERE id = $1`,
		id, rec.ExternalID, rec.BillType, rec.Title, rec.Description,
		nextStatus, rec.URL, rec.StateLink,
		rec.BillIntroducedDate, rec.BillLastActionDate, rec.BillStatusDate,
		changeHash, rec.RawAPIResponse,
	); err != nil {
		return model.UpsertResult{}, fmt.Errorf("storage: update bill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.UpsertResult{}, fmt.Errorf("storage: commit upsert: %w", err)
	}
	return model.UpsertResult{LegislationID: id, Changed: true, Status: nextStatus}, nil
}

func (db *DB) insertLegislation(ctx context.Context, tx pgx.Tx, rec model.BillRecord, changeHash string) (model.UpsertResult, error) {
	status := rec.Status
	if status == "" {
		status = model.BillStatusNew
	}
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO legislation (
			external_id, data_source, govt_type, govt_source, bill_number,
			bill_type, title, description, bill_status, url, state_link,
			bill_introduced_date, bill_last_action_date, bill_status_date,
			change_hash, raw_api_response
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 RETURNING id`,
		rec.ExternalID, rec.DataSource, rec.GovtType, rec.GovtSource, rec.BillNumber,
		rec.BillType, rec.Title, rec.Description, status, rec.URL, rec.StateLink,
		rec.BillIntroducedDate, rec.BillLastActionDate, rec.BillStatusDate,
		changeHash, rec.RawAPIResponse,
	).Scan(&id)
	if err != nil {
		return model.UpsertResult{}, fmt.Errorf("storage: insert bill: %w", err)
	}
	return model.UpsertResult{LegislationID: id, Created: true, Changed: true, Status: status}, nil
}

// resolveStatus applies the bill-status state machine for a content change.
// A terminal status never transitions: the attempted move is logged and
// dropped while the rest of the update still applies. Without a more
// specific signal from the source, a changed non-terminal bill becomes
// "updated".
func (db *DB) resolveStatus(current, incoming model.BillStatus) model.BillStatus {
	next := incoming
	if next == "" {
		next = model.BillStatusUpdated
	}
	if !current.CanTransitionTo(next) {
		db.logger.Warn("storage: rejected bill status transition out of terminal state",
			"from", current, "to", next)
		return current
	}
	return next
}

// GetLegislation retrieves a bill by id.
func (db *DB) GetLegislation(ctx context.Context, id int64) (model.Legislation, error) {
	l, err := scanLegislation(db.pool.QueryRow(ctx,
		`SELECT `+legislationColumns+` FROM legislation WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Legislation{}, fmt.Errorf("%w: legislation %d", ErrNotFound, id)
		}
		return model.Legislation{}, fmt.Errorf("storage: get legislation: %w", err)
	}
	return l, nil
}

// ListLegislation returns bills ordered by most recent update, paginated.
func (db *DB) ListLegislation(ctx context.Context, limit, offset int) ([]model.Legislation, int, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM legislation`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count legislation: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+legislationColumns+` FROM legislation
		 ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list legislation: %w", err)
	}
	defer rows.Close()

	var out []model.Legislation
	for rows.Next() {
		l, err := scanLegislation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("storage: scan legislation: %w", err)
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// ReplaceSponsors swaps the sponsor set for a bill. The source sends the
// complete roster on every sync, so replace is simpler and safer than
// per-sponsor reconciliation.
func (db *DB) ReplaceSponsors(ctx context.Context, legislationID int64, sponsors []model.SponsorInput) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin sponsors tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM legislation_sponsors WHERE legislation_id = $1`, legislationID,
	); err != nil {
		return fmt.Errorf("storage: clear sponsors: %w", err)
	}
	for _, s := range sponsors {
		if s.Name == "" {
			return fmt.Errorf("%w: sponsor name cannot be empty", ErrValidation)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO legislation_sponsors
			 (legislation_id, sponsor_external_id, sponsor_name, sponsor_title, sponsor_state, sponsor_party, sponsor_type)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			legislationID, s.ExternalID, s.Name, s.Title, s.State, s.Party, s.Type,
		); err != nil {
			return fmt.Errorf("storage: insert sponsor: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetSponsors returns a bill's sponsors.
func (db *DB) GetSponsors(ctx context.Context, legislationID int64) ([]model.Sponsor, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, legislation_id, sponsor_external_id, sponsor_name, sponsor_title,
		        sponsor_state, sponsor_party, sponsor_type
		 FROM legislation_sponsors WHERE legislation_id = $1 ORDER BY id`, legislationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get sponsors: %w", err)
	}
	defer rows.Close()

	var out []model.Sponsor
	for rows.Next() {
		var s model.Sponsor
		if err := rows.Scan(&s.ID, &s.LegislationID, &s.ExternalID, &s.Name, &s.Title,
			&s.State, &s.Party, &s.Type); err != nil {
			return nil, fmt.Errorf("storage: scan sponsor: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
