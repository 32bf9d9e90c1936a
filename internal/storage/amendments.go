package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/model"
)

// AmendmentHash fingerprints an amendment's externally-sourced fields so a
// re-sync with identical content can be skipped.
func AmendmentHash(in model.AmendmentInput) string {
	fields := map[string]any{
		"amendment_id":   in.AmendmentID,
		"adopted":        in.Adopted,
		"status":         in.Status,
		"amendment_date": in.AmendmentDate,
		"title":          in.Title,
		"description":    in.Description,
		"amendment_url":  in.AmendmentURL,
		"state_link":     in.StateLink,
		"chamber":        in.Chamber,
	}
	if in.Content != nil {
		fields["content_hash"] = ContentHash(*in.Content)
	}
	b, _ := json.Marshal(fields)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

const amendmentColumns = `id, amendment_id, legislation_id, adopted, status,
	amendment_date, title, description, amendment_hash, amendment_text,
	binary_text, is_binary_text, amendment_url, state_link, chamber,
	sponsor_info, text_metadata, created_at, updated_at`

func scanAmendment(row pgx.Row) (model.Amendment, error) {
	var (
		a        model.Amendment
		text     *string
		bin      []byte
		isBinary bool
		ct       map[string]any
	)
	err := row.Scan(
		&a.ID, &a.AmendmentID, &a.LegislationID, &a.Adopted, &a.Status,
		&a.AmendmentDate, &a.Title, &a.Description, &a.AmendmentHash, &text,
		&bin, &isBinary, &a.AmendmentURL, &a.StateLink, &a.Chamber,
		&a.SponsorInfo, &ct, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return a, err
	}
	if text != nil || bin != nil {
		c := model.Content{IsBinary: isBinary, Binary: bin, Metadata: ct}
		if text != nil {
			c.Text = *text
		}
		a.Content = &c
	}
	return a, nil
}

// UpsertAmendment inserts or refreshes an amendment keyed by
// (legislation_id, amendment_id). An unchanged content hash leaves the row
// untouched. Returns the stored amendment and whether anything changed.
func (db *DB) UpsertAmendment(ctx context.Context, legislationID int64, in model.AmendmentInput) (model.Amendment, bool, error) {
	if err := in.Validate(); err != nil {
		return model.Amendment{}, false, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	status := in.Status
	if status == "" {
		status = model.AmendmentStatusProposed
		if in.Adopted {
			status = model.AmendmentStatusAdopted
		}
	}
	hash := AmendmentHash(in)

	var (
		textCol *string
		binCol  []byte
		isBin   bool
		meta    map[string]any
	)
	if in.Content != nil {
		isBin = in.Content.IsBinary
		meta = in.Content.Metadata
		if isBin {
			binCol = in.Content.Binary
		} else {
			textCol = &in.Content.Text
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Amendment{}, false, fmt.Errorf("storage: begin amendment tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := scanAmendment(tx.QueryRow(ctx,
		`SELECT `+amendmentColumns+` FROM amendments
		 WHERE legislation_id = $1 AND amendment_id = $2 FOR UPDATE`,
		legislationID, in.AmendmentID,
	))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		a, err := scanAmendment(tx.QueryRow(ctx,
			`INSERT INTO amendments (
				amendment_id, legislation_id, adopted, status, amendment_date,
				title, description, amendment_hash, amendment_text, binary_text,
				is_binary_text, amendment_url, state_link, chamber, sponsor_info, text_metadata
			 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			 RETURNING `+amendmentColumns,
			in.AmendmentID, legislationID, in.Adopted, status, in.AmendmentDate,
			in.Title, in.Description, hash, textCol, binCol,
			isBin, in.AmendmentURL, in.StateLink, in.Chamber, in.SponsorInfo, meta,
		))
		if err != nil {
			if IsUniqueViolation(err, "unique_amendment") {
				return model.Amendment{}, false, fmt.Errorf("%w: amendment %q for legislation %d already taken",
					ErrConcurrency, in.AmendmentID, legislationID)
			}
			return model.Amendment{}, false, fmt.Errorf("storage: insert amendment: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return model.Amendment{}, false, fmt.Errorf("storage: commit amendment: %w", err)
		}
		return a, true, nil

	case err != nil:
		return model.Amendment{}, false, fmt.Errorf("storage: lookup amendment: %w", err)
	}

	if existing.AmendmentHash != nil && *existing.AmendmentHash == hash {
		if err := tx.Commit(ctx); err != nil {
			return model.Amendment{}, false, fmt.Errorf("storage: commit amendment: %w", err)
		}
		return existing, false, nil
	}

	a, err := scanAmendment(tx.QueryRow(ctx,
		`UPDATE amendments SET
			adopted = $3, status = $4, amendment_date = $5, title = $6,
			description = $7, amendment_hash = $8, amendment_text = $9,
			binary_text = $10, is_binary_text = $11, amendment_url = $12,
			state_link = $13, chamber = $14, sponsor_info = $15,
			text_metadata = $16, updated_at = now()
		 WHERE legislation_id = $1 AND amendment_id = $2
		 RETURNING `+amendmentColumns,
		legislationID, in.AmendmentID, in.Adopted, status, in.AmendmentDate,
		in.Title, in.Description, hash, textCol,
		binCol, isBin, in.AmendmentURL,
		in.StateLink, in.Chamber, in.SponsorInfo, meta,
	))
	if err != nil {
		return model.Amendment{}, false, fmt.Errorf("storage: update amendment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Amendment{}, false, fmt.Errorf("storage: commit amendment: %w", err)
	}
	return a, true, nil
}

// ListAmendments returns a bill's amendments, newest first by amendment date.
func (db *DB) ListAmendments(ctx context.Context, legislationID int64) ([]model.Amendment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+amendmentColumns+` FROM amendments
		 WHERE legislation_id = $1 ORDER BY amendment_date DESC NULLS LAST, id`, legislationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list amendments: %w", err)
	}
	defer rows.Close()

	var out []model.Amendment
	for rows.Next() {
		a, err := scanAmendment(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan amendment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
