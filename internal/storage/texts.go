package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/model"
)

// ContentHash fingerprints a text or binary payload for dedupe.
func ContentHash(c model.Content) string {
	h := sha256.New()
	if c.IsBinary {
		h.Write(c.Binary)
	} else {
		h.Write([]byte(c.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

const textColumns = `id, legislation_id, version_num, text_type, text_content,
	binary_content, is_binary, content_type, text_hash, text_date, text_metadata, created_at`

func scanText(row pgx.Row) (model.LegislationText, error) {
	var (
		t       model.LegislationText
		textStr *string
	)
	err := row.Scan(
		&t.ID, &t.LegislationID, &t.VersionNum, &t.TextType, &textStr,
		&t.Content.Binary, &t.Content.IsBinary, &t.Content.ContentType,
		&t.TextHash, &t.TextDate, &t.Content.Metadata, &t.CreatedAt,
	)
	if textStr != nil {
		t.Content.Text = *textStr
	}
	return t, err
}

// CreateTextVersion stores a new text version for a bill. Version numbers are
// consecutive per bill, allocated under a parent row lock. If the newest
// stored version already carries the same content hash the call is a no-op
// and returns that existing version.
func (db *DB) CreateTextVersion(ctx context.Context, legislationID int64, in model.TextInput) (model.LegislationText, error) {
	if in.Content.IsBinary && len(in.Content.Binary) == 0 {
		return model.LegislationText{}, fmt.Errorf("%w: binary text version has no content", ErrValidation)
	}
	if !in.Content.IsBinary && in.Content.Text == "" {
		return model.LegislationText{}, fmt.Errorf("%w: text version has no content", ErrValidation)
	}

	hash := ContentHash(in.Content)

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.LegislationText{}, fmt.Errorf("storage: begin text tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var parentID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM legislation WHERE id = $1 FOR UPDATE`, legislationID,
	).Scan(&parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.LegislationText{}, fmt.Errorf("%w: legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.LegislationText{}, fmt.Errorf("storage: lock bill for text: %w", err)
	}

	latest, err := scanText(tx.QueryRow(ctx,
		`SELECT `+textColumns+` FROM legislation_text
		 WHERE legislation_id = $1 ORDER BY version_num DESC LIMIT 1`, legislationID,
	))
	version := 1
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// First text for this bill.
	case err != nil:
		return model.LegislationText{}, fmt.Errorf("storage: latest text: %w", err)
	default:
		if latest.TextHash != nil && *latest.TextHash == hash {
			return latest, nil
		}
		version = latest.VersionNum + 1
	}

	var textCol *string
	var binCol []byte
	if in.Content.IsBinary {
		binCol = in.Content.Binary
	} else {
		textCol = &in.Content.Text
	}

	t, err := scanText(tx.QueryRow(ctx,
		`INSERT INTO legislation_text (
			legislation_id, version_num, text_type, text_content, binary_content,
			is_binary, content_type, text_hash, text_date, text_metadata
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING `+textColumns,
		legislationID, version, in.TextType, textCol, binCol,
		in.Content.IsBinary, nullIfEmpty(in.Content.ContentType), hash, in.TextDate, in.Content.Metadata,
	))
	if err != nil {
		if IsUniqueViolation(err, "unique_text_version") {
			return model.LegislationText{}, fmt.Errorf("%w: text version %d for legislation %d already taken",
				ErrConcurrency, version, legislationID)
		}
		return model.LegislationText{}, fmt.Errorf("storage: insert text: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.LegislationText{}, fmt.Errorf("storage: commit text: %w", err)
	}
	return t, nil
}

// GetLatestText returns the newest text version for a bill.
func (db *DB) GetLatestText(ctx context.Context, legislationID int64) (model.LegislationText, error) {
	t, err := scanText(db.pool.QueryRow(ctx,
		`SELECT `+textColumns+` FROM legislation_text
		 WHERE legislation_id = $1 ORDER BY version_num DESC LIMIT 1`, legislationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.LegislationText{}, fmt.Errorf("%w: no text for legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.LegislationText{}, fmt.Errorf("storage: latest text: %w", err)
	}
	return t, nil
}

// ListTextVersions returns all stored text versions for a bill, oldest first.
func (db *DB) ListTextVersions(ctx context.Context, legislationID int64) ([]model.LegislationText, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+textColumns+` FROM legislation_text
		 WHERE legislation_id = $1 ORDER BY version_num`, legislationID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list texts: %w", err)
	}
	defer rows.Close()

	var out []model.LegislationText
	for rows.Next() {
		t, err := scanText(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan text: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
