package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/model"
)

const priorityColumns = `id, legislation_id, public_health_relevance, local_govt_relevance,
	overall_priority, auto_categorized, auto_categories, manually_reviewed,
	manual_priority, reviewer_notes, review_date, should_notify,
	notification_sent, notification_date, updated_at`

func scanPriority(row pgx.Row) (model.Priority, error) {
	var p model.Priority
	err := row.Scan(
		&p.ID, &p.LegislationID, &p.PublicHealthRelevance, &p.LocalGovtRelevance,
		&p.OverallPriority, &p.AutoCategorized, &p.AutoCategories, &p.ManuallyReviewed,
		&p.ManualPriority, &p.ReviewerNotes, &p.ReviewDate, &p.ShouldNotify,
		&p.NotificationSent, &p.NotificationDate, &p.UpdatedAt,
	)
	return p, err
}

// UpsertAutoScores writes automatic relevance scores for a bill. A manually
// reviewed row is left completely untouched and returned as-is: human review
// pins the record against the scoring collaborator. Scores are clamped to
// [0,100] before storage.
func (db *DB) UpsertAutoScores(ctx context.Context, legislationID int64, scores model.AutoScores) (model.Priority, error) {
	scores = scores.Clamp()

	p, err := scanPriority(db.pool.QueryRow(ctx,
		`INSERT INTO legislation_priorities (
			legislation_id, public_health_relevance, local_govt_relevance,
			overall_priority, auto_categorized, auto_categories
		 ) VALUES ($1,$2,$3,$4,true,$5)
		 ON CONFLICT (legislation_id) DO UPDATE SET
			public_health_relevance = EXCLUDED.public_health_relevance,
			local_govt_relevance = EXCLUDED.local_govt_relevance,
			overall_priority = EXCLUDED.overall_priority,
			auto_categorized = true,
			auto_categories = EXCLUDED.auto_categories,
			updated_at = now()
		 WHERE NOT legislation_priorities.manually_reviewed
		 RETURNING `+priorityColumns,
		legislationID, scores.PublicHealthRelevance, scores.LocalGovtRelevance,
		scores.OverallPriority, scores.AutoCategories,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// The conflict target matched a manually reviewed row; read it back.
		return db.GetPriority(ctx, legislationID)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Priority{}, fmt.Errorf("%w: legislation %d", ErrNotFound, legislationID)
		}
		return model.Priority{}, fmt.Errorf("storage: upsert auto scores: %w", err)
	}
	return p, nil
}

// SetManualReview records a human priority decision. It creates the priority
// row if scoring has not run yet, sets manually_reviewed, and stamps the
// review date. Automatic columns are not modified.
func (db *DB) SetManualReview(ctx context.Context, legislationID int64, review model.ManualReview) (model.Priority, error) {
	if err := review.Validate(); err != nil {
		return model.Priority{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	p, err := scanPriority(db.pool.QueryRow(ctx,
		`INSERT INTO legislation_priorities (
			legislation_id, manually_reviewed, manual_priority, reviewer_notes, review_date
		 ) VALUES ($1,true,$2,$3,now())
		 ON CONFLICT (legislation_id) DO UPDATE SET
			manually_reviewed = true,
			manual_priority = EXCLUDED.manual_priority,
			reviewer_notes = EXCLUDED.reviewer_notes,
			review_date = now(),
			updated_at = now()
		 RETURNING `+priorityColumns,
		legislationID, review.ManualPriority, review.ReviewerNotes,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Priority{}, fmt.Errorf("%w: legislation %d", ErrNotFound, legislationID)
		}
		return model.Priority{}, fmt.Errorf("storage: set manual review: %w", err)
	}
	return p, nil
}

// GetPriority returns a bill's priority row.
func (db *DB) GetPriority(ctx context.Context, legislationID int64) (model.Priority, error) {
	p, err := scanPriority(db.pool.QueryRow(ctx,
		`SELECT `+priorityColumns+` FROM legislation_priorities WHERE legislation_id = $1`,
		legislationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Priority{}, fmt.Errorf("%w: priority for legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.Priority{}, fmt.Errorf("storage: get priority: %w", err)
	}
	return p, nil
}

// EvaluateNotification sets should_notify when either relevance score meets
// its threshold and no notification has gone out yet. Thresholds come from
// active alert preferences (the most sensitive subscriber wins);
// defaultThreshold applies when nobody has configured any.
// notification_sent is a one-shot latch: once true, should_notify stays
// false even if a score later re-crosses the threshold.
func (db *DB) EvaluateNotification(ctx context.Context, legislationID int64, defaultThreshold int) (model.Priority, error) {
	p, err := scanPriority(db.pool.QueryRow(ctx,
		`UPDATE legislation_priorities SET
			should_notify = NOT notification_sent AND (
				public_health_relevance >= COALESCE(
					(SELECT MIN(health_threshold) FROM alert_preferences WHERE active), $2)
				OR local_govt_relevance >= COALESCE(
					(SELECT MIN(local_govt_threshold) FROM alert_preferences WHERE active), $2)
			),
			updated_at = now()
		 WHERE legislation_id = $1
		 RETURNING `+priorityColumns,
		legislationID, defaultThreshold,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Priority{}, fmt.Errorf("%w: priority for legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.Priority{}, fmt.Errorf("storage: evaluate notification: %w", err)
	}
	return p, nil
}

// MarkNotificationSent latches the notification flag and stamps the send
// time. Safe to call more than once; the first send time wins.
func (db *DB) MarkNotificationSent(ctx context.Context, legislationID int64) (model.Priority, error) {
	p, err := scanPriority(db.pool.QueryRow(ctx,
		`UPDATE legislation_priorities SET
			notification_sent = true,
			notification_date = COALESCE(notification_date, now()),
			updated_at = now()
		 WHERE legislation_id = $1
		 RETURNING `+priorityColumns,
		legislationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Priority{}, fmt.Errorf("%w: priority for legislation %d", ErrNotFound, legislationID)
	}
	if err != nil {
		return model.Priority{}, fmt.Errorf("storage: mark notification sent: %w", err)
	}
	return p, nil
}

// ListPendingNotifications returns priorities flagged for notification that
// have not been sent yet.
func (db *DB) ListPendingNotifications(ctx context.Context, limit int) ([]model.Priority, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+priorityColumns+` FROM legislation_priorities
		 WHERE should_notify AND NOT notification_sent
		 ORDER BY overall_priority DESC LIMIT $1`, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list pending notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Priority
	for rows.Next() {
		p, err := scanPriority(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan priority: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
