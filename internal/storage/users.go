package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/model"
)

// GetOrCreateUser finds a user by email, creating an active default-role
// record on first sight. The unique email constraint resolves the race when
// two callers create the same user at once.
func (db *DB) GetOrCreateUser(ctx context.Context, email string) (model.User, error) {
	if err := model.ValidateEmail(email); err != nil {
		return model.User{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	var u model.User
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (email) VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET updated_at = now()
		 RETURNING id, email, name, is_active, role, created_at`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.Role, &u.CreatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("storage: get or create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by id.
func (db *DB) GetUser(ctx context.Context, userID int64) (model.User, error) {
	var u model.User
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, name, is_active, role, created_at FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("storage: get user: %w", err)
	}
	return u, nil
}

const userPrefColumns = `id, user_id, keywords, health_focus, local_govt_focus,
	regions, default_view, items_per_page, sort_by, updated_at`

// SaveUserPreferences writes a user's full preference set, last write wins.
// At most one row per user; repeated saves update in place.
func (db *DB) SaveUserPreferences(ctx context.Context, p model.UserPreferences) (model.UserPreferences, error) {
	if p.DefaultView == "" {
		p.DefaultView = "all"
	}
	if p.ItemsPerPage == 0 {
		p.ItemsPerPage = 25
	}
	if p.SortBy == "" {
		p.SortBy = "updated_at"
	}
	if err := p.Validate(); err != nil {
		return model.UserPreferences{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO user_preferences (
			user_id, keywords, health_focus, local_govt_focus, regions,
			default_view, items_per_page, sort_by
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (user_id) DO UPDATE SET
			keywords = EXCLUDED.keywords,
			health_focus = EXCLUDED.health_focus,
			local_govt_focus = EXCLUDED.local_govt_focus,
			regions = EXCLUDED.regions,
			default_view = EXCLUDED.default_view,
			items_per_page = EXCLUDED.items_per_page,
			sort_by = EXCLUDED.sort_by,
			updated_at = now()
		 RETURNING `+userPrefColumns,
		p.UserID, p.Keywords, p.HealthFocus, p.LocalGovtFocus, p.Regions,
		p.DefaultView, p.ItemsPerPage, p.SortBy,
	).Scan(&p.ID, &p.UserID, &p.Keywords, &p.HealthFocus, &p.LocalGovtFocus,
		&p.Regions, &p.DefaultView, &p.ItemsPerPage, &p.SortBy, &p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.UserPreferences{}, fmt.Errorf("%w: user %d", ErrNotFound, p.UserID)
		}
		return model.UserPreferences{}, fmt.Errorf("storage: save user preferences: %w", err)
	}
	return p, nil
}

// GetUserPreferences returns a user's preferences.
func (db *DB) GetUserPreferences(ctx context.Context, userID int64) (model.UserPreferences, error) {
	var p model.UserPreferences
	err := db.pool.QueryRow(ctx,
		`SELECT `+userPrefColumns+` FROM user_preferences WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Keywords, &p.HealthFocus, &p.LocalGovtFocus,
		&p.Regions, &p.DefaultView, &p.ItemsPerPage, &p.SortBy, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserPreferences{}, fmt.Errorf("%w: preferences for user %d", ErrNotFound, userID)
	}
	if err != nil {
		return model.UserPreferences{}, fmt.Errorf("storage: get user preferences: %w", err)
	}
	return p, nil
}

const alertPrefColumns = `id, user_id, email, active, alert_channels, custom_keywords,
	ignore_list, alert_rules, health_threshold, local_govt_threshold,
	notify_on_new, notify_on_update, notify_on_analysis, updated_at`

// SaveAlertPreferences writes a user's alert configuration, last write wins.
func (db *DB) SaveAlertPreferences(ctx context.Context, a model.AlertPreferences) (model.AlertPreferences, error) {
	if err := a.Validate(); err != nil {
		return model.AlertPreferences{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO alert_preferences (
			user_id, email, active, alert_channels, custom_keywords, ignore_list,
			alert_rules, health_threshold, local_govt_threshold,
			notify_on_new, notify_on_update, notify_on_analysis
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			active = EXCLUDED.active,
			alert_channels = EXCLUDED.alert_channels,
			custom_keywords = EXCLUDED.custom_keywords,
			ignore_list = EXCLUDED.ignore_list,
			alert_rules = EXCLUDED.alert_rules,
			health_threshold = EXCLUDED.health_threshold,
			local_govt_threshold = EXCLUDED.local_govt_threshold,
			notify_on_new = EXCLUDED.notify_on_new,
			notify_on_update = EXCLUDED.notify_on_update,
			notify_on_analysis = EXCLUDED.notify_on_analysis,
			updated_at = now()
		 RETURNING `+alertPrefColumns,
		a.UserID, a.Email, a.Active, a.AlertChannels, a.CustomKeywords, a.IgnoreList,
		a.AlertRules, a.HealthThreshold, a.LocalGovtThreshold,
		a.NotifyOnNew, a.NotifyOnUpdate, a.NotifyOnAnalysis,
	).Scan(&a.ID, &a.UserID, &a.Email, &a.Active, &a.AlertChannels, &a.CustomKeywords,
		&a.IgnoreList, &a.AlertRules, &a.HealthThreshold, &a.LocalGovtThreshold,
		&a.NotifyOnNew, &a.NotifyOnUpdate, &a.NotifyOnAnalysis, &a.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.AlertPreferences{}, fmt.Errorf("%w: user %d", ErrNotFound, a.UserID)
		}
		return model.AlertPreferences{}, fmt.Errorf("storage: save alert preferences: %w", err)
	}
	return a, nil
}

// GetAlertPreferences returns a user's alert configuration.
func (db *DB) GetAlertPreferences(ctx context.Context, userID int64) (model.AlertPreferences, error) {
	var a model.AlertPreferences
	err := db.pool.QueryRow(ctx,
		`SELECT `+alertPrefColumns+` FROM alert_preferences WHERE user_id = $1`, userID,
	).Scan(&a.ID, &a.UserID, &a.Email, &a.Active, &a.AlertChannels, &a.CustomKeywords,
		&a.IgnoreList, &a.AlertRules, &a.HealthThreshold, &a.LocalGovtThreshold,
		&a.NotifyOnNew, &a.NotifyOnUpdate, &a.NotifyOnAnalysis, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AlertPreferences{}, fmt.Errorf("%w: alert preferences for user %d", ErrNotFound, userID)
	}
	if err != nil {
		return model.AlertPreferences{}, fmt.Errorf("storage: get alert preferences: %w", err)
	}
	return a, nil
}

// AddSearchHistory appends one search to a user's history.
func (db *DB) AddSearchHistory(ctx context.Context, rec model.SearchRecord) (model.SearchRecord, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO search_history (user_id, query, filters, results)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at`,
		rec.UserID, rec.Query, rec.Filters, rec.Results,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.SearchRecord{}, fmt.Errorf("%w: user %d", ErrNotFound, rec.UserID)
		}
		return model.SearchRecord{}, fmt.Errorf("storage: add search history: %w", err)
	}
	return rec, nil
}

// GetSearchHistory returns a user's recent searches, newest first.
func (db *DB) GetSearchHistory(ctx context.Context, userID int64, limit int) ([]model.SearchRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, query, filters, results, created_at
		 FROM search_history WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get search history: %w", err)
	}
	defer rows.Close()

	var out []model.SearchRecord
	for rows.Next() {
		var r model.SearchRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Query, &r.Filters, &r.Results, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan search record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordAlert logs one alert delivery attempt.
func (db *DB) RecordAlert(ctx context.Context, rec model.AlertRecord) (model.AlertRecord, error) {
	if !rec.AlertType.Valid() {
		return model.AlertRecord{}, fmt.Errorf("%w: invalid alert_type %q", ErrValidation, rec.AlertType)
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO alert_history (user_id, legislation_id, alert_type, alert_content, delivery_status, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id, created_at`,
		rec.UserID, rec.LegislationID, rec.AlertType, rec.AlertContent, rec.DeliveryStatus, rec.ErrorMessage,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.AlertRecord{}, fmt.Errorf("%w: user %d or legislation %d", ErrNotFound, rec.UserID, rec.LegislationID)
		}
		return model.AlertRecord{}, fmt.Errorf("storage: record alert: %w", err)
	}
	return rec, nil
}

// ListAlertHistory returns a user's alert deliveries, newest first.
func (db *DB) ListAlertHistory(ctx context.Context, userID int64, limit int) ([]model.AlertRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, legislation_id, alert_type, alert_content, delivery_status, error_message, created_at
		 FROM alert_history WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list alert history: %w", err)
	}
	defer rows.Close()

	var out []model.AlertRecord
	for rows.Next() {
		var r model.AlertRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.LegislationID, &r.AlertType, &r.AlertContent, &r.DeliveryStatus, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan alert record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
