package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/policypulse/policypulse/internal/model"
)

// ChangeHash computes the canonical content fingerprint for a bill record.
// Only externally-sourced mutable fields feed the hash; identity fields
// (data source, government source, bill number) and anything derived locally
// never do, so re-sending the same upstream content always reproduces the
// same hash. Fields are serialized as a JSON object, which sorts keys, so
// the digest is independent of input field order.
func ChangeHash(rec model.BillRecord) string {
	fields := map[string]any{
		"external_id":           rec.ExternalID,
		"bill_type":             rec.BillType,
		"title":                 rec.Title,
		"description":           rec.Description,
		"status":                rec.Status,
		"url":                   rec.URL,
		"state_link":            rec.StateLink,
		"bill_introduced_date":  hashTime(rec.BillIntroducedDate),
		"bill_last_action_date": hashTime(rec.BillLastActionDate),
		"bill_status_date":      hashTime(rec.BillStatusDate),
		"raw_api_response":      rec.RawAPIResponse,
	}
	b, _ := json.Marshal(fields)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// hashTime normalizes timestamps to UTC RFC 3339 so the same instant hashes
// identically regardless of the zone the collaborator sent it in.
func hashTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
