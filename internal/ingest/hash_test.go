package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/policypulse/policypulse/internal/model"
)

func baseRecord() model.BillRecord {
	desc := "Establishes a county health district"
	return model.BillRecord{
		ExternalID:  "LS-1001",
		DataSource:  model.DataSourceLegiscan,
		GovtType:    model.GovtTypeState,
		GovtSource:  "WA",
		BillNumber:  "HB 1001",
		Title:       "County health districts",
		Description: &desc,
	}
}

func TestChangeHashDeterministic(t *testing.T) {
	a := ChangeHash(baseRecord())
	b := ChangeHash(baseRecord())
	assert.Equal(t, a, b)
}

func TestChangeHashSensitiveToContent(t *testing.T) {
	rec := baseRecord()
	before := ChangeHash(rec)

	rec.Title = "County health districts (amended)"
	assert.NotEqual(t, before, ChangeHash(rec))
}

func TestChangeHashIgnoresIdentityFields(t *testing.T) {
	rec := baseRecord()
	before := ChangeHash(rec)

	rec.GovtSource = "OR"
	rec.BillNumber = "SB 9999"
	rec.DataSource = model.DataSourceCongressGov
	assert.Equal(t, before, ChangeHash(rec))
}

func TestChangeHashSensitiveToRawResponse(t *testing.T) {
	rec := baseRecord()
	before := ChangeHash(rec)

	// A change visible only in the raw payload still counts as an upstream
	// change, otherwise the stored copy would go stale.
	rec.RawAPIResponse = map[string]any{"calendar": []any{"hearing 2026-02-01"}}
	assert.NotEqual(t, before, ChangeHash(rec))
}

func TestChangeHashIgnoresAttachments(t *testing.T) {
	rec := baseRecord()
	before := ChangeHash(rec)

	// Texts version independently of the bill row; they never feed its hash.
	rec.Texts = []model.TextInput{{Content: model.TextContent("full text")}}
	assert.Equal(t, before, ChangeHash(rec))
}

func TestChangeHashNormalizesTimezones(t *testing.T) {
	utc := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))

	recA := baseRecord()
	recA.BillStatusDate = &utc
	recB := baseRecord()
	recB.BillStatusDate = &est

	assert.Equal(t, ChangeHash(recA), ChangeHash(recB))
}
