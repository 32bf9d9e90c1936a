package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestScoreKeywordAccumulation(t *testing.T) {
	s := New(nil, nil)

	got := s.Score("Public health funding for rural hospital clinics",
		strPtr("Expands medicaid coverage and vaccination programs"))

	// health, public health, hospital, clinic, medicaid, vaccination
	assert.Equal(t, 60, got.PublicHealthRelevance)
	assert.Equal(t, 0, got.LocalGovtRelevance)
	assert.Equal(t, 30, got.OverallPriority)
}

func TestScoreCapsAtHundred(t *testing.T) {
	s := New(nil, nil)

	desc := "health healthcare medical medicaid medicare hospital clinic disease " +
		"epidemic pandemic vaccination immunization opioid sanitation"
	got := s.Score("Public health omnibus", strPtr(desc))

	assert.Equal(t, 100, got.PublicHealthRelevance)
}

func TestScoreCategoryFlags(t *testing.T) {
	s := New(nil, nil)

	got := s.Score("Municipal zoning ordinance for county infrastructure",
		strPtr("Adjusts property tax rules for school district budgets"))

	require.NotNil(t, got.AutoCategories)
	assert.Equal(t, false, got.AutoCategories["health"])
	assert.Equal(t, true, got.AutoCategories["local_govt"])
	assert.Greater(t, got.LocalGovtRelevance, 30)
}

func TestScoreNoMatches(t *testing.T) {
	s := New(nil, nil)

	got := s.Score("An act concerning maritime navigation", nil)

	assert.Equal(t, 0, got.PublicHealthRelevance)
	assert.Equal(t, 0, got.LocalGovtRelevance)
	assert.Equal(t, 0, got.OverallPriority)
	assert.Equal(t, false, got.AutoCategories["health"])
	assert.Equal(t, false, got.AutoCategories["local_govt"])
}

func TestScoreExtraKeywords(t *testing.T) {
	s := New([]string{"Telehealth"}, nil)

	got := s.Score("Telehealth expansion act", nil)

	// "health" matches as a substring of telehealth, plus the extra keyword.
	assert.Equal(t, 20, got.PublicHealthRelevance)
}

func TestScoreCaseInsensitive(t *testing.T) {
	s := New(nil, nil)

	upper := s.Score("PUBLIC HEALTH EMERGENCY", nil)
	lowerCase := s.Score("public health emergency", nil)

	assert.Equal(t, lowerCase, upper)
}
