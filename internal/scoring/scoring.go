// Package scoring assigns keyword-based relevance scores to bills.
//
// Scoring is deliberately simple and deterministic: each matched keyword
// adds a fixed amount to its category score, capped at 100, and the overall
// priority is the mean of the two category scores. Human review supersedes
// these scores entirely; the storage layer refuses to overwrite a manually
// reviewed priority row.
package scoring

import (
	"strings"

	"github.com/policypulse/policypulse/internal/model"
)

const (
	perKeyword        = 10
	maxScore          = 100
	categoryThreshold = 30
)

var healthKeywords = []string{
	"health", "public health", "healthcare", "medical", "medicaid", "medicare",
	"hospital", "clinic", "disease", "epidemic", "pandemic", "vaccination",
	"immunization", "mental health", "substance abuse", "opioid", "emergency services",
	"health department", "health district", "sanitation", "water quality", "air quality",
}

var localGovtKeywords = []string{
	"local government", "municipality", "municipal", "county", "city council",
	"town", "village", "school district", "special district", "zoning",
	"property tax", "local tax", "ordinance", "public works", "infrastructure",
	"law enforcement", "fire department", "parks", "library", "utility district",
}

// Scorer computes relevance scores for bill content.
type Scorer struct {
	health    []string
	localGovt []string
}

// New returns a scorer with the default keyword sets. Extra keywords extend
// the defaults, letting deployments tune relevance without a rebuild.
func New(extraHealth, extraLocalGovt []string) *Scorer {
	return &Scorer{
		health:    append(append([]string(nil), healthKeywords...), lower(extraHealth)...),
		localGovt: append(append([]string(nil), localGovtKeywords...), lower(extraLocalGovt)...),
	}
}

// Score rates a bill's title and description. Each keyword hit contributes
// 10 points to its category, capped at 100. Overall priority is the mean of
// the two category scores. A category is flagged in auto_categories when its
// score exceeds 30.
func (s *Scorer) Score(title string, description *string) model.AutoScores {
	text := strings.ToLower(title)
	if description != nil {
		text += " " + strings.ToLower(*description)
	}

	health := countMatches(text, s.health) * perKeyword
	localGovt := countMatches(text, s.localGovt) * perKeyword
	if health > maxScore {
		health = maxScore
	}
	if localGovt > maxScore {
		localGovt = maxScore
	}

	return model.AutoScores{
		PublicHealthRelevance: health,
		LocalGovtRelevance:    localGovt,
		OverallPriority:       (health + localGovt) / 2,
		AutoCategories: map[string]any{
			"health":     health > categoryThreshold,
			"local_govt": localGovt > categoryThreshold,
		},
	}
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
