package travel

import (
	"context"
	"strings"

	"github.com/hupe1980/tripmesh/core"
)

// Classification labels produced by KeywordClassifier.
const (
	LabelScholarship = "scholarship"
	LabelHoliday     = "holiday"
	LabelWeather     = "weather"
	LabelCityInfo    = "city_info"
	LabelUnknown     = "unknown"
)

// Labels lists every label a classifier for this domain may return.
var Labels = []string{LabelScholarship, LabelHoliday, LabelWeather, LabelCityInfo, LabelUnknown}

type keywordRule struct {
	label    string
	keywords []string
}

// Rules are checked in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{LabelScholarship, []string{"scholarship", "study", "master", "phd", "bachelor", "abroad", "funding", "education"}},
	{LabelHoliday, []string{"holiday", "holidays", "public holiday"}},
	{LabelWeather, []string{"weather", "activity", "activities", "outdoor"}},
	{LabelCityInfo, []string{"city", "culture", "history", "facts", "visit"}},
}

// KeywordClassifier labels requests by keyword. It is deterministic and
// needs no reasoning capability.
type KeywordClassifier struct{}

var _ core.Classifier = KeywordClassifier{}

// Classify implements core.Classifier.
func (KeywordClassifier) Classify(_ context.Context, text string) (string, error) {
	lower := strings.ToLower(text)

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label, nil
			}
		}
	}

	return LabelUnknown, nil
}
