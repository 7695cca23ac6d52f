package travel

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Scholarship is a funding opportunity.
type Scholarship struct {
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Deadline     string `json:"deadline"`
	Requirements string `json:"requirements"`
	Description  string `json:"description"`
}

// ScholarshipQuery narrows a scholarship search.
type ScholarshipQuery struct {
	Country string
	Field   string
	Level   string
}

// ScholarshipProvider searches for scholarships.
type ScholarshipProvider interface {
	SearchScholarships(ctx context.Context, q ScholarshipQuery) ([]Scholarship, error)
}

// StaticScholarships serves scholarship lists keyed by lower case country.
// Countries without a list get Fallback.
type StaticScholarships struct {
	ByCountry map[string][]Scholarship
	Fallback  []Scholarship
}

// SearchScholarships implements ScholarshipProvider.
func (s StaticScholarships) SearchScholarships(ctx context.Context, q ScholarshipQuery) ([]Scholarship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, ok := s.ByCountry[strings.ToLower(strings.TrimSpace(q.Country))]
	if !ok {
		list = s.Fallback
	}

	return append([]Scholarship(nil), list...), nil
}

// DefaultScholarships is the scholarship catalogue shipped with the assistant.
var DefaultScholarships = StaticScholarships{
	ByCountry: map[string][]Scholarship{
		"france": {
			{"Eiffel Excellence Scholarship", "€1,700/month + tuition", "January 10, 2025", "Under 25 for Master's, excellent academics", "French government scholarship for international students"},
			{"Émile Boutmy Scholarship (Sciences Po)", "€5,000-10,000/year", "February 23, 2025", "Non-EU, excellent academic record", "For undergraduate and master's students at Sciences Po Paris"},
			{"ENS Paris-Saclay International Scholarship", "€1,000/month", "December 1, 2024", "Master's level, research focus", "For international students in sciences"},
			{"HEC Paris MBA Scholarship", "Up to €30,000", "Rolling", "MBA admission, leadership experience", "Merit-based scholarship for MBA students"},
			{"INSEAD Scholarship", "€10,000-50,000", "Rolling", "MBA/Master's admission", "Various scholarships for INSEAD programs"},
		},
		"qatar": {
			{"Qatar Foundation Scholarship", "Full tuition + living expenses", "February 28, 2025", "Excellent academics, leadership", "For international students studying in Qatar"},
			{"Hamad Bin Khalifa University Scholarship", "Full funding + stipend", "March 1, 2025", "Admission to HBKU program", "For graduate studies at HBKU"},
			{"Qatar National Research Fund", "$50,000 grant", "April 30, 2025", "Research proposal, PhD level", "For doctoral research in Qatar"},
			{"Texas A&M Qatar Scholarship", "Full tuition", "January 15, 2025", "Engineering students", "For engineering programs at Texas A&M Qatar"},
			{"Carnegie Mellon Qatar Scholarship", "Partial to full tuition", "January 1, 2025", "CS/Business admission", "Merit-based for CMU Qatar students"},
		},
		"morocco": {
			{"Fulbright Morocco Scholarship", "Full funding", "February 1, 2025", "Moroccan citizen, leadership", "US government scholarship for graduate studies"},
			{"Chevening Scholarship", "Full tuition + £1,200/month", "November 7, 2025", "2+ years work experience", "UK government scholarship"},
			{"DAAD Germany Scholarship", "€934/month", "October 15, 2025", "Good academics, English/German", "German Academic Exchange Service"},
			{"Erasmus Mundus", "€25,000/year + tuition", "January 15, 2025", "Bachelor's degree", "EU-funded scholarship"},
			{"Turkish Government Scholarship", "Full tuition + stipend", "February 20, 2025", "Under 30 for Master's", "Türkiye Bursları scholarship"},
		},
	},
	Fallback: []Scholarship{
		{"Erasmus Mundus Joint Masters", "€25,000/year + tuition", "January 15, 2025", "Bachelor's degree, English proficiency", "EU-funded scholarship for international students"},
		{"Chevening Scholarship UK", "Full tuition + £1,200/month", "November 7, 2025", "2+ years work experience, leadership", "UK government's global scholarship"},
		{"DAAD Scholarship Germany", "€934/month + insurance", "October 15, 2025", "Good academic record", "German Academic Exchange Service"},
		{"Fulbright Foreign Student Program", "Full funding", "February 1, 2025", "Bachelor's degree, leadership", "US government scholarship"},
		{"Swiss Government Excellence Scholarship", "CHF 1,920/month", "December 2024", "Research proposal", "For doctoral research in Switzerland"},
	},
}

var amountNumber = regexp.MustCompile(`\d[\d,]*`)

// amountScore orders scholarship amounts. Full funding offers rank above any
// numeric amount; numeric amounts are compared by their yearly value.
func amountScore(amount string) (tier int, value float64) {
	a := strings.ToLower(strings.TrimSpace(amount))

	if strings.HasPrefix(a, "full") {
		return 2, 0
	}

	for _, m := range amountNumber.FindAllString(a, -1) {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err == nil && n > value {
			value = n
		}
	}

	if value == 0 {
		return 0, 0
	}

	if strings.Contains(a, "/month") {
		value *= 12
	}

	return 1, value
}

// RankScholarships returns the top n scholarships by amount, best first.
// Ties keep their input order.
func RankScholarships(list []Scholarship, n int) []Scholarship {
	ranked := append([]Scholarship(nil), list...)

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, vi := amountScore(ranked[i].Amount)
		tj, vj := amountScore(ranked[j].Amount)
		if ti != tj {
			return ti > tj
		}
		return vi > vj
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}
