package travel

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// DefaultStudyLevel is assumed when a request names no level.
const DefaultStudyLevel = "master"

// AnyField is used when a request names no field of study.
const AnyField = "any field"

var knownCities = func() []string {
	seen := map[string]bool{}
	for c := range DefaultWeather {
		seen[c] = true
	}
	for c := range DefaultCityInfo {
		seen[c] = true
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}

	// Longest first so "new york" wins over any shorter name it contains.
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})

	return out
}()

var placeAfterPreposition = regexp.MustCompile(`\b(?:in|at|for|about|to|of)\s+([A-Z][\p{L}'-]*(?:\s+[A-Z][\p{L}'-]*)*)`)

// ExtractCity finds the city a request is about. Known cities are matched
// case-insensitively; otherwise the first capitalised place name after a
// preposition is used.
func ExtractCity(text string) string {
	lower := strings.ToLower(text)
	for _, c := range knownCities {
		if containsWord(lower, c) {
			return titleCase(c)
		}
	}

	if m := placeAfterPreposition.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

var countryNames = func() []string {
	out := make([]string, 0, len(countryCodes))
	for name := range countryCodes {
		if len(name) > 3 {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// ExtractCountry finds a country name in text and returns it in title case.
func ExtractCountry(text string) string {
	lower := strings.ToLower(text)
	for _, name := range countryNames {
		if containsWord(lower, name) {
			return titleCase(name)
		}
	}

	for _, alias := range []string{"uk", "usa"} {
		if containsWord(lower, alias) {
			return strings.ToUpper(alias)
		}
	}

	return ""
}

var studyFields = []string{
	"computer science", "data science", "artificial intelligence", "engineering",
	"medicine", "business", "economics", "law", "mathematics", "physics",
	"biology", "chemistry", "architecture", "arts",
}

// ExtractField finds the field of study, or AnyField.
func ExtractField(text string) string {
	lower := strings.ToLower(text)
	for _, f := range studyFields {
		if containsWord(lower, f) {
			return f
		}
	}
	return AnyField
}

// ExtractLevel finds the study level: bachelor, master or phd.
func ExtractLevel(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "phd"), strings.Contains(lower, "doctora"):
		return "phd"
	case strings.Contains(lower, "bachelor"), strings.Contains(lower, "undergraduate"):
		return "bachelor"
	case strings.Contains(lower, "master"):
		return "master"
	}
	return DefaultStudyLevel
}

func containsWord(haystack, needle string) bool {
	for i := 0; ; {
		idx := strings.Index(haystack[i:], needle)
		if idx < 0 {
			return false
		}
		start := i + idx
		end := start + len(needle)
		if boundary(haystack, start-1) && boundary(haystack, end) {
			return true
		}
		i = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
