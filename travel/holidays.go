package travel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnknownCountry is returned for country codes without holiday data.
var ErrUnknownCountry = errors.New("unknown country code")

// Holiday is one public holiday.
type Holiday struct {
	Date        string `json:"date"`
	Name        string `json:"name"`
	NameEnglish string `json:"name_english"`
	Fixed       bool   `json:"fixed"`
	Type        string `json:"type"`
}

// HolidayProvider lists the public holidays of a country in a year.
type HolidayProvider interface {
	PublicHolidays(ctx context.Context, countryCode string, year int) ([]Holiday, error)
}

// holidayRule yields the date of a holiday in a given year.
type holidayRule struct {
	local   string
	english string
	date    func(year int) time.Time
	fixed   bool
}

func fixed(month time.Month, day int, local, english string) holidayRule {
	return holidayRule{local: local, english: english, fixed: true, date: func(year int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}}
}

// nthWeekday is the n-th weekday of month; n < 0 counts from the end.
func nthWeekday(month time.Month, weekday time.Weekday, n int, local, english string) holidayRule {
	return holidayRule{local: local, english: english, date: func(year int) time.Time {
		if n > 0 {
			d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			for d.Weekday() != weekday {
				d = d.AddDate(0, 0, 1)
			}
			return d.AddDate(0, 0, 7*(n-1))
		}

		d := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		for d.Weekday() != weekday {
			d = d.AddDate(0, 0, -1)
		}
		return d.AddDate(0, 0, 7*(n+1))
	}}
}

// StaticHolidays computes holidays from fixed and weekday based rules. Movable
// religious holidays are not covered.
type StaticHolidays map[string][]holidayRule

// DefaultHolidays covers the countries the assistant knows about.
var DefaultHolidays = StaticHolidays{
	"FR": {
		fixed(time.January, 1, "Jour de l'an", "New Year's Day"),
		fixed(time.May, 1, "Fête du Travail", "Labour Day"),
		fixed(time.May, 8, "Victoire 1945", "Victory in Europe Day"),
		fixed(time.July, 14, "Fête nationale", "Bastille Day"),
		fixed(time.August, 15, "Assomption", "Assumption Day"),
		fixed(time.November, 1, "Toussaint", "All Saints' Day"),
		fixed(time.November, 11, "Armistice 1918", "Armistice Day"),
		fixed(time.December, 25, "Noël", "Christmas Day"),
	},
	"MA": {
		fixed(time.January, 1, "رأس السنة الميلادية", "New Year's Day"),
		fixed(time.January, 11, "تقديم وثيقة الاستقلال", "Proclamation of Independence"),
		fixed(time.May, 1, "عيد الشغل", "Labour Day"),
		fixed(time.July, 30, "عيد العرش", "Throne Day"),
		fixed(time.August, 14, "ذكرى استرجاع وادي الذهب", "Oued Ed-Dahab Day"),
		fixed(time.August, 20, "ذكرى ثورة الملك والشعب", "Revolution of the King and the People"),
		fixed(time.August, 21, "عيد الشباب", "Youth Day"),
		fixed(time.November, 6, "ذكرى المسيرة الخضراء", "Green March"),
		fixed(time.November, 18, "عيد الاستقلال", "Independence Day"),
	},
	"QA": {
		nthWeekday(time.February, time.Tuesday, 2, "اليوم الرياضي للدولة", "National Sports Day"),
		fixed(time.December, 18, "اليوم الوطني", "National Day"),
	},
	"US": {
		fixed(time.January, 1, "New Year's Day", "New Year's Day"),
		nthWeekday(time.January, time.Monday, 3, "Martin Luther King, Jr. Day", "Martin Luther King, Jr. Day"),
		nthWeekday(time.May, time.Monday, -1, "Memorial Day", "Memorial Day"),
		fixed(time.July, 4, "Independence Day", "Independence Day"),
		nthWeekday(time.September, time.Monday, 1, "Labor Day", "Labour Day"),
		nthWeekday(time.November, time.Thursday, 4, "Thanksgiving Day", "Thanksgiving Day"),
		fixed(time.December, 25, "Christmas Day", "Christmas Day"),
	},
	"DE": {
		fixed(time.January, 1, "Neujahr", "New Year's Day"),
		fixed(time.May, 1, "Tag der Arbeit", "Labour Day"),
		fixed(time.October, 3, "Tag der Deutschen Einheit", "German Unity Day"),
		fixed(time.December, 25, "Erster Weihnachtstag", "Christmas Day"),
		fixed(time.December, 26, "Zweiter Weihnachtstag", "St. Stephen's Day"),
	},
	"GB": {
		fixed(time.January, 1, "New Year's Day", "New Year's Day"),
		nthWeekday(time.May, time.Monday, 1, "Early May Bank Holiday", "Early May Bank Holiday"),
		nthWeekday(time.May, time.Monday, -1, "Spring Bank Holiday", "Spring Bank Holiday"),
		fixed(time.December, 25, "Christmas Day", "Christmas Day"),
		fixed(time.December, 26, "Boxing Day", "St. Stephen's Day"),
	},
	"JP": {
		fixed(time.January, 1, "元日", "New Year's Day"),
		nthWeekday(time.January, time.Monday, 2, "成人の日", "Coming of Age Day"),
		fixed(time.February, 11, "建国記念の日", "Foundation Day"),
		fixed(time.April, 29, "昭和の日", "Shōwa Day"),
		fixed(time.May, 3, "憲法記念日", "Constitution Memorial Day"),
		fixed(time.May, 5, "こどもの日", "Children's Day"),
		fixed(time.November, 3, "文化の日", "Culture Day"),
	},
}

// PublicHolidays implements HolidayProvider. Results are sorted by date.
func (h StaticHolidays) PublicHolidays(ctx context.Context, countryCode string, year int) ([]Holiday, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules, ok := h[strings.ToUpper(countryCode)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, countryCode)
	}

	out := make([]Holiday, 0, len(rules))
	for _, r := range rules {
		out = append(out, Holiday{
			Date:        r.date(year).Format(time.DateOnly),
			Name:        r.local,
			NameEnglish: r.english,
			Fixed:       r.fixed,
			Type:        "Public",
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out, nil
}

// countryCodes maps country names and common aliases to ISO 3166-1 alpha-2.
var countryCodes = map[string]string{
	"france":         "FR",
	"morocco":        "MA",
	"maroc":          "MA",
	"qatar":          "QA",
	"united states":  "US",
	"usa":            "US",
	"america":        "US",
	"germany":        "DE",
	"united kingdom": "GB",
	"uk":             "GB",
	"england":        "GB",
	"japan":          "JP",
	"spain":          "ES",
	"italy":          "IT",
}

// CountryCode returns the ISO 3166-1 alpha-2 code of a country name. A two
// letter input is treated as a code already.
func CountryCode(country string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(country))
	if code, ok := countryCodes[c]; ok {
		return code, true
	}
	if len(c) == 2 {
		return strings.ToUpper(c), true
	}
	return "", false
}
