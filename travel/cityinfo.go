package travel

import (
	"context"
	"fmt"
	"strings"
)

// CityInfo summarises a city for visitors.
type CityInfo struct {
	City    string   `json:"city"`
	Summary string   `json:"summary"`
	Facts   []string `json:"facts"`
}

// CityInfoProvider looks up information about a city.
type CityInfoProvider interface {
	CityInfo(ctx context.Context, city string) (CityInfo, error)
}

// StaticCityInfo is a fact book keyed by lower case city name.
type StaticCityInfo map[string]CityInfo

// DefaultCityInfo is the fact book shipped with the assistant.
var DefaultCityInfo = StaticCityInfo{
	"paris": {
		City:    "Paris",
		Summary: "Capital of France, known for art, gastronomy and its riverside boulevards.",
		Facts: []string{
			"The Eiffel Tower was built for the 1889 World's Fair and was meant to be temporary.",
			"The Louvre is the most visited art museum in the world.",
			"Paris has more than 400 parks and gardens.",
		},
	},
	"marrakech": {
		City:    "Marrakech",
		Summary: "Imperial city of Morocco at the foot of the Atlas Mountains.",
		Facts: []string{
			"The Jemaa el-Fnaa square is a UNESCO Masterpiece of Oral and Intangible Heritage.",
			"The medina walls were built in the 12th century from red clay.",
			"The Koutoubia minaret inspired the Giralda of Seville.",
		},
	},
	"casablanca": {
		City:    "Casablanca",
		Summary: "Morocco's largest city and economic capital on the Atlantic coast.",
		Facts: []string{
			"The Hassan II Mosque has one of the tallest minarets in the world.",
			"The city's art deco architecture dates from the early 20th century.",
			"Its port is one of the largest artificial ports in Africa.",
		},
	},
	"doha": {
		City:    "Doha",
		Summary: "Capital of Qatar on the Persian Gulf.",
		Facts: []string{
			"The Museum of Islamic Art was designed by I. M. Pei.",
			"Souq Waqif is built on the site of a century-old trading market.",
			"Education City hosts branch campuses of several international universities.",
		},
	},
	"london": {
		City:    "London",
		Summary: "Capital of the United Kingdom, on the River Thames.",
		Facts: []string{
			"The London Underground is the oldest metro system in the world.",
			"Most national museums in London have free entry.",
			"Over 300 languages are spoken in the city.",
		},
	},
	"tokyo": {
		City:    "Tokyo",
		Summary: "Capital of Japan and one of the largest metropolitan areas in the world.",
		Facts: []string{
			"Shinjuku Station is the busiest railway station in the world.",
			"Tokyo was called Edo until 1868.",
			"The city has more Michelin starred restaurants than any other.",
		},
	},
}

// CityInfo implements CityInfoProvider.
func (s StaticCityInfo) CityInfo(ctx context.Context, city string) (CityInfo, error) {
	if err := ctx.Err(); err != nil {
		return CityInfo{}, err
	}

	info, ok := s[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return CityInfo{
			City:    city,
			Summary: fmt.Sprintf("No facts about %s are available yet.", city),
		}, nil
	}

	info.Facts = append([]string(nil), info.Facts...)

	return info, nil
}
