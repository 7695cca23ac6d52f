package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
	"github.com/hupe1980/tripmesh/tool"
)

// Tool names.
const (
	ToolGetWeather         = "get_weather"
	ToolGetPublicHolidays  = "get_public_holidays"
	ToolSearchCityInfo     = "search_city_info"
	ToolSearchScholarships = "search_scholarships"
)

// Providers bundles the data sources behind the assistant's tools.
type Providers struct {
	Weather      WeatherProvider
	Holidays     HolidayProvider
	CityInfo     CityInfoProvider
	Scholarships ScholarshipProvider

	// Now is used for the default holiday year.
	Now func() time.Time
}

// DefaultProviders returns the static in-memory providers.
func DefaultProviders() Providers {
	return Providers{
		Weather:      DefaultWeather,
		Holidays:     DefaultHolidays,
		CityInfo:     DefaultCityInfo,
		Scholarships: DefaultScholarships,
		Now:          time.Now,
	}
}

type cityArgs struct {
	City string `json:"city" description:"Name of the city"`
}

type holidayArgs struct {
	CountryCode string `json:"country_code" description:"ISO 3166-1 alpha-2 country code, e.g. MA, FR, US"`
	Year        *int   `json:"year" description:"Year to list holidays for; defaults to the current year"`
}

type scholarshipArgs struct {
	Country string `json:"country" description:"Country of origin of the student"`
	Field   string `json:"field,omitempty" description:"Field of study"`
	Level   string `json:"level" description:"Level of study" enum:"bachelor,master,phd"`
}

// NewTools builds the tool set exposing p.
func NewTools(p Providers, logger logging.Logger) (*tool.Set, error) {
	if p.Now == nil {
		p.Now = time.Now
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	tools := []tool.Tool{
		tool.NewFunctionToolFromStruct(ToolGetWeather, "Get the current weather for a city", cityArgs{},
			func(ctx context.Context, args map[string]any) (any, error) {
				city, _ := args["city"].(string)
				return p.Weather.CurrentWeather(ctx, city)
			}),

		tool.NewFunctionToolFromStruct(ToolGetPublicHolidays, "List the public holidays of a country", holidayArgs{},
			func(ctx context.Context, args map[string]any) (any, error) {
				code, _ := args["country_code"].(string)
				code = strings.ToUpper(code)

				year := p.Now().Year()
				if y, ok := args["year"]; ok && y != nil {
					n, err := core.ToInt64(y)
					if err != nil {
						return nil, tool.NewToolError(ToolGetPublicHolidays, "year must be an integer", tool.CodeValidation)
					}
					year = int(n)
				}

				holidays, err := p.Holidays.PublicHolidays(ctx, code, year)
				if errors.Is(err, ErrUnknownCountry) {
					return nil, tool.NewToolError(ToolGetPublicHolidays,
						fmt.Sprintf("Country code '%s' not found. Use ISO 3166-1 alpha-2 codes like: MA (Morocco), FR (France), US (USA), DE (Germany), GB (UK), JP (Japan)", code),
						tool.CodeNotFound)
				}

				return holidays, err
			}),

		tool.NewFunctionToolFromStruct(ToolSearchCityInfo, "Look up interesting facts about a city", cityArgs{},
			func(ctx context.Context, args map[string]any) (any, error) {
				city, _ := args["city"].(string)
				return p.CityInfo.CityInfo(ctx, city)
			}),

		tool.NewFunctionToolFromStruct(ToolSearchScholarships, "Search scholarships for a student", scholarshipArgs{},
			func(ctx context.Context, args map[string]any) (any, error) {
				var q ScholarshipQuery
				q.Country, _ = args["country"].(string)
				q.Field, _ = args["field"].(string)
				q.Level, _ = args["level"].(string)
				return p.Scholarships.SearchScholarships(ctx, q)
			}),
	}

	return tool.NewSet(tools, func(o *tool.SetOptions) { o.Logger = logger })
}
