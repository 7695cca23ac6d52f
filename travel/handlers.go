package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/pipeline"
)

// Handler names.
const (
	WeatherAgent        = "weather_agent"
	HolidayAgent        = "holiday_agent"
	CityInfoAgent       = "city_info_agent"
	FallbackAgent       = "fallback_agent"
	ScholarshipPipeline = "scholarship_pipeline"
	ScholarshipSearch   = "scholarship_search"
	ScholarshipRank     = "scholarship_rank"
	ScholarshipSummary  = "scholarship_summary"
)

// Session keys shared by the handlers.
const (
	KeyLastCity           = "last_city"
	KeyLastCountry        = "last_country"
	KeyUserCountry        = "user_country"
	KeyStudyField         = "study_field"
	KeyStudyLevel         = "study_level"
	KeyScholarshipResults = "scholarship_results"
	KeyRankedScholarships = "ranked_scholarships"
)

// TopScholarships is how many scholarships the rank stage keeps.
const TopScholarships = 3

// FallbackText answers requests outside the assistant's domain.
const FallbackText = "I specialise in travel and study abroad. Ask me about the weather and activities in a city, " +
	"public holidays in a country, facts about a city, or scholarships for studying abroad."

// NewWeatherAgent suggests activities for the weather in the requested city.
func NewWeatherAgent() core.Handler {
	return pipeline.NewSimple(WeatherAgent, func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		city := ExtractCity(ec.Request.Text)
		if city == "" {
			city = core.GetString(ctx, ec.State, core.ScopeSession, KeyLastCity)
		}
		if city == "" {
			return core.Outcome{Text: "Which city would you like the weather for?"}, nil
		}

		res, err := ec.InvokeTool(ctx, ToolGetWeather, map[string]any{"city": city})
		if err != nil {
			return core.Outcome{}, err
		}

		w, ok := res.(Weather)
		if !ok {
			return core.Outcome{}, fmt.Errorf("unexpected %s result %T", ToolGetWeather, res)
		}

		if err := ec.State.Set(ctx, core.ScopeSession, KeyLastCity, w.City); err != nil {
			return core.Outcome{}, err
		}

		kind, suggestions := SuggestActivities(w)

		var b strings.Builder
		fmt.Fprintf(&b, "Weather in %s: %.0f%s, %s.\n", w.City, w.Temperature, w.Unit, w.Condition)
		fmt.Fprintf(&b, "Suggested %s activities:\n", kind)
		for i, s := range suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
		draft := strings.TrimRight(b.String(), "\n")

		text, err := polish(ctx, ec, "Rewrite this weather report and activity list in a friendly tone:\n"+draft, draft)
		if err != nil {
			return core.Outcome{}, err
		}

		return core.Outcome{Text: text, Data: map[string]any{
			"city":        w.City,
			"temperature": w.Temperature,
			"condition":   w.Condition,
			"activities":  string(kind),
		}}, nil
	})
}

// NewHolidayAgent lists the public holidays of the requested country.
func NewHolidayAgent() core.Handler {
	return pipeline.NewSimple(HolidayAgent, func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		country := ExtractCountry(ec.Request.Text)
		if country == "" {
			country = core.GetString(ctx, ec.State, core.ScopeSession, KeyLastCountry)
		}
		if country == "" {
			return core.Outcome{Text: "Which country's public holidays would you like to see?"}, nil
		}

		code, ok := CountryCode(country)
		if !ok {
			return core.Outcome{}, fmt.Errorf("no country code known for %q", country)
		}

		res, err := ec.InvokeTool(ctx, ToolGetPublicHolidays, map[string]any{"country_code": code})
		if err != nil {
			return core.Outcome{}, err
		}

		holidays, ok := res.([]Holiday)
		if !ok {
			return core.Outcome{}, fmt.Errorf("unexpected %s result %T", ToolGetPublicHolidays, res)
		}

		if err := ec.State.Set(ctx, core.ScopeSession, KeyLastCountry, country); err != nil {
			return core.Outcome{}, err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Public holidays in %s (%s):\n", country, code)
		for _, h := range holidays {
			fmt.Fprintf(&b, "- %s: %s", h.Date, h.NameEnglish)
			if h.Name != h.NameEnglish {
				fmt.Fprintf(&b, " (%s)", h.Name)
			}
			b.WriteString("\n")
		}

		return core.Outcome{
			Text: strings.TrimRight(b.String(), "\n"),
			Data: map[string]any{"country_code": code, "count": len(holidays)},
		}, nil
	})
}

// NewCityInfoAgent shares three facts about the requested city.
func NewCityInfoAgent() core.Handler {
	return pipeline.NewSimple(CityInfoAgent, func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		city := ExtractCity(ec.Request.Text)
		if city == "" {
			city = core.GetString(ctx, ec.State, core.ScopeSession, KeyLastCity)
		}
		if city == "" {
			return core.Outcome{Text: "Which city would you like to know more about?"}, nil
		}

		res, err := ec.InvokeTool(ctx, ToolSearchCityInfo, map[string]any{"city": city})
		if err != nil {
			return core.Outcome{}, err
		}

		info, ok := res.(CityInfo)
		if !ok {
			return core.Outcome{}, fmt.Errorf("unexpected %s result %T", ToolSearchCityInfo, res)
		}

		if err := ec.State.Set(ctx, core.ScopeSession, KeyLastCity, info.City); err != nil {
			return core.Outcome{}, err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s", info.City, info.Summary)
		for i, f := range info.Facts {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "\n%d. %s", i+1, f)
		}
		draft := b.String()

		text, err := polish(ctx, ec, "Present these city facts to a traveller in a few lively sentences:\n"+draft, draft)
		if err != nil {
			return core.Outcome{}, err
		}

		return core.Outcome{Text: text, Data: map[string]any{"city": info.City}}, nil
	})
}

// NewFallbackAgent answers requests no other handler is bound to.
func NewFallbackAgent() core.Handler {
	return pipeline.NewSimple(FallbackAgent, func(context.Context, *core.ExecutionContext) (core.Outcome, error) {
		return core.Outcome{Text: FallbackText}, nil
	})
}

// polish asks the reasoning capability to rewrite draft. Without a reasoner,
// or when a callback skipped the call without a response, draft is kept.
func polish(ctx context.Context, ec *core.ExecutionContext, prompt, draft string) (string, error) {
	text, err := ec.InvokeReasoning(ctx, prompt)
	switch {
	case errors.Is(err, core.ErrNoReasoner):
		return draft, nil
	case err != nil:
		return "", err
	case strings.TrimSpace(text) == "":
		return draft, nil
	}
	return text, nil
}
