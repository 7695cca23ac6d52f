package travel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tripmesh/tool"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"weather in Paris", LabelWeather},
		{"What outdoor activities can I do in Doha?", LabelWeather},
		{"What are the public holidays in Morocco?", LabelHoliday},
		{"Holidays in Japan", LabelHoliday},
		{"I want scholarships to study in France", LabelScholarship},
		{"PhD funding for physics", LabelScholarship},
		{"Tell me about the history of Marrakech", LabelCityInfo},
		{"I plan to visit Tokyo", LabelCityInfo},
		{"tell me a joke", LabelUnknown},
		{"", LabelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := KeywordClassifier{}.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeWMO(t *testing.T) {
	tests := []struct {
		code      int
		condition string
	}{
		{0, "Clear"},
		{1, "Mostly Clear"},
		{48, "Foggy"},
		{55, "Heavy Drizzle"},
		{63, "Rain"},
		{75, "Heavy Snow"},
		{81, "Showers"},
		{96, "Thunderstorm"},
		{99, "Severe Thunderstorm"},
		{42, "Unknown"},
	}

	for _, tt := range tests {
		condition, description := DescribeWMO(tt.code)
		assert.Equal(t, tt.condition, condition, "code %d", tt.code)
		assert.NotEmpty(t, description)
	}
}

func TestClassifyActivities(t *testing.T) {
	tests := []struct {
		name string
		w    Weather
		want ActivityKind
	}{
		{"hot and clear", Weather{Temperature: 33, Condition: "Clear"}, ActivitiesOutdoor},
		{"warm and mostly clear", Weather{Temperature: 21, Condition: "Mostly Clear"}, ActivitiesOutdoor},
		{"warm and sunny", Weather{Temperature: 25, Condition: "Sunny"}, ActivitiesOutdoor},
		{"cold", Weather{Temperature: 9, Condition: "Cloudy"}, ActivitiesIndoor},
		{"mild and showers", Weather{Temperature: 16, Condition: "Light Showers"}, ActivitiesIndoor},
		{"warm but raining", Weather{Temperature: 22, Condition: "Light Rain"}, ActivitiesIndoor},
		{"warm and cloudy", Weather{Temperature: 25, Condition: "Cloudy"}, ActivitiesMixed},
		{"mild and partly cloudy", Weather{Temperature: 18, Condition: "Partly Cloudy"}, ActivitiesMixed},
		{"exactly 20 and clear", Weather{Temperature: 20, Condition: "Clear"}, ActivitiesMixed},
		{"unknown fallback", Weather{Temperature: 20, Condition: "Unknown"}, ActivitiesMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyActivities(tt.w))
		})
	}

	kind, suggestions := SuggestActivities(Weather{Temperature: 33, Condition: "Clear"})
	assert.Equal(t, ActivitiesOutdoor, kind)
	assert.Len(t, suggestions, 3)
}

func TestStaticWeather(t *testing.T) {
	ctx := context.Background()

	w, err := DefaultWeather.CurrentWeather(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", w.City)
	assert.Equal(t, "France", w.Country)
	assert.InDelta(t, 14.0, w.Temperature, 0.001)
	assert.Equal(t, "Light Rain", w.Condition)

	w, err = DefaultWeather.CurrentWeather(ctx, "New York")
	require.NoError(t, err)
	assert.Equal(t, "New York", w.City)
	assert.Equal(t, "Light Showers", w.Condition)

	w, err = DefaultWeather.CurrentWeather(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, "Atlantis", w.City)
	assert.InDelta(t, 20.0, w.Temperature, 0.001)
	assert.Equal(t, "Unknown", w.Condition)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = DefaultWeather.CurrentWeather(cancelled, "paris")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticHolidays(t *testing.T) {
	ctx := context.Background()

	qa, err := DefaultHolidays.PublicHolidays(ctx, "qa", 2025)
	require.NoError(t, err)
	require.Len(t, qa, 2)
	assert.Equal(t, "2025-02-11", qa[0].Date)
	assert.Equal(t, "National Sports Day", qa[0].NameEnglish)
	assert.False(t, qa[0].Fixed)
	assert.Equal(t, "2025-12-18", qa[1].Date)
	assert.True(t, qa[1].Fixed)

	us, err := DefaultHolidays.PublicHolidays(ctx, "US", 2025)
	require.NoError(t, err)

	dates := map[string]string{}
	for _, h := range us {
		dates[h.NameEnglish] = h.Date
	}
	assert.Equal(t, "2025-05-26", dates["Memorial Day"])
	assert.Equal(t, "2025-09-01", dates["Labour Day"])
	assert.Equal(t, "2025-11-27", dates["Thanksgiving Day"])

	for i := 1; i < len(us); i++ {
		assert.LessOrEqual(t, us[i-1].Date, us[i].Date)
	}

	_, err = DefaultHolidays.PublicHolidays(ctx, "ES", 2025)
	assert.ErrorIs(t, err, ErrUnknownCountry)
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		in   string
		code string
		ok   bool
	}{
		{"France", "FR", true},
		{"morocco", "MA", true},
		{"UK", "GB", true},
		{"United States", "US", true},
		{"de", "DE", true},
		{"Spain", "ES", true},
		{"Narnia", "", false},
	}

	for _, tt := range tests {
		code, ok := CountryCode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.code, code, tt.in)
	}
}

func TestStaticCityInfo(t *testing.T) {
	info, err := DefaultCityInfo.CityInfo(context.Background(), "Marrakech")
	require.NoError(t, err)
	assert.Equal(t, "Marrakech", info.City)
	assert.Len(t, info.Facts, 3)

	info.Facts[0] = "changed"
	again, _ := DefaultCityInfo.CityInfo(context.Background(), "marrakech")
	assert.NotEqual(t, "changed", again.Facts[0])

	unknown, err := DefaultCityInfo.CityInfo(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, unknown.Facts)
	assert.Contains(t, unknown.Summary, "Atlantis")
}

func TestSearchScholarships(t *testing.T) {
	ctx := context.Background()

	fr, err := DefaultScholarships.SearchScholarships(ctx, ScholarshipQuery{Country: "France", Level: "master"})
	require.NoError(t, err)
	assert.Len(t, fr, 5)
	assert.Equal(t, "Eiffel Excellence Scholarship", fr[0].Name)

	other, err := DefaultScholarships.SearchScholarships(ctx, ScholarshipQuery{Country: "Brazil"})
	require.NoError(t, err)
	assert.Equal(t, "Erasmus Mundus Joint Masters", other[0].Name)

	empty, err := StaticScholarships{}.SearchScholarships(ctx, ScholarshipQuery{Country: "France"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRankScholarships(t *testing.T) {
	names := func(list []Scholarship) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.Name
		}
		return out
	}

	tests := []struct {
		country string
		want    []string
	}{
		{"france", []string{"INSEAD Scholarship", "HEC Paris MBA Scholarship", "Eiffel Excellence Scholarship"}},
		{"qatar", []string{"Qatar Foundation Scholarship", "Hamad Bin Khalifa University Scholarship", "Texas A&M Qatar Scholarship"}},
		{"morocco", []string{"Fulbright Morocco Scholarship", "Chevening Scholarship", "Turkish Government Scholarship"}},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			got := RankScholarships(DefaultScholarships.ByCountry[tt.country], TopScholarships)
			assert.Equal(t, tt.want, names(got))
		})
	}

	t.Run("fewer than n", func(t *testing.T) {
		in := []Scholarship{{Name: "a", Amount: "€100"}}
		assert.Equal(t, []string{"a"}, names(RankScholarships(in, 3)))
	})

	t.Run("input untouched", func(t *testing.T) {
		in := []Scholarship{{Name: "low", Amount: "€100"}, {Name: "high", Amount: "€900"}}
		_ = RankScholarships(in, 3)
		assert.Equal(t, "low", in[0].Name)
	})
}

func TestAmountScore(t *testing.T) {
	tests := []struct {
		amount string
		tier   int
		value  float64
	}{
		{"Full funding", 2, 0},
		{"€1,700/month + tuition", 1, 20400},
		{"€5,000-10,000/year", 1, 10000},
		{"$50,000 grant", 1, 50000},
		{"CHF 1,920/month", 1, 23040},
		{"Partial to full tuition", 0, 0},
	}

	for _, tt := range tests {
		tier, value := amountScore(tt.amount)
		assert.Equal(t, tt.tier, tier, tt.amount)
		assert.InDelta(t, tt.value, value, 0.001, tt.amount)
	}
}

func TestExtract(t *testing.T) {
	assert.Equal(t, "Paris", ExtractCity("weather in Paris"))
	assert.Equal(t, "New York", ExtractCity("what's it like in new york today?"))
	assert.Equal(t, "Lisbon", ExtractCity("weather in Lisbon today"))
	assert.Equal(t, "", ExtractCity("parisian weather please"))

	assert.Equal(t, "France", ExtractCountry("scholarships in France"))
	assert.Equal(t, "United States", ExtractCountry("holidays in the united states"))
	assert.Equal(t, "UK", ExtractCountry("bank holidays in the UK"))
	assert.Equal(t, "", ExtractCountry("scholarships please"))

	assert.Equal(t, "computer science", ExtractField("master in Computer Science"))
	assert.Equal(t, AnyField, ExtractField("any scholarship"))

	assert.Equal(t, "phd", ExtractLevel("PhD funding"))
	assert.Equal(t, "bachelor", ExtractLevel("undergraduate study"))
	assert.Equal(t, "master", ExtractLevel("master's programme"))
	assert.Equal(t, DefaultStudyLevel, ExtractLevel("study abroad"))
}

func TestNewTools_ScholarshipArguments(t *testing.T) {
	tools, err := NewTools(DefaultProviders(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	found, err := tools.Invoke(ctx, ToolSearchScholarships, map[string]any{"country": "Qatar", "level": "phd"})
	require.NoError(t, err)
	assert.NotEmpty(t, found)

	for name, args := range map[string]map[string]any{
		"unknown level":   {"country": "Qatar", "level": "postdoc"},
		"missing country": {"level": "master"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tools.Invoke(ctx, ToolSearchScholarships, args)

			var te *tool.ToolError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tool.CodeValidation, te.Code)
		})
	}

	var decl tool.Declaration
	for _, d := range tools.Declarations() {
		if d.Name == ToolSearchScholarships {
			decl = d
		}
	}
	assert.Equal(t, []string{"country", "level"}, decl.Parameters["required"])
}
