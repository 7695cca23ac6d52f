package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hupe1980/tripmesh/core"
)

func travelRouter(withDefault bool) *Router {
	opts := []func(o *Options){
		WithBinding(LabelIn("scholarship", "study"), "scholarship_pipeline"),
		WithBinding(LabelIs("holiday"), "holiday_agent"),
		WithBinding(LabelIs("weather"), "weather_agent"),
		WithBinding(LabelIs("city"), "city_info_agent"),
	}
	if withDefault {
		opts = append(opts, WithDefault("fallback_agent"))
	}
	return New(opts...)
}

func TestRoute_FirstMatchWins(t *testing.T) {
	r := New(
		WithBinding(TextContainsAny("paris"), "city_info_agent"),
		WithBinding(LabelIs("weather"), "weather_agent"),
	)

	ref, err := r.Route(Classification{Label: "weather", Text: "weather in Paris"})
	require.NoError(t, err)
	assert.Equal(t, "city_info_agent", ref.Name)
	assert.False(t, ref.Default)
}

func TestRoute_Default(t *testing.T) {
	ref, err := travelRouter(true).Route(Classification{Label: "cooking"})
	require.NoError(t, err)
	assert.Equal(t, "fallback_agent", ref.Name)
	assert.True(t, ref.Default)
}

func TestRoute_NoMatchNoDefault(t *testing.T) {
	_, err := travelRouter(false).Route(Classification{Label: "cooking"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRouting)

	var rerr *core.RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "cooking", rerr.Label)
}

func TestRoute_EmptyRouter(t *testing.T) {
	_, err := New().Route(Classification{Label: "weather"})
	assert.ErrorIs(t, err, core.ErrRouting)
}

func TestPredicates(t *testing.T) {
	c := Classification{Label: "Weather", Text: "Is it sunny in Rabat?"}

	assert.True(t, LabelIs("weather").Match(c))
	assert.True(t, LabelIn("city", "weather").Match(c))
	assert.False(t, LabelIn("city").Match(c))
	assert.True(t, TextContainsAny("SUNNY").Match(c))
	assert.True(t, Not(LabelIs("city")).Match(c))
	assert.True(t, AllOf(LabelIs("weather"), TextContainsAny("rabat")).Match(c))
	assert.False(t, AllOf(LabelIs("weather"), TextContainsAny("paris")).Match(c))
	assert.Equal(t, "label=weather", LabelIs("weather").String())
}

func TestHandlers(t *testing.T) {
	r := New(
		WithBinding(LabelIs("a"), "x"),
		WithBinding(LabelIs("b"), "x"),
		WithBinding(LabelIs("c"), "y"),
		WithDefault("z"),
	)
	assert.Equal(t, []string{"x", "y", "z"}, r.Handlers())
	assert.Len(t, r.Bindings(), 3)
	assert.Equal(t, "z", r.Default())
}

func TestFromRoutes(t *testing.T) {
	r, err := FromRoutes([]Route{
		{Labels: []string{"weather"}, Keywords: []string{"forecast"}, Handler: "weather_agent"},
		{Keywords: []string{"holiday"}, Handler: "holiday_agent"},
	}, "fallback_agent")
	require.NoError(t, err)

	ref, err := r.Route(Classification{Label: "other", Text: "forecast for Doha"})
	require.NoError(t, err)
	assert.Equal(t, "weather_agent", ref.Name)

	ref, err = r.Route(Classification{Text: "public holiday in France"})
	require.NoError(t, err)
	assert.Equal(t, "holiday_agent", ref.Name)

	_, err = FromRoutes([]Route{{Handler: "x"}}, "")
	assert.Error(t, err)

	_, err = FromRoutes([]Route{{Labels: []string{"x"}}}, "")
	assert.Error(t, err)
}

func TestRoute_DeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		labels := []string{"weather", "holiday", "city", "scholarship", "study", "other", ""}
		label := rapid.SampledFrom(labels).Draw(t, "label")
		text := rapid.String().Draw(t, "text")
		withDefault := rapid.Bool().Draw(t, "default")

		r := travelRouter(withDefault)
		c := Classification{Label: label, Text: text}

		ref1, err1 := r.Route(c)
		ref2, err2 := r.Route(c)

		if err1 != nil {
			if !withDefault && err2 != nil {
				return
			}
			t.Fatalf("unexpected routing error: %v / %v", err1, err2)
		}
		if ref1 != ref2 {
			t.Fatalf("routing not deterministic: %v vs %v", ref1, ref2)
		}
		if withDefault && ref1.Name == "" {
			t.Fatalf("default router returned empty handler")
		}
	})
}
