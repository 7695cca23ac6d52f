package travel

import (
	"github.com/hupe1980/tripmesh/callback"
	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/engine"
	"github.com/hupe1980/tripmesh/logging"
	"github.com/hupe1980/tripmesh/router"
)

// DefaultRoutes is the routing table of the assistant.
func DefaultRoutes() []router.Route {
	return []router.Route{
		{Labels: []string{LabelScholarship}, Handler: ScholarshipPipeline},
		{Labels: []string{LabelHoliday}, Handler: HolidayAgent},
		{Labels: []string{LabelWeather}, Handler: WeatherAgent},
		{Labels: []string{LabelCityInfo}, Handler: CityInfoAgent},
	}
}

// NewRouter builds the default routing table. An empty defaultHandler leaves
// unmatched labels unrouted.
func NewRouter(defaultHandler string) (*router.Router, error) {
	return router.FromRoutes(DefaultRoutes(), defaultHandler)
}

// Register adds the assistant's handlers and callbacks to e.
//
// Callbacks registered:
//
//	before_handler_entry     global              entry counter (user:call_count, skip_processing)
//	before_model_invocation  weather_agent       prompt inspector
//	after_tool_execution     scholarship_search  result logger, non-empty result check
func Register(e *engine.Engine, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	handlers := []core.Handler{
		NewWeatherAgent(),
		NewHolidayAgent(),
		NewCityInfoAgent(),
		NewScholarshipPipeline(),
		NewFallbackAgent(),
	}

	for _, h := range handlers {
		if err := e.RegisterHandler(h.Name(), h); err != nil {
			return err
		}
	}

	callbacks := []struct {
		event  core.EventType
		target callback.Target
		name   string
		cb     callback.Callback
	}{
		{core.EventBeforeHandlerEntry, callback.Global, "entry_counter", callback.EntryCounter(callback.DefaultCounterKey)},
		{core.EventBeforeModelInvocation, callback.Handler(WeatherAgent), "prompt_inspector", callback.PromptInspector(logger)},
		{core.EventAfterToolExecution, callback.Handler(ScholarshipSearch), "tool_result_logger", callback.ToolResultLogger(logger)},
		{core.EventAfterToolExecution, callback.Handler(ScholarshipSearch), "require_results", callback.RequireNonEmptyResult()},
	}

	for _, c := range callbacks {
		if err := e.RegisterCallback(c.event, c.target, c.name, c.cb); err != nil {
			return err
		}
	}

	return nil
}
