// Package travel is the travel and study assistant built on the tripmesh core.
//
// It contributes a keyword classifier, static data providers, the tools
// exposing them (get_weather, get_public_holidays, search_city_info,
// search_scholarships), the handlers bound by the default routing table and
// the callbacks the assistant registers:
//
//	label        handler               kind
//	weather      weather_agent         simple
//	holiday      holiday_agent         simple
//	city_info    city_info_agent       simple
//	scholarship  scholarship_pipeline  pipeline (search, rank, summary)
//	(default)    fallback_agent        simple
//
// Providers are interfaces so that network backed implementations can be
// substituted. The bundled implementations serve fixed in-memory data.
package travel
