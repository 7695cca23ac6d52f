package router

import "fmt"

// Route is a declarative binding, as read from configuration. A route
// matches when the label matches one of Labels or, if Keywords is set, the
// text contains one of Keywords.
type Route struct {
	Labels   []string `yaml:"labels"`
	Keywords []string `yaml:"keywords"`
	Handler  string   `yaml:"handler"`
}

// FromRoutes builds a router from declarative routes.
func FromRoutes(routes []Route, defaultHandler string) (*Router, error) {
	optFns := make([]func(o *Options), 0, len(routes)+1)

	for i, rt := range routes {
		if rt.Handler == "" {
			return nil, fmt.Errorf("route %d: handler is required", i)
		}

		var p Predicate
		switch {
		case len(rt.Labels) > 0 && len(rt.Keywords) > 0:
			p = anyOf(LabelIn(rt.Labels...), TextContainsAny(rt.Keywords...))
		case len(rt.Labels) > 0:
			p = LabelIn(rt.Labels...)
		case len(rt.Keywords) > 0:
			p = TextContainsAny(rt.Keywords...)
		default:
			return nil, fmt.Errorf("route %d (%s): labels or keywords are required", i, rt.Handler)
		}

		optFns = append(optFns, WithBinding(p, rt.Handler))
	}

	if defaultHandler != "" {
		optFns = append(optFns, WithDefault(defaultHandler))
	}

	return New(optFns...), nil
}

func anyOf(a, b Predicate) Predicate {
	return predicateFunc{
		desc: a.String() + " or " + b.String(),
		fn:   func(c Classification) bool { return a.Match(c) || b.Match(c) },
	}
}
