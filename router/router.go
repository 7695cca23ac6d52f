// Package router maps classified requests to handler references.
//
// A Router holds an ordered table of (predicate, handler) bindings and an
// optional default handler. Route evaluates the bindings in order and the
// first match wins. Routing is deterministic and has no side effects: the
// same classification and the same table always produce the same reference.
package router

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/tripmesh/core"
)

// Classification is the externally produced classification of a request.
type Classification struct {
	Label string
	Text  string
}

// Predicate decides whether a binding applies to a classification.
type Predicate interface {
	Match(c Classification) bool
	String() string
}

type predicateFunc struct {
	desc string
	fn   func(c Classification) bool
}

func (p predicateFunc) Match(c Classification) bool { return p.fn(c) }
func (p predicateFunc) String() string              { return p.desc }

// LabelIs matches a single label, case-insensitively.
func LabelIs(label string) Predicate {
	return predicateFunc{
		desc: "label=" + label,
		fn:   func(c Classification) bool { return strings.EqualFold(c.Label, label) },
	}
}

// LabelIn matches any of the labels.
func LabelIn(labels ...string) Predicate {
	labels = slices.Clone(labels)
	return predicateFunc{
		desc: "label in [" + strings.Join(labels, ",") + "]",
		fn: func(c Classification) bool {
			return slices.ContainsFunc(labels, func(l string) bool { return strings.EqualFold(c.Label, l) })
		},
	}
}

// TextContainsAny matches when the request text contains one of the words, case-insensitively.
func TextContainsAny(words ...string) Predicate {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	return predicateFunc{
		desc: "text contains any of [" + strings.Join(lowered, ",") + "]",
		fn: func(c Classification) bool {
			text := strings.ToLower(c.Text)
			return slices.ContainsFunc(lowered, func(w string) bool { return strings.Contains(text, w) })
		},
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return predicateFunc{desc: "not(" + p.String() + ")", fn: func(c Classification) bool { return !p.Match(c) }}
}

// AllOf matches when every predicate matches.
func AllOf(ps ...Predicate) Predicate {
	descs := make([]string, len(ps))
	for i, p := range ps {
		descs[i] = p.String()
	}
	return predicateFunc{
		desc: "all(" + strings.Join(descs, ", ") + ")",
		fn: func(c Classification) bool {
			for _, p := range ps {
				if !p.Match(c) {
					return false
				}
			}
			return true
		},
	}
}

// Binding selects Handler when Predicate matches.
type Binding struct {
	Predicate Predicate
	Handler   string
}

func (b Binding) String() string {
	return fmt.Sprintf("%s -> %s", b.Predicate, b.Handler)
}

// Options configures a Router.
type Options struct {
	Bindings []Binding
	// Default is selected when no binding matches. Empty means no default.
	Default string
}

// WithBinding appends a binding.
func WithBinding(p Predicate, handler string) func(o *Options) {
	return func(o *Options) {
		o.Bindings = append(o.Bindings, Binding{Predicate: p, Handler: handler})
	}
}

// WithDefault sets the fallback handler.
func WithDefault(handler string) func(o *Options) {
	return func(o *Options) {
		o.Default = handler
	}
}

// Router is immutable once created and safe for concurrent use.
type Router struct {
	bindings []Binding
	def      string
}

// New creates a router from options.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Router{bindings: slices.Clone(opts.Bindings), def: opts.Default}
}

// Route returns the handler of the first matching binding, the default when
// none matches, or a *core.RoutingError.
func (r *Router) Route(c Classification) (core.HandlerRef, error) {
	for _, b := range r.bindings {
		if b.Predicate.Match(c) {
			return core.HandlerRef{Name: b.Handler, Binding: b.Predicate.String()}, nil
		}
	}

	if r.def != "" {
		return core.HandlerRef{Name: r.def, Binding: "default", Default: true}, nil
	}

	return core.HandlerRef{}, &core.RoutingError{Label: c.Label}
}

// Bindings returns a copy of the binding table in evaluation order.
func (r *Router) Bindings() []Binding { return slices.Clone(r.bindings) }

// Default returns the fallback handler, or "" when none is configured.
func (r *Router) Default() string { return r.def }

// Handlers returns every handler name the router can select, default last.
func (r *Router) Handlers() []string {
	var out []string
	for _, b := range r.bindings {
		if !slices.Contains(out, b.Handler) {
			out = append(out, b.Handler)
		}
	}
	if r.def != "" && !slices.Contains(out, r.def) {
		out = append(out, r.def)
	}
	return out
}
