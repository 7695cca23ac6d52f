// Package tripmesh assembles the travel and study assistant from
// configuration: the orchestration engine, the travel handlers and tools, the
// user scope backend, the reasoning provider and the observability sinks.
//
// Most applications only need
//
//	cfg, err := config.Load("tripmesh.yaml")
//	a, err := tripmesh.NewAssistant(ctx, cfg)
//	defer a.Close()
//	resp, err := a.HandleRequest(ctx, sessionID, "weather in Paris")
//
// Everything below the Assistant is available for custom assemblies: the
// engine package is domain independent and the travel package is one user of it.
package tripmesh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/tripmesh/config"
	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/engine"
	"github.com/hupe1980/tripmesh/logging"
	"github.com/hupe1980/tripmesh/observability"
	"github.com/hupe1980/tripmesh/reasoning"
	"github.com/hupe1980/tripmesh/reasoning/anthropic"
	"github.com/hupe1980/tripmesh/reasoning/openai"
	"github.com/hupe1980/tripmesh/router"
	"github.com/hupe1980/tripmesh/session"
	"github.com/hupe1980/tripmesh/state"
	"github.com/hupe1980/tripmesh/travel"
)

// Options overrides parts of the assembly. Unset fields are built from the
// configuration.
type Options struct {
	Logger logging.Logger

	// Providers backs the travel tools. Defaults to travel.DefaultProviders().
	Providers *travel.Providers

	// Reasoner replaces the configured reasoning provider.
	Reasoner core.Reasoner

	// Users replaces the configured user scope backend.
	Users state.UserBackend

	// Recorders receive records in addition to the configured sinks.
	Recorders []core.Recorder
}

// Assistant is a fully wired travel assistant.
type Assistant struct {
	engine  *engine.Engine
	metrics *observability.PrometheusRecorder
	cfg     atomic.Pointer[config.Config]
	logger  logging.Logger
	closers []func() error
}

// NewAssistant builds an Assistant from cfg. External connections (Redis,
// RabbitMQ) are established here and released by Close.
func NewAssistant(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Assistant, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NewLogger(&logging.LoggerConfig{
			Level:     cfg.LogLevel(),
			Format:    cfg.Log.Format,
			AddSource: cfg.Log.AddSource,
			Component: "tripmesh",
		})
	}

	a := &Assistant{logger: opts.Logger}
	a.cfg.Store(cfg)

	users := opts.Users
	if users == nil {
		var err error
		if users, err = newUserBackend(ctx, cfg.State); err != nil {
			return nil, err
		}
		if c, ok := users.(interface{ Close() error }); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	sessions := session.NewInMemoryStore(func(o *session.Options) {
		o.TTL = cfg.Session.TTL
		o.Users = users
		o.Logger = opts.Logger
	})

	a.metrics = observability.NewPrometheusRecorder()
	recorders := append([]core.Recorder{a.metrics}, opts.Recorders...)

	if cfg.Observability.LogRecords {
		recorders = append(recorders, observability.NewLogRecorder(opts.Logger))
	}

	if cfg.Observability.AMQP.URL != "" {
		amqpRec, err := observability.DialAMQPRecorder(observability.AMQPConfig{
			URL:     cfg.Observability.AMQP.URL,
			Queue:   cfg.Observability.AMQP.Queue,
			Durable: cfg.Observability.AMQP.Durable,
		}, opts.Logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		recorders = append(recorders, amqpRec)
		a.closers = append(a.closers, amqpRec.Close)
	}

	reasoner := opts.Reasoner
	if reasoner == nil {
		var err error
		if reasoner, err = NewReasoner(cfg.Reasoning); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	providers := travel.DefaultProviders()
	if opts.Providers != nil {
		providers = *opts.Providers
	}

	tools, err := travel.NewTools(providers, opts.Logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	r, err := BuildRouter(cfg.Routing)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	classifier, err := NewClassifier(cfg.Routing, reasoner)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.engine = engine.New(classifier, r,
		engine.WithConfig(engine.Config{
			CallTimeout:       cfg.Timeouts.Call,
			RequestTimeout:    cfg.Timeouts.Request,
			MaxReasoningCalls: cfg.Timeouts.MaxReasoningCalls,
		}),
		engine.WithLogger(opts.Logger),
		engine.WithRecorder(observability.Multi(recorders...)),
		engine.WithReasoner(reasoner),
		engine.WithTools(tools),
		engine.WithSessions(sessions),
	)

	if err := travel.Register(a.engine, opts.Logger); err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

func newUserBackend(ctx context.Context, cfg config.StateConfig) (state.UserBackend, error) {
	switch cfg.Backend {
	case "", "memory":
		return state.NewMemoryUserStore(), nil
	case "redis":
		return state.NewRedisUserStore(ctx, state.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// NewReasoner returns the configured reasoning provider, or nil for "none".
func NewReasoner(cfg config.ReasoningConfig) (core.Reasoner, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		return openai.NewReasoner(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.Instruction = cfg.Instruction
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewReasoner(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.Instruction = cfg.Instruction
		}), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}
}

// NewClassifier returns the configured classifier.
func NewClassifier(cfg config.RoutingConfig, reasoner core.Reasoner) (core.Classifier, error) {
	switch cfg.Classifier {
	case "", "keyword":
		return travel.KeywordClassifier{}, nil
	case "llm":
		if reasoner == nil {
			return nil, errors.New("llm classifier requires a reasoning provider")
		}
		return reasoning.NewLLMClassifier(reasoner, travel.Labels...), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Classifier)
	}
}

// BuildRouter builds the routing table from cfg, falling back to the
// built-in travel routes when none are configured.
func BuildRouter(cfg config.RoutingConfig) (*router.Router, error) {
	routes := cfg.Routes
	if len(routes) == 0 {
		routes = travel.DefaultRoutes()
	}
	return router.FromRoutes(routes, cfg.Default)
}

// HandleRequest is the assistant's entry point; see engine.Engine.HandleRequest.
func (a *Assistant) HandleRequest(ctx context.Context, sessionID, text string) (*core.Response, error) {
	return a.engine.HandleRequest(ctx, sessionID, text)
}

// Engine exposes the underlying engine for registering additional handlers
// and callbacks.
func (a *Assistant) Engine() *engine.Engine { return a.engine }

// Config returns the configuration the assistant was built or last reloaded with.
func (a *Assistant) Config() *config.Config { return a.cfg.Load() }

// MetricsHandler serves the Prometheus metrics of this assistant.
func (a *Assistant) MetricsHandler() http.Handler { return a.metrics.Handler() }

// ApplyConfig applies the parts of cfg that can change at runtime: the
// routing table. Other sections require a new Assistant.
func (a *Assistant) ApplyConfig(cfg *config.Config) error {
	r, err := BuildRouter(cfg.Routing)
	if err != nil {
		return err
	}

	a.engine.SetRouter(r)
	a.cfg.Store(cfg)

	return nil
}

// StartJanitor removes expired sessions in the background until ctx is done.
func (a *Assistant) StartJanitor(ctx context.Context) {
	a.engine.Sessions().StartJanitor(ctx, a.Config().Session.SweepInterval)
}

// Close releases external connections.
func (a *Assistant) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
