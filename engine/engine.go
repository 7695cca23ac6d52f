package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/tripmesh/callback"
	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
	"github.com/hupe1980/tripmesh/pipeline"
	"github.com/hupe1980/tripmesh/registry"
	"github.com/hupe1980/tripmesh/router"
	"github.com/hupe1980/tripmesh/session"
)

// Config defines tuning parameters for the Engine's operational behavior.
type Config struct {
	// CallTimeout bounds every reasoning and tool call. Zero disables the bound.
	CallTimeout time.Duration

	// RequestTimeout bounds a whole request. It is observed by the pipeline
	// between stages and by bounded calls. Zero disables the bound.
	RequestTimeout time.Duration

	// MaxReasoningCalls limits reasoning calls per request. Zero means unlimited.
	MaxReasoningCalls int
}

// DefaultConfig provides the default configuration values.
var DefaultConfig = Config{
	CallTimeout:       30 * time.Second,
	RequestTimeout:    0,
	MaxReasoningCalls: 10,
}

// Options configures an Engine instance using the functional options pattern.
//
// Every collaborator has an in-memory default so that
//
//	eng := engine.New(classifier, router.New(router.WithDefault("fallback")))
//
// is immediately usable.
type Options struct {
	Config Config

	// Sessions owns session lifecycle and the shared user scope backend.
	Sessions *session.InMemoryStore

	// Registry holds the handlers. Defaults to an empty registry.
	Registry *registry.Registry

	// Dispatcher holds the callbacks. Defaults to a dispatcher reporting to Recorder.
	Dispatcher *callback.Dispatcher

	// Executor runs handlers and pipelines.
	Executor *pipeline.Executor

	// Reasoner and Tools are the external capabilities handed to handlers.
	// Either may be nil.
	Reasoner core.Reasoner
	Tools    core.ToolInvoker

	// Recorder receives every callback firing and state transition.
	Recorder core.Recorder

	// UserResolver maps a session id to its owning user when the session is
	// created implicitly by HandleRequest. Defaults to the session id itself.
	UserResolver func(sessionID string) string

	Logger logging.Logger
}

// WithConfig sets the operational configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithRecorder sets the observability sink.
func WithRecorder(r core.Recorder) func(o *Options) {
	return func(o *Options) { o.Recorder = r }
}

// WithReasoner sets the reasoning capability.
func WithReasoner(r core.Reasoner) func(o *Options) {
	return func(o *Options) { o.Reasoner = r }
}

// WithTools sets the tool capability.
func WithTools(t core.ToolInvoker) func(o *Options) {
	return func(o *Options) { o.Tools = t }
}

// WithSessions sets the session store.
func WithSessions(s *session.InMemoryStore) func(o *Options) {
	return func(o *Options) { o.Sessions = s }
}

// WithRegistry sets the handler registry.
func WithRegistry(r *registry.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = r }
}

// WithDispatcher sets the callback dispatcher.
func WithDispatcher(d *callback.Dispatcher) func(o *Options) {
	return func(o *Options) { o.Dispatcher = d }
}

// WithUserResolver sets the resolver for implicitly created sessions.
func WithUserResolver(fn func(sessionID string) string) func(o *Options) {
	return func(o *Options) { o.UserResolver = fn }
}

// Engine routes requests to handlers and runs them through the callback lifecycle.
type Engine struct {
	classifier core.Classifier
	router     atomic.Pointer[router.Router]

	sessions   *session.InMemoryStore
	registry   *registry.Registry
	dispatcher *callback.Dispatcher
	executor   *pipeline.Executor
	services   *core.Services

	userResolver   func(string) string
	requestTimeout time.Duration
	logger         logging.Logger
}

// New creates an Engine.
//
// classifier produces the label consumed by r. Both are required.
func New(classifier core.Classifier, r *router.Router, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:   DefaultConfig,
		Recorder: core.NopRecorder{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore(func(o *session.Options) { o.Logger = opts.Logger })
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = callback.NewDispatcher(func(o *callback.Options) {
			o.Recorder = opts.Recorder
			o.Logger = opts.Logger
		})
	}
	if opts.Executor == nil {
		opts.Executor = pipeline.NewExecutor(func(o *pipeline.Options) { o.Logger = opts.Logger })
	}
	if opts.UserResolver == nil {
		opts.UserResolver = func(sessionID string) string { return sessionID }
	}

	e := &Engine{
		classifier: classifier,
		sessions:   opts.Sessions,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		executor:   opts.Executor,
		services: &core.Services{
			Dispatcher:        opts.Dispatcher,
			Reasoner:          opts.Reasoner,
			Tools:             opts.Tools,
			Runner:            opts.Executor,
			Recorder:          opts.Recorder,
			CallTimeout:       opts.Config.CallTimeout,
			MaxReasoningCalls: opts.Config.MaxReasoningCalls,
			Logger:            opts.Logger,
		},
		userResolver:   opts.UserResolver,
		requestTimeout: opts.Config.RequestTimeout,
		logger:         opts.Logger,
	}

	e.router.Store(r)

	return e
}

// RegisterHandler adds h under name. A second registration of the same name
// fails with *core.DuplicateRegistrationError.
func (e *Engine) RegisterHandler(name string, h core.Handler) error {
	return e.registry.Register(name, h)
}

// RegisterCallback adds a lifecycle callback.
func (e *Engine) RegisterCallback(event core.EventType, target callback.Target, name string, cb callback.Callback) error {
	return e.dispatcher.Register(event, target, name, cb)
}

// Registry exposes the handler registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Sessions exposes the session store.
func (e *Engine) Sessions() *session.InMemoryStore { return e.sessions }

// Router returns the active router.
func (e *Engine) Router() *router.Router { return e.router.Load() }

// SetRouter atomically replaces the routing table. Requests already routed
// are not affected.
func (e *Engine) SetRouter(r *router.Router) {
	e.router.Store(r)
	e.logger.Info("routing table replaced", "bindings", len(r.Bindings()), "default", r.Default())
}

// StartSession creates a session for userID and returns its id.
func (e *Engine) StartSession(userID string) string {
	return e.sessions.Create(userID).ID
}

// EndSession ends a session and discards its session and temp scopes. The
// user scope is kept.
func (e *Engine) EndSession(sessionID string) bool {
	return e.sessions.End(sessionID)
}

// HandleRequest is the entry point of the core. See the package
// documentation for the lifecycle.
func (e *Engine) HandleRequest(ctx context.Context, sessionID, text string) (*core.Response, error) {
	if sessionID == "" {
		sessionID = core.NewID()
	}

	sess, created := e.sessions.GetOrCreate(sessionID, e.userResolver(sessionID))
	if created {
		e.logger.Debug("session created", "session_id", sess.ID, "user_id", sess.UserID)
	}

	sess.Lock()
	defer sess.Unlock()

	sess.Touch(time.Now())

	req := core.Request{
		ID:         core.NewID(),
		SessionID:  sess.ID,
		UserID:     sess.UserID,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}

	logger := logging.ForRequest(e.logger, req.SessionID, req.ID)
	defer logging.StartTimer(logger, "handle_request")()

	// Temp values never outlive the request, whatever its outcome.
	defer sess.State.ClearTemp()

	if e.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.requestTimeout)
		defer cancel()
	}

	label, err := e.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	req.Label = label

	ref, err := e.Router().Route(router.Classification{Label: label, Text: text})
	logging.LogRoute(logger, label, ref.Name, err)
	if err != nil {
		return nil, err
	}

	h, err := e.registry.Lookup(ref.Name)
	if err != nil {
		return nil, err
	}

	services := *e.services
	services.Logger = logger

	root := core.NewExecutionContext(req, sess.State, &services)
	ec := e.executor.Invoke(ctx, h, root)

	resp := buildResponse(req, h.Name(), ec)

	if ec.Status == core.StatusFailed {
		return resp, asStageFailure(h.Name(), ec)
	}

	return resp, nil
}

func buildResponse(req core.Request, handler string, ec *core.ExecutionContext) *core.Response {
	resp := &core.Response{
		RequestID: req.ID,
		SessionID: req.SessionID,
		Handler:   handler,
		Label:     req.Label,
		Status:    ec.Status,
	}

	var res *core.PipelineResult
	if ec.Outcome != nil {
		resp.Text = ec.Outcome.Text
		resp.Data = ec.Outcome.Data
		res = ec.Outcome.Pipeline
	}

	switch {
	case res != nil:
		resp.Completed = res.Completed
		resp.Skipped = res.Skipped
		resp.Partial = res.Partial
	case ec.Status == core.StatusCompleted:
		resp.Completed = []string{handler}
	case ec.Status == core.StatusSkipped:
		resp.Skipped = []string{handler}
		resp.Text = fmt.Sprintf("Handler %s skipped.", handler)
	case ec.Status == core.StatusFailed:
		resp.Partial = true
	}

	return resp
}

// asStageFailure reports a failed top-level handler as a StageFailure. A
// pipeline already returns one; a simple handler is its own single stage.
func asStageFailure(handler string, ec *core.ExecutionContext) error {
	var sf *core.StageFailure
	if errors.As(ec.Err, &sf) {
		return sf
	}
	return core.NewStageFailure(handler, nil, ec.Err)
}
