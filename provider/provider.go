// Package provider implements the generic resource-provider
// orchestrator: lifecycle, path parsing, authorization gating, and
// dispatch to a concrete Handler. Every resource type builds on this
// one orchestrator rather than duplicating the surrounding machinery.
package provider

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentplane/agentplane/authorization"
	"github.com/agentplane/agentplane/events"
	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/resource"
)

const tracerName = "github.com/agentplane/agentplane/provider"

// State is the lifecycle position of a provider instance.
type State int32

const (
	StateConstructed State = iota
	StateInitializing
	StateReady

	// StateFailed is absorbing: an instance whose initialization
	// failed never retries and rejects every request until the
	// process restarts.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a provider instance.
type Options struct {
	// Name is the provider name, such as "AgentPlane.Prompt". It
	// prefixes action strings and storage paths.
	Name string

	// InstanceID identifies the deployment instance in object ids.
	InstanceID string

	// Handler supplies the type-specific behavior.
	Handler Handler

	// Authorization is the policy decision client. Required; there is
	// no bypass.
	Authorization authorization.Client

	// EventSource and EventNamespaces enable cache coherence: when
	// namespaces are declared, a poller drains the source every
	// EventCycle and feeds the handler's EventReactor, if any.
	EventSource     events.Source
	EventNamespaces []string
	EventCycle      time.Duration

	// EventPublisher, when set, receives a change event after every
	// successful upsert or delete, on PublishNamespace.
	EventPublisher   events.Publisher
	PublishNamespace string

	Logger  logr.Logger
	Metrics *Metrics
}

// Provider is the generic resource-provider orchestrator.
type Provider struct {
	name       string
	instanceID string
	handler    Handler
	typeGraph  map[string]resource.TypeDescriptor
	gate       *authorization.Gate

	eventSource      events.Source
	eventNamespaces  []string
	eventCycle       time.Duration
	eventPublisher   events.Publisher
	publishNamespace string
	poller           *events.Poller

	log     logr.Logger
	metrics *Metrics
	tracer  trace.Tracer

	state atomic.Int32
}

// New validates the options and builds a provider in the Constructed
// state. Callers must invoke Start before serving requests.
func New(options Options) (*Provider, error) {
	if options.Name == "" {
		return nil, faults.Validation("a provider requires a name", nil)
	}
	if options.InstanceID == "" {
		return nil, faults.Validation("a provider requires an instance id", nil)
	}
	if options.Handler == nil {
		return nil, faults.Validation("a provider requires a handler", nil)
	}
	if options.Authorization == nil {
		return nil, faults.Validation("a provider requires an authorization client", nil)
	}
	if len(options.EventNamespaces) > 0 && options.EventSource == nil {
		return nil, faults.Validation("event namespaces are declared but no event source is configured", nil)
	}

	log := options.Logger.WithValues("provider", options.Name)

	return &Provider{
		name:             options.Name,
		instanceID:       options.InstanceID,
		handler:          options.Handler,
		typeGraph:        options.Handler.TypeGraph(),
		gate:             authorization.NewGate(options.InstanceID, options.Name, options.Authorization, log),
		eventSource:      options.EventSource,
		eventNamespaces:  options.EventNamespaces,
		eventCycle:       options.EventCycle,
		eventPublisher:   options.EventPublisher,
		publishNamespace: options.PublishNamespace,
		log:              log,
		metrics:          options.Metrics,
		tracer:           otel.Tracer(tracerName),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// State returns the current lifecycle state.
func (p *Provider) State() State {
	return State(p.state.Load())
}

// Start runs provider initialization: handler bootstrap, then event
// subscription when namespaces were declared. A failed Start leaves
// the provider permanently Failed; every subsequent request reports
// NotInitializedError until an operator restarts the process.
func (p *Provider) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateConstructed), int32(StateInitializing)) {
		return faults.Internal(fmt.Sprintf("the provider %s cannot start from state %s", p.name, p.State()), nil)
	}

	p.log.Info("initializing resource provider")
	if err := p.handler.Initialize(ctx); err != nil {
		p.state.Store(int32(StateFailed))
		p.log.Error(err, "the resource provider failed to initialize")
		return faults.Internal(fmt.Sprintf("the provider %s failed to initialize", p.name), err)
	}

	if len(p.eventNamespaces) > 0 {
		p.poller = events.NewPoller(p.eventSource, p.eventNamespaces, p.eventCycle, p.log)
		if reactor, reacts := p.handler.(EventReactor); reacts {
			p.poller.AddHandler(reactor.HandleEvents)
		}
		p.poller.Start(ctx)
	}

	p.state.Store(int32(StateReady))
	p.log.Info("resource provider ready")
	return nil
}

// Stop halts event polling. The provider stays Ready for requests;
// coherence simply lapses, matching a replica that falls behind.
func (p *Provider) Stop() {
	if p.poller != nil {
		p.poller.Stop()
	}
}

// HandleGet fetches a resource or, for a collection path, the full
// non-deleted list. Action tokens are rejected: reads target concrete
// resources.
func (p *Provider) HandleGet(ctx context.Context, rawPath string, principal authorization.Principal) (result any, err error) {
	ctx, finish := p.beginOperation(ctx, "get", rawPath)
	defer func() { finish(err) }()

	if err = p.requireReady(); err != nil {
		return nil, err
	}
	path, err := resource.ParsePath(rawPath, p.name, p.typeGraph, false)
	if err != nil {
		return nil, err
	}
	if err = p.gate.Authorize(ctx, path, principal, "read"); err != nil {
		return nil, err
	}
	return p.handler.FetchByReference(ctx, path)
}

// HandleUpsert creates or updates a resource, or, when the path's
// terminal element carries an action, dispatches the action instead.
func (p *Provider) HandleUpsert(ctx context.Context, rawPath string, body []byte, principal authorization.Principal) (result any, err error) {
	ctx, finish := p.beginOperation(ctx, "upsert", rawPath)
	defer func() { finish(err) }()

	if err = p.requireReady(); err != nil {
		return nil, err
	}
	path, err := resource.ParsePath(rawPath, p.name, p.typeGraph, true)
	if err != nil {
		return nil, err
	}

	actionType := "write"
	if path.HasAction() {
		actionType = path.Last().Action
	}
	if err = p.gate.Authorize(ctx, path, principal, actionType); err != nil {
		return nil, err
	}

	if path.HasAction() {
		return p.handler.ExecuteAction(ctx, path, body)
	}

	objectID := path.ObjectID(p.instanceID, p.name)
	result, err = p.handler.Upsert(ctx, path, body, objectID)
	if err != nil {
		return nil, err
	}
	p.publishChange(ctx, path.Last().ID)
	return result, nil
}

// HandleDelete soft-deletes the addressed resource. The object body
// is retained for restore and audit.
func (p *Provider) HandleDelete(ctx context.Context, rawPath string, principal authorization.Principal) (err error) {
	ctx, finish := p.beginOperation(ctx, "delete", rawPath)
	defer func() { finish(err) }()

	if err = p.requireReady(); err != nil {
		return err
	}
	path, err := resource.ParsePath(rawPath, p.name, p.typeGraph, false)
	if err != nil {
		return err
	}
	if err = p.gate.Authorize(ctx, path, principal, "delete"); err != nil {
		return err
	}
	if err = p.handler.Delete(ctx, path); err != nil {
		return err
	}
	p.publishChange(ctx, path.Last().ID)
	return nil
}

func (p *Provider) requireReady() error {
	if p.State() != StateReady {
		return faults.NotInitialized(fmt.Sprintf("the resource provider %s is not initialized", p.name))
	}
	return nil
}

// publishChange emits a best-effort change notification. Failures are
// logged and swallowed: coherence is advisory, the store is truth.
func (p *Provider) publishChange(ctx context.Context, subject string) {
	if p.eventPublisher == nil || p.publishNamespace == "" {
		return
	}
	event := events.ChangeEvent{
		ID:        uuid.NewString(),
		Namespace: p.publishNamespace,
		Subject:   subject,
		Time:      time.Now().UTC(),
	}
	if err := p.eventPublisher.Publish(ctx, event); err != nil {
		p.log.Error(err, "failed to publish change event", "namespace", p.publishNamespace, "subject", subject)
	}
}

func (p *Provider) beginOperation(ctx context.Context, operation string, rawPath string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "provider."+operation,
		trace.WithAttributes(
			attribute.String("provider.name", p.name),
			attribute.String("resource.path", rawPath),
		))

	return ctx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, string(faults.CategoryOf(err)))
		}
		span.End()
		p.metrics.observe(p.name, operation, err, time.Since(started))
	}
}
