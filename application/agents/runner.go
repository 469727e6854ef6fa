package agents

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kbweb/application/ports"
	"kbweb/application/services"
	"kbweb/domain/core/valueobjects"
	"kbweb/domain/events"
	"kbweb/pkg/observability"
)

// ErrSubscriptionClosed is returned by Run when the Graph Service stopped
// delivering events, usually because the connection was lost.
var ErrSubscriptionClosed = stderrors.New("agent subscription closed")

// finishTimeout bounds recording an outcome once ctx is no longer in charge
const finishTimeout = 5 * time.Second

// Agent reacts to actions of one class being initiated
type Agent interface {
	Name() string
	// ActionClass is the system identifier of the handled action class
	ActionClass() string
	// Keynodes lists extra keynodes resolved before the agent starts
	Keynodes() []ports.KeynodeRequest
	// Run performs the action and reports whether it succeeded. The runner
	// marks the action finished either way.
	Run(ctx context.Context, action valueobjects.Addr) (bool, error)
}

// Runner subscribes every registered agent to action_initiated and feeds
// each one its events in order.
type Runner struct {
	graph     ports.GraphService
	keynodes  *services.Keynodes
	actions   *ActionAgent
	publisher ports.EventPublisher
	metrics   *observability.Collector
	logger    *zap.Logger
	agents    []Agent
}

// NewRunner creates a runner with no agents
func NewRunner(
	graph ports.GraphService,
	keynodes *services.Keynodes,
	actions *ActionAgent,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		graph:     graph,
		keynodes:  keynodes,
		actions:   actions,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register adds agents. It must be called before Run.
func (r *Runner) Register(agents ...Agent) {
	r.agents = append(r.agents, agents...)
}

// Run blocks until ctx is done or a subscription closes
func (r *Runner) Run(ctx context.Context) error {
	if len(r.agents) == 0 {
		r.logger.Info("No agents registered")
		<-ctx.Done()
		return nil
	}

	requests := ActionKeynodes()
	for _, agent := range r.agents {
		requests = append(requests, agent.Keynodes()...)
	}
	if err := r.keynodes.Resolve(ctx, requests...); err != nil {
		return fmt.Errorf("resolve agent keynodes: %w", err)
	}
	initiated, _ := r.keynodes.Get(IdtfActionInitiated)

	subs := make([]ports.Subscription, 0, len(r.agents))
	defer func() {
		unsubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		for _, sub := range subs {
			if err := r.graph.Unsubscribe(unsubCtx, sub); err != nil {
				r.logger.Warn("Failed to unsubscribe agent", zap.Int64("subscription", sub.ID()), zap.Error(err))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, agent := range r.agents {
		sub, err := r.graph.Subscribe(ctx, ports.EventAddOutgoingEdge, initiated)
		if err != nil {
			return fmt.Errorf("subscribe agent %s: %w", agent.Name(), err)
		}
		subs = append(subs, sub)

		r.logger.Info("Agent subscribed",
			zap.String("agent", agent.Name()),
			zap.Int64("subscription", sub.ID()),
			zap.Stringer("addr", initiated),
		)

		agent := agent
		g.Go(func() error {
			return r.consume(gctx, agent, sub)
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Runner) consume(ctx context.Context, agent Agent, sub ports.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("%s: %w", agent.Name(), ErrSubscriptionClosed)
			}
			r.handle(ctx, agent, ev)
		}
	}
}

// handle runs one agent for one event. Failures are reported and never stop
// the runner.
func (r *Runner) handle(ctx context.Context, agent Agent, ev ports.ElementEvent) {
	action := ev.Other
	logger := r.logger.With(zap.String("agent", agent.Name()), zap.Stringer("action", action))

	ok, err := r.actions.IsActionOf(ctx, agent.ActionClass(), action)
	if err != nil {
		logger.Warn("Failed to check action class", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	logger.Info("Agent started")
	success, err := agent.Run(ctx, action)
	r.metrics.RecordAgentRun(agent.Name(), err)

	// a started action is always finished, also when shutdown interrupted it
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if err != nil {
		logger.Error("Agent run failed", zap.Error(err))
		r.reportFailure(finishCtx, agent, action, err)
		success = false
	}

	if err := r.actions.Finish(finishCtx, action, success); err != nil {
		logger.Error("Failed to finish action", zap.Error(err))
		return
	}
	logger.Info("Agent finished", zap.Bool("success", success))
}

func (r *Runner) reportFailure(ctx context.Context, agent Agent, action valueobjects.Addr, cause error) {
	if r.publisher == nil {
		return
	}
	event := events.NewAgentRunFailed(agent.Name(), action, cause.Error(), time.Now())
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish event", zap.String("eventType", event.GetEventType()), zap.Error(err))
	}
}
