package agents

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/application/sagas"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/domain/events"
	"kbweb/pkg/errors"
)

// Set power keynodes
const (
	IdtfGetSetPowerAction = "get_set_power_action"
	IdtfNrelSetPower      = "nrel_set_power"
)

type setPowerRun struct {
	action valueobjects.Addr
	set    valueobjects.Addr
	power  int64

	// link, common edge, nrel_set_power access edge
	written []valueobjects.Addr
	result  []valueobjects.Addr
}

// SetPowerAgent counts the elements of the set passed as rrel_1 and stores
// the number as set ⇒ nrel_set_power: [power].
type SetPowerAgent struct {
	graph     ports.GraphService
	actions   *ActionAgent
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewSetPowerAgent creates the agent
func NewSetPowerAgent(
	graph ports.GraphService,
	actions *ActionAgent,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *SetPowerAgent {
	return &SetPowerAgent{
		graph:     graph,
		actions:   actions,
		publisher: publisher,
		logger:    logger,
	}
}

// Name implements Agent
func (a *SetPowerAgent) Name() string { return "set_power" }

// ActionClass implements Agent
func (a *SetPowerAgent) ActionClass() string { return IdtfGetSetPowerAction }

// Keynodes implements Agent
func (a *SetPowerAgent) Keynodes() []ports.KeynodeRequest {
	return []ports.KeynodeRequest{
		{Identifier: IdtfGetSetPowerAction, Type: valueobjects.TypeNodeConstClass},
		{Identifier: IdtfNrelSetPower, Type: valueobjects.TypeNodeConstNoRole},
	}
}

// Run implements Agent. An action without a set, or with an empty one, is
// finished unsuccessfully.
func (a *SetPowerAgent) Run(ctx context.Context, action valueobjects.Addr) (bool, error) {
	set, err := a.actions.Argument(ctx, action, 1)
	if err != nil {
		return false, err
	}
	if !set.IsValid() {
		a.logger.Info("Action has no set argument", zap.Stringer("action", action))
		return false, nil
	}

	power, err := a.count(ctx, set)
	if err != nil {
		return false, err
	}
	if power == 0 {
		a.logger.Info("Set has no elements", zap.Stringer("action", action), zap.Stringer("set", set))
		return false, nil
	}

	run := &setPowerRun{action: action, set: set, power: power}
	saga := sagas.New[setPowerRun]("set_power", a.logger).
		Step("write power", a.writePower, a.deleteWritten).
		Step("set result", a.setResult, nil)
	if err := saga.Execute(ctx, run); err != nil {
		return false, err
	}

	a.logger.Info("Set power calculated",
		zap.Stringer("action", action),
		zap.Stringer("set", set),
		zap.Int64("power", power),
	)

	if a.publisher != nil {
		event := events.NewSetPowerCalculated(action, set, power, run.written[0], time.Now())
		if err := a.publisher.Publish(ctx, event); err != nil {
			a.logger.Warn("Failed to publish event", zap.String("eventType", event.GetEventType()), zap.Error(err))
		}
	}
	return true, nil
}

// count returns the number of distinct nodes in set
func (a *SetPowerAgent) count(ctx context.Context, set valueobjects.Addr) (int64, error) {
	const alias = "_el"
	tmpl := entities.NewTemplate().Triple(
		entities.Fixed(set),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.VarAs(valueobjects.TypeNodeVar, alias),
	)
	records, err := a.graph.SearchTemplate(ctx, ports.TemplateQuery{Template: tmpl})
	if err != nil {
		return 0, errors.Wrap(err, "search set elements")
	}

	seen := make(map[valueobjects.Addr]struct{}, len(records))
	for _, rec := range records {
		el, err := rec.MustGet(alias)
		if err != nil {
			return 0, err
		}
		seen[el] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (a *SetPowerAgent) writePower(ctx context.Context, run *setPowerRun) error {
	keys, err := a.actions.keynodes.Require(IdtfNrelSetPower)
	if err != nil {
		return err
	}

	// int content; other set power agents store the count as a decimal
	// string, so readers of nrel_set_power must accept both
	c := entities.NewConstruction().
		CreateLink(valueobjects.TypeLinkConst, valueobjects.NewIntContent(run.power), "link").
		CreateEdge(valueobjects.TypeEdgeDCommonConst, entities.AddrEndpoint(run.set), entities.RefEndpoint("link"), "edge").
		CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.AddrEndpoint(keys[0]), entities.RefEndpoint("edge"), "")
	run.written, err = a.actions.create(ctx, "write set power", c)
	return err
}

func (a *SetPowerAgent) deleteWritten(ctx context.Context, run *setPowerRun) error {
	if len(run.written) == 0 {
		return nil
	}
	return a.graph.DeleteElements(ctx, run.written)
}

func (a *SetPowerAgent) setResult(ctx context.Context, run *setPowerRun) error {
	nrelSetPower, _ := a.actions.keynodes.Get(IdtfNrelSetPower)
	elements := append([]valueobjects.Addr{run.set}, run.written...)
	elements = append(elements, nrelSetPower)

	var err error
	run.result, err = a.actions.SetResult(ctx, run.action, elements...)
	return err
}
