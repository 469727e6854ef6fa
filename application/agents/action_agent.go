package agents

import (
	"context"
	"fmt"

	"kbweb/application/ports"
	"kbweb/application/services"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/pkg/errors"
)

// Action lifecycle keynodes
const (
	IdtfAction                       = "action"
	IdtfActionInitiated              = "action_initiated"
	IdtfActionFinished               = "action_finished"
	IdtfActionFinishedSuccessfully   = "action_finished_successfully"
	IdtfActionFinishedUnsuccessfully = "action_finished_unsuccessfully"
	IdtfNrelResult                   = "nrel_result"
)

// maxArguments is how many rrel_N role keynodes are resolved up front
const maxArguments = 3

// RoleIdentifier returns the identifier of the n-th argument role
func RoleIdentifier(n int) string {
	return fmt.Sprintf("rrel_%d", n)
}

// ActionKeynodes lists the keynodes every action agent relies on
func ActionKeynodes() []ports.KeynodeRequest {
	reqs := []ports.KeynodeRequest{
		{Identifier: IdtfAction, Type: valueobjects.TypeNodeConstClass},
		{Identifier: IdtfActionInitiated, Type: valueobjects.TypeNodeConstClass},
		{Identifier: IdtfActionFinished, Type: valueobjects.TypeNodeConstClass},
		{Identifier: IdtfActionFinishedSuccessfully, Type: valueobjects.TypeNodeConstClass},
		{Identifier: IdtfActionFinishedUnsuccessfully, Type: valueobjects.TypeNodeConstClass},
		{Identifier: IdtfNrelResult, Type: valueobjects.TypeNodeConstNoRole},
	}
	for n := 1; n <= maxArguments; n++ {
		reqs = append(reqs, ports.KeynodeRequest{Identifier: RoleIdentifier(n), Type: valueobjects.TypeNodeConstRole})
	}
	return reqs
}

// ActionAgent holds the knowledge-base conventions shared by agents that
// react to initiated actions: class membership, rrel_N arguments, the
// nrel_result structure and the finished marks.
type ActionAgent struct {
	graph    ports.GraphService
	keynodes *services.Keynodes
}

// NewActionAgent creates a new action helper
func NewActionAgent(graph ports.GraphService, keynodes *services.Keynodes) *ActionAgent {
	return &ActionAgent{graph: graph, keynodes: keynodes}
}

// IsActionOf reports whether class ∋ action
func (a *ActionAgent) IsActionOf(ctx context.Context, class string, action valueobjects.Addr) (bool, error) {
	keys, err := a.keynodes.Require(class)
	if err != nil {
		return false, err
	}

	tmpl := entities.NewTemplate().Triple(
		entities.Fixed(keys[0]),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.Fixed(action),
	)
	records, err := a.graph.SearchTemplate(ctx, ports.TemplateQuery{Template: tmpl})
	if err != nil {
		return false, errors.Wrap(err, "check action class")
	}
	return len(records) > 0, nil
}

// Argument returns the element attached to action with role rrel_n, or
// InvalidAddr when there is none.
func (a *ActionAgent) Argument(ctx context.Context, action valueobjects.Addr, n int) (valueobjects.Addr, error) {
	keys, err := a.keynodes.Require(RoleIdentifier(n))
	if err != nil {
		return valueobjects.InvalidAddr, err
	}

	const alias = "_arg"
	tmpl := entities.NewTemplate().TripleWithRelation(
		entities.Fixed(action),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.VarAs(valueobjects.TypeNodeVar, alias),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.Fixed(keys[0]),
	)
	records, err := a.graph.SearchTemplate(ctx, ports.TemplateQuery{Template: tmpl})
	if err != nil {
		return valueobjects.InvalidAddr, errors.Wrap(err, "read action argument")
	}
	if len(records) == 0 {
		return valueobjects.InvalidAddr, nil
	}
	return records[0].MustGet(alias)
}

// SetResult creates action ⇒ nrel_result: result, where result is a new
// structure node containing elements. It returns every created address.
func (a *ActionAgent) SetResult(ctx context.Context, action valueobjects.Addr, elements ...valueobjects.Addr) ([]valueobjects.Addr, error) {
	keys, err := a.keynodes.Require(IdtfNrelResult)
	if err != nil {
		return nil, err
	}

	c := entities.NewConstruction().
		CreateNode(valueobjects.TypeNodeConstStruct, "result").
		CreateEdge(valueobjects.TypeEdgeDCommonConst, entities.AddrEndpoint(action), entities.RefEndpoint("result"), "result_edge").
		CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.AddrEndpoint(keys[0]), entities.RefEndpoint("result_edge"), "")
	for _, el := range elements {
		c.CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.RefEndpoint("result"), entities.AddrEndpoint(el), "")
	}
	return a.create(ctx, "set action result", c)
}

// Finish marks the action finished, successfully or not
func (a *ActionAgent) Finish(ctx context.Context, action valueobjects.Addr, success bool) error {
	outcome := IdtfActionFinishedUnsuccessfully
	if success {
		outcome = IdtfActionFinishedSuccessfully
	}
	keys, err := a.keynodes.Require(IdtfActionFinished, outcome)
	if err != nil {
		return err
	}

	c := entities.NewConstruction()
	for _, key := range keys {
		c.CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.AddrEndpoint(key), entities.AddrEndpoint(action), "")
	}
	_, err = a.create(ctx, "finish action", c)
	return err
}

func (a *ActionAgent) create(ctx context.Context, operation string, c *entities.Construction) ([]valueobjects.Addr, error) {
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	addrs, err := a.graph.CreateElements(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, operation)
	}
	if len(addrs) != c.Len() {
		return nil, errors.NewCountMismatchError(operation, c.Len(), len(addrs))
	}
	return addrs, nil
}
