package query

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

// #region names
const (
	ServiceName  = "gearopt.PolicyService"
	lookupMethod = "/" + ServiceName + "/Lookup"
	planMethod   = "/" + ServiceName + "/Plan"
)

// #endregion names

// #region types
// Resolver answers policy questions. *solver.Engine satisfies it.
type Resolver interface {
	Config() *gear.Configuration
	Lookup(budget gear.Budget, state gear.GearState) (gear.StateTransition, bool, error)
	Solve(ctx context.Context, start gear.Slots, budget gear.Budget) (solver.Plan, error)
}

// Answer is the decoded reply of either RPC.
type Answer struct {
	Terminal   bool
	Action     int
	ActionName string
	Score      float64
}

// policyService is the handler contract behind the service descriptor.
type policyService interface {
	Lookup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Plan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// #endregion types
