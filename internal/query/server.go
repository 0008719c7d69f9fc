// Package query serves a solved policy over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated stubs.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

// #region descriptor
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*policyService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Lookup", Handler: unaryHandler(lookupMethod, policyService.Lookup)},
		{MethodName: "Plan", Handler: unaryHandler(planMethod, policyService.Plan)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gearopt/policy.proto",
}

func unaryHandler(fullMethod string, call func(policyService, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(policyService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(policyService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion descriptor

// #region server
// Server implements the policy service on top of a Resolver.
type Server struct {
	resolver Resolver
	health   *health.Server
}

// NewServer wraps r.
func NewServer(r Resolver) *Server {
	return &Server{resolver: r, health: health.NewServer()}
}

// Register attaches the policy and health services to gs and marks the
// policy service as serving.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown flips every health status to NOT_SERVING.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// #endregion server

// #region lookup
// Lookup answers from the memo table only.
func (s *Server) Lookup(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	n := len(s.resolver.Config().Actions)
	budget, err := decodeBudget(req, n)
	if err != nil {
		return nil, err
	}
	mean, err := decodeInt(req, "mean")
	if err != nil {
		return nil, err
	}
	dev, err := decodeInts(req, "deviation", gear.NumSlots)
	if err != nil {
		return nil, err
	}
	state := gear.GearState{Mean: mean}
	copy(state.Deviation[:], dev)

	st, ok, err := s.resolver.Lookup(budget, state)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.encode(Answer{Terminal: !ok, Action: st.Action, Score: st.Score})
}

// #endregion lookup

// #region plan
// Plan levels the given slots and solves on demand.
func (s *Server) Plan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	n := len(s.resolver.Config().Actions)
	budget, err := decodeBudget(req, n)
	if err != nil {
		return nil, err
	}
	levels, err := decodeInts(req, "slots", gear.NumSlots)
	if err != nil {
		return nil, err
	}
	var slots gear.Slots
	copy(slots[:], levels)

	plan, err := s.resolver.Solve(ctx, slots, budget)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.encode(Answer{Terminal: plan.Terminal, Action: plan.Action, Score: plan.Score})
}

// #endregion plan

// #region encoding
func (s *Server) encode(a Answer) (*structpb.Struct, error) {
	fields := map[string]any{
		"terminal": a.Terminal,
		"score":    a.Score,
	}
	if !a.Terminal {
		fields["action"] = a.Action
		fields["action_name"] = s.resolver.Config().Actions[a.Action].Name
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode answer: %v", err)
	}
	return out, nil
}

func decodeBudget(req *structpb.Struct, n int) (gear.Budget, error) {
	var b gear.Budget
	vals, err := decodeInts(req, "budget", n)
	if err != nil {
		return b, err
	}
	for i, v := range vals {
		if v < 0 || v > gear.MaxArity {
			return b, status.Errorf(codes.InvalidArgument, "budget entry %d: %d out of range", i, v)
		}
		b[i] = uint8(v)
	}
	return b, nil
}

func decodeInts(req *structpb.Struct, field string, want int) ([]int, error) {
	list := req.GetFields()[field].GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "missing list field %q", field)
	}
	if len(list.GetValues()) != want {
		return nil, status.Errorf(codes.InvalidArgument, "field %q: want %d values, got %d", field, want, len(list.GetValues()))
	}
	out := make([]int, want)
	for i, v := range list.GetValues() {
		n, err := toInt(v)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "field %q[%d]: %v", field, i, err)
		}
		out[i] = n
	}
	return out, nil
}

func decodeInt(req *structpb.Struct, field string) (int, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing field %q", field)
	}
	n, err := toInt(v)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "field %q: %v", field, err)
	}
	return n, nil
}

func toInt(v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("not a number")
	}
	if num.NumberValue != math.Trunc(num.NumberValue) {
		return 0, fmt.Errorf("%v is not an integer", num.NumberValue)
	}
	return int(num.NumberValue), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, solver.ErrNotComputed):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, solver.ErrInvalidBudget), errors.Is(err, gear.ErrInvalidConfig), errors.Is(err, gear.ErrInvariant):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion encoding
