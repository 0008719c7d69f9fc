package query

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

// #region client-struct
// Client calls a remote policy service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the policy gRPC server at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. The caller keeps ownership
// of cc.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region lookup
// Lookup asks for the memoized transition of (budget, state). n is the
// catalog size the server was built with.
func (c *Client) Lookup(ctx context.Context, budget gear.Budget, n int, state gear.GearState) (Answer, error) {
	req, err := structpb.NewStruct(map[string]any{
		"budget":    budgetList(budget, n),
		"mean":      state.Mean,
		"deviation": intList(state.Deviation[:]),
	})
	if err != nil {
		return Answer{}, fmt.Errorf("encode lookup: %w", err)
	}
	return c.call(ctx, lookupMethod, req)
}

// #endregion lookup

// #region plan
// Plan asks the server to level slots and solve on demand.
func (c *Client) Plan(ctx context.Context, slots gear.Slots, budget gear.Budget, n int) (Answer, error) {
	req, err := structpb.NewStruct(map[string]any{
		"budget": budgetList(budget, n),
		"slots":  intList(slots[:]),
	})
	if err != nil {
		return Answer{}, fmt.Errorf("encode plan: %w", err)
	}
	return c.call(ctx, planMethod, req)
}

// #endregion plan

// #region helpers
func (c *Client) call(ctx context.Context, method string, req *structpb.Struct) (Answer, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, resp); err != nil {
		return Answer{}, fmt.Errorf("%s rpc: %w", method, err)
	}
	f := resp.GetFields()
	a := Answer{
		Terminal: f["terminal"].GetBoolValue(),
		Score:    f["score"].GetNumberValue(),
		Action:   -1,
	}
	if !a.Terminal {
		a.Action = int(f["action"].GetNumberValue())
		a.ActionName = f["action_name"].GetStringValue()
	}
	return a, nil
}

func budgetList(b gear.Budget, n int) []any {
	out := make([]any, n)
	for i := range n {
		out[i] = int(b[i])
	}
	return out
}

func intList(vals []int) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// #endregion helpers
