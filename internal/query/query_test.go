package query

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

// #region helpers
func testEngine(t *testing.T) *solver.Engine {
	t.Helper()
	var pmf [gear.NumSlots]float64
	for i := range pmf {
		pmf[i] = 1.0 / gear.NumSlots
	}
	e, err := solver.NewEngine(&gear.Configuration{
		PowerfulCap: 10,
		PinnacleCap: 12,
		Actions: []gear.ActionSpec{
			{Name: "powerful", PowerfulGain: 5, PinnacleGain: 2, Arity: 1, PMF: pmf},
		},
	})
	require.NoError(t, err)
	return e
}

func dial(t *testing.T, e *solver.Engine) (*Client, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	srv := NewServer(e)
	srv.Register(gs)
	go gs.Serve(lis)
	t.Cleanup(func() {
		srv.Shutdown()
		gs.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClientWithConn(conn), conn
}

// #endregion helpers

// #region plan-tests
func TestPlan_SolvesOnDemand(t *testing.T) {
	c, _ := dial(t, testEngine(t))

	a, err := c.Plan(context.Background(), gear.Slots{}, gear.Budget{1}, 1)
	require.NoError(t, err)
	assert.False(t, a.Terminal)
	assert.Equal(t, 0, a.Action)
	assert.Equal(t, "powerful", a.ActionName)
	assert.InDelta(t, 5.0, a.Score, 1e-9)
}

func TestPlan_Terminal(t *testing.T) {
	c, _ := dial(t, testEngine(t))

	a, err := c.Plan(context.Background(), gear.Slots{}, gear.Budget{0}, 1)
	require.NoError(t, err)
	assert.True(t, a.Terminal)
	assert.Equal(t, -1, a.Action)
	assert.Zero(t, a.Score)
}

func TestPlan_InvalidBudget(t *testing.T) {
	c, _ := dial(t, testEngine(t))

	_, err := c.Plan(context.Background(), gear.Slots{}, gear.Budget{3}, 1)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// #endregion plan-tests

// #region lookup-tests
func TestLookup_NotFoundThenCached(t *testing.T) {
	e := testEngine(t)
	c, _ := dial(t, e)
	ctx := context.Background()

	_, err := c.Lookup(ctx, gear.Budget{1}, 1, gear.GearState{})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Plan(ctx, gear.Slots{}, gear.Budget{1}, 1)
	require.NoError(t, err)

	a, err := c.Lookup(ctx, gear.Budget{1}, 1, gear.GearState{})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, a.Score, 1e-9)
	assert.Equal(t, "powerful", a.ActionName)
}

func TestLookup_MalformedRequest(t *testing.T) {
	c, _ := dial(t, testEngine(t))

	// wrong catalog size
	_, err := c.Lookup(context.Background(), gear.Budget{1}, 2, gear.GearState{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// #endregion lookup-tests

// #region health-tests
func TestHealth_Serving(t *testing.T) {
	_, conn := dial(t, testEngine(t))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

// #endregion health-tests
