// Package rollout plays a solved policy against sampled drops.
package rollout

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

// #region types
// Policy chooses the next action. *solver.Engine satisfies it.
type Policy interface {
	Config() *gear.Configuration
	SelectAction(ctx context.Context, state gear.GearState, budget gear.Budget) (gear.StateTransition, bool, error)
}

// Step records one applied drop.
type Step struct {
	Action int
	Slot   gear.Slot
	Reward int
	State  gear.GearState // state after leveling
}

// Episode is one play-through from the start state until terminal.
type Episode struct {
	Steps []Step
	Total int
	Final gear.GearState
}

// Summary aggregates many episodes against the policy's expected value.
type Summary struct {
	Episodes int
	Expected float64
	Mean     float64
	StdDev   float64
	Min      int
	Max      int
}

// #endregion types

// #region play
// Play follows the policy from (start, budget), sampling each drop's slot
// from the chosen action's distribution.
func Play(ctx context.Context, p Policy, start gear.GearState, budget gear.Budget, rng *rand.Rand) (Episode, error) {
	cfg := p.Config()
	ep := Episode{Final: start}
	state := start
	for {
		st, ok, err := p.SelectAction(ctx, state, budget)
		if err != nil {
			return Episode{}, fmt.Errorf("step %d: %w", len(ep.Steps), err)
		}
		if !ok {
			break
		}
		slot := sampleSlot(cfg.Actions[st.Action].PMF, rng.Float64())
		next, nb, reward, err := gear.Apply(cfg, state, budget, int(slot), st.Action)
		if err != nil {
			return Episode{}, fmt.Errorf("step %d: %w", len(ep.Steps), err)
		}
		ep.Steps = append(ep.Steps, Step{Action: st.Action, Slot: slot, Reward: reward, State: next})
		ep.Total += reward
		state, budget = next, nb
	}
	ep.Final = state
	return ep, nil
}

func sampleSlot(pmf [gear.NumSlots]float64, u float64) gear.Slot {
	last := gear.Slot(0)
	acc := 0.0
	for i, p := range pmf {
		if p <= 0 {
			continue
		}
		last = gear.Slot(i)
		acc += p
		if u < acc {
			return last
		}
	}
	// rounding left u above the cumulative sum
	return last
}

// #endregion play

// #region simulate
// Simulate levels start, plays episodes with a seeded PCG source and
// summarizes the realized gains.
func Simulate(ctx context.Context, p Policy, start gear.Slots, budget gear.Budget, episodes int, seed uint64) (Summary, error) {
	if episodes <= 0 {
		return Summary{}, fmt.Errorf("simulate: episodes must be positive, got %d", episodes)
	}
	state := gear.Level(start)
	st, _, err := p.SelectAction(ctx, state, budget)
	if err != nil {
		return Summary{}, fmt.Errorf("simulate: %w", err)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sum := Summary{Episodes: episodes, Expected: st.Score, Min: math.MaxInt}
	var total, totalSq float64
	for i := range episodes {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		ep, err := Play(ctx, p, state, budget, rng)
		if err != nil {
			return Summary{}, fmt.Errorf("episode %d: %w", i, err)
		}
		v := float64(ep.Total)
		total += v
		totalSq += v * v
		sum.Min = min(sum.Min, ep.Total)
		sum.Max = max(sum.Max, ep.Total)
	}
	n := float64(episodes)
	sum.Mean = total / n
	sum.StdDev = math.Sqrt(max(totalSq/n-sum.Mean*sum.Mean, 0))
	return sum, nil
}

// #endregion simulate
