// Package solver computes the optimal upgrade policy by memoized backward
// induction over (budget, state) pairs.
//
// Two strategies share one table. SelectAction resolves keys on demand,
// recursing into successors and storing each result exactly once. Build fills
// the table eagerly, one budget class at a time, with a hard barrier between
// classes so that every read during a class hits an already finished one.
package solver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/enumerate"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

// #region engine
// Engine owns the memo table for one configuration.
type Engine struct {
	cfg      *gear.Configuration
	table    *Table
	flight   singleflight.Group
	workers  int
	reg      prometheus.Registerer
	metrics  *metrics
	progress func(Progress)
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the eager build's worker pool. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRegisterer registers the engine's metrics with reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.reg = reg }
}

// WithProgress installs a callback invoked after each finished budget class.
func WithProgress(fn func(Progress)) Option {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine validates cfg and returns an engine with an empty table.
func NewEngine(cfg *gear.Configuration, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		table:   NewTable(),
		workers: runtime.GOMAXPROCS(0),
		reg:     prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newMetrics(e.reg, e.table)
	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() *gear.Configuration { return e.cfg }

// Table returns the engine's memo table.
func (e *Engine) Table() *Table { return e.table }

// #endregion engine

// #region select-action
// SelectAction returns the best action and its expected total gain from
// (state, budget), computing and memoizing it if needed. ok is false for a
// terminal pair, whose value is 0.
func (e *Engine) SelectAction(ctx context.Context, state gear.GearState, budget gear.Budget) (gear.StateTransition, bool, error) {
	if err := e.checkBudget(budget); err != nil {
		return gear.StateTransition{}, false, err
	}
	if state.MaxLevel() > e.cfg.PinnacleCap {
		return gear.StateTransition{}, false, fmt.Errorf("%w: state %s exceeds pinnacle cap %d", gear.ErrInvariant, state, e.cfg.PinnacleCap)
	}
	return e.selectAction(ctx, state, budget)
}

func (e *Engine) selectAction(ctx context.Context, state gear.GearState, budget gear.Budget) (gear.StateTransition, bool, error) {
	if e.cfg.Terminal(state, budget) {
		return gear.StateTransition{}, false, nil
	}
	key := Key{Budget: budget, State: state}
	if st, ok := e.table.Get(key); ok {
		e.metrics.hits.Inc()
		return st, true, nil
	}

	v, err, _ := e.flight.Do(key.flightKey(), func() (any, error) {
		if st, ok := e.table.Get(key); ok {
			return st, nil
		}
		st, err := e.evaluate(ctx, state, budget, e.resolve)
		if err != nil {
			return nil, err
		}
		stored, _ := e.table.Insert(key, st)
		return stored, nil
	})
	if err != nil {
		return gear.StateTransition{}, false, err
	}
	return v.(gear.StateTransition), true, nil
}

// Lookup reads a transition without computing anything. A terminal pair
// reports ok=false; a missing non-terminal pair is ErrNotComputed.
func (e *Engine) Lookup(budget gear.Budget, state gear.GearState) (gear.StateTransition, bool, error) {
	if e.cfg.Terminal(state, budget) {
		return gear.StateTransition{}, false, nil
	}
	st, ok := e.table.Get(Key{Budget: budget, State: state})
	if !ok {
		return gear.StateTransition{}, false, fmt.Errorf("%w: budget [%s] state %s", ErrNotComputed, budget.Format(len(e.cfg.Actions)), state)
	}
	return st, true, nil
}

// Solve levels start and returns the optimal plan for it.
func (e *Engine) Solve(ctx context.Context, start gear.Slots, budget gear.Budget) (Plan, error) {
	state := gear.Level(start)
	st, ok, err := e.SelectAction(ctx, state, budget)
	if err != nil {
		return Plan{}, fmt.Errorf("solve %s: %w", state, err)
	}
	plan := Plan{Start: state, Budget: budget, Terminal: !ok, Action: -1}
	if ok {
		plan.Action = st.Action
		plan.ActionName = e.cfg.Actions[st.Action].Name
		plan.Score = st.Score
	}
	return plan, nil
}

func (e *Engine) checkBudget(budget gear.Budget) error {
	for i, v := range budget {
		limit := 0
		if i < len(e.cfg.Actions) {
			limit = e.cfg.Actions[i].Arity
		}
		if int(v) > limit {
			return fmt.Errorf("%w: entry %d is %d, bound %d", ErrInvalidBudget, i, v, limit)
		}
	}
	return nil
}

// #endregion select-action

// #region evaluate
// resolver returns the continuation value of a successor pair.
type resolver func(ctx context.Context, state gear.GearState, budget gear.Budget) (float64, error)

func (e *Engine) resolve(ctx context.Context, state gear.GearState, budget gear.Budget) (float64, error) {
	st, _, err := e.selectAction(ctx, state, budget)
	return st.Score, err
}

func (e *Engine) lookupScore(_ context.Context, state gear.GearState, budget gear.Budget) (float64, error) {
	st, _, err := e.Lookup(budget, state)
	return st.Score, err
}

// evaluate runs one Bellman backup. Actions are scanned in catalog order and
// a later action must beat the best value strictly, so ties keep the earliest.
func (e *Engine) evaluate(ctx context.Context, state gear.GearState, budget gear.Budget, next resolver) (gear.StateTransition, error) {
	if err := ctx.Err(); err != nil {
		return gear.StateTransition{}, err
	}
	best := gear.StateTransition{Action: -1}
	for a, action := range e.cfg.Actions {
		if budget[a] == 0 {
			continue
		}
		value := 0.0
		for slot, p := range action.PMF {
			if p <= 0 {
				continue
			}
			ns, nb, reward, err := gear.Apply(e.cfg, state, budget, slot, a)
			if err != nil {
				return gear.StateTransition{}, err
			}
			rest, err := next(ctx, ns, nb)
			if err != nil {
				return gear.StateTransition{}, err
			}
			value += p * (float64(reward) + rest)
		}
		if best.Action < 0 || value > best.Score {
			best = gear.StateTransition{Action: a, Score: value}
		}
	}
	e.metrics.computed.Inc()
	return best, nil
}

// #endregion evaluate

// #region build
// Build fills the table for every budget up to the catalog caps and every
// leveled state in [PowerfulStart, PinnacleCap). Classes run in ascending
// order of remaining uses; budgets inside a class run concurrently and only
// read the class below. The first error aborts the build.
func (e *Engine) Build(ctx context.Context) error {
	states := enumerate.GearStates(e.cfg)
	classes := enumerate.RankedBudgets(e.cfg.Caps(), len(e.cfg.Actions))

	total := 0
	for _, c := range classes[1:] {
		total += len(c)
	}

	start := time.Now()
	done := 0
	for k := 1; k < len(classes); k++ {
		classStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for _, b := range classes[k] {
			g.Go(func() error {
				return e.buildBudget(gctx, b, states)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("build class %d: %w", k, err)
		}
		e.metrics.classSeconds.Observe(time.Since(classStart).Seconds())

		done += len(classes[k])
		if e.progress != nil {
			e.progress(Progress{
				Class:        k,
				Classes:      len(classes) - 1,
				Budgets:      done,
				TotalBudgets: total,
				Entries:      e.table.Len(),
				Elapsed:      time.Since(start),
			})
		}
	}
	return nil
}

func (e *Engine) buildBudget(ctx context.Context, budget gear.Budget, states []gear.GearState) error {
	for _, s := range states {
		st, err := e.evaluate(ctx, s, budget, e.lookupScore)
		if err != nil {
			return fmt.Errorf("budget [%s] state %s: %w", budget.Format(len(e.cfg.Actions)), s, err)
		}
		e.table.Insert(Key{Budget: budget, State: s}, st)
	}
	return nil
}

// #endregion build
