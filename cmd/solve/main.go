package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/catalog"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/policystore"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/query"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/rollout"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

// #region main
func main() {
	catalogPath := flag.String("catalog", envOr("GEAROPT_CATALOG", ""), "catalog file (.yaml/.json); built-in catalog if empty")
	mode := flag.String("mode", "on_demand", "solve strategy: on_demand | eager")
	workers := flag.Int("workers", envInt("GEAROPT_WORKERS", 0), "eager worker pool size (0 = GOMAXPROCS)")
	startFlag := flag.String("start", "", "eight comma-separated slot levels (default: powerful start in every slot)")
	budgetFlag := flag.String("budget", "", "comma-separated remaining uses per action (default: full arity)")
	dbPath := flag.String("db", envOr("GEAROPT_DB", ""), "export the solved table to this SQLite file")
	simulate := flag.Int("simulate", 0, "play N Monte-Carlo episodes of the policy")
	seed := flag.Uint64("seed", 1, "rollout seed")
	serveAddr := flag.String("serve", envOr("GEAROPT_ADDR", ""), "serve the policy over gRPC on this address")
	metricsAddr := flag.String("metrics", envOr("GEAROPT_METRICS_ADDR", ""), "serve Prometheus metrics on this address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(runOptions{
		catalogPath: *catalogPath,
		mode:        *mode,
		workers:     *workers,
		start:       *startFlag,
		budget:      *budgetFlag,
		dbPath:      *dbPath,
		simulate:    *simulate,
		seed:        *seed,
		serveAddr:   *serveAddr,
		metricsAddr: *metricsAddr,
	}); err != nil {
		slog.Error("solve failed", "err", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run
type runOptions struct {
	catalogPath string
	mode        string
	workers     int
	start       string
	budget      string
	dbPath      string
	simulate    int
	seed        uint64
	serveAddr   string
	metricsAddr string
}

func run(opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts.catalogPath)
	if err != nil {
		return err
	}
	n := len(cfg.Actions)

	start, err := parseStart(cfg, opts.start)
	if err != nil {
		return err
	}
	budget := cfg.Caps()
	if opts.budget != "" {
		if budget, err = gear.ParseBudget(opts.budget); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	engine, err := solver.NewEngine(cfg,
		solver.WithWorkers(opts.workers),
		solver.WithRegisterer(reg),
		solver.WithProgress(func(p solver.Progress) {
			slog.Info("class finished",
				"class", fmt.Sprintf("%d/%d", p.Class, p.Classes),
				"budgets", fmt.Sprintf("%d/%d", p.Budgets, p.TotalBudgets),
				"entries", p.Entries,
				"elapsed", p.Elapsed.Round(time.Millisecond))
		}),
	)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		go serveMetrics(opts.metricsAddr, reg)
	}

	began := time.Now()
	switch opts.mode {
	case "eager":
		slog.Info("building table", "actions", n, "caps", cfg.Caps().Format(n),
			"window", fmt.Sprintf("[%d, %d)", cfg.PowerfulStart, cfg.PinnacleCap))
		if err := engine.Build(ctx); err != nil {
			return fmt.Errorf("build: %w", err)
		}
	case "on_demand":
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}

	plan, err := engine.Solve(ctx, start, budget)
	if err != nil {
		return err
	}
	elapsed := time.Since(began)
	slog.Info("solved", "mode", opts.mode, "entries", engine.Table().Len(), "elapsed", elapsed.Round(time.Millisecond))
	printPlan(plan, n)

	if opts.simulate > 0 {
		sum, err := rollout.Simulate(ctx, engine, start, budget, opts.simulate, opts.seed)
		if err != nil {
			return err
		}
		fmt.Printf("Rollouts: %d  mean=%.4f  stddev=%.4f  min=%d  max=%d  expected=%.4f\n",
			sum.Episodes, sum.Mean, sum.StdDev, sum.Min, sum.Max, sum.Expected)
	}

	if opts.dbPath != "" {
		if err := export(engine, plan, opts, elapsed); err != nil {
			return err
		}
	}

	if opts.serveAddr != "" {
		return serve(ctx, opts.serveAddr, engine)
	}
	return nil
}

// #endregion run

// #region output
func printPlan(plan solver.Plan, n int) {
	fmt.Printf("Start:  %s\n", plan.Start)
	fmt.Printf("Budget: [%s]\n", plan.Budget.Format(n))
	if plan.Terminal {
		fmt.Println("Nothing left to gain.")
		return
	}
	fmt.Printf("Next:   %s (action %d)\n", plan.ActionName, plan.Action)
	fmt.Printf("Expected gain: %.4f\n", plan.Score)
}

func export(engine *solver.Engine, plan solver.Plan, opts runOptions, elapsed time.Duration) error {
	store, err := policystore.NewStore(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	runID, err := store.Export(engine.Table(), policystore.Summary{
		Mode:       opts.mode,
		Config:     engine.Config(),
		Duration:   elapsed,
		StartState: plan.Start.String(),
		Budget:     plan.Budget.Format(len(engine.Config().Actions)),
		Score:      plan.Score,
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	slog.Info("exported policy", "db", opts.dbPath, "run", runID, "entries", engine.Table().Len())
	return nil
}

// #endregion output

// #region servers
func serve(ctx context.Context, addr string, engine *solver.Engine) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	gs := grpc.NewServer()
	srv := query.NewServer(engine)
	srv.Register(gs)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
		gs.GracefulStop()
	}()

	slog.Info("serving policy", "addr", lis.Addr().String(), "service", query.ServiceName)
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "err", err)
	}
}

// #endregion servers

// #region helpers
func loadConfig(path string) (*gear.Configuration, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func parseStart(cfg *gear.Configuration, s string) (gear.Slots, error) {
	if s == "" {
		var slots gear.Slots
		for i := range slots {
			slots[i] = cfg.PowerfulStart
		}
		return slots, nil
	}
	return gear.ParseSlots(s)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// #endregion helpers
