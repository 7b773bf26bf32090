package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/san-kum/multinet/internal/config"
	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/experiment"
	"github.com/san-kum/multinet/internal/metrics"
	"github.com/san-kum/multinet/internal/observability"
	"github.com/san-kum/multinet/internal/storage"
	"github.com/san-kum/multinet/internal/tui"
	"github.com/san-kum/multinet/internal/viz"
)

const tracerName = "github.com/san-kum/multinet/cmd/multinet"

var (
	dataDir    string
	logLevel   string
	logFormat  string
	theme      string
	preset     string
	maxIter    int
	trace      bool
	dumpMetric bool
	plot       bool
	noSave     bool
	exportPath string
	outPath    string
	styled     bool
	workers    int
	presets    []string
	live       bool
)

// main wires the multinet CLI and exits with status 1 when a command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "multinet",
		Short:         "coupled power, gas and heat network simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viz.SetTheme(theme)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".multinet", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "grid", "output theme (grid, minimal, plain)")

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a coupled scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use a built-in scenario")
	runCmd.Flags().IntVar(&maxIter, "max-iter", 0, "override run.max_iterations")
	runCmd.Flags().BoolVar(&trace, "trace", false, "print OpenTelemetry spans to stdout")
	runCmd.Flags().BoolVar(&dumpMetric, "metrics", false, "print Prometheus metrics after the run")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot level residuals")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&exportPath, "export", "", "write network results as JSON to this path")
	runCmd.Flags().BoolVar(&live, "live", false, "show controller runs and solves while the run is in progress")

	describeCmd := &cobra.Command{
		Use:   "describe [scenario.yaml]",
		Short: "list the networks and parameter tables of a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  describeScenario,
	}
	describeCmd.Flags().StringVar(&preset, "preset", "", "use a built-in scenario")
	describeCmd.Flags().BoolVar(&styled, "styled", false, "colored listing instead of the plain summary")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run with its residual history",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print the network results of a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [preset]",
		Short: "write a built-in scenario to a YAML file for editing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
			}
			path := outPath
			if path == "" {
				path = args[0] + ".yaml"
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default <preset>.yaml)")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml...]",
		Short: "run several scenarios concurrently and store each run",
		RunE:  runBatch,
	}
	batchCmd.Flags().StringSliceVar(&presets, "preset", nil, "built-in scenarios to include")
	batchCmd.Flags().IntVarP(&workers, "workers", "w", 4, "scenarios solved at the same time")
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	rootCmd.AddCommand(runCmd, batchCmd, describeCmd, listCmd, showCmd, exportCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return observability.NewLogger(observability.LogConfig{Level: logLevel, Format: logFormat})
}

// loadScenario resolves the scenario from --preset or a YAML path.
func loadScenario(args []string) (*config.Config, error) {
	switch {
	case preset != "" && len(args) > 0:
		return nil, fmt.Errorf("give either a scenario file or --preset, not both")
	case preset != "":
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		return cfg, nil
	case len(args) > 0:
		cfg, err := config.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario: %w", err)
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("no scenario: pass a YAML file or --preset (available: %v)", config.ListPresets())
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Run.MaxIterations = maxIter
	}

	log := newLogger()
	if live {
		log = observability.NewLogger(observability.LogConfig{Level: "error", Format: logFormat})
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     trace,
		ServiceName: "multinet",
	}, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCouplingCollector(reg)
	if err != nil {
		return err
	}
	conv := metrics.NewConvergence()

	opts := []experiment.Option{
		experiment.WithLogger(log),
		experiment.WithTracer(otel.Tracer(tracerName)),
		experiment.WithObserver(collector),
		experiment.WithObserver(conv),
	}
	var watcher *tui.Watcher
	if live {
		watcher = tui.NewWatcher(cfg.Name)
		opts = append(opts, experiment.WithObserver(watcher))
	}

	exp := experiment.New(cfg, opts...)
	if err := exp.Setup(); err != nil {
		return err
	}

	var res *coupling.Result
	var runErr error
	if watcher != nil {
		res, runErr = watcher.Run(ctx, exp.Run)
	} else {
		res, runErr = exp.Run(ctx)
	}
	if res == nil {
		return runErr
	}

	fmt.Println(viz.Summary(res))
	if plot {
		fmt.Println(viz.PlotResiduals(conv.Residuals(), "log10 residual per iteration"))
		fmt.Println()
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Name, exp.MultiNet(), res)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", viz.Label("run id:"), runID)
	}
	if exportPath != "" {
		if err := storage.ExportJSON(exportPath, exp.MultiNet(), res); err != nil {
			return err
		}
	}
	if dumpMetric {
		fmt.Println()
		if err := collector.WriteText(os.Stdout); err != nil {
			return err
		}
	}
	return runErr
}

func runBatch(cmd *cobra.Command, args []string) error {
	var cfgs []*config.Config
	for _, name := range presets {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		cfgs = append(cfgs, cfg)
	}
	for _, path := range args {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load scenario %s: %w", path, err)
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) == 0 {
		return fmt.Errorf("no scenarios: pass YAML files or --preset")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes := experiment.NewEnsemble(cfgs, workers, experiment.WithLogger(newLogger())).Run(ctx)

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSTATE\tSOLVES\tRUN\tERROR")

	failed := 0
	for _, out := range outcomes {
		state, solves, runID, msg := "-", 0, "-", ""
		if out.Err != nil {
			failed++
			msg = out.Err.Error()
		}
		if out.Result != nil {
			state = out.Result.State.String()
			solves = out.Result.Solves
			if !noSave {
				id, err := st.Save(out.Scenario, out.MultiNet, out.Result)
				if err != nil {
					return err
				}
				runID = id
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", out.Scenario, state, solves, runID, msg)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(outcomes))
	}
	return nil
}

func describeScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(args)
	if err != nil {
		return err
	}
	exp := experiment.New(cfg, experiment.WithLogger(newLogger()))
	if err := exp.Setup(); err != nil {
		return err
	}
	if styled {
		fmt.Print(viz.Describe(exp.MultiNet()))
		return nil
	}
	fmt.Println(exp.MultiNet().Describe())
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTATE\tITER\tSOLVES\tDURATION")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.1fms\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.State,
			run.TotalIterations(),
			run.Solves,
			run.DurationMS,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadIterations(runID)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", viz.Label("run:"), meta.ID)
	fmt.Printf("%s %s\n", viz.Label("scenario:"), meta.Scenario)
	fmt.Printf("%s %s\n", viz.Label("state:"), viz.StateBadge(meta.State))
	if meta.Error != "" {
		fmt.Printf("%s %s (level %s)\n", viz.Label("error:"), meta.Error, meta.Level)
	}
	fmt.Printf("%s %v\n\n", viz.Label("networks:"), meta.Networks)

	residuals := make([]float64, len(rows))
	for i, r := range rows {
		residuals[i] = r.Residual
	}
	fmt.Println(viz.PlotResiduals(residuals, "log10 residual per iteration"))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if _, err := st.Load(args[0]); err != nil {
		return err
	}
	snap, err := st.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
