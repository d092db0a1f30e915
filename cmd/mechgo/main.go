package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/MechGo/internal/config"
	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/hw/gpio"
	"github.com/cjeanneret/MechGo/internal/input"
	"github.com/cjeanneret/MechGo/internal/robot"
	"github.com/cjeanneret/MechGo/internal/telemetry"
	"github.com/cjeanneret/MechGo/internal/web"
)

var (
	cfgPath    string
	webPort    int
	recordPath string
	runLabel   string
	mockGPIO   bool
	dbPath     string
	plotTable  string
	plotKey    string
	plotHeight int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mechgo",
		Short:         "robot mechanism control loop",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join("configs", "robot.yaml"), "path to config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the teleop control loop",
		Args:  cobra.NoArgs,
		RunE:  runRobot,
	}
	runCmd.Flags().IntVar(&webPort, "web", 0, "start web server on port; --web alone for 8080")
	runCmd.Flags().Lookup("web").NoOptDefVal = "8080"
	runCmd.Flags().StringVar(&recordPath, "record", "", "record telemetry to this sqlite file")
	runCmd.Flags().StringVar(&runLabel, "label", "", "label of the recorded run")
	runCmd.Flags().BoolVar(&mockGPIO, "mock", false, "force mock GPIO")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "load the config and control files and report every problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConfig(cmd.Context(), cmd.OutOrStdout(), cfgPath)
		},
	}

	bindingsCmd := &cobra.Command{
		Use:   "bindings",
		Short: "print the function binding table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printBindings(cmd.Context(), cmd.OutOrStdout(), cfgPath)
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd.Context(), cmd.OutOrStdout(), dbPath)
		},
	}
	runsCmd.Flags().StringVar(&dbPath, "db", "mechgo.db", "telemetry database")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one recorded telemetry key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return plotRun(cmd.Context(), cmd.OutOrStdout(), dbPath, args[0], plotTable, plotKey, plotHeight)
		},
	}
	plotCmd.Flags().StringVar(&dbPath, "db", "mechgo.db", "telemetry database")
	plotCmd.Flags().StringVar(&plotTable, "table", "ArmNT", "telemetry table")
	plotCmd.Flags().StringVar(&plotKey, "key", "Position - Primary", "telemetry key")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "graph height in lines")

	rootCmd.AddCommand(runCmd, checkCmd, bindingsCmd, runsCmd, plotCmd)
	return rootCmd
}

// loadConfig validates the path and loads the robot config.
func loadConfig(path string) (*config.Config, error) {
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// validatePort checks a --web value: 0 disables the server.
func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", port)
	}
	return nil
}

func runRobot(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if err := validatePort(webPort); err != nil {
		return err
	}

	// CLI flags override the config file
	if webPort > 0 {
		cfg.Telemetry.WebPort = webPort
	}
	if recordPath != "" {
		cfg.Telemetry.SQLitePath = recordPath
	}
	if runLabel != "" {
		cfg.Telemetry.RunLabel = runLabel
	}
	if mockGPIO {
		cfg.Defaults.MockGPIO = true
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	var broadcaster *web.Broadcaster
	if cfg.Telemetry.WebPort > 0 {
		broadcaster = web.NewBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO failed: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			debug.Errorf("closing GPIO driver failed: %v", err)
		}
	}()

	r, err := robot.Build(ctx, cfg, gpioDriver)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			debug.Errorf("closing robot failed: %v", err)
		}
	}()

	var srv *web.Server
	if broadcaster != nil {
		srv, err = web.NewServer(fmt.Sprintf(":%d", cfg.Telemetry.WebPort), web.Deps{
			Broadcaster: broadcaster,
			Tables:      r.Tables,
			Registry:    r.Registry,
			Teleop:      r.Teleop,
			WebPads:     r.WebPads,
		})
		if err != nil {
			return err
		}
	}

	loop := robot.NewLoop(r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	if r.Recorder != nil {
		g.Go(func() error { return r.Recorder.Run(gctx, telemetry.FlushInterval) })
	}
	if srv != nil {
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}

// buildOffline builds the robot on mock GPIO without recording, for the
// inspection commands.
func buildOffline(ctx context.Context, path string) (*robot.Robot, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Defaults.MockGPIO = true
	cfg.Telemetry.SQLitePath = ""
	debug.Init(debug.LevelOff)
	g, err := gpio.NewDriver(true)
	if err != nil {
		return nil, err
	}
	return robot.Build(ctx, cfg, g)
}

func checkConfig(ctx context.Context, w io.Writer, path string) error {
	r, err := buildOffline(ctx, path)
	if err != nil {
		return err
	}
	defer r.Close()

	motors, servos := r.Arena.Len()
	fmt.Fprintf(w, "config: %s\n", path)
	fmt.Fprintf(w, "actuators: %d motors, %d servos\n", motors, servos)
	for _, m := range r.Registry.All() {
		records := 0
		if cf := r.Controls[m.GetType()]; cf != nil {
			records = len(cf.Records)
		}
		fmt.Fprintf(w, "mechanism: %s (%s) table=%s controls=%d\n", m.GetType(), m.Kind(), m.GetNetworkTableName(), records)
	}
	errs := multierr.Errors(r.Problems)
	for _, e := range errs {
		fmt.Fprintf(w, "problem: %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d problem(s) found", len(errs))
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func printBindings(ctx context.Context, w io.Writer, path string) error {
	r, err := buildOffline(ctx, path)
	if err != nil {
		return err
	}
	defer r.Close()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tBINDING")
	for f, b := range r.Teleop.Bindings() {
		fmt.Fprintf(tw, "%s\t%s\n", input.FunctionID(f), b)
	}
	return tw.Flush()
}

func listRuns(ctx context.Context, w io.Writer, path string) error {
	rec, err := openRecorder(ctx, path)
	if err != nil {
		return err
	}
	defer rec.Close()

	runs, err := rec.Runs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSTARTED\tSAMPLES")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", run.ID, run.Label, run.StartedAt.Format("2006-01-02 15:04:05"), run.Samples)
	}
	return tw.Flush()
}

func plotRun(ctx context.Context, w io.Writer, path, runID, table, key string, height int) error {
	rec, err := openRecorder(ctx, path)
	if err != nil {
		return err
	}
	defer rec.Close()

	data, err := rec.Series(ctx, runID, table, key)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("no data for %s/%s in run %s", table, key, runID)
	}
	fmt.Fprintf(w, "run: %s\n", runID)
	fmt.Fprintf(w, "samples: %d\n\n", len(data))
	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(80),
		asciigraph.Caption(table+" / "+key),
	)
	fmt.Fprintln(w, graph)
	return nil
}

func openRecorder(ctx context.Context, path string) (*telemetry.SQLiteRecorder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("telemetry database: %w", err)
	}
	rec := telemetry.NewSQLiteRecorder(path)
	if err := rec.Init(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}
