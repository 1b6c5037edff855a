// Package main implements the CLI driver for the reducer usage mapper.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/715d/reduxmapper/internal/config"
	"github.com/715d/reduxmapper/pkg/reduxmapper"
)

// cliConfig holds the options of the command that do not configure the mapping itself.
type cliConfig struct {
	mapping     config.Config
	watch       bool   // re-run whenever a source file changes
	metricsFile string // write run metrics in textfile format
	traceFile   string // write trace spans as JSON
	profile     bool   // enables CPU and memory profiling
}

const exitError = 1

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg cliConfig

var (
	cpuProfile  *os.File
	stopTracing func(context.Context) error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_ = teardown(nil, nil)
		printError(os.Stderr, err)
		stop()
		os.Exit(exitError)
	}
}

func newRootCmd() *cobra.Command {
	cfg = cliConfig{}
	rootCmd := &cobra.Command{
		Use:   "reduxmapper",
		Short: "Map route containers to the reducers and sagas they use",
		Long: `reduxmapper generates a global and a container-specific reducer mapping file, which
removes the need to manually list all reducers needed to render a route when using
hot module reloading.

Each reducer definition file declares a PRM_REDUCER_NAME constant. A reducer is used by a
container when the container transitively imports one of the reducer's action files. Any
option not given on the command line is read from redux-mapper.json in the project root
(the nearest folder holding package.json).`,
		Example: `  reduxmapper -b app -a app.jsx -c containers -r redux -f actions.js \
    -g generated/globalReducers.js -m generated/reducerMap.js
  reduxmapper --watch                     # options from redux-mapper.json`,
		Args:               cobra.NoArgs,
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("reduxmapper version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	cfg.mapping.RegisterFlags(rootCmd.Flags())
	rootCmd.Flags().BoolVarP(&cfg.watch, "watch", "w", false, "Re-run the mapping whenever a source file changes")
	rootCmd.Flags().StringVar(&cfg.metricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus textfile format")
	rootCmd.Flags().StringVar(&cfg.traceFile, "trace-file", "", "Write OpenTelemetry spans of each run to this file")
	rootCmd.Flags().BoolVar(&cfg.profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")
	return rootCmd
}

func runCommand(cmd *cobra.Command, _ []string) error {
	if cfg.mapping.ShowHelp {
		return cmd.Help()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "reduxmapper %s\nUse -h for a full list of command line options\n\n", version)

	opts, err := loadOptions(cmd, out)
	if err != nil {
		return err
	}
	metrics := reduxmapper.NewMetrics()

	if cfg.watch {
		return watch(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context) error {
			_, err := runMapping(ctx, opts, metrics, cfg.metricsFile)
			return err
		})
	}
	_, err = runMapping(cmd.Context(), opts, metrics, cfg.metricsFile)
	return err
}

// loadOptions locates the project root, merges the side-car file into the flags and
// validates the result.
func loadOptions(cmd *cobra.Command, out io.Writer) (reduxmapper.Options, error) {
	wd, err := os.Getwd()
	if err != nil {
		return reduxmapper.Options{}, fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return reduxmapper.Options{}, err
	}
	values, err := config.LoadFile(root)
	if err != nil {
		return reduxmapper.Options{}, err
	}
	flags := cmd.Flags()
	cfg.mapping.FromFlags(flags)
	if err := cfg.mapping.Merge(values, flags.Changed); err != nil {
		return reduxmapper.Options{}, err
	}
	if cfg.mapping.VerboseLogging {
		configureLogging(true)
	}
	if err := cfg.mapping.Validate(); err != nil {
		return reduxmapper.Options{}, err
	}
	slog.Debug("configuration loaded", "root", root, "side_car", values != nil)
	return cfg.mapping.Options(root, out), nil
}

// runMapping performs one full mapping run with a fresh Mapper and records its outcome.
func runMapping(ctx context.Context, opts reduxmapper.Options, metrics *reduxmapper.Metrics, metricsFile string) (*reduxmapper.Result, error) {
	res, err := execute(ctx, opts)
	metrics.Observe(res, err)
	if metricsFile != "" {
		if werr := metrics.WriteTextfile(metricsFile); werr != nil {
			return res, errors.Join(err, werr)
		}
	}
	return res, err
}

func execute(ctx context.Context, opts reduxmapper.Options) (*reduxmapper.Result, error) {
	m, err := reduxmapper.New(opts)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx)
}

func configureLogging(verbose bool) {
	if !verbose {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	configureLogging(cfg.mapping.VerboseLogging)

	if cfg.traceFile != "" {
		shutdown, err := setupTracing(cfg.traceFile)
		if err != nil {
			return err
		}
		stopTracing = shutdown
	}

	if !cfg.profile {
		return nil
	}

	// Start CPU profiling.
	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		cpuProfile = nil
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if stopTracing != nil {
		if err := stopTracing(context.Background()); err != nil {
			slog.Warn("flushing traces", "err", err)
		}
		stopTracing = nil
	}

	if cpuProfile == nil {
		return nil
	}

	// Stop CPU profiling and close file.
	pprof.StopCPUProfile()
	defer func() {
		_ = cpuProfile.Close()
		cpuProfile = nil
	}()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	// Write memory profile.
	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}
