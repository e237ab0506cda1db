// Command crashgraph turns a flat road-crash CSV into graph node and
// relationship tables.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crashgraph/internal/engine"
	"crashgraph/internal/logging"
)

var (
	version = "0.1.0"
	commit  = "dev" // set via ldflags: -X main.commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L().Error("crashgraph failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crashgraph",
		Short: "Normalize road-crash records into graph import tables",
		Long: `crashgraph reads a wide road-crash CSV (one row per person involved in a
crash) and writes deduplicated Person, Crash, Location and DateTime node
tables plus the relationship tables linking them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newVersionCmd(), newTransformCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crashgraph v%s (%s)\n", version, commit)
		},
	}
}

type transformFlags struct {
	cfg      engine.Config
	logLevel string
	logJSON  bool
}

func newTransformCmd() *cobra.Command {
	var f transformFlags
	env := logging.FromEnv()

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Run the pipeline once",
		Example: `  crashgraph transform --input crashes.csv --output import/
  crashgraph transform --input crashes.csv --output import/ --mode MODE_B
  crashgraph transform --pipeline pipeline.yml --push-gateway http://pushgateway:9091`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd.Context(), cmd.ErrOrStderr(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.cfg.Overrides.Input, "input", "i", "", "input CSV file")
	fl.StringVarP(&f.cfg.Overrides.Output, "output", "o", "", "output directory for the csv sink")
	fl.StringVarP(&f.cfg.Overrides.Mode, "mode", "m", "", "where the road type lives: MODE_A (Crash) or MODE_B (Location)")
	fl.StringVar(&f.cfg.Overrides.Dedup, "dedup", "", "deduplication strategy: single or two-pass")
	fl.StringVar(&f.cfg.Overrides.DuplicatePerson, "duplicate-person", "", "repeated person ID policy: warn or fail")
	fl.StringVarP(&f.cfg.PipelineYml, "pipeline", "p", "", "pipeline.yml; flags override its values")
	fl.StringVar(&f.cfg.PushGateway, "push-gateway", "", "Prometheus Pushgateway URL for run metrics")
	fl.StringVar(&f.cfg.Job, "push-job", "crashgraph", "Pushgateway job name")
	fl.StringVar(&f.logLevel, "log-level", env.Level, "log level: debug, info, warn, error (env "+logging.EnvLevel+")")
	fl.BoolVar(&f.logJSON, "log-json", env.JSON, "log as JSON (env "+logging.EnvJSON+")")
	return cmd
}

func runTransform(ctx context.Context, logOut io.Writer, f transformFlags) error {
	logging.Configure(logging.Options{Level: f.logLevel, JSON: f.logJSON, Output: logOut})

	e, err := engine.Bootstrap(ctx, f.cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if _, err := e.Run(ctx); err != nil {
		return err
	}
	return nil
}
