package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saturnines/ptaf-export/pkg/auth"
	"github.com/saturnines/ptaf-export/pkg/client"
	"github.com/saturnines/ptaf-export/pkg/config"
	"github.com/saturnines/ptaf-export/pkg/rules"
	"github.com/saturnines/ptaf-export/pkg/sequence"
	"github.com/saturnines/ptaf-export/pkg/server"
	"github.com/saturnines/ptaf-export/pkg/snapshots"
	"github.com/saturnines/ptaf-export/pkg/tenants"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
	actions string

	settings *config.Settings
	logger   *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ptaf-export",
	Short: "PTAF PRO configuration exporter",
	Long: `ptaf-export authenticates against a PTAF PRO installation, enumerates
tenants and persists per-tenant configuration snapshots (and optionally
protection rules and actions) as JSON files on local disk, pruning old
snapshots by retention age.

Configuration comes from a YAML file (--config) or, when none is given,
from environment variables / a .env file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// exportCmd runs the stage-1 snapshot export once and exits.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export full config snapshots for all tenants",
	RunE:  runExport,
}

// runCmd executes a numbered action sequence, e.g. "1,2,3".
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a sequence of export actions and exit",
	Long: `Runs a comma-separated sequence of numbered actions:

  1. Export full config snapshots for all tenants
  2. Export rules for all tenants
  3. Export actions for all tenants

The sequence comes from --actions or the PTAF_ACTION_SEQUENCE environment
variable. Code 0 stops the sequence.`,
	RunE: runSequenceCmd,
}

// serveCmd starts the HTTP wrapper.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP wrapper (health check and export trigger)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to .env file (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVar(&actions, "actions", "", "comma-separated action codes, e.g. '1,2,3'")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

// initApp loads configuration and builds the logger.
func initApp(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotenv(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	var err error
	if cfgFile != "" {
		settings, err = config.NewDefaultLoader().Load(cfgFile)
	} else {
		settings, err = config.FromEnv()
	}
	if err != nil {
		return err
	}

	zapCfg := zap.NewProductionConfig()
	level, parseErr := zapcore.ParseLevel(settings.Log.Level)
	if parseErr != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}
	if settings.Log.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, settings.Log.File)
	}

	logger, err = zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// app bundles the wired exporter components for one run.
type app struct {
	snapshots *snapshots.Exporter
	rules     *rules.Exporter
}

// buildApp wires HTTP client, auth provider and exporters from settings.
func buildApp(settings *config.Settings, logger *zap.Logger) (*app, error) {
	httpClient := &http.Client{Timeout: time.Duration(settings.RequestTimeout)}
	if settings.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	provider, err := auth.NewProvider(settings, httpClient, logger)
	if err != nil {
		return nil, err
	}

	apiClient := client.New(settings.APIBase(),
		client.WithHTTPClient(httpClient),
		client.WithLogger(logger))

	tenantSvc := tenants.NewService(apiClient, provider,
		settings.Export.TenantsEndpoint,
		settings.OnlyTenants, settings.SkipTenants,
		logger)

	return &app{
		snapshots: snapshots.NewExporter(apiClient, provider, tenantSvc,
			settings.Export.SnapshotsDir,
			settings.Export.SnapshotEndpoint,
			settings.Export.RetentionDays,
			logger),
		rules: rules.NewExporter(apiClient, provider, tenantSvc,
			settings.Export.RulesDir,
			settings.Export.ActionsDir,
			settings.Export.RulesEndpoint,
			settings.Export.ActionsEndpoint,
			logger),
	}, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(settings, logger)
	if err != nil {
		return err
	}

	paths, err := a.snapshots.ExportAll(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no snapshots were exported")
		return nil
	}
	logger.Info("export finished", zap.Int("snapshots", len(paths)))
	return nil
}

// newRunner builds the numbered action registry over one wired app.
func newRunner(a *app, logger *zap.Logger) *sequence.Runner {
	return sequence.NewRunner(logger,
		sequence.Action{
			Code:  1,
			Title: "Export full config snapshots for all tenants",
			Run: func(ctx context.Context) error {
				_, err := a.snapshots.ExportAll(ctx)
				return err
			},
		},
		sequence.Action{
			Code:  2,
			Title: "Export rules for all tenants",
			Run: func(ctx context.Context) error {
				_, err := a.rules.ExportRules(ctx)
				return err
			},
		},
		sequence.Action{
			Code:  3,
			Title: "Export actions for all tenants",
			Run: func(ctx context.Context) error {
				files, soft, err := a.rules.ExportActions(ctx)
				if err != nil {
					return err
				}
				for _, softErr := range soft {
					logger.Error("actions export warning", zap.Error(softErr))
				}
				logger.Info("exported action files", zap.Int("count", len(files)))
				return nil
			},
		},
	)
}

func runSequenceCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(settings, logger)
	if err != nil {
		return err
	}
	runner := newRunner(a, logger)

	seq := actions
	if seq == "" {
		seq = os.Getenv("PTAF_ACTION_SEQUENCE")
	}
	if seq == "" {
		fmt.Println("No action sequence specified. Available actions:")
		for _, line := range runner.Titles() {
			fmt.Println("  " + line)
		}
		fmt.Println("  0. Stop")
		return nil
	}

	codes, err := sequence.Parse(seq)
	if err != nil {
		return err
	}
	return runner.Run(ctx, codes)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A fresh exporter per trigger: concurrent triggers never share
	// token state, matching the one-shot CLI behavior.
	factory := func() (server.SnapshotService, error) {
		a, err := buildApp(settings, logger)
		if err != nil {
			return nil, err
		}
		return a.snapshots, nil
	}

	srv := server.New(settings.Server.Listen, factory, logger)
	return srv.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
