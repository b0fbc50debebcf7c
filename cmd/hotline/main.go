package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/twilio/twilio-go"
	"go.uber.org/zap"

	"github.com/mutualaidnyc/hotline/internal/config"
	"github.com/mutualaidnyc/hotline/internal/server"
	"github.com/mutualaidnyc/hotline/pkg/clients/taskrouterclient"
	"github.com/mutualaidnyc/hotline/pkg/clients/twilioclient"
	"github.com/mutualaidnyc/hotline/pkg/core/services"
	"github.com/mutualaidnyc/hotline/pkg/postgres"
	"github.com/mutualaidnyc/hotline/pkg/schedule"
	"github.com/mutualaidnyc/hotline/pkg/utils/logging"
)

const legacyFetchTimeout = 5 * time.Second

// App holds the application dependencies
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	database   *postgres.DB
	callRouter *services.CallRouter
	shiftMgr   *services.ShiftManager
	callLogger *services.CallLogger
	gate       *services.ScheduleGate
	ctx        context.Context
	cancel     context.CancelFunc
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hotline",
		Short: "Mutual Aid NYC hotline - volunteer call routing and shifts",
		Long:  `Webhook server and jobs for the volunteer hotline: call distribution, voicemail fallback, and shift/roster lifecycle.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
				app.cancel()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: hotline_config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(startShiftCmd())
	rootCmd.AddCommand(endShiftCmd())
	rootCmd.AddCommand(shiftWarningsCmd())
	rootCmd.AddCommand(syncWorkersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, clients, stores and services
func initApp() error {
	var err error
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app = &App{ctx: ctx, cancel: cancel}

	app.logger, err = logging.InitLogger("hotline")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Loading configuration")
	if configPath != "" {
		app.cfg, err = config.LoadFromPath(configPath)
	} else {
		app.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.logger.Info("Loading schedule", zap.String("path", app.cfg.SchedulePath))
	sched, err := schedule.Load(app.cfg.SchedulePath)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	app.logger.Info("Connecting to database")
	app.database, err = postgres.NewDB(ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := app.database.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: app.cfg.Twilio.AccountSID,
		Password: app.cfg.Twilio.AuthToken,
	})
	routerClient := taskrouterclient.New(rest, app.cfg.Twilio.WorkspaceSID)
	telephony := twilioclient.New(rest, app.cfg.Twilio.CallerID)

	var fetcher *schedule.Fetcher
	if app.cfg.LegacyScheduleURL != "" {
		fetcher = schedule.NewFetcher(nil, legacyFetchTimeout)
	}
	app.gate = services.NewScheduleGate(sched, fetcher, app.cfg.LegacyScheduleURL, app.cfg.Timezone, app.logger)

	app.logger.Info("Resolving workspace activities")
	app.callRouter, err = services.NewCallRouter(routerClient, telephony, app.database, app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create call router: %w", err)
	}

	app.shiftMgr, err = services.NewShiftManager(routerClient, app.database, telephony, app.gate, app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create shift manager: %w", err)
	}

	app.callLogger = services.NewCallLogger(app.database, app.cfg, app.logger)

	app.logger.Info("Application initialized")
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(
				app.callRouter,
				app.shiftMgr,
				app.callLogger,
				app.gate,
				app.cfg,
				app.logger,
				prometheus.NewRegistry(),
			)
			return srv.ListenAndServe(app.ctx)
		},
	}
}

func startShiftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-shift <shift_name>",
		Short: "Activate today's rostered volunteers for a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.shiftMgr.StartShift(app.ctx, args[0])
		},
	}
}

func endShiftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end-shift",
		Short: "Sign out every active volunteer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.shiftMgr.EndShift(app.ctx)
		},
	}
}

func shiftWarningsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shift-warnings",
		Short: "Text tomorrow's volunteers a shift reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.shiftMgr.SendShiftWarnings(app.ctx)
		},
	}
}

func syncWorkersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-workers",
		Short: "Reconcile the roster against the routing platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.shiftMgr.SyncWorkers(app.ctx)
		},
	}
}
