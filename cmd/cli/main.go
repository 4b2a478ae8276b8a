package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carebridge/care-matching/cmd/cli/commands"
	"github.com/carebridge/care-matching/internal/config"
	"github.com/carebridge/care-matching/pkg/clients/explainclient"
	"github.com/carebridge/care-matching/pkg/clients/gmailclient"
	"github.com/carebridge/care-matching/pkg/clients/sheetsclient"
	"github.com/carebridge/care-matching/pkg/core/services"
	"github.com/carebridge/care-matching/pkg/feedback"
	"github.com/carebridge/care-matching/pkg/postgres"
	"github.com/carebridge/care-matching/pkg/utils/logging"
)

const serviceName = "care-matching"

var (
	env         string
	app         = &commands.AppContext{}
	redisClient *redis.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "care-matching",
		Short: "Care assignment matching - suggest, validate and schedule staff visits",
		Long: `A CLI for ranking staff against unscheduled care requirements, recording
suggestion outcomes, and routing uncovered work to partner organizations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.GenerateSuggestionsCmd(app))
	rootCmd.AddCommand(commands.SuggestionCmd(app))
	rootCmd.AddCommand(commands.AcceptCmd(app))
	rootCmd.AddCommand(commands.AcceptBatchCmd(app))
	rootCmd.AddCommand(commands.RejectCmd(app))
	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.EligibleStaffCmd(app))
	rootCmd.AddCommand(commands.GridCmd(app))
	rootCmd.AddCommand(commands.MarketplaceCmd(app))
	rootCmd.AddCommand(commands.SspoRankingsCmd(app))
	rootCmd.AddCommand(commands.ExpireSuggestionsCmd(app))
	rootCmd.AddCommand(commands.RunSweeperCmd(app))
	rootCmd.AddCommand(commands.LedgerStatsCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, clients and the engine
func initApp() error {
	var err error
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.Int64("organization_id", app.Cfg.OrganizationID))

	app.Logger.Info("Connecting to database")
	app.Database, err = postgres.NewDB(app.Ctx, app.Cfg.Secrets.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Logger.Debug("Database connected successfully")

	deps := services.Deps{
		Store:     app.Database,
		Logger:    app.Logger,
		Publisher: feedback.NopPublisher{},
	}

	if addr := app.Cfg.Feedback.RedisAddr; addr != "" {
		app.Logger.Info("Initializing outcome publisher", zap.String("redis_addr", addr), zap.String("stream", app.Cfg.Feedback.Stream))
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: app.Cfg.Secrets.RedisPassword,
			DB:       app.Cfg.Feedback.RedisDB,
		})
		deps.Publisher = feedback.NewRedisPublisher(redisClient, app.Cfg.Feedback.Stream, app.Cfg.Feedback.MaxLen)
	}

	if baseURL := app.Cfg.Explain.BaseURL; baseURL != "" {
		app.Logger.Info("Initializing explanation client", zap.String("base_url", baseURL))
		timeout := time.Duration(app.Cfg.Explain.TimeoutSeconds) * time.Second
		deps.Explainer = explainclient.NewClient(baseURL, app.Cfg.Secrets.ExplainAPIKey, timeout)
	}

	if path := app.Cfg.Secrets.GmailCredentialsFile; path != "" {
		app.Logger.Info("Initializing gmail client")
		credentials, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read gmail credentials: %w", err)
		}
		gmail, err := gmailclient.NewClient(app.Ctx, credentials, app.Cfg.GmailSender)
		if err != nil {
			return fmt.Errorf("failed to create gmail client: %w", err)
		}
		deps.Notifier = gmail
		app.Logger.Debug("Gmail client initialized successfully")
	}

	if path := app.Cfg.Secrets.SheetsCredentialsFile; path != "" {
		app.Logger.Info("Initializing sheets client")
		credentials, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		app.Sheets, err = sheetsclient.NewClient(app.Ctx, credentials)
		if err != nil {
			return fmt.Errorf("failed to create sheets client: %w", err)
		}
		app.Logger.Debug("Sheets client initialized successfully")
	}

	app.Engine, err = services.NewEngine(deps, app.Cfg.EngineSettings())
	if err != nil {
		return fmt.Errorf("failed to create matching engine: %w", err)
	}
	app.Logger.Info("Matching engine initialized successfully")

	return nil
}

func shutdown() {
	if redisClient != nil {
		redisClient.Close()
		redisClient = nil
	}
	if app.Database != nil {
		app.Database.Close()
		app.Database = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
