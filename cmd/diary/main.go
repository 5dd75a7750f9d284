package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opendiary/diary/internal/config"
	"github.com/opendiary/diary/internal/metrics"
	"github.com/opendiary/diary/internal/server"
	"github.com/opendiary/diary/internal/storage"
	"github.com/opendiary/diary/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application bundles the components of the diary service
type Application struct {
	config  *config.Config
	storage storage.Storage
	metrics *metrics.Manager
	server  *server.HTTPServer
}

// NewApplication wires up storage, metrics and the HTTP server
func NewApplication(cfg *config.Config) (*Application, error) {
	app := &Application{config: cfg}

	if err := initLogger(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.metrics = metrics.NewManager()

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap storage schema: %w", err)
	}
	app.storage = storage.NewStorageWithMetrics(store, app.metrics)

	if src, ok := store.(interface{ DB() *sql.DB }); ok {
		app.metrics.ObserveConnections(src.DB())
	}

	serverCfg := &server.ServerConfig{
		Port:          cfg.Server.Port,
		Host:          cfg.Server.Host,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		EnableMetrics: cfg.Server.EnableMetrics,
		EnableHealth:  cfg.Server.EnableHealth,
	}

	app.server, err = server.NewHTTPServer(serverCfg, app.storage, app.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return app, nil
}

// Start starts the HTTP server
func (app *Application) Start() error {
	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	utils.GetLogger().WithField("address",
		fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port)).
		Info("diary service started")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	logger := utils.GetLogger()

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			logger.WithError(err).Error("Failed to close storage")
		}
	}

	logger.Info("diary service stopped")
	return nil
}

func initLogger(cfg *config.Config) error {
	logCfg := cfg.Logging
	level := logCfg.Level
	if flagLevel := viper.GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}
	return utils.InitLogger(level, logCfg.Format, logCfg.Output, logCfg.File)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStorage loads the config and returns connected, migrated storage for
// the one-shot entry commands
func openStorage() (*config.Config, storage.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage: %w", err)
	}
	if err := store.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to bootstrap storage schema: %w", err)
	}

	return cfg, store, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "diary",
	Short:   "Personal journal with SQLite and PostgreSQL backends",
	Long:    `diary stores journal entries in SQLite or PostgreSQL and serves them over a CLI and an HTTP API. It also ships the post-restore schema repair used after loading a database backup.`,
	Version: AppVersion,
}

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diary HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := NewApplication(cfg)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

		if err := app.Start(); err != nil {
			return fmt.Errorf("failed to start application: %w", err)
		}

		<-signalChan
		fmt.Println("\nReceived shutdown signal, stopping...")

		return app.Stop()
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diary %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Println("Configuration is valid!")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)

		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// cancelOnInterrupt returns a context cancelled by SIGINT/SIGTERM
func cancelOnInterrupt() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
