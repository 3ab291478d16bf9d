package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bilgisen/quickbyte/internal/api"
	"github.com/bilgisen/quickbyte/internal/config"
	"github.com/bilgisen/quickbyte/internal/logger"
)

var version = "dev"

var (
	pretty bool
	cfg    *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "quickbyte",
	Short:        "News aggregation service",
	Long:         "quickbyte merges NewsAPI results with a local article store and serves them over HTTP.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		output := cfg.LogFile
		if output == "" {
			output = "stdout"
		}
		return logger.Init(logger.Config{
			Level:  cfg.LogLevel,
			Output: output,
			Pretty: pretty || !cfg.IsProduction(),
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Force human readable log output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(evictCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()
		log.Info().Str("version", version).Str("env", cfg.Env).Msg("Starting application...")

		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			log.Info().Msg("Closing store and cache...")
			if err := svc.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing services")
			}
		}()

		if err := svc.scheduler.Start(); err != nil {
			return err
		}

		app := api.NewApp(api.NewHandlers(svc.aggregator, svc.store, svc.scheduler), cfg)

		serverErr := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Port).Msg("Starting server")
			serverErr <- app.Listen(":" + cfg.Port)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		select {
		case <-quit:
		case err := <-serverErr:
			log.Error().Err(err).Msg("Server error")
		}

		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := svc.scheduler.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("Background jobs did not finish before shutdown")
		}

		log.Info().Msg("Server exited properly")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the current headlines once and store them",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		n, err := svc.scheduler.RunRefresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("refreshing headlines: %w", err)
		}

		fmt.Printf("Stored %d headline(s) for %q\n", n, cfg.RefreshCountry)
		return nil
	},
}

var evictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Delete articles older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.scheduler.RunEviction(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Evicted %d article(s) published before %s\n", res.Deleted, res.Cutoff.Format("2006-01-02 15:04"))
		if res.Archived > 0 {
			fmt.Printf("Archived %d article(s) to bucket %s\n", res.Archived, cfg.R2Bucket)
		}
		return nil
	},
}
