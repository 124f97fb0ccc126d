// cmd/glucose-log/serve.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcp-glucose-log/internal/server"
)

var serveConfig = server.DefaultConfig()

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP tool server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := serveConfig
		// Use address if provided, otherwise use host
		if address, _ := cmd.Flags().GetString("address"); address != "" {
			cfg.Host = address
		}
		if cfg.Transport != "http" {
			return fmt.Errorf("unsupported transport %q", cfg.Transport)
		}
		cfg.ApplyEnv()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		srv, err := server.NewGlucoseLogServer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(ctx)
		}()

		var runErr error
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case runErr = <-errCh:
			if runErr != nil {
				log.Error().Err(runErr).Msg("server error")
			}
		}

		log.Info().Msg("shutting down")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
		return runErr
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveConfig.Transport, "transport", serveConfig.Transport, "Transport mode: http")
	f.IntVar(&serveConfig.Port, "port", serveConfig.Port, "Port for HTTP transport")
	f.StringVar(&serveConfig.Host, "host", serveConfig.Host, "Host address")
	f.String("address", "", "Address (alias for host)")
	f.StringVar(&serveConfig.DBPath, "db-path", serveConfig.DBPath, "Database path")
	f.StringVar(&serveConfig.CatalogPath, "catalog", "", "YAML food catalog to load and watch (default $FOOD_CATALOG_PATH)")
	f.DurationVar(&serveConfig.ClassifyDelay, "classify-delay", serveConfig.ClassifyDelay, "Artificial delay of the placeholder classifier")
	f.BoolVar(&serveConfig.RekognitionEnabled, "rekognition", false, "Classify photos with AWS Rekognition before the placeholder")
	rootCmd.AddCommand(serveCmd)
}
