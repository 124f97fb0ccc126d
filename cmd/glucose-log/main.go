// cmd/glucose-log/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcp-glucose-log/internal/server"
)

var logFormat string

var rootCmd = &cobra.Command{
	Use:           "glucose-log",
	Short:         "Meal and glucose log tool server",
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return setupLogging(os.Getenv("LOG_LEVEL"), logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or console")
	rootCmd.SetVersionTemplate("mcp-glucose-log version {{.Version}}\n")
}

func setupLogging(level, format string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		lvl = parsed
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("glucose-log failed")
		os.Exit(1)
	}
}
