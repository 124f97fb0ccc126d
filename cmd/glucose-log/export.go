// cmd/glucose-log/export.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcp-glucose-log/internal/mealstore"
	"mcp-glucose-log/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the saved meals as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db-path")
		stor, err := storage.NewSQLiteStorage(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer stor.Close()

		meals, err := mealstore.Open(cmd.Context(), stor, nil)
		if err != nil {
			return err
		}
		data, err := meals.ExportJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	exportCmd.Flags().String("db-path", "/data/glucose-log.db", "Database path")
	rootCmd.AddCommand(exportCmd)
}
