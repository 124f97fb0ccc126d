// cmd/glucose-log/foods.go
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/models"
)

var foodsCmd = &cobra.Command{
	Use:   "foods",
	Short: "Print the food catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := catalog.NewDefault()
		if path, _ := cmd.Flags().GetString("catalog"); path != "" {
			entries, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}
			c.Replace(entries)
		}

		entries := c.Entries()
		if name, _ := cmd.Flags().GetString("category"); name != "" {
			category := models.FoodCategory(strings.ToLower(name))
			if !category.Valid() {
				return fmt.Errorf("unknown category %q", name)
			}
			entries = c.ByCategory(category)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tCATEGORY\tKCAL\tCARBS\tGI\tPORTION")
		for _, e := range entries {
			n := e.Nutrition
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.1f\t%s\t%.0fg\n", e.Key, e.Name, e.Category, n.Calories, n.Carbohydrates, n.GlycemicIndex, n.PortionSize)
		}
		return w.Flush()
	},
}

func init() {
	foodsCmd.Flags().String("catalog", os.Getenv("FOOD_CATALOG_PATH"), "YAML food catalog to print instead of the built-in table")
	foodsCmd.Flags().String("category", "", "Only foods of this category")
	rootCmd.AddCommand(foodsCmd)
}
