package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var wipeConfirmed bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all graph data",
	Long: `Delete every entity, relationship, clause, document and job
record while keeping the schema. Intended for local development and
test databases.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeConfirmed, "yes", false, "confirm deletion")
	rootCmd.AddCommand(wipeCmd)
}

func runWipe(cmd *cobra.Command, args []string) error {
	if !wipeConfirmed {
		return fmt.Errorf("refusing to wipe without --yes")
	}

	if err := dbClient.WipeData(context.Background()); err != nil {
		return fmt.Errorf("wipe data: %w", err)
	}

	fmt.Println("All data deleted")
	return nil
}
