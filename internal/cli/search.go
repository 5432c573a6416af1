package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joonhokim/yakgwan/internal/service"
)

var (
	searchDocID string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the graph without answer synthesis",
	Long: `Search clauses and entities by hybrid full-text and vector
retrieval, printing the raw matches. No LLM call is made beyond the
query embedding.

Examples:
  yakgwan search "면책기간"
  yakgwan search "C77" --doc a1b2c3d4 -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDocID, "doc", "d", "", "restrict to one document ID")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results per kind")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	if err := initLLM(ctx, false); err != nil {
		return err
	}

	engine := service.NewQueryEngine(dbClient, embedder, nil, 0, logger)
	result, err := engine.Search(ctx, query, searchDocID, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(result.Entities) == 0 && len(result.Clauses) == 0 {
		fmt.Println("No matches found")
		return nil
	}

	if len(result.Clauses) > 0 {
		fmt.Printf("Clauses (%d):\n", len(result.Clauses))
		for _, cl := range result.Clauses {
			fmt.Printf("  제%d조", cl.Article)
			if cl.Title != "" {
				fmt.Printf("(%s)", cl.Title)
			}
			fmt.Printf(" [doc %s, p.%d]\n", cl.DocID, cl.Page)
			fmt.Printf("    %s\n", truncate(cl.Text, 120))
		}
	}

	if len(result.Entities) > 0 {
		fmt.Printf("\nEntities (%d):\n", len(result.Entities))
		for _, e := range result.Entities {
			fmt.Printf("  %s [%s", e.Label, e.Type)
			if e.Code != "" {
				fmt.Printf(", %s", e.Code)
			}
			fmt.Printf("] doc %s\n", e.DocID)
			if e.Description != "" {
				fmt.Printf("    %s\n", truncate(e.Description, 120))
			}
		}
	}

	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
