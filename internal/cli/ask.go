package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joonhokim/yakgwan/internal/service"
)

var (
	askDocIDs     []string
	askDepth      int
	askOutputFile string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a coverage question and get a cited answer",
	Long: `Ask a natural-language question about ingested policies.

Retrieval combines full-text and vector search over clauses and
entities, then follows relationship edges to surface conditions and
exclusions the question never mentioned. The answer cites its source
articles and carries a confidence score; when nothing relevant is
found the confidence is 0 and no answer is fabricated.

Examples:
  yakgwan ask "간암 진단시 보험금은 얼마인가요?"
  yakgwan ask "90일 이내 진단되면 어떻게 되나요?" --doc a1b2c3d4
  yakgwan ask "두 약관의 면책조항 차이는?" -o answer.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askDocIDs, "doc", "d", nil, "restrict to document IDs")
	askCmd.Flags().IntVar(&askDepth, "depth", 0, "relationship traversal depth (default from config)")
	askCmd.Flags().StringVarP(&askOutputFile, "output", "o", "", "write the answer to a file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := context.Background()

	if err := initLLM(ctx, true); err != nil {
		return err
	}

	depth := askDepth
	if depth <= 0 {
		depth = cfg.QueryDepth
	}

	engine := service.NewQueryEngine(dbClient, embedder, model, depth, logger)
	answer, err := engine.Answer(ctx, question, service.QueryFilters{DocIDs: askDocIDs})
	if err != nil {
		return fmt.Errorf("answer question: %w", err)
	}

	output := renderAnswer(answer)
	if askOutputFile != "" {
		if err := os.WriteFile(askOutputFile, []byte(output), 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		fmt.Printf("Answer written to %s\n", askOutputFile)
		return nil
	}

	fmt.Print(output)
	return nil
}

func renderAnswer(a *service.QueryAnswer) string {
	var b strings.Builder

	b.WriteString(a.Answer)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Confidence: %.2f\n", a.Confidence)

	if len(a.Citations) > 0 {
		b.WriteString("\nCitations:\n")
		for _, c := range a.Citations {
			mark := " "
			if c.Verified {
				mark = "✓"
			}
			fmt.Fprintf(&b, "  %s %s\n", mark, c.Text)
		}
	}

	if len(a.ReasoningPath) > 0 {
		b.WriteString("\nReasoning path:\n")
		for _, hop := range a.ReasoningPath {
			fmt.Fprintf(&b, "  %s\n", hop)
		}
	}

	return b.String()
}
