package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joonhokim/yakgwan/internal/service"
)

var (
	ingestInsurer     string
	ingestPolicyName  string
	ingestLaunchDate  string
	ingestProductType string
	ingestNoLLM       bool
	ingestNoWait      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a policy document into the knowledge graph",
	Long: `Ingest an insurance policy document (PDF or plain text).

The document is validated, stored, parsed into its article structure,
scanned for amounts, periods and disease codes, and committed to the
graph as a background job. By default the command follows the job's
progress; Ctrl+C leaves it running in the background.

Examples:
  yakgwan ingest policy.pdf --insurer "삼성생명" --policy "암보험 표준약관"
  yakgwan ingest policy.pdf -i "한화생명" -p "종신보험" --product-type "종신보험" --no-llm
  yakgwan ingest policy.txt -i "테스트" -p "테스트약관" --no-wait`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestInsurer, "insurer", "i", "", "insurer name (required)")
	ingestCmd.Flags().StringVarP(&ingestPolicyName, "policy", "p", "", "policy name (required)")
	ingestCmd.Flags().StringVar(&ingestLaunchDate, "launch-date", "", "policy launch date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestProductType, "product-type", "", "product type (암보험, 종신보험, ...)")
	ingestCmd.Flags().BoolVar(&ingestNoLLM, "no-llm", false, "rule-based extraction only, skip the LLM pass")
	ingestCmd.Flags().BoolVar(&ingestNoWait, "no-wait", false, "submit and return without following progress")
	_ = ingestCmd.MarkFlagRequired("insurer")
	_ = ingestCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	if err := initLLM(ctx, !ingestNoLLM); err != nil {
		return err
	}
	var generator service.Generator
	if !ingestNoLLM {
		generator = model
	}

	svc := newIngestService(generator)

	meta := service.SubmitMeta{
		Insurer:     ingestInsurer,
		PolicyName:  ingestPolicyName,
		ProductType: ingestProductType,
	}
	if ingestLaunchDate != "" {
		meta.LaunchDate = &ingestLaunchDate
	}

	jobID, err := svc.Submit(ctx, data, meta)
	if err != nil {
		return fmt.Errorf("submit document: %w", err)
	}

	if ingestNoWait {
		fmt.Printf("Job %s submitted. Use 'yakgwan jobs %s' to check status.\n", jobID, jobID)
		return nil
	}

	return RunJobProgress(service.NewJobManager(dbClient, logger), jobID)
}
