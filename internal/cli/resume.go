package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonhokim/yakgwan/internal/service"
)

var resumeNoLLM bool

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Restart ingestion jobs left incomplete by a previous run",
	Long: `Restart jobs still pending or processing. The pipeline is
idempotent, so interrupted jobs safely rerun from the beginning.
Jobs whose source document is no longer in the blob store are
marked failed.`,
	Args: cobra.NoArgs,
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeNoLLM, "no-llm", false, "rule-based extraction only, skip the LLM pass")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := initLLM(ctx, !resumeNoLLM); err != nil {
		return err
	}
	var generator service.Generator
	if !resumeNoLLM {
		generator = model
	}

	manager := service.NewJobManager(dbClient, logger)
	resumed, err := newIngestService(generator).Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume jobs: %w", err)
	}

	if resumed == 0 {
		fmt.Println("No incomplete jobs")
		return nil
	}
	fmt.Printf("Resumed %d job(s), waiting for completion...\n", resumed)

	// The pipeline runs on goroutines in this process; exiting early
	// would abandon them mid-job.
	for {
		incomplete, err := manager.Incomplete(ctx)
		if err != nil {
			return fmt.Errorf("poll jobs: %w", err)
		}
		if len(incomplete) == 0 {
			fmt.Println("All jobs finished. Use 'yakgwan jobs' for details.")
			return nil
		}
		time.Sleep(time.Second)
	}
}
