package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonhokim/yakgwan/internal/models"
	"github.com/joonhokim/yakgwan/internal/service"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect ingestion jobs",
	Long: `List ingestion jobs or inspect a specific job by ID.

Examples:
  yakgwan jobs           # List recent jobs
  yakgwan jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max jobs to list")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	manager := service.NewJobManager(dbClient, logger)

	if len(args) == 1 {
		return showJob(ctx, manager, args[0])
	}
	return listJobs(ctx, manager)
}

func listJobs(ctx context.Context, manager *service.JobManager) error {
	jobs, err := manager.List(ctx, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-12s %-9s %-12s %-16s %s\n", "ID", "STATUS", "PROGRESS", "STEP", "INSURER", "POLICY")
	fmt.Println("--------------------------------------------------------------------------------")

	for i := range jobs {
		job := &jobs[i]
		fmt.Printf("%-10s %-12s %7d%%  %-12s %-16s %s\n",
			job.JobID(), job.Status, job.Progress, job.ProcessingStep, job.Insurer, job.PolicyName)
	}
	return nil
}

func showJob(ctx context.Context, manager *service.JobManager, id string) error {
	job, err := manager.GetStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.JobID())
	fmt.Printf("  Insurer: %s\n", job.Insurer)
	fmt.Printf("  Policy: %s\n", job.PolicyName)
	fmt.Printf("  Document: %s\n", job.DocID)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Progress: %d%%", job.Progress)
	if job.ProcessingStep != "" {
		fmt.Printf(" (%s)", job.ProcessingStep)
	}
	fmt.Println()
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
	}

	if job.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", job.ErrorMessage)
	}

	if job.Results != nil {
		printResults(job.Results)
	}
	return nil
}

func printResults(r *models.JobResults) {
	fmt.Println("\nResults:")
	fmt.Printf("  Nodes created: %d\n", r.NodesCreated)
	fmt.Printf("  Edges created: %d\n", r.EdgesCreated)
	fmt.Printf("  Processing time: %.1fs\n", r.ProcessingTimeSeconds)
	if len(r.Errors) > 0 {
		fmt.Printf("\n  Warnings (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
