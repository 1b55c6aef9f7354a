package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для инспекции jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect the job queue",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobStatsCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "DAG", "TENANT", "SCHEDULE", "STATUS", "ATTEMPTS", "ENQUEUED"}
			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = []string{
					j.ID, j.DagPath, j.Tenant, j.ScheduleID, j.Status,
					strconv.Itoa(j.Attempts), j.EnqueuedAt,
				}
			}

			out.Print(headers, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "pending", "Job status (pending, running, success, failed, retry)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.JobStats()
			if err != nil {
				return err
			}

			headers := []string{"PENDING", "RUNNING", "SUCCESS", "FAILED", "RETRY"}
			rows := [][]string{{
				strconv.Itoa(stats.Pending),
				strconv.Itoa(stats.Running),
				strconv.Itoa(stats.Success),
				strconv.Itoa(stats.Failed),
				strconv.Itoa(stats.Retry),
			}}

			out.Print(headers, rows, stats)
			return nil
		},
	}

	return cmd
}
