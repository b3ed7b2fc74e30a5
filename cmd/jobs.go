package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect research job history",
	Long:  "Commands for listing, viewing, and summarizing research jobs.",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List research jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		symbol, _ := cmd.Flags().GetString("symbol")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.JobFilter{
			Status: model.JobStatus(status),
			Symbol: symbol,
			Limit:  limit,
		}

		jobs, err := st.ListJobs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job, including its step journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}
		steps, err := st.ListSteps(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show steps")
		}
		job.Steps = steps

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate job statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		filter := store.JobFilter{Limit: 10000} // high limit for stats

		jobs, err := st.ListJobs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}

		stats := computeJobStats(jobs)
		formatJobStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by job status (pending, running, completed, failed)")
	jobsListCmd.Flags().String("symbol", "", "filter by ticker symbol")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// jobStats holds aggregate statistics computed from a set of jobs.
type jobStats struct {
	Total      int
	Completed  int
	Failed     int
	Pending    int
	Running    int
	Bullish    int
	Bearish    int
	Neutral    int
	AvgDurSecs float64
}

// computeJobStats computes aggregate statistics from a list of jobs.
func computeJobStats(jobs []model.Job) jobStats {
	var s jobStats
	s.Total = len(jobs)

	var totalDur time.Duration
	var durCount int

	for _, j := range jobs {
		switch j.Status {
		case model.JobStatusCompleted:
			s.Completed++
			if j.StartedAt != nil && j.CompletedAt != nil {
				totalDur += j.CompletedAt.Sub(*j.StartedAt)
				durCount++
			}
			if j.Result != nil {
				switch j.Result.Signal {
				case model.SignalBullish:
					s.Bullish++
				case model.SignalBearish:
					s.Bearish++
				default:
					s.Neutral++
				}
			}
		case model.JobStatusFailed:
			s.Failed++
		case model.JobStatusRunning:
			s.Running++
		default:
			s.Pending++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSYMBOL\tDEPTH\tSTATUS\tSIGNAL\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t------\t------\t-------\t--------")

	for _, j := range jobs {
		dur := ""
		if j.StartedAt != nil && j.CompletedAt != nil {
			dur = j.CompletedAt.Sub(*j.StartedAt).Round(time.Second).String()
		}

		signal := ""
		if j.Result != nil {
			signal = j.Result.Signal
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(j.ID),
			j.Symbol,
			j.Depth,
			j.Status,
			signal,
			j.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatJobStats writes aggregate stats to w.
func formatJobStats(out io.Writer, s jobStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total jobs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Completed:\t%d\n", s.Completed)
	_, _ = fmt.Fprintf(w, "  Bullish:\t%d\n", s.Bullish)
	_, _ = fmt.Fprintf(w, "  Bearish:\t%d\n", s.Bearish)
	_, _ = fmt.Fprintf(w, "  Neutral:\t%d\n", s.Neutral)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Pending:\t%d\n", s.Pending)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
