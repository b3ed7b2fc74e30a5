package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
)

var (
	runSymbol  string
	runCompany string
	runDepth   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run research for a single symbol inline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		depth := model.ResearchDepth(runDepth)
		if !model.ValidDepth(depth) {
			return eris.Errorf("invalid depth %q (want quick, standard, or deep)", runDepth)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		orch, err := initOrchestrator()
		if err != nil {
			return err
		}

		job, err := st.CreateJob(ctx, runSymbol, runCompany, depth)
		if err != nil {
			return eris.Wrap(err, "create job")
		}
		if err := st.MarkRunning(ctx, job.ID, time.Now().UTC()); err != nil {
			return eris.Wrap(err, "claim job")
		}
		job.Status = model.JobStatusRunning

		report, steps, execErr := orch.Execute(ctx, *job, nil)

		// Persist the full journal in one batch before settling the job.
		if err := st.AppendSteps(ctx, job.ID, steps); err != nil {
			zap.L().Error("persist steps failed", zap.String("job_id", job.ID), zap.Error(err))
		}

		if execErr != nil {
			if err := st.FailJob(ctx, job.ID, execErr.Error()); err != nil {
				zap.L().Error("mark job failed", zap.String("job_id", job.ID), zap.Error(err))
			}
			return eris.Wrap(execErr, "research run")
		}

		if err := st.CompleteJob(ctx, job.ID, report); err != nil {
			return eris.Wrap(err, "complete job")
		}

		zap.L().Info("research complete",
			zap.String("job_id", job.ID),
			zap.String("symbol", report.Symbol),
			zap.String("signal", report.Signal),
			zap.Float64("confidence", report.Confidence),
			zap.Int("steps", report.Steps.Total),
		)

		// Print report JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "ticker symbol (required)")
	runCmd.Flags().StringVar(&runCompany, "company", "", "company name used for news search")
	runCmd.Flags().StringVar(&runDepth, "depth", string(model.DepthStandard), "research depth (quick, standard, deep)")
	_ = runCmd.MarkFlagRequired("symbol")
	rootCmd.AddCommand(runCmd)
}
