package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/synaptica-ai/noshow/pkg/common/database"
	"github.com/synaptica-ai/noshow/pkg/ingestion"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
	"github.com/synaptica-ai/noshow/pkg/serving"
	"github.com/synaptica-ai/noshow/pkg/serving/predictor"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank the appointments on the latest date of an extract by no-show risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			model, _ := cmd.Flags().GetString("model")
			record, _ := cmd.Flags().GetBool("record")

			cfg := loadConfig(cmd)
			if cmd.Flags().Changed("artifacts") {
				cfg.ModelArtifactDir, _ = cmd.Flags().GetString("artifacts")
			}

			runner, err := pipeline.NewRunnerFromConfig(cfg)
			if err != nil {
				return err
			}
			raws, err := ingestion.ReadCSVFile(input)
			if err != nil {
				return err
			}
			result, err := runner.Run(cmd.Context(), raws, nil)
			if err != nil {
				return err
			}

			var recorder serving.PredictionRecorder
			if record {
				db, err := database.GetPostgres(cfg)
				if err != nil {
					return err
				}
				defer database.ClosePostgres()
				repo := serving.NewRepository(db)
				if err := repo.AutoMigrate(); err != nil {
					return err
				}
				recorder = repo
			}

			scorer := serving.NewScorer(predictor.NewPredictor(cfg.ModelArtifactDir), model, recorder)
			scored, err := scorer.Score(cmd.Context(), result.Records)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tPATIENT\tSTART\tSPECIALISM\tSCORE")
			for i, s := range scored {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.4f\n", i+1, s.Record.PatientID,
					s.Record.ScheduledStart.Format("2006-01-02 15:04"), s.Record.Specialism, s.Score)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("input", "", "semicolon separated appointment extract")
	cmd.Flags().String("model", "noshow", "model artifact name")
	cmd.Flags().String("artifacts", "artifacts", "directory holding model artifacts")
	cmd.Flags().Bool("record", false, "log every prediction to postgres")
	cmd.MarkFlagRequired("input")
	return cmd
}

func horizonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "horizon",
		Short: "Print which appointment date a prediction run targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, _ := cmd.Flags().GetString("date")
			now := time.Now()
			if value != "" {
				t, err := time.Parse("2006-01-02", value)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", value, err)
				}
				now = t
			}

			target, ok := serving.TargetDate(now)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no prediction run on %s\n", now.Weekday())
				return nil
			}
			days, _ := serving.Horizon(now.Weekday())
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) predicts %s, %d days ahead\n",
				now.Format("2006-01-02"), now.Weekday(), target.Format("2006-01-02"), days)
			return nil
		},
	}
	cmd.Flags().String("date", "", "run date (YYYY-MM-DD), defaults to today")
	return cmd
}
