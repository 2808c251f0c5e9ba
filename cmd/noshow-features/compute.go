package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/ingestion"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
	"github.com/synaptica-ai/noshow/pkg/storage"
)

func computeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Read an extract and write one feature row per appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")
			from, err := parseFrom(cmd)
			if err != nil {
				return err
			}
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(output), ".")
			}

			runner, err := pipeline.NewRunnerFromConfig(loadConfig(cmd))
			if err != nil {
				return err
			}

			raws, err := ingestion.ReadCSVFile(input)
			if err != nil {
				return err
			}
			result, err := runner.Run(cmd.Context(), raws, from)
			if err != nil {
				return err
			}

			writer, err := storage.NewFileWriter(output, format)
			if err != nil {
				return err
			}
			if err := writer.Write(result.Records); err != nil {
				writer.Close()
				return err
			}
			if err := writer.Close(); err != nil {
				return err
			}

			logger.Log.WithFields(map[string]interface{}{
				"input":   input,
				"output":  output,
				"dropped": result.Preprocess.Dropped,
			}).Info("Features written")
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows read, %d appointments kept, %d feature rows written to %s\n",
				result.Preprocess.Input, result.Preprocess.Output, writer.Count(), output)
			return nil
		},
	}

	cmd.Flags().String("input", "", "semicolon separated appointment extract")
	cmd.Flags().String("output", "", "feature file to write")
	cmd.Flags().String("format", "", "csv or parquet (defaults to the output extension)")
	cmd.Flags().String("from", "", "only write rows scheduled on or after this date (YYYY-MM-DD)")
	cmd.Flags().Int("history-years", 5, "rolling history window in years")
	cmd.Flags().Int("exclusion-days", 3, "days before each appointment left out of its history")
	cmd.Flags().Int("workers", 1, "patients processed concurrently")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func parseFrom(cmd *cobra.Command) (*time.Time, error) {
	value, _ := cmd.Flags().GetString("from")
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --from date %q: %w", value, err)
	}
	return &t, nil
}
