package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/artifacts"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/dashboard"
	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
	csvio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io/csv"
)

func newScoreCmd(opts *globalOptions) *cobra.Command {
	var (
		input         string
		output        string
		skipMalformed bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a CSV of transactions and write the annotated table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			bundle, err := artifacts.LoadFromConfig(cmd.Context(), cfg.Artifacts)
			if err != nil {
				logger.WithError(err).Error("model or scaler could not be loaded")
				return err
			}

			reader, err := csvio.Open(input, csvio.WithSkipMalformed(skipMalformed))
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", input, err)
			}
			defer reader.Close()

			logger.WithFields(logrus.Fields{
				"input":   input,
				"columns": len(reader.Headers()),
			}).Debug("reading transactions")

			in, err := reader.Read()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}
			if n := reader.Skipped(); n > 0 {
				logger.WithField("rows", n).Warn("skipped malformed rows")
			}

			batch, err := scoring.NewFromBundle(bundle).ScoreFrame(in)
			if err != nil {
				logger.WithField("code", faults.GetCode(err)).WithError(err).Error("batch rejected")
				return err
			}

			writer, err := csvio.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := writer.Write(batch.Table); err != nil {
				writer.Close()
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			if err := writer.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			logger.WithFields(logrus.Fields{
				"rows":    batch.Table.Len(),
				"flagged": batch.Flagged,
				"output":  output,
			}).Info("batch scored")

			printSummary(cmd.OutOrStdout(), batch)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "transactions CSV to score")
	cmd.Flags().StringVarP(&output, "output", "o", dashboard.DownloadName, "annotated CSV to write")
	cmd.Flags().BoolVar(&skipMalformed, "skip-malformed", false, "drop rows that fail to parse")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func printSummary(w io.Writer, b *scoring.Batch) {
	fmt.Fprintf(w, "Number of features passed to model: %d\n", b.NFeatures)
	fmt.Fprintf(w, "%s\n", scoring.ColFlag)
	fmt.Fprintf(w, "0    %d\n", b.Normal)
	fmt.Fprintf(w, "1    %d\n", b.Flagged)
}
