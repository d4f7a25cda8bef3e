package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/artifacts"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors/iforest"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/features"
	csvio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io/csv"
)

func newTrainCmd(opts *globalOptions) *cobra.Command {
	var (
		input         string
		out           string
		skipMalformed bool
		training      = detectors.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the scaler and isolation forest on historical transactions",
		Long: "train fits the amount scaler and an isolation forest on a labelled or unlabelled " +
			"transactions CSV and writes both artifacts. A Class column, if present, is only used " +
			"to report how many labelled frauds the fitted model flags.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg, logger, err := opts.load(func(c *config.Config) {
				if flags.Changed("trees") {
					c.Training.Trees = training.Trees
				}
				if flags.Changed("sample-size") {
					c.Training.SampleSize = training.SampleSize
				}
				if flags.Changed("contamination") {
					c.Training.Contamination = training.Contamination
				}
				if flags.Changed("seed") {
					c.Training.RandomSeed = training.RandomSeed
				}
			})
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Artifacts.Dir
			}

			reader, err := csvio.Open(input, csvio.WithSkipMalformed(skipMalformed))
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", input, err)
			}
			defer reader.Close()

			logger.WithField("columns", len(reader.Headers())).Debug("reading training data")

			in, err := reader.Read()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}
			if in.Len() == 0 {
				return fmt.Errorf("%s has no rows", input)
			}

			matrix, scaler, _, err := features.Build(scoring.Strip(in), nil)
			if err != nil {
				return err
			}

			forest := iforest.New(iforest.WithConfig(cfg.Training))
			if err := forest.Fit(matrix); err != nil {
				return fmt.Errorf("failed to fit model: %w", err)
			}

			if err := artifacts.Save(out, cfg.Artifacts.ModelFile, cfg.Artifacts.ScalerFile, forest, scaler); err != nil {
				return err
			}

			labels, err := forest.Predict(matrix)
			if err != nil {
				return err
			}
			params := forest.Config()
			fields := logrus.Fields{
				"rows":          len(matrix),
				"features":      forest.NFeatures(),
				"trees":         params.Trees,
				"sample_size":   params.SampleSize,
				"contamination": params.Contamination,
				"offset":        forest.Offset(),
				"scaler_mean":   scaler.Mean,
				"scaler_std":    scaler.Std,
				"flagged":       countOutliers(labels),
				"artifacts_dir": out,
			}
			if class, ok := in.Column(scoring.ColLabel); ok {
				caught, total := labelledCaught(class, labels)
				fields["labelled_frauds"] = total
				fields["labelled_flagged"] = caught
			}
			logger.WithFields(fields).Info("model trained")

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "training transactions CSV")
	f.StringVarP(&out, "out", "o", "", "artifact output directory (defaults to the configured artifacts dir)")
	f.BoolVar(&skipMalformed, "skip-malformed", false, "drop rows that fail to parse")
	f.IntVar(&training.Trees, "trees", training.Trees, "number of isolation trees")
	f.IntVar(&training.SampleSize, "sample-size", training.SampleSize, "subsample size per tree")
	f.Float64Var(&training.Contamination, "contamination", training.Contamination, "expected anomaly proportion, 0 for the fixed offset")
	f.Int64Var(&training.RandomSeed, "seed", training.RandomSeed, "random seed")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func countOutliers(labels []detectors.Label) int {
	n := 0
	for _, l := range labels {
		if l == detectors.Outlier {
			n++
		}
	}
	return n
}

// labelledCaught counts rows labelled 1 and how many of them were flagged.
func labelledCaught(class []float64, labels []detectors.Label) (caught, total int) {
	for i, c := range class {
		if c != 1 {
			continue
		}
		total++
		if labels[i] == detectors.Outlier {
			caught++
		}
	}
	return caught, total
}
