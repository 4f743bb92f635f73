package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"propscore/internal/dataset"
	"propscore/internal/score/scorer"
	"syscall"

	"github.com/spf13/cobra"
)

type ScoreArgs struct {
	Root    *RootArgs
	All     bool
	IDs     string
	Where   string
	Workers int
}

func NewScoreArgs(root *RootArgs) *ScoreArgs {
	return &ScoreArgs{Root: root}
}

func (sa *ScoreArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&sa.All, "all", false, "score every record with an identifier (default)")
	cmd.Flags().StringVar(&sa.IDs, "ids", "", "comma-separated record identifiers to score")
	cmd.Flags().StringVar(&sa.Where, "where", "", `CEL expression selecting records, e.g. 'record["家賃"] <= 9.0'`)
	cmd.Flags().IntVar(&sa.Workers, "workers", 0, "records scored concurrently (default from configuration)")
	cmd.MarkFlagsMutuallyExclusive("all", "ids", "where")
}

// Selector returns the record selection chosen by the flags.
func (sa *ScoreArgs) Selector() (*dataset.Selector, error) {
	switch {
	case sa.IDs != "":
		ids := dataset.ParseIDs(sa.IDs)
		if len(ids) == 0 {
			return nil, errors.New("--ids: no identifier given")
		}
		return dataset.IDs(ids...), nil
	case sa.Where != "":
		return dataset.Expression(sa.Where)
	default:
		return dataset.All(), nil
	}
}

func NewScoreCmd(root *RootArgs) *cobra.Command {
	args := NewScoreArgs(root)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score selected records and write the configured outputs",
		Example: `  propscore score --all
  propscore score --ids 1,3,7
  propscore score --where 'record["間取り"].contains("LDK")' --workers 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runScore(ctx, args)
		},
	}
	args.AddFlags(cmd)

	return cmd
}

func runScore(ctx context.Context, args *ScoreArgs) error {
	config := args.Root.Config()

	selector, err := args.Selector()
	if err != nil {
		slog.Error("Invalid record selection", "error", err)
		return err
	}

	a, err := newApp(config)
	if err != nil {
		slog.Error("Unable to initialize scoring", "error", err)
		return err
	}

	records, err := a.records(ctx)
	if err != nil {
		slog.Error("Unable to load records", "error", err)
		return err
	}
	selected := selector.Select(records)

	workers := config.Scoring.Workers
	if args.Workers > 0 {
		workers = args.Workers
	}

	sink := a.sinks(true)
	batch := scorer.NewBatchScorer(a.engine, a.profiles, scorer.WithSink(sink), scorer.WithWorkers(workers))

	stats, err := batch.Run(ctx, selected)
	if sink != nil {
		if closeErr := sink.Close(); closeErr != nil {
			slog.Error("Unable to write outputs", "error", closeErr)
			err = errors.Join(err, closeErr)
		}
	}
	if err != nil {
		slog.Error("Scoring interrupted", "error", err, "records", stats.Records)
		return err
	}

	slog.Info("Records scored",
		"selection", selector.Mode(),
		"read", len(records),
		"selected", len(selected),
		"records", stats.Records,
		"results", stats.Results,
		"sink_errors", stats.SinkErrors,
	)
	return nil
}
