package scorer

import (
	"context"
	"log/slog"
	"propscore/internal/dataset"
	"propscore/internal/history"
	"propscore/internal/metrics"
	"propscore/internal/score"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchScorer scores records for every configured stakeholder profile and
// hands the results to a sink, the history repository and the metrics.
//
// BatchScorer is safe for concurrent use if the record scorer and the sink are.
type BatchScorer struct {
	scorer   score.RecordScorer         // per-record scoring, usually *score.Engine
	profiles []score.Profile            // stakeholders scored for every record
	sink     dataset.Sink               // optional output for every result
	history  *history.ResultsRepository // optional recent results by record id
	metrics  *metrics.Metrics           // optional collectors
	workers  int                        // max records scored concurrently
}

// Stats summarises a batch run.
type Stats struct {
	Records    int `json:"records"`
	Results    int `json:"results"`
	SinkErrors int `json:"sink_errors"`
}

// Option configures a BatchScorer.
type Option func(*BatchScorer)

// WithSink writes every result to sink.
func WithSink(sink dataset.Sink) Option {
	return func(bs *BatchScorer) { bs.sink = sink }
}

// WithHistory appends every result to repo.
func WithHistory(repo *history.ResultsRepository) Option {
	return func(bs *BatchScorer) { bs.history = repo }
}

// WithMetrics counts results and sink errors on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(bs *BatchScorer) { bs.metrics = m }
}

// WithWorkers bounds the number of records scored at once. Values below 2
// score sequentially in record order.
func WithWorkers(n int) Option {
	return func(bs *BatchScorer) { bs.workers = n }
}

// NewBatchScorer creates a batch scorer for profiles.
func NewBatchScorer(s score.RecordScorer, profiles []score.Profile, opts ...Option) *BatchScorer {
	bs := &BatchScorer{scorer: s, profiles: profiles, workers: 1}
	for _, opt := range opts {
		opt(bs)
	}
	return bs
}

// Profiles returns the profile of stakeholder, or all profiles when
// stakeholder is empty.
func (bs *BatchScorer) Profiles(stakeholder string) []score.Profile {
	if stakeholder == "" {
		return bs.profiles
	}
	for _, p := range bs.profiles {
		if p.Stakeholder == stakeholder {
			return []score.Profile{p}
		}
	}
	return nil
}

// ScoreRecord scores rec for profiles and records the results in history and
// metrics. A failed sink write is logged and reported in the returned count.
func (bs *BatchScorer) ScoreRecord(rec score.Record, profiles []score.Profile) ([]score.Result, int) {
	results := make([]score.Result, 0, len(profiles))
	failed := 0

	for _, p := range profiles {
		result := bs.scorer.Score(rec, p)
		bs.metrics.Scored(p.Stakeholder, result.Total)

		if bs.sink != nil {
			if err := bs.sink.Write(result); err != nil {
				slog.Error("Unable to write result", "id", rec.ID, "stakeholder", p.Stakeholder, "error", err)
				bs.metrics.SinkError()
				failed++
			}
		}
		results = append(results, result)
	}

	if bs.history != nil {
		bs.history.Append(results...)
	}
	return results, failed
}

// Run scores records for all profiles. Sink errors do not stop the run.
// Cancelling ctx stops scheduling further records; the results produced so
// far stay written and are counted in Stats.
func (bs *BatchScorer) Run(ctx context.Context, records []score.Record) (Stats, error) {
	defer bs.metrics.Observe("batch", time.Now())

	var scored, results, failed atomic.Int64
	process := func(rec score.Record) {
		rs, errs := bs.ScoreRecord(rec, bs.profiles)
		scored.Add(1)
		results.Add(int64(len(rs)))
		failed.Add(int64(errs))
	}

	var err error
	if bs.workers < 2 {
		for _, rec := range records {
			if err = ctx.Err(); err != nil {
				break
			}
			process(rec)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(bs.workers)
		for _, rec := range records {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				process(rec)
				return nil
			})
		}
		err = g.Wait()
		if err == nil {
			err = ctx.Err()
		}
	}

	stats := Stats{
		Records:    int(scored.Load()),
		Results:    int(results.Load()),
		SinkErrors: int(failed.Load()),
	}
	slog.Debug("Batch scored", "records", stats.Records, "results", stats.Results, "sink_errors", stats.SinkErrors)
	return stats, err
}
