package main

import (
	"context"
	"fmt"
	"log/slog"
	"propscore/internal/configuration"
	"propscore/internal/dataset"
	"propscore/internal/score"
	"propscore/internal/score/rule"
	"propscore/internal/score/value"
)

// app holds the components every command scores with.
type app struct {
	config   *configuration.AppConfig
	engine   *score.Engine
	profiles []score.Profile
}

// newApp loads the rule table and the stakeholder profiles.
func newApp(config *configuration.AppConfig) (*app, error) {
	rows, err := rule.LoadFromFile(config.Scoring.Rules)
	if err != nil {
		return nil, fmt.Errorf("unable to load rules: %w", err)
	}
	table := rule.Build(rows)

	walk, err := value.WalkingMinutes(config.Scoring.TransitPattern)
	if err != nil {
		return nil, fmt.Errorf("unable to compile transit pattern: %w", err)
	}
	resolver := value.NewResolver(value.WithExtractor(config.Scoring.TransitField, walk))

	profiles, err := loadProfiles(config.Scoring.Stakeholders)
	if err != nil {
		return nil, err
	}

	slog.Info("Rules loaded", "rows", len(rows), "rules", table.Len(), "metrics", len(table.Metrics()), "stakeholders", len(profiles))

	return &app{
		config:   config,
		engine:   score.NewEngine(table, resolver),
		profiles: profiles,
	}, nil
}

// loadProfiles builds profiles from inline lists or score sheets.
func loadProfiles(stakeholders []configuration.StakeholderConfig) ([]score.Profile, error) {
	profiles := make([]score.Profile, 0, len(stakeholders))
	for _, s := range stakeholders {
		if s.Sheet == "" {
			profiles = append(profiles, dataset.ProfileFromLists(s.Name, s.Metrics, s.Weights))
			continue
		}

		p, err := dataset.LoadProfileSheet(s.Name, s.Sheet)
		if err != nil {
			return nil, fmt.Errorf("unable to load profile of %s: %w", s.Name, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// records reads every record of the configured source.
func (a *app) records(ctx context.Context) ([]score.Record, error) {
	source, closeSource, err := openSource(ctx, a.config.Records, a.config.Scoring.IdentifierField)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	records, err := source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to read records: %w", err)
	}
	return records, nil
}

// openSource opens the records source of cfg. The returned function releases
// it.
func openSource(ctx context.Context, cfg configuration.RecordsConfig, idField string) (dataset.Source, func(), error) {
	switch cfg.Driver {
	case configuration.RecordsDriverJSON:
		return dataset.NewJSONSource(cfg.Path, idField), func() {}, nil
	case configuration.RecordsDriverSQLite, configuration.RecordsDriverPgx:
		db, err := dataset.OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		source, err := dataset.NewSQLSource(db, cfg.Table, cfg.Query, idField)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return source, func() { db.Close() }, nil
	default:
		return dataset.NewCSVSource(cfg.Path, idField), func() {}, nil
	}
}

// sinks returns the configured outputs, nil when none is configured.
// withSheets adds the per stakeholder score sheets, which are written on
// Close.
func (a *app) sinks(withSheets bool) dataset.Sink {
	var sinks dataset.MultiSink

	if withSheets && a.config.Output.Dir != "" {
		sinks = append(sinks, dataset.NewSheetSink(a.config.Output.Dir))
	}

	if ds := a.config.Output.Dataset; ds.File != "" {
		sinks = append(sinks, dataset.NewJSONLSink(ds.File, ds.Size, ds.Amount))
	}

	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

// find returns the first record with id.
func find(records []score.Record, id string) (score.Record, bool) {
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return score.Record{}, false
}
