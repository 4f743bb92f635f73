package dataset

import (
	"context"
	"propscore/internal/score"
	"propscore/internal/score/value"
	"strings"
)

// DefaultIdentifierField is the serial number column of the listing sheet.
const DefaultIdentifierField = "#"

// Source loads listing records.
type Source interface {
	Records(ctx context.Context) ([]score.Record, error)
}

// Sink receives score results. Implementations must be safe for concurrent
// use.
type Sink interface {
	Write(result score.Result) error
	Close() error
}

// NewRecord builds a record from decoded cells. The ID is the string form
// of idField, empty when the column is missing.
func NewRecord(position int, fields map[string]value.Value, idField string) score.Record {
	return score.Record{
		ID:       strings.TrimSpace(fields[idField].String()),
		Position: position,
		Fields:   fields,
	}
}

// MultiSink writes every result to all sinks.
type MultiSink []Sink

// Write forwards result to each sink and returns the first error.
func (ms MultiSink) Write(result score.Result) error {
	var first error
	for _, s := range ms {
		if err := s.Write(result); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes each sink and returns the first error.
func (ms MultiSink) Close() error {
	var first error
	for _, s := range ms {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
