package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"propscore/internal/score"
	"propscore/internal/score/value"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONSource reads records from a JSON array of objects.
type JSONSource struct {
	path    string
	idField string
}

// NewJSONSource creates a source for path. An empty idField means
// DefaultIdentifierField.
func NewJSONSource(path, idField string) *JSONSource {
	if idField == "" {
		idField = DefaultIdentifierField
	}
	return &JSONSource{path: path, idField: idField}
}

// Records reads the whole file.
func (s *JSONSource) Records(_ context.Context) (records []score.Record, err error) {
	var content []byte
	content, err = os.ReadFile(s.path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read records file: %s", s.path)
		return records, err
	}

	records, err = ReadJSON(bytes.NewReader(content), s.idField)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse records JSON: %s", s.path)
	}
	return records, err
}

// ReadJSON decodes a JSON array of listing objects. Numbers stay numbers,
// null reads as an empty cell.
func ReadJSON(r io.Reader, idField string) ([]score.Record, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var rows []map[string]any
	if err := decoder.Decode(&rows); err != nil {
		return nil, err
	}

	records := make([]score.Record, 0, len(rows))
	for position, row := range rows {
		records = append(records, NewRecord(position, DecodeFields(row), idField))
	}
	return records, nil
}

// ReadJSONRecord decodes a single JSON object as the record at position.
func ReadJSONRecord(r io.Reader, position int, idField string) (score.Record, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var row map[string]any
	if err := decoder.Decode(&row); err != nil {
		return score.Record{}, err
	}
	if row == nil {
		return score.Record{}, errors.New("record must be a JSON object")
	}
	return NewRecord(position, DecodeFields(row), idField), nil
}

// DecodeFields converts a decoded JSON object into record cells.
func DecodeFields(row map[string]any) map[string]value.Value {
	fields := make(map[string]value.Value, len(row))
	for name, cell := range row {
		fields[name] = value.FromAny(cell)
	}
	return fields
}

// customJSONHandler is a slog handler writing each record as one JSON line,
// with the time as "2006-01-02 15:04:05" and no level or message field.
// All attributes are written at the top level of the object.
type customJSONHandler struct {
	opts  slog.HandlerOptions // handler options
	out   io.Writer           // target writer
	attrs []slog.Attr         // attributes added with WithAttrs
}

// NewCustomJSONHandler creates the handler. opts may be nil.
func NewCustomJSONHandler(out io.Writer, opts *slog.HandlerOptions) *customJSONHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &customJSONHandler{
		opts: *opts,
		out:  out,
	}
}

// Handle serializes r as one JSON line.
func (h *customJSONHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)

	attrs["time"] = r.Time.Format("2006-01-02 15:04:05")

	add := func(a slog.Attr) bool {
		if a.Key != "" && a.Value.Any() != nil {
			attrs[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	_, err = h.out.Write(append(data, '\n'))
	return err
}

// WithAttrs returns a handler writing attrs on every line.
func (h *customJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup is a no-op, lines are flat.
func (h *customJSONHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Enabled accepts every level.
func (h *customJSONHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// JSONLSink appends every result as a JSON line to a rotating, compressed
// file. Lines of one sink share a run ID.
type JSONLSink struct {
	lumberjack *lumberjack.Logger // rotating file writer
	handler    slog.Handler       // line encoder
	run        string
}

// NewJSONLSink creates a sink writing to file.
// Parameters:
// - maxSize: size in MB before rotation
// - maxBackups: rotated files kept
func NewJSONLSink(file string, maxSize, maxBackups int) *JSONLSink {
	return newJSONLSink(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	})
}

func newJSONLSink(out *lumberjack.Logger) *JSONLSink {
	sink := JSONLSink{lumberjack: out, run: uuid.NewString()}
	handler := NewCustomJSONHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	sink.handler = handler.WithAttrs([]slog.Attr{slog.String("run", sink.run)})
	return &sink
}

// Run is the ID written on every line.
func (s *JSONLSink) Run() string {
	return s.run
}

// Write appends result. Safe for concurrent use, lumberjack serializes writes.
func (s *JSONLSink) Write(result score.Result) error {
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "", 0)
	r.AddAttrs(
		slog.String("id", result.RecordID),
		slog.Int("row", result.Position),
		slog.String("stakeholder", result.Stakeholder),
		slog.Any("total", score.JSONFloat(result.Total)),
		slog.Any("result", result),
	)
	return s.handler.Handle(context.Background(), r)
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	return s.lumberjack.Close()
}
