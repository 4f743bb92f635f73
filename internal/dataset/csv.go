package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"propscore/internal/score"
	"propscore/internal/score/value"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const bom = "\uFEFF"

// CSVSource reads records from a CSV export of the listing sheet. The first
// line holds the column names; cells are kept as raw text.
type CSVSource struct {
	path    string
	idField string
}

// NewCSVSource creates a source for path. An empty idField means
// DefaultIdentifierField.
func NewCSVSource(path, idField string) *CSVSource {
	if idField == "" {
		idField = DefaultIdentifierField
	}
	return &CSVSource{path: path, idField: idField}
}

// Records reads the whole file.
func (s *CSVSource) Records(_ context.Context) (records []score.Record, err error) {
	var f *os.File
	f, err = os.Open(s.path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open records file: %s", s.path)
		return records, err
	}
	defer f.Close()

	records, err = ReadCSV(f, s.idField)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse records CSV: %s", s.path)
	}
	return records, err
}

// ReadCSV decodes CSV listing rows keyed by the header line.
func ReadCSV(r io.Reader, idField string) ([]score.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []score.Record{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}

	records := []score.Record{}
	for position := 0; ; position++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read row %d", position+1)
		}

		fields := make(map[string]value.Value, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fields[name] = value.String(cell)
		}
		records = append(records, NewRecord(position, fields, idField))
	}
	return records, nil
}

// SheetSink writes one CSV score sheet per stakeholder into a directory:
// row, id, total, then the weighted score of every metric in profile order.
// Results are buffered and written, ordered by row, on Close.
type SheetSink struct {
	dir string

	results map[string][]score.Result
	order   []string
	mu      sync.Mutex
}

// NewSheetSink creates the sink; dir is created on Close if needed.
func NewSheetSink(dir string) *SheetSink {
	return &SheetSink{dir: dir, results: make(map[string][]score.Result)}
}

// Write buffers result.
func (s *SheetSink) Write(result score.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[result.Stakeholder]; !ok {
		s.order = append(s.order, result.Stakeholder)
	}
	s.results[result.Stakeholder] = append(s.results[result.Stakeholder], result)
	return nil
}

// Close writes the sheets.
func (s *SheetSink) Close() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil
	}

	err = os.MkdirAll(s.dir, 0o755)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", s.dir)
		return err
	}

	for _, stakeholder := range s.order {
		results := s.results[stakeholder]
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Position < results[j].Position
		})
		err = s.writeSheet(SheetPath(s.dir, stakeholder), results)
		if err != nil {
			return err
		}
	}
	return nil
}

// SheetPath is the file a stakeholder's score sheet is written to.
func SheetPath(dir, stakeholder string) string {
	return filepath.Join(dir, filepath.Base(stakeholder)+".csv")
}

func (s *SheetSink) writeSheet(path string, results []score.Result) (err error) {
	var f *os.File
	f, err = os.Create(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to create score sheet: %s", path)
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"row", "id", "total"}, results[0].Metrics...)
	if err = w.Write(header); err != nil {
		return errors.Wrapf(err, "failed to write score sheet: %s", path)
	}

	for _, r := range results {
		line := make([]string, 0, 3+len(r.Weighted))
		line = append(line, strconv.Itoa(r.Position), r.RecordID, value.FormatNumber(r.Total))
		for _, ws := range r.Weighted {
			line = append(line, value.FormatNumber(ws))
		}
		if err = w.Write(line); err != nil {
			return errors.Wrapf(err, "failed to write score sheet: %s", path)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		err = errors.Wrapf(err, "failed to flush score sheet: %s", path)
	}
	return err
}
