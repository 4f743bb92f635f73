package rule

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// csvColumns is the positional layout of the master sheet: metric, input,
// operator, threshold, score, stakeholder, method.
const csvColumns = 7

// LoadFromFile reads rule rows from a YAML (.yaml, .yml) or CSV (.csv) file.
func LoadFromFile(file string) ([]Row, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read rules")
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(content))
	case ".yaml", ".yml":
		return ParseYAML(content)
	default:
		return nil, errors.Errorf("rules %s: unsupported file type", file)
	}
}

// ParseYAML decodes a YAML list of rows:
//
//   - metric: 間取り
//     input: 間取り
//     operator: in
//     threshold: 2K,1LDK
//     score: 3
//     stakeholder: wife
func ParseYAML(content []byte) ([]Row, error) {
	rows := []Row{}
	if err := yaml.Unmarshal(content, &rows); err != nil {
		return nil, errors.Wrap(err, "decode rules")
	}
	return rows, nil
}

// ParseCSV reads the master sheet. The first line is a header and is
// skipped; short lines are padded so blank trailing cells read as empty.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue
		}
		for len(rec) < csvColumns {
			rec = append(rec, "")
		}
		rows = append(rows, Row{
			Metric:      rec[0],
			Input:       rec[1],
			Operator:    rec[2],
			Threshold:   rec[3],
			Score:       rec[4],
			Stakeholder: rec[5],
			Method:      rec[6],
		})
	}
	return rows, nil
}
