package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"propscore/internal/score"
	"propscore/internal/score/value"
	"strings"

	"github.com/pkg/errors"
)

// sheetMetricsColumn is where metric columns start on a score sheet: the
// first column holds the record id and the second the total.
const sheetMetricsColumn = 2

// ParseWeight converts a weight cell. Blank cells weigh zero; anything that
// is not a number is NaN.
func ParseWeight(cell string) float64 {
	v := value.String(cell)
	if strings.TrimSpace(cell) == "" {
		return 0
	}
	return v.Float()
}

// ProfileFromLists builds a stakeholder profile from parallel metric and
// weight cells.
func ProfileFromLists(stakeholder string, metrics, weights []string) score.Profile {
	ws := make([]float64, len(weights))
	for i, w := range weights {
		ws[i] = ParseWeight(w)
	}
	return score.NewProfile(stakeholder, metrics, ws)
}

// LoadProfileSheet reads a stakeholder's score sheet header: metric names on
// the first line and weights on the second, both from the third column.
func LoadProfileSheet(stakeholder, path string) (profile score.Profile, err error) {
	var f *os.File
	f, err = os.Open(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open profile sheet: %s", path)
		return profile, err
	}
	defer f.Close()

	profile, err = ReadProfileSheet(stakeholder, f)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse profile sheet: %s", path)
	}
	return profile, err
}

// ReadProfileSheet decodes a score sheet header from r.
func ReadProfileSheet(stakeholder string, r io.Reader) (score.Profile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return score.Profile{}, errors.Wrap(err, "failed to read metrics line")
	}
	weights, err := reader.Read()
	if err == io.EOF {
		weights = nil
	} else if err != nil {
		return score.Profile{}, errors.Wrap(err, "failed to read weights line")
	}

	metrics := trimTrailingBlank(cellsFrom(header, sheetMetricsColumn))
	if len(metrics) == 0 {
		return score.Profile{}, errors.New("no metrics on profile sheet")
	}
	for i := range metrics {
		metrics[i] = strings.TrimSpace(metrics[i])
	}

	cells := cellsFrom(weights, sheetMetricsColumn)
	if len(cells) > len(metrics) {
		cells = cells[:len(metrics)]
	}
	return ProfileFromLists(stakeholder, metrics, cells), nil
}

func cellsFrom(line []string, column int) []string {
	if len(line) <= column {
		return nil
	}
	return append([]string(nil), line[column:]...)
}

func trimTrailingBlank(cells []string) []string {
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
