package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"propscore/internal/score"
	"propscore/internal/score/value"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingCSV = "\uFEFF#,物件名,家賃,間取り,アクセス\n" +
	"1,メゾン目黒,8.5,1LDK,歩7分\n" +
	"2,コーポ渋谷,7,2K\n" +
	",,,,\n" +
	"3,ハイツ代官山,12,2LDK,歩3分\n" +
	"4,レジデンス恵比寿,15,3LDK,歩9分\n" +
	"5,ドミール中目黒,9.8,1K,歩11分\n"

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(listingCSV), DefaultIdentifierField)
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, "1", records[0].ID, "BOM stripped from first header")
	assert.Equal(t, 0, records[0].Position)
	assert.Equal(t, value.String("8.5"), records[0].Fields["家賃"])
	assert.Equal(t, value.String(""), records[1].Fields["アクセス"], "short row padded")
	assert.Equal(t, "", records[2].ID)
	assert.Equal(t, 3, records[3].Position)
}

func TestReadCSV_Empty(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(""), DefaultIdentifierField)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVSource_Records(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(listingCSV), 0o600))

	records, err := NewCSVSource(path, "").Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 6)

	byName, err := NewCSVSource(path, "物件名").Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "メゾン目黒", byName[0].ID)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), "").Records(context.Background())
	assert.Error(t, err)
}

func TestSheetSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewSheetSink(dir)

	metrics := []string{"間取り", "家賃"}
	require.NoError(t, sink.Write(score.Result{RecordID: "3", Position: 3, Stakeholder: "wife", Metrics: metrics, Total: 7, Weighted: []float64{4, 3}}))
	require.NoError(t, sink.Write(score.Result{RecordID: "1", Position: 0, Stakeholder: "wife", Metrics: metrics, Total: math.NaN(), Weighted: []float64{math.NaN(), 1.5}}))
	require.NoError(t, sink.Write(score.Result{RecordID: "1", Position: 0, Stakeholder: "husband", Metrics: metrics[:1], Total: 2, Weighted: []float64{2}}))
	require.NoError(t, sink.Close())

	wife, err := os.ReadFile(SheetPath(dir, "wife"))
	require.NoError(t, err)
	assert.Equal(t, "row,id,total,間取り,家賃\n0,1,NaN,NaN,1.5\n3,3,7,4,3\n", string(wife), "rows ordered by position")

	husband, err := os.ReadFile(SheetPath(dir, "husband"))
	require.NoError(t, err)
	assert.Equal(t, "row,id,total,間取り\n0,1,2,2\n", string(husband))
}

func TestSheetSink_NothingWritten(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, NewSheetSink(dir).Close())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSheetPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "wife.csv"), SheetPath("out", "wife"))
	assert.Equal(t, filepath.Join("out", "passwd.csv"), SheetPath("out", "../../etc/passwd"))
}

type recordingSink struct {
	results []score.Result
	closed  bool
	err     error
}

func (s *recordingSink) Write(r score.Result) error {
	s.results = append(s.results, r)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.err
}

func TestMultiSink(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: assert.AnError}
	sink := MultiSink{failing, ok}

	err := sink.Write(score.Result{RecordID: "1"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, ok.results, 1, "later sinks still receive the result")

	assert.ErrorIs(t, sink.Close(), assert.AnError)
	assert.True(t, ok.closed)
}
