package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeight(t *testing.T) {
	assert.Equal(t, 0.0, ParseWeight(""))
	assert.Equal(t, 0.0, ParseWeight("  "))
	assert.Equal(t, 2.5, ParseWeight(" 2.5 "))
	assert.True(t, math.IsNaN(ParseWeight("high")))
}

func TestProfileFromLists(t *testing.T) {
	p := ProfileFromLists("wife", []string{"家賃", "間取り", "駅"}, []string{"2", ""})

	assert.Equal(t, "wife", p.Stakeholder)
	assert.Equal(t, 2.0, p.Weights.Weight("家賃"))
	assert.Equal(t, 0.0, p.Weights.Weight("間取り"))
	assert.True(t, math.IsNaN(p.Weights.Weight("駅")), "missing weight")
}

func TestReadProfileSheet(t *testing.T) {
	sheet := "#,合計,家賃,間取り,駅徒歩,,\n" +
		",,2,1,x,9\n" +
		"1,,,,\n"

	p, err := ReadProfileSheet("husband", strings.NewReader(sheet))
	require.NoError(t, err)

	assert.Equal(t, []string{"家賃", "間取り", "駅徒歩"}, p.Metrics)
	assert.Equal(t, 2.0, p.Weights.Weight("家賃"))
	assert.Equal(t, 1.0, p.Weights.Weight("間取り"))
	assert.True(t, math.IsNaN(p.Weights.Weight("駅徒歩")))
}

func TestReadProfileSheet_NoWeights(t *testing.T) {
	p, err := ReadProfileSheet("wife", strings.NewReader("#,合計,家賃\n"))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(p.Weights.Weight("家賃")))
}

func TestReadProfileSheet_Invalid(t *testing.T) {
	_, err := ReadProfileSheet("wife", strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadProfileSheet("wife", strings.NewReader("#,合計\n1,2\n"))
	assert.Error(t, err, "no metric columns")
}

func TestLoadProfileSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wife.csv")
	require.NoError(t, os.WriteFile(path, []byte("#,合計,家賃\n,,3\n"), 0o600))

	p, err := LoadProfileSheet("wife", path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.Weights.Weight("家賃"))

	_, err = LoadProfileSheet("wife", filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}
