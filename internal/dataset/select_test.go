package dataset

import (
	"propscore/internal/score"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listings(t *testing.T) []score.Record {
	t.Helper()
	records, err := ReadCSV(strings.NewReader(listingCSV), DefaultIdentifierField)
	require.NoError(t, err)
	return records
}

func ids(records []score.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSelector_All(t *testing.T) {
	selected := All().Select(listings(t))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(selected), "blank identifier skipped")
	assert.Equal(t, ModeAll, All().Mode())
}

func TestSelector_IDs(t *testing.T) {
	selected := IDs("3", "1").Select(listings(t))
	assert.Equal(t, []string{"1", "3"}, ids(selected), "source order preserved")

	selected = IDs(ParseIDs(" 5, ,2 ")...).Select(listings(t))
	assert.Equal(t, []string{"2", "5"}, ids(selected))

	assert.Empty(t, IDs("9").Select(listings(t)))
	assert.Empty(t, IDs().Select(listings(t)))
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, ParseIDs("1,2, 3"))
	assert.Empty(t, ParseIDs(" , "))
}

func TestSelector_Expression(t *testing.T) {
	sel, err := Expression(`record["家賃"] <= 9.0`)
	require.NoError(t, err)
	assert.Equal(t, ModeExpr, sel.Mode())
	assert.Equal(t, []string{"1", "2"}, ids(sel.Select(listings(t))))

	sel, err = Expression(`record["間取り"].contains("LDK") && id != "4"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(sel.Select(listings(t))))
}

func TestSelector_Expression_MissingColumn(t *testing.T) {
	sel, err := Expression(`record["駐車場"] == "有"`)
	require.NoError(t, err)
	assert.Empty(t, sel.Select(listings(t)), "evaluation errors do not select")
}

func TestSelector_Expression_Invalid(t *testing.T) {
	_, err := Expression(`record[`)
	assert.Error(t, err, "syntax error")

	_, err = Expression(`unknown > 1`)
	assert.Error(t, err, "undeclared variable")

	_, err = Expression(`id + "x"`)
	assert.Error(t, err, "non-boolean result")
}
