package rule

import (
	"encoding/json"
	"math"
	"propscore/internal/score/value"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	assert.Equal(t, OpEqual, ParseOperator("'="))
	assert.Equal(t, OpGreaterEqual, ParseOperator(">="))
	assert.Equal(t, Operator("'="), ParseOperator("''="), "only one quote is stripped")
	assert.True(t, OpBetween.Known())
	assert.False(t, Operator("~").Known())
}

func TestMatch_Equality(t *testing.T) {
	assert.True(t, Match(OpEqual, "マンション", value.String("マンション")))
	assert.True(t, Match(ParseOperator("'="), "鉄筋コン", value.String("鉄筋コン")))
	assert.False(t, Match("'=", "鉄筋コン", value.String("鉄筋コン")), "Match does not parse the operator again")
	assert.True(t, Match(OpEqual, "15", value.Number(15)), "numbers compare by string form")
	assert.False(t, Match(OpEqual, "15.0", value.Number(15)))
	assert.True(t, Match(OpEqual, "", value.None()), "none compares as empty string")
	assert.True(t, Match(OpNotEqual, "アパート", value.String("マンション")))
	assert.False(t, Match(OpNotEqual, "2K", value.String("2K")))
}

func TestMatch_Numeric(t *testing.T) {
	assert.True(t, Match(OpGreater, "10", value.Number(11)))
	assert.False(t, Match(OpGreater, "10", value.Number(10)))
	assert.True(t, Match(OpGreaterEqual, "10", value.Number(10)))
	assert.True(t, Match(OpLess, "10", value.String("9.5")))
	assert.True(t, Match(OpLessEqual, "10", value.Number(10)))

	assert.False(t, Match(OpLess, "10", value.String("abc")), "non-numeric actual never matches")
	assert.False(t, Match(OpGreaterEqual, "ten", value.Number(100)), "non-numeric threshold never matches")
	assert.False(t, Match(OpLess, "10", value.None()))
	assert.False(t, Match(OpGreater, "0", value.Number(math.NaN())))
}

func TestMatch_Between(t *testing.T) {
	assert.True(t, Match(OpBetween, "10-20", value.Number(15)))
	assert.True(t, Match(OpBetween, "10 - 20", value.Number(10)), "bounds are inclusive and trimmed")
	assert.True(t, Match(OpBetween, "10-20", value.Number(20)))
	assert.False(t, Match(OpBetween, "10-20", value.Number(25)))
	assert.False(t, Match(OpBetween, "10-20", value.String("1LDK")))
	assert.False(t, Match(OpBetween, "10", value.Number(10)), "missing upper bound")
}

func TestMatch_In(t *testing.T) {
	assert.True(t, Match(OpIn, "2K,1LDK", value.String("1LDK")))
	assert.True(t, Match(OpIn, "2K, 1LDK", value.String("1LDK+S")), "substring match")
	assert.False(t, Match(OpIn, "2K,1LDK", value.String("3LDK")))
	assert.True(t, Match(OpIn, "2DK", value.String(" 2DK ")), "actual is trimmed")
	assert.True(t, Match(OpIn, "5,6", value.Number(15)), "numbers compare by string form")

	assert.False(t, Match(OpNotIn, "2K,1LDK", value.String("1LDK+S")))
	assert.True(t, Match(OpNotIn, "2K,1LDK", value.String("3LDK")))
}

func TestMatch_Exist(t *testing.T) {
	assert.True(t, Match(OpExist, "", value.String("有")))
	assert.True(t, Match(OpExist, "", value.Number(0)))
	assert.False(t, Match(OpExist, "", value.String("")))
	assert.False(t, Match(OpExist, "", value.None()))

	assert.True(t, Match(OpNotExist, "", value.None()))
	assert.True(t, Match(OpNotExist, "", value.String("")))
	assert.False(t, Match(OpNotExist, "", value.String("有")))
}

func TestMatch_Unknown(t *testing.T) {
	assert.False(t, Match("~=", "a", value.String("a")))
	assert.False(t, Match("", "", value.None()))
}

func TestRule_Matches(t *testing.T) {
	r, ok := newRule(Row{Metric: "家賃", Input: "家賃", Operator: "<=", Threshold: 9, Score: 5, Stakeholder: "wife"})
	require.True(t, ok)

	assert.Equal(t, "9", r.Threshold)
	assert.Equal(t, 5.0, r.Score)
	assert.True(t, r.Matches(value.Number(8.5)))
	assert.False(t, r.Matches(value.Number(9.5)))
}

func TestNewRule_Cells(t *testing.T) {
	r, ok := newRule(Row{Metric: " 費用 ", Input: "家賃, 管理費", Operator: ">", Score: "", Stakeholder: "husband", Method: " max "})
	require.True(t, ok)

	assert.Equal(t, "費用", r.Metric)
	assert.Equal(t, []string{"家賃", "管理費"}, r.Input)
	assert.Equal(t, "", r.Threshold)
	assert.Equal(t, 0.0, r.Score, "blank score is zero")
	assert.Equal(t, value.MethodMax, r.Method)

	r, ok = newRule(Row{Metric: "m", Input: "f", Operator: "=", Score: "high", Stakeholder: "wife"})
	require.True(t, ok)
	assert.True(t, math.IsNaN(r.Score), "non-numeric score")
}

func TestRule_MarshalJSON(t *testing.T) {
	r, ok := newRule(Row{Metric: "費用", Input: "家賃, 管理費", Operator: "<=", Threshold: 9, Score: "many", Stakeholder: "wife", Method: "add"})
	require.True(t, ok)

	body, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"metric": "費用",
		"input": "家賃, 管理費",
		"operator": "<=",
		"threshold": "9",
		"score": null,
		"stakeholder": "wife",
		"method": "add"
	}`, string(body))
}

func TestBuild_StripsOneOperatorQuote(t *testing.T) {
	table := Build([]Row{
		{Metric: "構造", Input: "構造", Operator: "'=", Threshold: "RC", Score: 2, Stakeholder: "wife"},
		{Metric: "構造", Input: "構造", Operator: "''=", Threshold: "RC", Score: 5, Stakeholder: "wife"},
	})

	rules := table.RulesFor("構造", "wife")
	require.Len(t, rules, 2)
	assert.Equal(t, OpEqual, rules[0].Operator)
	assert.Equal(t, Operator("'="), rules[1].Operator)
	assert.False(t, rules[1].Operator.Known())

	assert.True(t, rules[0].Matches(value.String("RC")))
	assert.False(t, rules[1].Matches(value.String("RC")), "a doubly quoted operator is unknown and never matches")
}
