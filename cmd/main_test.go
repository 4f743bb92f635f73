package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"propscore/internal/configuration"
	"propscore/internal/dataset"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `
- {metric: 間取り, input: 間取り, operator: in, threshold: "1LDK,2LDK", score: 3, stakeholder: wife}
- {metric: 間取り, input: 間取り, operator: exist, score: 1, stakeholder: wife}
- {metric: 費用, input: "家賃,管理費", operator: "<=", threshold: 9, score: 2, stakeholder: wife, method: add}
- {metric: 駅距離, input: アクセス, operator: "<=", threshold: 5, score: 4, stakeholder: husband}
- {metric: 駅距離, input: アクセス, operator: "><", threshold: "6-10", score: 2, stakeholder: husband}
`

const testListings = "#,間取り,家賃,管理費,アクセス\n" +
	"1,1LDK,8,0.5,歩7分\n" +
	"2,1K,6,0,歩3分\n" +
	"3,2LDK,12,1,バス15分\n"

const testHusbandSheet = "#,合計,駅距離\n,,1.5\n"

// testConfig writes rules, listings and a configuration into a temp dir and
// returns the configuration path and the dir.
func testConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	rules := write("rules.yaml", testRules)
	listings := write("listings.csv", testListings)
	sheet := write("husband.csv", testHusbandSheet)

	config := write("config.yaml", `
logger:
  level: error
scoring:
  rules: `+rules+`
  stakeholders:
    - name: wife
      metrics: [間取り, 費用]
      weights: [2, 1]
    - name: husband
      sheet: `+sheet+`
records:
  driver: csv
  path: `+listings+`
output:
  dir: `+filepath.Join(dir, "out")+`
  dataset:
    file: `+filepath.Join(dir, "results.jsonl")+`
`)
	return config, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCmd(t *testing.T) {
	config, dir := testConfig(t)

	_, err := execute(t, "--config", config, "score", "--workers", "2")
	require.NoError(t, err)

	wife, err := os.ReadFile(dataset.SheetPath(filepath.Join(dir, "out"), "wife"))
	require.NoError(t, err)
	assert.Equal(t, "row,id,total,間取り,費用\n0,1,8,6,2\n1,2,4,2,2\n2,3,6,6,0\n", string(wife))

	husband, err := os.ReadFile(dataset.SheetPath(filepath.Join(dir, "out"), "husband"))
	require.NoError(t, err)
	assert.Equal(t, "row,id,total,駅距離\n0,1,3,3\n1,2,6,6\n2,3,0,0\n", string(husband))

	lines, err := os.ReadFile(filepath.Join(dir, "results.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(lines), "\n"))
}

func TestScoreCmd_IDs(t *testing.T) {
	config, dir := testConfig(t)

	_, err := execute(t, "--config", config, "score", "--ids", "3,1")
	require.NoError(t, err)

	wife, err := os.ReadFile(dataset.SheetPath(filepath.Join(dir, "out"), "wife"))
	require.NoError(t, err)
	assert.Equal(t, "row,id,total,間取り,費用\n0,1,8,6,2\n2,3,6,6,0\n", string(wife))
}

func TestScoreCmd_Where(t *testing.T) {
	config, dir := testConfig(t)

	_, err := execute(t, "--config", config, "score", "--where", `record["家賃"] < 7.0`)
	require.NoError(t, err)

	wife, err := os.ReadFile(dataset.SheetPath(filepath.Join(dir, "out"), "wife"))
	require.NoError(t, err)
	assert.Equal(t, "row,id,total,間取り,費用\n1,2,4,2,2\n", string(wife))
}

func TestScoreCmd_InvalidFlags(t *testing.T) {
	config, _ := testConfig(t)

	_, err := execute(t, "--config", config, "score", "--ids", "1", "--all")
	assert.Error(t, err, "selection flags are exclusive")

	_, err = execute(t, "--config", config, "score", "--where", "record[")
	assert.Error(t, err)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "score")
	assert.Error(t, err)
}

func TestExplainCmd(t *testing.T) {
	config, _ := testConfig(t)

	out, err := execute(t, "--config", config, "explain", "--id", "1", "--stakeholder", "husband")
	require.NoError(t, err)

	var explanations []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &explanations))
	require.Len(t, explanations, 1)
	assert.Equal(t, "husband", explanations[0]["stakeholder"])
	assert.Equal(t, 3.0, explanations[0]["total"])

	_, err = execute(t, "--config", config, "explain", "--id", "99")
	assert.ErrorContains(t, err, "record not found")

	_, err = execute(t, "--config", config, "explain", "--id", "1", "--stakeholder", "child")
	assert.ErrorContains(t, err, "unknown stakeholder")

	_, err = execute(t, "--config", config, "explain")
	assert.Error(t, err, "--id is required")
}

func TestRulesCmd(t *testing.T) {
	config, _ := testConfig(t)

	out, err := execute(t, "--config", config, "rules")
	require.NoError(t, err)

	var dump map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &dump))
	assert.Len(t, dump["間取り"]["wife"], 2)
	assert.Len(t, dump["駅距離"]["husband"], 2)
	assert.Equal(t, "add", dump["費用"]["wife"][0]["method"])
}

func TestOpenSource(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	path := filepath.Join(dir, "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"#": 1}, {"#": 2}]`), 0o600))

	source, closeSource, err := openSource(ctx, configuration.RecordsConfig{Driver: configuration.RecordsDriverJSON, Path: path}, "#")
	require.NoError(t, err)
	defer closeSource()
	records, err := source.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, _, err = openSource(ctx, configuration.RecordsConfig{Driver: configuration.RecordsDriverSQLite, DSN: filepath.Join(dir, "db.sqlite")}, "#")
	assert.Error(t, err, "neither table nor query")
}

func TestLoadProfiles(t *testing.T) {
	_, dir := testConfig(t)

	profiles, err := loadProfiles([]configuration.StakeholderConfig{
		{Name: "wife", Metrics: []string{"費用"}, Weights: []string{"3"}},
		{Name: "husband", Sheet: filepath.Join(dir, "husband.csv")},
	})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, 3.0, profiles[0].Weights.Weight("費用"))
	assert.Equal(t, []string{"駅距離"}, profiles[1].Metrics)
	assert.Equal(t, 1.5, profiles[1].Weights.Weight("駅距離"))

	_, err = loadProfiles([]configuration.StakeholderConfig{{Name: "x", Sheet: filepath.Join(dir, "none.csv")}})
	assert.Error(t, err)
}
