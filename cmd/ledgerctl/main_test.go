package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"bizledger/internal/core"
)

func useJSONStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	t.Setenv("DATA_BACKEND", "json")
	t.Setenv("JSON_STORE_PATH", path)
	t.Setenv("AMQP_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root, a := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	require.NoError(t, a.close())
	return stdout.String(), stderr.String(), err
}

func TestTxAddAndList(t *testing.T) {
	useJSONStore(t)

	_, _, err := run(t, "tx", "add", "--type", "expense", "--date", "2024-01-05", "--amount", "50",
		"--description", "Lunch", "--category", "Food")
	require.NoError(t, err)
	_, _, err = run(t, "tx", "add", "-t", "Revenue", "-d", "2024-01-06", "-a", "12,50",
		"--description", "Invoice", "-c", "Sales")
	require.NoError(t, err)

	out, _, err := run(t, "tx", "list", "--format", "json")
	require.NoError(t, err)
	var txs []core.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, "Invoice", txs[0].Description)
	assert.Equal(t, core.Revenue, txs[0].Type)
	assert.Equal(t, "12.5", txs[0].Amount.String())

	out, _, err = run(t, "tx", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "DESCRIPTION")
	assert.Contains(t, out, "50.00")
}

func TestTxAddRejectsInvalidInput(t *testing.T) {
	path := useJSONStore(t)

	_, _, err := run(t, "tx", "add", "--type", "gift", "--amount", "5", "--description", "x", "--category", "y")
	assert.ErrorContains(t, err, "--type")

	_, _, err = run(t, "tx", "add", "--type", "expense", "--amount", "-5", "--description", "x", "--category", "y")
	assert.ErrorContains(t, err, "--amount")

	_, _, err = run(t, "tx", "add", "--type", "expense", "--amount", "5", "--description", " ", "--category", "y")
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no store is touched for rejected input")
}

func TestSummaryYAML(t *testing.T) {
	useJSONStore(t)
	_, _, err := run(t, "tx", "add", "--type", "expense", "--date", "2024-01-05", "--amount", "50",
		"--description", "Lunch", "--category", "Food")
	require.NoError(t, err)

	out, _, err := run(t, "summary", "-f", "yaml")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{"revenue": "0", "expenses": "50", "profit": "-50"}, got)
}

func TestEventsByDay(t *testing.T) {
	useJSONStore(t)
	for _, args := range [][]string{
		{"event", "add", "--date", "2024-02-01", "--title", "Kickoff"},
		{"event", "add", "--date", "2024-02-02", "--title", "Later"},
	} {
		_, _, err := run(t, args...)
		require.NoError(t, err)
	}

	out, _, err := run(t, "event", "list", "--day", "2024-02-01", "--format", "json")
	require.NoError(t, err)
	var events []core.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Kickoff", events[0].Title)
	assert.Equal(t, "", events[0].Description)
}

func TestExport(t *testing.T) {
	useJSONStore(t)

	_, stderr, err := run(t, "export", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, stderr, "No transactions")

	_, _, err = run(t, "tx", "add", "--type", "expense", "--amount", "3.20",
		"--description", `He said "hi"`, "--category", "Misc")
	require.NoError(t, err)

	out, _, err := run(t, "export", "--out", "-")
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, core.CSVHeader, records[0])
	assert.Equal(t, `He said "hi"`, records[1][4])
	assert.Equal(t, "3.2", records[1][3])

	file := filepath.Join(t.TempDir(), "report.csv")
	_, stderr, err = run(t, "export", "--days", "7", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Exported 1 transactions")
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"He said ""hi"""`)
}

func TestSeriesAndCategories(t *testing.T) {
	useJSONStore(t)
	_, _, err := run(t, "tx", "add", "--type", "expense", "--date", "2024-01-05", "--amount", "5",
		"--description", "Pens", "--category", "Office")
	require.NoError(t, err)

	out, _, err := run(t, "series", "--days", "3", "--end", "2024-01-06", "-f", "json")
	require.NoError(t, err)
	var points []core.DailyPoint
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 3)
	assert.Equal(t, "5", points[1].Expenses.String())

	_, _, err = run(t, "series", "--days", "0")
	assert.Error(t, err)

	out, _, err = run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Office")
	assert.Contains(t, out, "5.00")
}

func TestSuggestUsesKeywordsWithoutAPIKey(t *testing.T) {
	useJSONStore(t)

	out, _, err := run(t, "suggest", "team", "lunch", "-f", "json")
	require.NoError(t, err)
	var cats []string
	require.NoError(t, json.Unmarshal([]byte(out), &cats))
	assert.Equal(t, []string{"Food & Dining"}, cats)
}

func TestUnknownFormat(t *testing.T) {
	useJSONStore(t)
	_, _, err := run(t, "summary", "--format", "xml")
	assert.ErrorContains(t, err, "unknown --format")
}

func TestMemoryBackendRefused(t *testing.T) {
	useJSONStore(t)
	_, _, err := run(t, "--backend", "memory", "summary")
	assert.Error(t, err)
}
