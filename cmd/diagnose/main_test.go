package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestAnalyzeJSONWhenNotATerminal(t *testing.T) {
	tone := writeFile(t, "idle.wav", testutil.SineWAV(t, 800, 2, 16000, 1))
	junk := writeFile(t, "junk.wav", []byte("RIFF but not really"))

	out, err := runCLI(t, "analyze", tone, junk)
	require.NoError(t, err)

	var reports []fileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, diagnosis.CategoryExhaustLeak, reports[0].Result.Verdict.Category)
	assert.Equal(t, "idle.wav", reports[0].Result.FileName)
	assert.Empty(t, reports[0].Error)
	assert.Equal(t, diagnosis.CategoryAnalysisFailed, reports[1].Result.Verdict.Category)
	assert.Equal(t, "decode", reports[1].Stage)
	assert.NotEmpty(t, reports[1].Error)
}

func TestAnalyzeTable(t *testing.T) {
	tone := writeFile(t, "idle.wav", testutil.SineWAV(t, 800, 2, 16000, 1))

	out, err := runCLI(t, "analyze", "--table", tone)
	require.NoError(t, err)
	assert.Contains(t, out, "exhaust_leak")
	assert.Contains(t, out, "72%")
	assert.Contains(t, out, "64 kB")
}

func TestAnalyzeMaxSecondsFlag(t *testing.T) {
	tone := writeFile(t, "long.wav", testutil.SineWAV(t, 800, 2, 16000, 1))

	out, err := runCLI(t, "analyze", "--json", "--max-seconds", "1", tone)
	require.NoError(t, err)

	var reports []fileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, diagnosis.CategoryAnalysisFailed, reports[0].Result.Verdict.Category)
	assert.Equal(t, "decode", reports[0].Stage)
	assert.Contains(t, reports[0].Error, "maximum duration")
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := runCLI(t, "analyze", filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}

func TestAnalyzeRequiresArgs(t *testing.T) {
	_, err := runCLI(t, "analyze")
	assert.Error(t, err)
}

func TestSuggestionsSingleCategory(t *testing.T) {
	out, err := runCLI(t, "suggestions", "brake_squeal", "--json")
	require.NoError(t, err)

	var entries []suggestionEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	want := diagnosis.DefaultSuggestions()[diagnosis.CategoryBrakeSqueal]
	assert.Equal(t, want.Temporary, entries[0].Temporary)
	assert.Equal(t, want.Permanent, entries[0].Permanent)
}

func TestSuggestionsTableListsEveryCategory(t *testing.T) {
	out, err := runCLI(t, "suggestions", "--table")
	require.NoError(t, err)
	for _, c := range diagnosis.ClassifierCategories {
		assert.Contains(t, out, string(c))
	}
}

func TestSuggestionsOverrideFile(t *testing.T) {
	path := writeFile(t, "suggestions.yaml", []byte("belt_squeal:\n  temporary: [\"Spray belt dressing\"]\n  permanent: [\"Replace the belt\"]\n"))

	out, err := runCLI(t, "--suggestions", path, "suggestions", "belt_squeal", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Spray belt dressing")
}

func TestSuggestionsUnknownCategory(t *testing.T) {
	_, err := runCLI(t, "suggestions", "flat_tire")
	assert.Error(t, err)
}

func TestJSONAndTableAreExclusive(t *testing.T) {
	_, err := runCLI(t, "suggestions", "--json", "--table")
	assert.Error(t, err)
}
