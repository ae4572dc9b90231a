package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askwhyharsh/fogofearth/internal/fog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dataDir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func readStats(t *testing.T, dataDir string) fog.Stats {
	t.Helper()
	out, err := run(t, dataDir, "", "stats")
	require.NoError(t, err)
	var stats fog.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	return stats
}

func TestAddPersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "add", "52.52,13.405", "52.52001,13.405", "52.53,13.405")
	require.NoError(t, err)
	assert.Contains(t, out, "added 2 of 3 points")

	assert.Equal(t, 2, readStats(t, dir).PrimaryPoints)
}

func TestAddRejectsBadPoints(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "", "add", "52.52")
	assert.Error(t, err)

	_, err = run(t, dir, "", "add", "91,0")
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	sender := t.TempDir()
	receiver := t.TempDir()

	_, err := run(t, sender, "", "add", "40.0,-74.0", "40.01,-74.0", "40.02,-74.0")
	require.NoError(t, err)

	exported, err := run(t, sender, "", "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(exported, "FOG2|"))

	out, err := run(t, receiver, exported, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "imported: 3 shared points")

	stats := readStats(t, receiver)
	assert.Equal(t, 0, stats.PrimaryPoints)
	assert.Equal(t, 3, stats.SharedPoints)
}

func TestExportEmptyMap(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "export")
	require.NoError(t, err)
	assert.Equal(t, "FOG2|EMPTY|1/1|\n", out)

	out, err = run(t, t.TempDir(), "", "import", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to share")
}

func TestExportWritesQRCodes(t *testing.T) {
	dir := t.TempDir()
	qrDir := filepath.Join(dir, "qr")

	_, err := run(t, dir, "", "add", "1,1")
	require.NoError(t, err)
	_, err = run(t, dir, "", "export", "--qr-dir", qrDir, "--qr-size", "128")
	require.NoError(t, err)

	entries, err := os.ReadDir(qrDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "part-001-of-001.png", entries[0].Name())
}

func TestImportIncompleteTransferFails(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "import", "FOG2|abc|1/2|xyz")
	assert.Error(t, err)
}

func TestMaskFormats(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "add", "10,10")
	require.NoError(t, err)

	out, err := run(t, dir, "", "mask")
	require.NoError(t, err)
	assert.Contains(t, out, `"primary"`)

	out, err = run(t, dir, "", "mask", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "radiusMeters:")

	out, err = run(t, dir, "", "mask", "--format", "geojson", "--segments", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "FeatureCollection")

	_, err = run(t, dir, "", "mask", "--format", "svg")
	assert.Error(t, err)
}

func TestEstimateAndReset(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "add", "10,10")
	require.NoError(t, err)

	out, err := run(t, dir, "", "estimate")
	require.NoError(t, err)
	assert.Contains(t, out, "uncovered:")

	_, err = run(t, dir, "", "reset")
	require.NoError(t, err)
	assert.Equal(t, 0, readStats(t, dir).PrimaryPoints)
}

func TestStudyExport(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "study.zip")

	out, err := run(t, dir, "", "study-export", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
