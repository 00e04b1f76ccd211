package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/store"
	"github.com/roach88/dish/internal/testutil"
)

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, _, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No batches found in database.\n", out)
}

func TestTraceListsBatches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	dbPath := filepath.Join(dir, "runs.db")
	first := recordBatch(t, path, dbPath, "--runs", "2", "--cycles", "3")
	second := recordBatch(t, path, dbPath, "--cycles", "1")

	out, _, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)
	assert.Contains(t, out, "2/2 runs x 3 cycles")

	out, _, err = execute(t, "trace", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	var batches []store.BatchRecord
	decodeResponse(t, out, &batches)
	require.Len(t, batches, 2)
}

func TestTraceShowsBatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	dbPath := filepath.Join(dir, "runs.db")
	batch := recordBatch(t, path, dbPath, "--runs", "2", "--cycles", "3")

	out, _, err := execute(t, "trace", "--db", dbPath, "--batch", batch)
	require.NoError(t, err)
	assert.Contains(t, out, "Batch: "+batch+"\n")
	assert.Contains(t, out, "Mode: ra\n")
	assert.Contains(t, out, "Runs: 2 of 2 completed, 3 cycles each\n")
	assert.Contains(t, out, "=== Frequency Summary ===\n  osc 0 2 0 2\n")
	assert.NotContains(t, out, "=== Timeline ===")
}

func TestTraceShowsRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	dbPath := filepath.Join(dir, "runs.db")
	batch := recordBatch(t, path, dbPath, "--runs", "2", "--cycles", "3")

	out, _, err := execute(t, "trace", "--db", dbPath, "--batch", batch, "--run", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Run #1 ===\n  osc 0101\n")
	assert.Contains(t, out, "  [4] cycle 0 group 0\n")
	assert.Contains(t, out, "  [6] cycle 2 group 0\n")

	out, _, err = execute(t, "trace", "--db", dbPath, "--batch", batch, "--run", "0", "--format", "json")
	require.NoError(t, err)
	var result TraceResult
	decodeResponse(t, out, &result)
	assert.Equal(t, batch, result.Batch.ID)
	assert.Equal(t, []int{0, 1}, result.Runs)
	assert.Equal(t, []int{0, 2, 0, 2}, result.Sums["osc"])
	require.NotNil(t, result.Run)
	assert.Equal(t, "0101", result.Run.Trace["osc"])
	assert.Len(t, result.Run.Timeline, 3)
}

func TestTraceErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	dbPath := filepath.Join(dir, "runs.db")
	batch := recordBatch(t, path, dbPath, "--cycles", "2")

	_, _, err := execute(t, "trace", "--db", dbPath, "--batch", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "trace", "--db", dbPath, "--batch", batch, "--run", "5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "trace", "--db", dbPath, "--run", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--run requires --batch")

	_, _, err = execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "0110", digits([]uint8{0, 1, 1, 0}))
	assert.Equal(t, "", digits(nil))
}
