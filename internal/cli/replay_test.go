package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/store"
	"github.com/roach88/dish/internal/testutil"
)

func TestReplayVerifiesRecordedBatch(t *testing.T) {
	modes := []string{"ra", "ca", "sync"}

	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "chain.model", testutil.ChainModel)
			dbPath := filepath.Join(dir, "runs.db")
			batch := recordBatch(t, path, dbPath, "--mode", mode, "--runs", "3", "--cycles", "5", "--seed", "7")

			out, _, err := execute(t, "replay", path, "--db", dbPath, "--batch", batch)
			require.NoError(t, err)
			assert.Contains(t, out, "3 run(s)")
			assert.Contains(t, out, "✓ Run #0")
			assert.Contains(t, out, "✓ Run #2")
			assert.Contains(t, out, "✓ All runs verified deterministic")
		})
	}
}

func TestReplaySingleRunJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.model", testutil.ChainModel)
	dbPath := filepath.Join(dir, "runs.db")
	batch := recordBatch(t, path, dbPath, "--mode", "ca", "--runs", "3", "--cycles", "4", "--seed", "11")

	out, _, err := execute(t, "replay", path, "--db", dbPath, "--batch", batch, "--run", "1", "--format", "json")
	require.NoError(t, err)

	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, batch, result.Batch)
	assert.Equal(t, "ca", result.Mode)
	assert.True(t, result.AllDeterministic)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, 1, result.Runs[0].Run)
	assert.Equal(t, 4, result.Runs[0].Cycles)
	assert.Equal(t, 12, result.Runs[0].Events)
}

func TestReplayDetectsTamperedTrace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	dbPath := filepath.Join(dir, "runs.db")
	batch := recordBatch(t, path, dbPath, "--runs", "2", "--cycles", "3")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE runs SET trace = '["0110"]' WHERE batch_id = ? AND run = 1`, batch)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "replay", path, "--db", dbPath, "--batch", batch)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ Run #0")
	assert.Contains(t, out, "✗ Run #1")
	assert.Contains(t, out, "REPLAY_MISMATCH")

	out, _, err = execute(t, "replay", path, "--db", dbPath, "--batch", batch, "--format", "json")
	require.Error(t, err)
	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "REPLAY_MISMATCH", resp.Error.Code)
	assert.False(t, result.AllDeterministic)
}

func TestReplayModelMismatch(t *testing.T) {
	dir := t.TempDir()
	osc := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	chain := writeFile(t, dir, "chain.model", testutil.ChainModel)
	dbPath := filepath.Join(dir, "runs.db")
	batch := recordBatch(t, osc, dbPath, "--cycles", "2")

	out, _, err := execute(t, "replay", chain, "--db", dbPath, "--batch", batch)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]")
}

func TestReplayBatchNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osc.model", testutil.OscillatorModel)
	dbPath := filepath.Join(dir, "runs.db")
	recordBatch(t, path, dbPath, "--cycles", "2")

	out, _, err := execute(t, "replay", path, "--db", dbPath, "--batch", "no-such-batch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "batch not found")

	_, _, err = execute(t, "replay", path, "--db", dbPath, "--batch", "no-such-batch", "--run", "9")
	require.Error(t, err)
}

func TestReplayRequiresFlags(t *testing.T) {
	_, _, err := execute(t, "replay", "x.model", "--batch", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
