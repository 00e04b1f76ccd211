package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/engine"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "ra", cfg.Mode)
	assert.Equal(t, 1, cfg.Runs)
	assert.Equal(t, 10, cfg.Cycles)
	assert.Equal(t, "dump", cfg.Output)
	assert.False(t, cfg.Rank)
	assert.False(t, cfg.Prob)
	assert.Nil(t, cfg.Seed)
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "ca_ranked.cue"))
	require.NoError(t, err)

	assert.Equal(t, "ca", cfg.Mode)
	assert.True(t, cfg.Rank)
	assert.Equal(t, 50, cfg.Runs)
	assert.Equal(t, 20, cfg.Cycles)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(7), *cfg.Seed)
	assert.Equal(t, "summary", cfg.Output)
	assert.Equal(t, "runs.db", cfg.DB)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, engine.Options{Mode: engine.ModeCA, Ranked: true}, opts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_RankUnderRA(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "rank_ra.cue"))
	require.Error(t, err)

	var cfgErr *Error
	assert.True(t, errors.As(err, &cfgErr))
}

func TestParse_ImpliedMode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want engine.Options
	}{
		{"rank implies ca", `rank: true`, engine.Options{Mode: engine.ModeCA, Ranked: true}},
		{"prob implies ra", `prob: true`, engine.Options{Mode: engine.ModeRA, Weighted: true}},
		{"sync", `mode: "sync"`, engine.Options{Mode: engine.ModeSync}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.src), "test.cue")
			require.NoError(t, err)

			opts, err := cfg.Options()
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"prob under ca", `mode: "ca", prob: true`},
		{"prob under sync", `mode: "sync", prob: true`},
		{"rank under sync", `mode: "sync", rank: true`},
		{"prob with rank", `prob: true, rank: true`},
		{"unknown mode", `mode: "replay"`},
		{"zero runs", `runs: 0`},
		{"negative cycles", `cycles: -1`},
		{"negative seed", `seed: -3`},
		{"unknown output", `output: "csv"`},
		{"syntax", `mode: `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "test.cue")
			assert.Error(t, err)
		})
	}
}

func TestOptions_Validates(t *testing.T) {
	_, err := Config{Mode: "ra", Rank: true}.Options()
	require.Error(t, err)
	assert.True(t, engine.IsInvalidMode(err))

	_, err = Config{Mode: "bogus"}.Options()
	require.Error(t, err)
	assert.True(t, engine.IsInvalidMode(err))

	_, err = Config{Mode: "replay"}.Options()
	assert.Error(t, err)
}
