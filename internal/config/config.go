package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dish/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Config is a decoded simulation configuration.
type Config struct {
	Mode       string  `json:"mode"`
	Runs       int     `json:"runs"`
	Cycles     int     `json:"cycles"`
	Rank       bool    `json:"rank"`
	Prob       bool    `json:"prob"`
	Seed       *uint64 `json:"seed,omitempty"`
	Output     string  `json:"output"`
	Out        string  `json:"out,omitempty"`
	DB         string  `json:"db,omitempty"`
	EventTrace string  `json:"event_trace,omitempty"`
}

// Error is a config error with the CUE position when one is known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "defaults.cue")
	if err != nil {
		// The embedded schema is fixed; failing here is a build defect.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema and decodes it. filename
// is used for error positions.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := def.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}

	// The schema enforces these too; Options.Validate is the source of
	// truth for the engine.
	if _, err := cfg.Options(); err != nil {
		return Config{}, &Error{Message: err.Error()}
	}
	return cfg, nil
}

// Options converts the mode settings to engine options.
func (c Config) Options() (engine.Options, error) {
	mode, err := engine.ParseMode(c.Mode)
	if err != nil {
		return engine.Options{}, err
	}
	if mode == engine.ModeReplay {
		return engine.Options{}, fmt.Errorf("mode %q cannot be configured; use dish replay", mode)
	}
	opts := engine.Options{Mode: mode, Ranked: c.Rank, Weighted: c.Prob}
	if err := opts.Validate(); err != nil {
		return engine.Options{}, err
	}
	return opts, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
