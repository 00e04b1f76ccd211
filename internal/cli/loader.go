package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/dish/internal/compiler"
	"github.com/roach88/dish/internal/ir"
)

// Error code constants for failures outside the model language. Load and
// runtime errors report their own codes (DUPLICATE_ELEMENT, NO_GROUPS, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Run store error
	ErrCodeConfig      = "E009" // Config file error
)

// LoadError is a failure to read a model file, as opposed to a failure in
// the model text itself.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

// LoadModel reads and parses the model file at path.
func LoadModel(path string, weighted bool) (*ir.Model, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "model file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: err.Error()}
	}
	defer f.Close()

	m, err := compiler.ParseModel(f, compiler.ParseOptions{Weighted: weighted})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("model file loaded", "path", path, "model", m.String())
	return m, nil
}

// LoadedModel pairs a model file with its parsed model.
type LoadedModel struct {
	Path  string
	Model *ir.Model
}

// LoadModels loads every path, collecting all failures instead of stopping
// at the first. The returned error is a *multierror.Error or nil.
func LoadModels(paths []string, weighted bool) ([]LoadedModel, error) {
	var result *multierror.Error
	var models []LoadedModel

	for _, path := range paths {
		m, err := LoadModel(path, weighted)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		models = append(models, LoadedModel{Path: path, Model: m})
	}

	return models, result.ErrorOrNil()
}
