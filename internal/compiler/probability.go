package compiler

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/dish/internal/ir"
)

// Probability mass tolerances. The running sum may overshoot 1 by
// AccumTolerance while entries are read, but the final sum must be within
// FinalTolerance of 1.
//
// TODO: confirm with the model authors why the two tolerances differ;
// both are kept as found in existing models.
const (
	AccumTolerance = 0.01
	FinalTolerance = 0.005
)

// probabilityFold accumulates weights entry by entry and produces the
// cumulative table once, at the end of the rule section.
type probabilityFold struct {
	sum   float64
	table ir.ProbabilityTable
}

func (f *probabilityFold) add(weight float64, group, line int) error {
	if !(weight > 0) {
		return newLoadError(ErrCodeProbabilityMass, line, "weight must be positive, got %v", weight)
	}
	f.sum += weight
	if f.sum-1 > AccumTolerance {
		return newLoadError(ErrCodeProbabilityMass, line,
			"accumulated probability %.4f exceeds 1", f.sum)
	}
	f.table.Cumulative = append(f.table.Cumulative, f.sum)
	f.table.Groups = append(f.table.Groups, group)
	return nil
}

func (f *probabilityFold) finish() (*ir.ProbabilityTable, error) {
	if math.Abs(f.sum-1) > FinalTolerance {
		return nil, newLoadError(ErrCodeProbabilityMass, 0,
			"sum of probabilities is %.4f, not 1", f.sum)
	}
	table := f.table
	return &table, nil
}

// parseWeight parses the weight literal trailing an entry.
func parseWeight(s string, line int) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, newLoadError(ErrCodeProbabilityMass, line, "no probability given for rule entry")
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, newLoadError(ErrCodeProbabilityMass, line, "invalid probability %q", s)
	}
	return w, nil
}
