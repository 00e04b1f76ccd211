package engine

import (
	"fmt"
	"strings"
)

// Mode is a scheduling discipline deciding which groups run in a cycle.
type Mode string

const (
	// ModeRA runs one group per cycle, chosen uniformly or by weight.
	ModeRA Mode = "ra"

	// ModeCA runs every group once per cycle in a fresh random order, or
	// in ascending rank order when ranked.
	ModeCA Mode = "ca"

	// ModeSync evaluates every rule against the cycle-start values and
	// commits all writes together at cycle end.
	ModeSync Mode = "sync"

	// ModeReplay runs the groups recorded for each cycle of an earlier run.
	ModeReplay Mode = "replay"
)

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRA, ModeCA, ModeSync, ModeReplay:
		return m, nil
	default:
		return "", newRuntimeError(ErrCodeInvalidMode, "unknown mode %q (want ra, ca or sync)", s)
	}
}

// Options configures a simulation.
type Options struct {
	Mode Mode `json:"mode"`

	// Ranked restricts choice-asynchronous cycles to the ranked groups.
	Ranked bool `json:"ranked,omitempty"`

	// Weighted selects random-asynchronous groups by probability weight.
	Weighted bool `json:"weighted,omitempty"`

	// Schedule holds the group indices to run in each cycle under ModeReplay.
	Schedule [][]int `json:"-"`
}

// Validate rejects mode combinations the scheduler cannot honour:
// rank with RA or SYNC, and weights with CA, SYNC or rank.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeRA, ModeCA, ModeSync, ModeReplay:
	default:
		return newRuntimeError(ErrCodeInvalidMode, "unknown mode %q", o.Mode)
	}

	if o.Ranked {
		switch o.Mode {
		case ModeRA:
			return newRuntimeError(ErrCodeInvalidMode, "cannot run rank function under ra mode")
		case ModeSync:
			return newRuntimeError(ErrCodeInvalidMode, "cannot run rank function under sync mode")
		}
	}

	if o.Weighted {
		if o.Ranked {
			return newRuntimeError(ErrCodeInvalidMode, "cannot have probability when using rank")
		}
		switch o.Mode {
		case ModeCA:
			return newRuntimeError(ErrCodeInvalidMode, "cannot have probability under ca mode")
		case ModeSync:
			return newRuntimeError(ErrCodeInvalidMode, "cannot have probability under sync mode")
		}
	}
	return nil
}

// String describes the options for logs, e.g. "ca+rank".
func (o Options) String() string {
	s := string(o.Mode)
	if o.Ranked {
		s += "+rank"
	}
	if o.Weighted {
		s += "+prob"
	}
	return s
}

// checkModel verifies that m carries what o needs.
func (o Options) checkModel(groups int, weighted bool) error {
	if o.Weighted && !weighted {
		return newRuntimeError(ErrCodeInvalidMode, "weighted selection requires a model loaded with probabilities")
	}
	if o.Mode == ModeRA && groups == 0 {
		return newRuntimeError(ErrCodeNoGroups, "random-asynchronous mode needs at least one rule group")
	}
	return nil
}

// modeError wraps err with the options that produced it.
func modeError(o Options, err error) error {
	return fmt.Errorf("mode %s: %w", o, err)
}
