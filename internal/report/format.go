package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/dish/internal/engine"
)

// Format names an output layout.
type Format string

const (
	FormatDump    Format = "dump"
	FormatBLTL    Format = "bltl"
	FormatSummary Format = "summary"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatDump, FormatBLTL, FormatSummary}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want dump, bltl or summary)", s)
}

// New returns the writer for f. name is the output name quoted in the dump
// header.
func New(f Format, w io.Writer, name string) (engine.Observer, error) {
	switch f {
	case FormatDump:
		return NewDumpWriter(w, name), nil
	case FormatBLTL:
		return NewBLTLWriter(w), nil
	case FormatSummary:
		return NewSummaryWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}
