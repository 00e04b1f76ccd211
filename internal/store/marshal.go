package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/dish/internal/ir"
)

// marshalTrace encodes per-element traces as a canonical JSON array of
// digit strings, e.g. ["0101","1010"].
func marshalTrace(trace [][]uint8) (string, error) {
	rows := make([]any, len(trace))
	for i, t := range trace {
		b := make([]byte, len(t))
		for k, v := range t {
			b[k] = '0' + v
		}
		rows[i] = string(b)
	}
	data, err := ir.MarshalCanonical(rows)
	if err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}
	return string(data), nil
}

// unmarshalTrace parses a trace written by marshalTrace.
func unmarshalTrace(data string) ([][]uint8, error) {
	var rows []string
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshal trace: %w", err)
	}
	trace := make([][]uint8, len(rows))
	for i, row := range rows {
		t := make([]uint8, len(row))
		for k := range len(row) {
			switch row[k] {
			case '0', '1':
				t[k] = row[k] - '0'
			default:
				return nil, fmt.Errorf("unmarshal trace: invalid value %q in row %d", row[k], i)
			}
		}
		trace[i] = t
	}
	return trace, nil
}

// marshalNames encodes element names as a canonical JSON array.
func marshalNames(names []string) (string, error) {
	vals := make([]any, len(names))
	for i, n := range names {
		vals[i] = n
	}
	data, err := ir.MarshalCanonical(vals)
	if err != nil {
		return "", fmt.Errorf("marshal names: %w", err)
	}
	return string(data), nil
}

func unmarshalNames(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	return names, nil
}

// marshalSums encodes a frequency row as a canonical JSON array.
func marshalSums(sums []int) (string, error) {
	vals := make([]any, len(sums))
	for i, n := range sums {
		vals[i] = n
	}
	data, err := ir.MarshalCanonical(vals)
	if err != nil {
		return "", fmt.Errorf("marshal sums: %w", err)
	}
	return string(data), nil
}

func unmarshalSums(data string) ([]int, error) {
	var sums []int
	if err := json.Unmarshal([]byte(data), &sums); err != nil {
		return nil, fmt.Errorf("unmarshal sums: %w", err)
	}
	return sums, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
