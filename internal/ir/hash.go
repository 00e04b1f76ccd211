package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// DomainModel is the domain prefix for model hashes.
// The version suffix enables future algorithm migration.
const DomainModel = "dish/model/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash computes a content hash of a resolved model.
//
// Two models with the same elements, initializers, groups and compiled
// expressions hash identically regardless of formatting in the source text.
// Stored batches record the hash so replays can refuse a changed model.
func ModelHash(m *Model) (string, error) {
	elements := make([]any, len(m.Elements))
	for i, e := range m.Elements {
		obj := map[string]any{
			"name":   e.Name,
			"init":   int(e.Init),
			"random": e.Random,
		}
		if e.HasToggle {
			obj["toggle_at"] = e.ToggleAt
		}
		elements[i] = obj
	}

	groups := make([]any, len(m.Groups))
	for i, g := range m.Groups {
		rules := make([]any, len(g.Rules))
		for j, r := range g.Rules {
			rules[j] = map[string]any{
				"target": r.TargetName,
				"expr":   r.Postfix(),
			}
		}
		obj := map[string]any{
			"mode":  g.Mode.String(),
			"rules": rules,
		}
		if g.Ranked {
			obj["rank"] = g.Rank
		}
		if m.Weighted() {
			obj["weight"] = strconv.FormatFloat(g.Weight, 'g', -1, 64)
		}
		groups[i] = obj
	}

	canonical, err := MarshalCanonical(map[string]any{
		"elements": elements,
		"groups":   groups,
	})
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}
