package config

import (
	"encoding/json"
	"fmt"

	"github.com/abhisek/bloomsbot/internal/paper"
)

// Target is a per-request override of the paper target, as sent to the
// HTTP API or passed to `generate --target`. Omitted fields keep the
// configured values; an explicitly empty quota map removes that quota.
type Target struct {
	TotalMarks *int                   `json:"total_marks"`
	Tolerance  *int                   `json:"tolerance"`
	BloomQuota map[string]paper.Range `json:"bloom_quota"`
	TypeQuota  map[string]paper.Range `json:"type_quota"`
}

// ParseTarget decodes a JSON target and resolves it against def.
func ParseTarget(data []byte, def paper.Spec) (paper.Spec, error) {
	var t Target
	if err := json.Unmarshal(data, &t); err != nil {
		return paper.Spec{}, fmt.Errorf("invalid target: %w", err)
	}
	return t.Spec(def)
}

// Spec merges the override into def and validates the result.
func (t Target) Spec(def paper.Spec) (paper.Spec, error) {
	pc := PaperConfig{
		TotalMarks: def.TotalMarks,
		Tolerance:  def.Tolerance,
		BloomQuota: t.BloomQuota,
		TypeQuota:  t.TypeQuota,
	}
	if t.TotalMarks != nil {
		pc.TotalMarks = *t.TotalMarks
	}
	if t.Tolerance != nil {
		pc.Tolerance = *t.Tolerance
	}
	spec, err := pc.Spec()
	if err != nil {
		return paper.Spec{}, err
	}
	if t.BloomQuota == nil {
		spec.BloomQuota = def.BloomQuota
	}
	if t.TypeQuota == nil {
		spec.TypeQuota = def.TypeQuota
	}
	return spec, spec.Validate()
}
