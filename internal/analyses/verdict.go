package analyses

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict is the structured reality-check result. One instance is parsed per
// provider that returned well-formed output; the merger produces one more in
// the same shape, which is what gets persisted on a completed analysis.
//
// The two score fields are pointers so a provider that omitted them is
// distinguishable from one that scored zero.
type Verdict struct {
	OptimismBiasScore *int          `json:"optimism_bias_score,omitempty"`
	Analysis          string        `json:"analysis"`
	Competitors       []Competitor  `json:"competitors"`
	MarketReality     MarketReality `json:"market_reality"`
	Feasibility       Feasibility   `json:"feasibility"`
	RiskFactors       []RiskEntry   `json:"risk_factors"`
	FinalVerdict      FinalVerdict  `json:"final_verdict"`
}

// Competitor is one identified competitor.
type Competitor struct {
	Name           string `json:"name"`
	URL            string `json:"url,omitempty"`
	Description    string `json:"description,omitempty"`
	MarketPosition string `json:"market_position,omitempty"`
}

// MarketReality compares claimed against actual market size.
type MarketReality struct {
	ClaimedSize     string `json:"claimed_size,omitempty"`
	ActualSize      string `json:"actual_size,omitempty"`
	ServiceableSize string `json:"serviceable_size,omitempty"`
	TruthBomb       string `json:"truth_bomb,omitempty"`
}

// IsZero reports whether no field is populated.
func (m MarketReality) IsZero() bool {
	return m.ClaimedSize == "" && m.ActualSize == "" && m.ServiceableSize == "" && m.TruthBomb == ""
}

// Feasibility breaks the assessment into technical, financial and timeline
// sub-areas.
type Feasibility struct {
	Technical FeasibilityArea `json:"technical,omitzero"`
	Financial FeasibilityArea `json:"financial,omitzero"`
	Timeline  FeasibilityArea `json:"timeline,omitzero"`
}

// IsZero reports whether every sub-area is empty.
func (f Feasibility) IsZero() bool {
	return f.Technical.IsZero() && f.Financial.IsZero() && f.Timeline.IsZero()
}

// FeasibilityArea is one feasibility sub-assessment.
type FeasibilityArea struct {
	Assessment string   `json:"assessment,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
}

// IsZero reports whether the area carries no content.
func (a FeasibilityArea) IsZero() bool {
	return a.Assessment == "" && len(a.Concerns) == 0
}

// RiskEntry is one risk factor. Providers emit either a structured object or
// a bare string; both decode here, with a bare string landing in Description.
// An entry whose only populated field is Description marshals back as a bare
// string, which is how merged verdicts persist their normalized risk lists.
type RiskEntry struct {
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
}

func (r *RiskEntry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RiskEntry{Description: s}
		return nil
	}
	type riskEntry RiskEntry // drop methods to avoid recursion
	var decoded riskEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("risk entry: %w", err)
	}
	*r = RiskEntry(decoded)
	return nil
}

func (r RiskEntry) MarshalJSON() ([]byte, error) {
	if r.Category == "" && r.Severity == "" && r.Rationale == "" {
		return json.Marshal(r.Description)
	}
	type riskEntry RiskEntry
	return json.Marshal(riskEntry(r))
}

// FinalVerdict is the overall call on the analyzed idea.
type FinalVerdict struct {
	Score             *int   `json:"score,omitempty"`
	Label             string `json:"label,omitempty"`
	Reasoning         string `json:"reasoning,omitempty"`
	OneLiner          string `json:"one_liner,omitempty"`
	ConditionalAdvice string `json:"conditional_advice,omitempty"`
}

func intPtr(v int) *int { return &v }
