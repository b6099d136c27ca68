package analyses

import "fmt"

const (
	maxMergedCompetitors = 8
	maxMergedRisks       = 8

	defaultOptimismScore = 65
	defaultFinalScore    = 5

	defaultAnalysisNarrative = "The reviewing models did not produce a detailed narrative analysis. Treat optimistic claims as unverified until independently validated."
	defaultVerdictLabel      = "Proceed with caution"
	defaultVerdictOneLiner   = "Independent validation required before committing resources."
	defaultVerdictAdvice     = "Validate demand with real customers and verify every market figure before proceeding."
)

// MergeVerdicts combines the parsed verdicts, in request order, into one
// canonical verdict. An empty input yields the complete fallback verdict: the
// analysis as a whole never fails just because every provider failed or was
// unparseable.
func MergeVerdicts(verdicts []Verdict) Verdict {
	if len(verdicts) == 0 {
		return FallbackVerdict()
	}

	merged := Verdict{
		OptimismBiasScore: intPtr(meanScore(optimismScores(verdicts), defaultOptimismScore)),
		Analysis:          longestAnalysis(verdicts),
		Competitors:       mergeCompetitors(verdicts),
		MarketReality:     pickMarketReality(verdicts),
		Feasibility:       pickFeasibility(verdicts),
		RiskFactors:       mergeRisks(verdicts),
		FinalVerdict:      mergeFinalVerdict(verdicts),
	}
	return merged
}

// FallbackVerdict is the deterministic all-default verdict used when no
// provider produced parseable output. Wording follows the service's original
// canned synthesis strings.
func FallbackVerdict() Verdict {
	return Verdict{
		OptimismBiasScore: intPtr(defaultOptimismScore),
		Analysis:          defaultAnalysisNarrative,
		Competitors:       []Competitor{},
		MarketReality: MarketReality{
			ClaimedSize:     "Market size claims need verification",
			ActualSize:      "Actual market size varies significantly",
			ServiceableSize: "Serviceable market is typically a fraction of the claimed total",
			TruthBomb:       "Detailed analysis from the reviewing models indicates potential overestimation",
		},
		Feasibility: Feasibility{
			Technical: FeasibilityArea{Assessment: "Technical feasibility requires further validation"},
			Financial: FeasibilityArea{Assessment: "Financial requirements are likely underestimated"},
			Timeline:  FeasibilityArea{Assessment: "Timeline estimates appear optimistic"},
		},
		RiskFactors: []RiskEntry{
			{Description: "Market competition is fierce"},
			{Description: "Customer acquisition costs may be high"},
			{Description: "Regulatory challenges possible"},
			{Description: "Technical complexity underestimated"},
			{Description: "Funding requirements significant"},
		},
		FinalVerdict: FinalVerdict{
			Score:             intPtr(defaultFinalScore),
			Label:             defaultVerdictLabel,
			Reasoning:         fallbackReasoning(defaultFinalScore, defaultOptimismScore),
			OneLiner:          defaultVerdictOneLiner,
			ConditionalAdvice: defaultVerdictAdvice,
		},
	}
}

func fallbackReasoning(score, optimism int) string {
	return fmt.Sprintf("Based on multi-model analysis, this idea scores %d/10. Optimism bias detected at %d/100. Proceed with caution and validate all assumptions.", score, optimism)
}

func optimismScores(verdicts []Verdict) []int {
	var scores []int
	for _, v := range verdicts {
		if v.OptimismBiasScore != nil {
			scores = append(scores, *v.OptimismBiasScore)
		}
	}
	return scores
}

// meanScore truncates toward zero, matching integer division in the original
// synthesis.
func meanScore(scores []int, fallback int) int {
	if len(scores) == 0 {
		return fallback
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return sum / len(scores)
}

func longestAnalysis(verdicts []Verdict) string {
	best := ""
	for _, v := range verdicts {
		if len(v.Analysis) > len(best) {
			best = v.Analysis
		}
	}
	if best == "" {
		return defaultAnalysisNarrative
	}
	return best
}

// mergeCompetitors unions competitor lists, first occurrence winning on an
// exact name match, in request order.
func mergeCompetitors(verdicts []Verdict) []Competitor {
	seen := make(map[string]struct{})
	merged := []Competitor{}
	for _, v := range verdicts {
		for _, comp := range v.Competitors {
			if comp.Name == "" {
				continue
			}
			if _, dup := seen[comp.Name]; dup {
				continue
			}
			seen[comp.Name] = struct{}{}
			merged = append(merged, comp)
			if len(merged) >= maxMergedCompetitors {
				return merged
			}
		}
	}
	return merged
}

// pickMarketReality keeps the single sub-object with the longest truth-bomb
// narrative, length being the proxy for detail.
func pickMarketReality(verdicts []Verdict) MarketReality {
	var best MarketReality
	bestLen := -1
	for _, v := range verdicts {
		if v.MarketReality.IsZero() {
			continue
		}
		if len(v.MarketReality.TruthBomb) > bestLen {
			best = v.MarketReality
			bestLen = len(v.MarketReality.TruthBomb)
		}
	}
	if bestLen < 0 {
		return MarketReality{}
	}
	return best
}

// pickFeasibility keeps the first non-empty feasibility object in request
// order. Precedence, not scoring.
func pickFeasibility(verdicts []Verdict) Feasibility {
	for _, v := range verdicts {
		if !v.Feasibility.IsZero() {
			return v.Feasibility
		}
	}
	return Feasibility{}
}

// mergeRisks unions risk entries in encounter order without deduplication,
// normalizing each to its description string.
func mergeRisks(verdicts []Verdict) []RiskEntry {
	merged := []RiskEntry{}
	for _, v := range verdicts {
		for _, risk := range v.RiskFactors {
			if risk.Description == "" {
				continue
			}
			merged = append(merged, RiskEntry{Description: risk.Description})
			if len(merged) >= maxMergedRisks {
				return merged
			}
		}
	}
	return merged
}

func mergeFinalVerdict(verdicts []Verdict) FinalVerdict {
	var scores []int
	for _, v := range verdicts {
		if v.FinalVerdict.Score != nil {
			scores = append(scores, *v.FinalVerdict.Score)
		}
	}
	score := meanScore(scores, defaultFinalScore)

	// Narrative fields travel together from the provider with the most
	// detailed reasoning.
	var best FinalVerdict
	bestLen := -1
	for _, v := range verdicts {
		if len(v.FinalVerdict.Reasoning) > bestLen {
			best = v.FinalVerdict
			bestLen = len(v.FinalVerdict.Reasoning)
		}
	}

	merged := FinalVerdict{
		Score:             intPtr(score),
		Label:             best.Label,
		Reasoning:         best.Reasoning,
		OneLiner:          best.OneLiner,
		ConditionalAdvice: best.ConditionalAdvice,
	}
	if merged.Label == "" {
		merged.Label = defaultVerdictLabel
	}
	if merged.Reasoning == "" {
		merged.Reasoning = fallbackReasoning(score, meanScore(optimismScores(verdicts), defaultOptimismScore))
	}
	if merged.OneLiner == "" {
		merged.OneLiner = defaultVerdictOneLiner
	}
	if merged.ConditionalAdvice == "" {
		merged.ConditionalAdvice = defaultVerdictAdvice
	}
	return merged
}
