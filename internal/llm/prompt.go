package llm

import "fmt"

// PromptVersion identifies the instruction block below. Bump when the schema
// or quality bars change so stored analyses stay comparable.
const PromptVersion = "v2"

// instructionBlock is shared verbatim by every provider; only the role phrase
// differs between them so their outputs stay comparable. It pins the JSON
// schema the response parser expects.
const instructionBlock = `Your job: identify overoptimism, find competitors, verify claims, and assess feasibility.

Respond with a single JSON object and nothing else, using exactly this structure:

{
  "optimism_bias_score": <integer 0-100, 100 = extremely optimistic>,
  "analysis": "<your narrative analysis>",
  "competitors": [
    {"name": "...", "url": "...", "description": "<one line>", "market_position": "..."}
  ],
  "market_reality": {
    "claimed_size": "...",
    "actual_size": "...",
    "serviceable_size": "...",
    "truth_bomb": "<blunt narrative comparing claimed vs actual>"
  },
  "feasibility": {
    "technical": {"assessment": "...", "concerns": ["..."]},
    "financial": {"assessment": "...", "concerns": ["..."]},
    "timeline": {"assessment": "...", "concerns": ["..."]}
  },
  "risk_factors": [
    {"category": "...", "description": "...", "severity": "low|medium|high", "rationale": "..."}
  ],
  "final_verdict": {
    "score": <integer 0-10, 10 = highly feasible>,
    "label": "...",
    "reasoning": "...",
    "one_liner": "...",
    "conditional_advice": "<what would have to be true for this to work>"
  }
}

Quality bars:
- Name at least 3 real competitors.
- Never invent numeric precision you cannot support; say "unknown" instead.
- Cite concrete comparative examples (named companies, markets, failures).
Be specific. Be harsh but fair. Focus on reality, not possibilities.`

// BuildAnalysisPrompt renders the critique prompt for one provider role.
// Pure function of its inputs.
func BuildAnalysisPrompt(originalResponse, context, role string) string {
	contextText := ""
	if context != "" {
		contextText = fmt.Sprintf("\n\nOriginal question: %s", context)
	}

	return fmt.Sprintf(`You are a %s. A user received this response from an AI assistant:

"%s"%s

%s`, role, originalResponse, contextText, instructionBlock)
}
