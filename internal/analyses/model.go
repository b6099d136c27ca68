package analyses

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis is a persisted reality-check request. Results is non-nil exactly
// when Status is completed; a failed analysis carries no verdict.
type Analysis struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	OriginalResponse string    `json:"original_response"`
	Context          string    `json:"context,omitempty"`
	Providers        []string  `json:"models_used"`
	Status           string    `json:"status"`
	Results          *Verdict  `json:"results,omitempty"`
	CreditsUsed      int       `json:"credits_used"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Terminal reports whether status permits no further transitions.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
