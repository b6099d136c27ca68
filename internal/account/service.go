package account

import (
	"context"
	"errors"
	"strings"

	"kritic-backend/internal/analyses"
)

// Service migrates guest-owned analyses to an authenticated account. Credit
// transactions stay with the guest identity so each ledger still sums to its
// own grant plus recorded activity.
type Service struct {
	AnalysisRepo analyses.Repo
}

type ClaimResult struct {
	MigratedAnalyses int `json:"migrated_analyses"`
}

func NewService(analysisRepo analyses.Repo) *Service {
	return &Service{AnalysisRepo: analysisRepo}
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	count, err := s.AnalysisRepo.ClaimUser(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedAnalyses: count}, nil
}
