package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/credits"
	"kritic-backend/internal/llm"
	"kritic-backend/internal/shared/server/middleware"
	"kritic-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group. The history
// route is registered before the :id route so "history" never matches as an
// analysis ID.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.startAnalysis)
	rg.GET("/analyze/history", h.listAnalyses)
	rg.GET("/analyze/:id", h.getAnalysis)
}

type analyzeRequest struct {
	OriginalResponse string   `json:"original_response"`
	Context          string   `json:"context"`
	Models           []string `json:"models"`
}

func (h *Handler) startAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.Models) == 0 {
		req.Models = llm.DefaultProviders()
	}

	analysis, err := h.Svc.Create(c.Request.Context(), userID, req.OriginalResponse, req.Context, req.Models)
	if err != nil {
		var unknown ErrUnknownProvider
		switch {
		case errors.Is(err, ErrEmptyText):
			respond.Error(c, http.StatusBadRequest, "validation_error", "original_response is required", []map[string]string{
				{"field": "original_response", "issue": "required"},
			})
		case errors.As(err, &unknown):
			respond.Error(c, http.StatusBadRequest, "validation_error", unknown.Error(), []map[string]string{
				{"field": "models", "issue": "unknown_provider"},
			})
		case errors.Is(err, ErrNoProviders):
			respond.Error(c, http.StatusBadRequest, "validation_error", "at least one model is required", []map[string]string{
				{"field": "models", "issue": "required"},
			})
		case errors.Is(err, credits.ErrInsufficientCredits):
			respond.Error(c, http.StatusPaymentRequired, "insufficient_credits", "Not enough credits for this analysis. Purchase more to continue.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"analysis_id":  analysis.ID,
		"status":       analysis.Status,
		"credits_used": analysis.CreditsUsed,
	})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	analysis, err := h.Svc.Get(c.Request.Context(), userID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, analysisBody(analysis))
}

// analysisBody flattens the merged verdict into the top-level response so
// clients read scores and competitors without an extra nesting hop.
func analysisBody(a Analysis) gin.H {
	body := gin.H{
		"id":          a.ID,
		"status":      a.Status,
		"models_used": a.Providers,
		"created_at":  a.CreatedAt,
		"updated_at":  a.UpdatedAt,
	}
	if a.Status != StatusCompleted || a.Results == nil {
		return body
	}
	v := a.Results
	body["optimism_bias_score"] = v.OptimismBiasScore
	body["analysis"] = v.Analysis
	body["competitors"] = v.Competitors
	body["market_reality"] = v.MarketReality
	body["feasibility"] = v.Feasibility
	body["risk_factors"] = v.RiskFactors
	body["final_verdict"] = v.FinalVerdict
	return body
}

func (h *Handler) listAnalyses(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, a := range items {
		item := gin.H{
			"id":           a.ID,
			"status":       a.Status,
			"models_used":  a.Providers,
			"credits_used": a.CreditsUsed,
			"created_at":   a.CreatedAt,
		}
		if a.Status == StatusCompleted && a.Results != nil {
			item["optimism_bias_score"] = a.Results.OptimismBiasScore
			item["final_verdict"] = a.Results.FinalVerdict
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, gin.H{"analyses": resp})
}
