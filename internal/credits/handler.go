package credits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/shared/server/middleware"
	"kritic-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the ledger service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches credit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits/balance", h.balance)
	rg.POST("/credits/purchase", h.purchase)
	rg.GET("/credits/history", h.history)
}

func (h *Handler) balance(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	balance, err := h.Svc.Balance(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load balance", nil)
		return
	}
	respond.OK(c, gin.H{"balance": balance})
}

type purchaseRequest struct {
	Amount int `json:"amount"`
	// PaymentMethod is the payment provider's token; charging it is the
	// payment collaborator's job, this endpoint only records the ledger
	// entry it reports.
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) purchase(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Amount <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "amount must be positive", nil)
		return
	}

	balance, err := h.Svc.Apply(c.Request.Context(), userID, KindPurchase, req.Amount, "Purchased "+strconv.Itoa(req.Amount)+" credits")
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidKind) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record purchase", nil)
		return
	}
	respond.OK(c, gin.H{"balance": balance})
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 50
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

	transactions, err := h.Svc.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		return
	}
	respond.OK(c, gin.H{"transactions": transactions})
}
