package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/account"
	"kritic-backend/internal/analyses"
	googleauth "kritic-backend/internal/auth"
	"kritic-backend/internal/credits"
	"kritic-backend/internal/shared/config"
	"kritic-backend/internal/shared/metrics"
	"kritic-backend/internal/shared/server/middleware"
	"kritic-backend/internal/shared/server/respond"
	"kritic-backend/internal/users"
)

// RouterDeps lists the handlers the router mounts. Construction of the
// services behind them is the bootstrap package's job.
type RouterDeps struct {
	Config          config.Config
	AccountHandler  *account.Handler
	AnalysisHandler *analyses.Handler
	CreditsHandler  *credits.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: func(c *gin.Context) string {
				// Status polling is chatty; give it more headroom.
				if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/analyze/:id" {
					return "POLLING"
				}
				return "DEFAULT"
			},
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 2, Burst: 10},
				"POLLING": {Rate: 10, Burst: 30},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.CreditsHandler != nil {
		deps.CreditsHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api.Group("/users"))
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
