package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/account"
	"kritic-backend/internal/analyses"
	googleauth "kritic-backend/internal/auth"
	"kritic-backend/internal/credits"
	"kritic-backend/internal/llm"
	"kritic-backend/internal/queue"
	"kritic-backend/internal/shared/config"
	"kritic-backend/internal/shared/server"
	"kritic-backend/internal/shared/storage/db"
	"kritic-backend/internal/users"
)

// App holds shared dependencies for the API and worker processes.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Queue             queue.Client
	Registry          *llm.Registry
	AnalysesRepo      analyses.Repo
	CreditsStore      credits.Store
	UsersRepo         users.Repo
	AnalysesService   *analyses.Service
	AnalysisProcessor AnalysisProcessor
	CreditsService    *credits.Service
	AccountService    *account.Service
	UsersService      *users.Service
	AnalysisHandler   *analyses.Handler
	CreditsHandler    *credits.Handler
	AccountHandler    *account.Handler
	UsersHandler      *users.Handler
	GoogleAuth        *googleauth.GoogleService
}

// AnalysisProcessor allows callers to override analysis processing for tests.
type AnalysisProcessor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AccountHandler:  app.AccountHandler,
		AnalysisHandler: app.AnalysisHandler,
		CreditsHandler:  app.CreditsHandler,
		UserHandler:     app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("RC_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var analysisRepo analyses.Repo
	var creditsStore credits.Store
	var userRepo users.Repo

	if app.DB != nil {
		creditsStore = credits.NewPGStore(app.DB)
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		memLedger := credits.NewMemoryStore()
		creditsStore = memLedger
		analysisRepo = analyses.NewMemoryRepo(memLedger)
		userRepo = users.NewMemoryRepo()
	}

	app.Registry = llm.NewRegistry(llm.Credentials{
		OpenAIAPIKey:    app.Config.OpenAIAPIKey,
		OpenAIModel:     app.Config.OpenAIModel,
		AnthropicAPIKey: app.Config.AnthropicAPIKey,
		AnthropicModel:  app.Config.AnthropicModel,
		GoogleAIAPIKey:  app.Config.GoogleAIAPIKey,
		GeminiModel:     app.Config.GeminiModel,
		HTTPTimeout:     app.Config.ProviderTimeout,
	})

	analysisSvc := &analyses.Service{
		Repo: analysisRepo,
		Orchestrator: &analyses.Orchestrator{
			Registry: app.Registry,
			Timeout:  app.Config.ProviderTimeout,
		},
		JobQueue: app.Queue,
	}

	creditsSvc := credits.NewService(creditsStore)
	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.AnalysesRepo = analysisRepo
	app.CreditsStore = creditsStore
	app.UsersRepo = userRepo
	app.AnalysesService = analysisSvc
	app.AnalysisProcessor = analysisSvc
	app.CreditsService = creditsSvc
	app.AccountService = account.NewService(analysisRepo)
	app.UsersService = userSvc
	app.AnalysisHandler = analyses.NewHandler(analysisSvc)
	app.CreditsHandler = credits.NewHandler(creditsSvc)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	return nil
}
