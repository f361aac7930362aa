package bootstrap

import (
	"strings"
	"time"

	apihttp "webmail_client/adapter/in/http"
	"webmail_client/config"
	"webmail_client/infra/middleware"
	"webmail_client/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI builds the fiber application with all routes wired. The returned
// cleanup stops the notifier and closes connections.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "webmail",
	})

	deps, cleanupDeps, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             4 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
		// SSE responses are written incrementally.
		StreamRequestBody: true,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health (no auth)
	apihttp.NewHealthHandler(deps.Redis).Register(app)

	api := app.Group("/api/v1")

	// Auth routes sit outside SessionAuth: login has no session yet.
	authHandler := apihttp.NewAuthHandler(
		deps.OAuthConfig,
		deps.TokenManager,
		deps.StateStore,
		deps.Orchestrator.SignOut,
		apihttp.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			JWTExpiry:    cfg.JWTExpiry,
			CookieName:   cfg.CookieName,
			SecureCookie: cfg.IsProduction(),
		},
	)
	authHandler.Register(api)

	// Everything else requires the browser session.
	protected := api.Group("", middleware.SessionAuth(cfg.JWTSecret, cfg.CookieName))
	apihttp.NewMailboxHandler(deps.Mailbox).Register(protected)
	apihttp.NewSSEHandler(deps.Hub, deps.ZLog).Register(protected)

	var runner apihttp.AgentRunner
	if deps.Agent != nil {
		runner = deps.Agent
	}
	apihttp.NewAgentHandler(runner, deps.ToolExecutor).Register(protected)

	deps.Notifier.Start()
	cleanup := func() {
		deps.Notifier.Stop()
		cleanupDeps()
	}

	return app, cleanup, nil
}
