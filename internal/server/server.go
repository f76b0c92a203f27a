// Package server contains the HTTP handlers for the blog API endpoints.
package server

import (
	"context"
	"time"

	_ "blogapi/docs" // swagger docs
	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/featureflags"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/repository"
	"blogapi/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "blog-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Store
	tokens         *middleware.Tokens
	featureFlags   *featureflags.Manager
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	notifier       *notifications.Notifier
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case sessions and CSRF tokens live in
// process memory.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		sessions:       newSessionStore(cfg, redisClient),
		tokens:         middleware.NewTokens(cfg.JWTSecret),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       userRepo,
		postRepo:       postRepo,
		commentRepo:    commentRepo,
	}
	server.authService = service.NewAuthService(userRepo, service.AuthOptions{
		UniqueEmail: cfg.RegisterUniqueEmail,
	})
	server.postService = service.NewPostService(postRepo)
	server.commentService = service.NewCommentService(commentRepo, postRepo)

	server.notifier = notifications.NewNotifier(redisClient)
	server.postService.SetPublisher(server.notifier)
	server.commentService.SetPublisher(server.notifier)

	return server, nil
}

// App builds the Fiber application with all middleware and routes attached.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Blog API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escaped a handler. Fiber errors keep their
// status; anything else is an opaque 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		switch fe.Code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, fe.Code, models.NewNotFoundError("Resource"))
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			return c.Status(fe.Code).JSON(models.ErrorResponse{Detail: fe.Message})
		}
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		"path", c.Path(),
		"error", err.Error(),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	app.Use(middleware.MetricsMiddleware(serviceName))

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-CSRFToken",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Identity must be resolved before CSRF: only session-authenticated
	// writes are checked.
	app.Use(s.IdentityMiddleware())
	app.Use(s.CSRFMiddleware())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Blog API Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth
	api.Get("/csrf", s.GetCSRFToken)
	api.Post("/login", s.Login)
	api.Post("/register", s.Register)
	api.Post("/logout", s.Logout)

	profile := api.Group("/profile", middleware.AuthRequired(notAuthenticatedProfileMessage))
	profile.Get("/", s.GetProfile)
	profile.Post("/", s.UpdateProfile)

	// Posts and comments. Specific /:id/comments routes before generic /:id.
	posts := api.Group("/post")
	posts.Get("/", s.ListPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/:id/comments", s.ListComments)
	posts.Post("/:id/comments", s.AddComment)
	posts.Get("/:id", s.GetPost)

	api.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a
// missing client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// StartEventLog subscribes to content events and logs each one until ctx is
// cancelled. It does nothing when Redis is not configured.
func (s *Server) StartEventLog(ctx context.Context) error {
	return s.notifier.StartSubscriber(ctx, func(channel string, ev notifications.Event) {
		middleware.Logger.InfoContext(ctx, "content event",
			"channel", channel,
			"type", ev.Type,
			"post_id", ev.PostID,
			"comment_id", ev.CommentID,
			"user_id", ev.UserID,
		)
	})
}

// Shutdown stops the HTTP server and releases the session store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}
	if s.sessions != nil && s.sessions.Storage != nil {
		if err := s.sessions.Storage.Close(); err != nil {
			middleware.Logger.Error("error closing session storage", "error", err.Error())
		}
	}
	middleware.Logger.Info("server shutdown complete")
	return nil
}
