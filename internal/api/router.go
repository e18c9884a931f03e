package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/studyon/billing/internal/api/handler"
	"github.com/studyon/billing/internal/api/middleware"
	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
	"github.com/studyon/billing/internal/infrastructure/http/handlers"
)

// RouterDeps carries everything NewRouter wires into handlers.
type RouterDeps struct {
	Auth         ports.AuthService
	Courses      ports.CourseService
	Transactions ports.TransactionService
	JWTSecret    string
	// Checks are the readiness probes keyed by dependency name.
	Checks map[string]handlers.Check
	Log    zerolog.Logger
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))

	authHandler := handler.NewAuthHandler(deps.Auth)
	courseHandler := handler.NewCourseHandler(deps.Courses)
	transactionHandler := handler.NewTransactionHandler(deps.Transactions)
	requireAuth := middleware.Auth(deps.JWTSecret)
	requireAdmin := middleware.RBAC(domain.RoleSuperAdmin)

	v1 := e.Group("/api/v1")

	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.GET("/users/current", authHandler.Current, requireAuth)

	v1.GET("/courses", courseHandler.List)
	v1.GET("/courses/:code", courseHandler.Get)
	v1.POST("/courses", courseHandler.Create, requireAuth, requireAdmin)
	v1.PUT("/courses/:code", courseHandler.Update, requireAuth, requireAdmin)
	v1.POST("/courses/:code/pay", courseHandler.Pay, requireAuth)

	v1.GET("/transactions", transactionHandler.History, requireAuth)

	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewReadinessHandler(deps.Checks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
