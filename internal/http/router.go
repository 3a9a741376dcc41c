package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/taskmanager/internal/accounts"
	"github.com/geocoder89/taskmanager/internal/auth"
	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/domain/task"
	"github.com/geocoder89/taskmanager/internal/http/handlers"
	"github.com/geocoder89/taskmanager/internal/http/middlewares"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/geocoder89/taskmanager/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "taskmanager-api"

type Deps struct {
	Config   config.Config
	Accounts *accounts.Store
	Tasks    task.Repository
	Tokens   *auth.Manager

	// AuthLimiter guards /auth; nil disables rate limiting.
	AuthLimiter ratelimit.Limiter

	// Prom and Gatherer are optional; /metrics is only mounted with a Gatherer.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// Ping backs /readyz.
	Ping func(ctx context.Context) error
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(otelgin.Middleware(serviceName))
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Accounts, d.Prom)

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Tokens, d.Prom)
	tasksHandler := handlers.NewTasksHandler(d.Tasks)
	adminHandler := handlers.NewAdminHandler(d.Accounts)

	api := r.Group(d.Config.APIPrefix)

	authGroup := api.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(middlewares.RateLimit(d.AuthLimiter, middlewares.KeyByIP))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)

	tasks := api.Group("/tasks", authMW.RequireAuth())
	tasks.GET("", tasksHandler.ListTasks)
	tasks.POST("", tasksHandler.CreateTask)
	tasks.GET("/:id", tasksHandler.GetTask)
	tasks.PUT("/:id", tasksHandler.UpdateTask)
	tasks.DELETE("/:id", tasksHandler.DeleteTask)

	admin := api.Group("/admin", authMW.RequireAuth(), authMW.RequireAdmin())
	admin.GET("/users/:id", adminHandler.GetUser)

	return r
}
