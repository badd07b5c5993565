// Package router 提供 HTTP 路由配置
package router

import (
	"beats-prose-api/internal/config"
	"beats-prose-api/internal/interfaces/http/handler"
	"beats-prose-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组
	v1 := r.engine.Group("/v1")
	{
		s := v1.Group("/session")
		{
			s.GET("", r.handlers.Session.Get)
			s.POST("/messages", r.handlers.Session.SubmitMessage)
			s.POST("/reset", r.handlers.Session.Reset)

			// 带外参数编辑器
			s.POST("/beats", r.handlers.Session.AddBeat)
			s.DELETE("/beats/:index", r.handlers.Session.RemoveBeat)
			s.POST("/characters", r.handlers.Session.AddCharacter)
			s.DELETE("/characters/:index", r.handlers.Session.RemoveCharacter)
			s.POST("/fields/:field/edit", r.handlers.Session.BeginEdit)
			s.PUT("/fields/:field", r.handlers.Session.CommitEdit)
			s.DELETE("/fields/:field/edit", r.handlers.Session.CancelEdit)

			// 生成控制与展示
			s.PUT("/controls", r.handlers.Session.UpdateControls)
			s.POST("/presentation/toggle", r.handlers.Session.TogglePresentation)
			s.GET("/result", r.handlers.Session.GetResult)
		}
	}
}
