// Package api is the HTTP front door of the advisor.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/common/session"
	"climate-risk-advisor/internal/common/validation"
	"climate-risk-advisor/internal/models"
	"climate-risk-advisor/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// SessionHeader carries the conversation id in both directions.
const SessionHeader = "X-Session-ID"

const readyCheckTimeout = 2 * time.Second

// Runner processes one conversational turn.
type Runner interface {
	Run(ctx context.Context, sessionID, text string) (*models.PipelineOutcome, error)
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type Options struct {
	ServiceName string
	Pipeline    Runner
	Sessions    *session.Manager
	// Audit is nil when the audit log is disabled.
	Audit    models.TurnRepository
	Checks   map[string]Check
	Registry *registry.EndpointRegistry
	Logger   logger.Logger
}

type Server struct {
	opts          Options
	chatValidator *validation.Validator
	logger        logger.Logger
}

// NewServer compiles the request schemas from the endpoint registry.
func NewServer(opts Options) (*Server, error) {
	if opts.Registry == nil {
		reg, err := registry.Default()
		if err != nil {
			return nil, err
		}
		opts.Registry = reg
	}

	chat, ok := opts.Registry.Find("chat")
	if !ok {
		return nil, fmt.Errorf("registry has no chat endpoint")
	}
	v, err := validation.NewValidator(chat.RequestSchema)
	if err != nil {
		return nil, fmt.Errorf("chat schema: %w", err)
	}

	return &Server{
		opts:          opts,
		chatValidator: v,
		logger:        opts.Logger.With(map[string]interface{}{"component": "api"}),
	}, nil
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if s.opts.ServiceName != "" {
		router.Use(otelgin.Middleware(s.opts.ServiceName))
	}
	router.Use(s.requestLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"response": "server works"})
	})
	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat", s.chat)
		api.POST("/locations", s.setLocation)

		sessions := api.Group("/sessions")
		{
			sessions.GET("/:id/turns", s.sessionTurns)
			sessions.DELETE("/:id", s.resetSession)
		}
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		if c.Writer.Status() >= 500 {
			s.logger.Error("request failed", fields)
			return
		}
		s.logger.Debug("request handled", fields)
	}
}
