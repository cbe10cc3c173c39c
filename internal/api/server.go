package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/reviewpilot/pkg/models"
)

// Runner accepts review requests for asynchronous execution. The
// webhook handler hands off and responds immediately; the runner owns
// everything after that.
type Runner interface {
	Enqueue(ctx context.Context, req models.ReviewRequest) error
}

// Server represents the API server
type Server struct {
	echo          *echo.Echo
	port          int
	webhookSecret string
	runner        Runner
}

// NewServer creates a new API server
func NewServer(port int, webhookSecret string, runner Runner) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	server := &Server{
		echo:          e,
		port:          port,
		webhookSecret: webhookSecret,
		runner:        runner,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	s.echo.POST("/webhook/gitlab", s.handleGitLabWebhook)
}

// Handler exposes the underlying http.Handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
