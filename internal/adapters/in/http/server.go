// Package http is the driving HTTP adapter: an echo server exposing the
// inventory, metrics, event stream and exec gateway as a JSON/SSE API.
package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deckhand/internal/boundaries/in"
	"deckhand/internal/boundaries/out"
	"deckhand/internal/usecase/stream"
	"deckhand/pkg/logger"
)

// execBodyLimit caps exec request bodies; commands are short strings.
const execBodyLimit = "64K"

// Handler bundles the services the routes dispatch to.
type Handler struct {
	inventory in.InventoryService
	metrics   in.MetricsService
	exec      in.ExecService
	actions   in.ActionService
	stream    *stream.Distributor
	runtime   out.ContainerRuntime
}

// NewHandler wires the route handlers to their services.
func NewHandler(
	inventory in.InventoryService,
	metrics in.MetricsService,
	exec in.ExecService,
	actions in.ActionService,
	distributor *stream.Distributor,
	runtime out.ContainerRuntime,
) *Handler {
	return &Handler{
		inventory: inventory,
		metrics:   metrics,
		exec:      exec,
		actions:   actions,
		stream:    distributor,
		runtime:   runtime,
	}
}

// Server owns the echo instance and its lifecycle.
type Server struct {
	echo   *echo.Echo
	listen string
}

// NewServer builds the HTTP server and registers all routes.
func NewServer(listen string, h *Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	api := e.Group("/api")
	api.GET("/containers", h.listContainers)
	api.GET("/stacks", h.listStacks)
	api.GET("/metrics/history", h.metricsHistory)
	api.GET("/events", h.streamEvents)
	api.GET("/logs/:container", h.containerLogs)
	api.POST("/action/:container/:action", h.containerAction)
	api.POST("/exec/:container", h.execCommand, middleware.BodyLimit(execBodyLimit))

	e.GET("/healthz", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{echo: e, listen: listen}
}

// ServeHTTP dispatches through the echo router, letting the server be mounted
// or exercised as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.listen)
	if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
