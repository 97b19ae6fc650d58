package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"deckhand/internal/boundaries/in"
	"deckhand/internal/domain"
)

const (
	defaultLogLines       = 100
	defaultHistoryWindow  = time.Hour
	healthzRuntimeTimeout = 5 * time.Second
)

func (h *Handler) listContainers(c echo.Context) error {
	filters := in.QueryFilters{
		Stack:    c.QueryParam("stack"),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}

	if raw := c.QueryParam("status"); raw != "" {
		switch domain.ContainerStatus(raw) {
		case domain.ContainerStatusRunning, domain.ContainerStatusStopped,
			domain.ContainerStatusExited, domain.ContainerStatusRestarting,
			domain.ContainerStatusUnknown:
			filters.Status = domain.ContainerStatus(raw)
		default:
			return writeError(c, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, raw))
		}
	}

	return c.JSON(http.StatusOK, h.inventory.Query(filters))
}

func (h *Handler) listStacks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.inventory.Stacks())
}

type historyResponse struct {
	Scope   string                `json:"scope"`
	Samples []domain.MetricSample `json:"samples"`
}

func (h *Handler) metricsHistory(c echo.Context) error {
	scope := c.QueryParam("scope")
	if scope == "" {
		scope = domain.ScopeGlobal
	}

	window := defaultHistoryWindow
	if raw := c.QueryParam("duration"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return writeError(c, fmt.Errorf("%w: invalid duration %q", domain.ErrInvalidInput, raw))
		}
		window = parsed
	}

	return c.JSON(http.StatusOK, historyResponse{
		Scope:   scope,
		Samples: h.metrics.History(scope, window),
	})
}

type actionResponse struct {
	Message string `json:"message"`
}

func (h *Handler) containerAction(c echo.Context) error {
	message, err := h.actions.Action(c.Request().Context(), c.Param("container"), c.Param("action"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, actionResponse{Message: message})
}

func (h *Handler) execCommand(c echo.Context) error {
	var req domain.ExecRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput))
	}
	// The path parameter is authoritative; a container field in the body is
	// ignored.
	req.Container = c.Param("container")

	result, err := h.exec.Submit(c.Request().Context(), req.Container, req.Command)
	if err != nil {
		return writeError(c, err)
	}
	// A policy denial is a complete, successful evaluation; the verdict
	// travels in the body, not the status code.
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) containerLogs(c echo.Context) error {
	lines := defaultLogLines
	if raw := c.QueryParam("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: invalid lines %q", domain.ErrInvalidInput, raw))
		}
		lines = parsed
	}

	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: invalid since %q, want RFC3339", domain.ErrInvalidInput, raw))
		}
		since = parsed
	}

	logs, err := h.actions.Logs(c.Request().Context(), c.Param("container"), lines, since)
	if err != nil {
		return writeError(c, err)
	}
	return c.String(http.StatusOK, logs)
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthzRuntimeTimeout)
	defer cancel()

	if err := h.runtime.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "runtime unreachable"})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}
