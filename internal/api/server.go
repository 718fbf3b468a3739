// Package api serves the status and control endpoints of a running scan.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/pipeline"
)

// Controller is the running scan. *pipeline.Driver implements it.
type Controller interface {
	Snapshot() pipeline.Progress
	State() pipeline.State
	Stop()
	SetWorkers(n int) error
}

type Server struct {
	ctrl   Controller
	hits   *HitStore
	module *kernelgen.Module
	info   accel.Info
}

func NewServer(ctrl Controller, hits *HitStore, module *kernelgen.Module, info accel.Info) *Server {
	if hits == nil {
		hits = NewHitStore(0)
	}
	return &Server{ctrl: ctrl, hits: hits, module: module, info: info}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/status", s.handleStatus)
	e.GET("/v1/hits", s.handleHits)
	e.POST("/v1/stop", s.handleStop)
	e.PUT("/v1/workers", s.handleWorkers)
	e.GET("/v1/kernel", s.handleKernel)
}

func (s *Server) handleStatus(c *echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Object:   "status",
		Backend:  s.info.Backend,
		Device:   s.info.Name,
		Progress: s.ctrl.Snapshot(),
	})
}

func (s *Server) handleHits(c *echo.Context) error {
	after := 0
	if raw := c.QueryParam("after"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeBadRequest(c, fmt.Sprintf("after must be a non-negative integer, got %q", raw))
		}
		after = n
	}
	data, total := s.hits.After(after)
	return c.JSON(http.StatusOK, HitList{Object: "list", Data: data, Total: total})
}

func (s *Server) handleStop(c *echo.Context) error {
	s.ctrl.Stop()
	return c.JSON(http.StatusAccepted, StopResponse{Stopping: true, State: s.ctrl.State().String()})
}

func (s *Server) handleWorkers(c *echo.Context) error {
	req, err := decodeJSON[WorkersRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := validateWorkers(req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), paramOf(err))
	}
	if err := s.ctrl.SetWorkers(*req.Workers); err != nil {
		if errors.Is(err, pipeline.ErrConfig) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
	return c.JSON(http.StatusOK, WorkersResponse{Workers: *req.Workers})
}

func validateWorkers(req WorkersRequest) error {
	if req.Workers == nil {
		return newInvalidRequest("workers", "is required")
	}
	if n := *req.Workers; n < 1 || n > pipeline.MaxWorkers {
		return newInvalidRequest("workers", fmt.Sprintf("must be between 1 and %d", pipeline.MaxWorkers))
	}
	return nil
}

func (s *Server) handleKernel(c *echo.Context) error {
	if s.module == nil {
		return writeNotFound(c, "no kernel compiled")
	}
	c.Response().Header().Set("X-Kernel-Fingerprint", s.module.Fingerprint)
	return c.String(http.StatusOK, s.module.Source)
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType, Param: param},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
