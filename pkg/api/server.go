// Package api exposes the notifier's operational HTTP surface: health,
// Prometheus metrics, and task status lookups.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/metrics"
	"github.com/userhub/notifier/pkg/system"
	"github.com/userhub/notifier/pkg/worker"
)

// Server serves the ops endpoints.
type Server struct {
	gin     *gin.Engine
	store   worker.ResultStore
	address string
	http    *http.Server
}

// NewServer builds the ops server around the result store.
func NewServer(log *zap.Logger, store worker.ResultStore, address string, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)

	s := &Server{
		gin:     engine,
		store:   store,
		address: address,
	}

	engine.GET("/healthz", s.getHealth)
	engine.GET("/version", s.getVersion)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	engine.GET("/tasks/:id", s.getTask)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.http = &http.Server{
		Addr:              s.address,
		Handler:           s.gin,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, system.GetBuildInfo())
}

func (s *Server) getTask(c *gin.Context) {
	id := c.Param("id")

	res, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, worker.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"result": res,
	})
}
