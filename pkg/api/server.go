// Package api exposes the deliberation engine over HTTP: one endpoint to
// run a deep diagnosis and a health probe.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/concilium-ai/concilium/pkg/deliberation"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// DiagnosisRunner is the pipeline surface the server drives.
type DiagnosisRunner interface {
	Invoke(ctx context.Context, state deliberation.MainState) (deliberation.MainState, error)
}

// Server is the HTTP front-end.
type Server struct {
	pipeline DiagnosisRunner
}

// NewServer creates the HTTP front-end over a diagnosis pipeline.
func NewServer(pipeline DiagnosisRunner) *Server {
	return &Server{pipeline: pipeline}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	v1.POST("/diagnosis", s.createDiagnosis)
	v1.GET("/health", s.health)
	return router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
