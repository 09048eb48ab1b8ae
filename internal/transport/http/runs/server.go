// Package runshttp exposes the runs catalog and verification jobs over a
// small read-mostly HTTP API. Artifact bytes never leave the run directory;
// the API serves the manifest, the ledger and index rows about them.
package runshttp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tickvault/internal/catalog"
	"tickvault/internal/run"
	"tickvault/internal/verify"
)

// Server wires the gin router to the catalog store and verify service.
type Server struct {
	addr   string
	root   string
	store  *catalog.Store
	verify *verify.Service
	router *gin.Engine
}

// Config describes the server dependencies.
type Config struct {
	Addr   string
	Root   string
	Store  *catalog.Store
	Verify *verify.Service
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog store is required")
	}
	if cfg.Verify == nil {
		return nil, errors.New("verify service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8870"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:   cfg.Addr,
		root:   cfg.Root,
		store:  cfg.Store,
		verify: cfg.Verify,
		router: router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleManifest)
	api.GET("/runs/:id/ledger", s.handleLedger)
	api.GET("/runs/:id/artifacts", s.handleArtifacts)
	api.POST("/runs/:id/verify", s.handleVerifyStart)
	api.GET("/verify", s.handleVerifyJobs)
	api.GET("/verify/:job", s.handleVerifyStatus)
	api.POST("/index", s.handleIndex)
}

// Handler returns the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	runs, err := s.store.ListRuns(c.Request.Context(), catalog.Filter{
		Source: c.Query("source"),
		Symbol: c.Query("symbol"),
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// handleManifest serves the manifest file bytes untouched, so clients see
// exactly what the ledger hashed.
func (s *Server) handleManifest(c *gin.Context) {
	d, err := run.Open(s.root, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	raw, err := os.ReadFile(d.ManifestPath())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) handleLedger(c *gin.Context) {
	d, err := run.Open(s.root, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	raw, err := os.ReadFile(d.LedgerPath())
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no ledger"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", raw)
}

func (s *Server) handleArtifacts(c *gin.Context) {
	arts, err := s.store.ListArtifacts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": arts})
}

func (s *Server) handleVerifyStart(c *gin.Context) {
	job, err := s.verify.Submit(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (s *Server) handleVerifyStatus(c *gin.Context) {
	job, ok := s.verify.Snapshot(c.Param("job"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *Server) handleVerifyJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.verify.Jobs()})
}

func (s *Server) handleIndex(c *gin.Context) {
	n, err := s.store.Index(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": n})
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
