// Package trigger exposes the HTTP surface used by external schedulers to
// start runs and inspect the bot.
package trigger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"niftyflow/config"
	"niftyflow/internal/metrics"
	"niftyflow/internal/pipeline"
	"niftyflow/internal/snapshot"
	"niftyflow/logger"
)

const runKeyHeader = "X-Run-Key"

// Runner executes one pipeline cycle.
type Runner interface {
	Run(ctx context.Context) pipeline.Result
}

// CacheReader returns the raw persisted snapshot.
type CacheReader interface {
	Raw(ctx context.Context) ([]byte, error)
}

// Server hosts the Gin-powered trigger endpoints.
type Server struct {
	cfg        config.ServerConfig
	runner     Runner
	cache      CacheReader
	log        *logger.Log
	runs       *runStore
	runHandler metrics.RunHandlerID
	httpServer *http.Server

	// running serialises runs; a second /run while one is active gets 409.
	running sync.Mutex
}

// NewServer constructs a trigger server for runner and cache.
func NewServer(cfg config.ServerConfig, runner Runner, cache CacheReader, log *logger.Log) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	cfg.Address = normalizeAddress(cfg.Address)

	runs := newRunStore(50)
	return &Server{
		cfg:        cfg,
		runner:     runner,
		cache:      cache,
		log:        log,
		runs:       runs,
		runHandler: metrics.RegisterRunHandler(runs.handle),
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// exits with an error.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("trigger").WithFields(logger.Fields{"address": s.cfg.Address}).Info("trigger server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterRunHandler(s.runHandler)
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	return s.cfg.Address
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.POST("/run", s.handleRun)
	router.GET("/last-oi", s.handleLastOI)
	router.GET("/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"runs": s.runs.snapshot()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}

func (s *Server) authorized(c *gin.Context) bool {
	if s.cfg.RunKey == "" {
		return false
	}
	key := c.GetHeader(runKeyHeader)
	if key == "" {
		key = c.Query("key")
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.RunKey)) == 1
}

func (s *Server) handleRun(c *gin.Context) {
	log := s.log.WithComponent("trigger")
	if !s.authorized(c) {
		log.WithFields(logger.Fields{"remote": c.ClientIP()}).Warn("unauthorized run request")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
		return
	}
	if !s.running.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"detail": "run already in progress"})
		return
	}
	defer s.running.Unlock()

	res := s.runner.Run(c.Request.Context())
	body := gin.H{"status": string(res.Status), "run_id": res.RunID}
	if res.Status == pipeline.StatusFetchFailed {
		if res.Err != nil {
			body["error"] = res.Err.Error()
		}
		c.JSON(http.StatusBadGateway, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleLastOI(c *gin.Context) {
	data, err := s.cache.Raw(c.Request.Context())
	if errors.Is(err, snapshot.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no snapshot stored"})
		return
	}
	if err != nil {
		s.log.WithComponent("trigger").WithError(err).Error("failed reading snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "snapshot unavailable"})
		return
	}
	if json.Valid(data) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
