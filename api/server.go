// Package api - HTTP API over the bill and price table services
// The API only decodes requests, calls the services and encodes results.
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timbercalc/internal/app"
	"timbercalc/internal/metrics"
)

// Server is the API server
type Server struct {
	app     *app.App
	router  *gin.Engine
	version string
	secret  []byte
	ttl     time.Duration
	log     *zap.Logger
	http    *http.Server
}

// NewServer creates the API server. Without a configured JWT secret a
// random one is generated, so tokens do not survive a restart.
func NewServer(a *app.App, version string) *Server {
	log := a.Log.Named("api")

	secret := []byte(a.Config.Server.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(err)
		}
		log.Warn("no jwt secret configured, using an ephemeral one")
	}
	ttl := time.Duration(a.Config.Server.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	metrics.Init()

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), requestMetrics())

	s := &Server{
		app:     a,
		router:  router,
		version: version,
		secret:  secret,
		ttl:     ttl,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/version", s.handleVersion)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/auth/token", s.handleToken)
		v1.POST("/resolve", s.handleResolve)

		v1.GET("/price-table", s.handleGetTable)
		v1.GET("/price-table/export", s.handleExportTable)

		v1.GET("/bill", s.handleGetBill)
		v1.DELETE("/bill", s.handleClearBill)
		v1.POST("/bill/entries", s.handleAddEntry)
		v1.PUT("/bill/entries/:slno", s.handleEditEntry)
		v1.DELETE("/bill/entries/:slno", s.handleDeleteEntry)
		v1.POST("/bill/export", s.handleExportBill)

		v1.GET("/bills", s.handleSearchBills)
	}

	admin := s.router.Group("/api/v1/price-table", requireAdmin(s.secret))
	{
		admin.PUT("", s.handleDefineTable)
		admin.PUT("/prices", s.handleSetPrice)
		admin.POST("/import", s.handleImportTable)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server and blocks until ctx is cancelled or
// the listener fails
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("version", s.version))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}
