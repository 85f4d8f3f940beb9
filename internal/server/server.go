// Package server exposes the analysis engine over HTTP. It is a read-only
// presentation adapter: handlers stamp time.Now at the boundary and pass it
// into the engine, which stays deterministic.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adamopay/txrisk/internal/compliance/engine"
	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/models"
)

// Server wires the engine behind a gin router.
type Server struct {
	router *gin.Engine
	engine *engine.Engine
	logger *zap.Logger
	cfg    config.ServerConfig
	now    func() time.Time
}

// New builds the server. A nil logger disables request logging.
func New(cfg config.ServerConfig, eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: eng,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	s.router = router
	s.registerRoutes()
	return s
}

// Router returns the gin engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.analyze)
		v1.POST("/portfolio", s.portfolio)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": s.now().UTC()})
}

type analyzeRequest struct {
	ClientID string                     `json:"client_id" binding:"required"`
	Records  []models.TransactionRecord `json:"records"`
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	set := models.ClientTransactionSet{ClientID: req.ClientID, Records: req.Records}
	analysis := s.engine.Analyze(set, s.now().UTC())
	c.JSON(http.StatusOK, analysis)
}

type portfolioRequest struct {
	Clients []analyzeRequest `json:"clients" binding:"required"`
	Workers int              `json:"workers"`
}

type portfolioResponse struct {
	Results []engine.Analysis       `json:"results"`
	Summary engine.ExecutiveSummary `json:"summary"`
}

func (s *Server) portfolio(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sets := make([]models.ClientTransactionSet, 0, len(req.Clients))
	for _, cl := range req.Clients {
		sets = append(sets, models.ClientTransactionSet{ClientID: cl.ClientID, Records: cl.Records})
	}
	now := s.now().UTC()
	results := s.engine.AnalyzePortfolio(c.Request.Context(), sets, now, req.Workers)
	c.JSON(http.StatusOK, portfolioResponse{
		Results: results,
		Summary: engine.Summarize(results, now),
	})
}
