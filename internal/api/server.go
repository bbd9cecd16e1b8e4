package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smc-trading-bot/config"
	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/database"
	"smc-trading-bot/internal/events"
	"smc-trading-bot/internal/orders"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BotAPI defines what the trading bot exposes to the HTTP layer.
type BotAPI interface {
	Status() map[string]interface{}
	Symbols() []string
	Analysis(symbol string) (*analysis.TimeframeAnalysis, bool)
	PendingOrders() []orders.PendingOrder
}

// Server serves the status and analysis API over HTTP.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	repo       *database.Repository // nil when database is disabled
	bus        *events.EventBus
	bot        BotAPI
	cfg        config.ServerConfig
	hub        *WSHub
	log        zerolog.Logger
}

// NewServer creates the API server and registers all routes. repo may be
// nil when the database is disabled.
func NewServer(cfg config.ServerConfig, repo *database.Repository, bus *events.EventBus, bot BotAPI, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router: router,
		repo:   repo,
		bus:    bus,
		bot:    bot,
		cfg:    cfg,
		hub:    NewWSHub(logger),
		log:    logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	go server.hub.Run()
	bus.SubscribeAll(server.hub.BroadcastEvent)

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/symbols", s.handleSymbols)
	api.GET("/analysis/:symbol", s.handleAnalysis)
	api.GET("/signals/:symbol", s.handleSignals)
	api.GET("/orders", s.handleOrders)

	s.router.GET("/ws", s.handleWebSocket)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"ws_clients": s.hub.ClientCount(),
		"time":       time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, s.bot.Status())
}

func (s *Server) handleSymbols(c *gin.Context) {
	successResponse(c, s.bot.Symbols())
}

func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	a, ok := s.bot.Analysis(symbol)
	if !ok {
		errorResponse(c, http.StatusNotFound, fmt.Sprintf("no analysis for %s", symbol))
		return
	}
	successResponse(c, a)
}

func (s *Server) handleSignals(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "signal history requires the database")
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, err := s.repo.RecentSignals(ctx, symbol, 50)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("failed to load signals")
		errorResponse(c, http.StatusInternalServerError, "failed to load signals")
		return
	}
	successResponse(c, records)
}

func (s *Server) handleOrders(c *gin.Context) {
	successResponse(c, s.bot.PendingOrders())
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
