package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dukabook/duka-ledger/internal/config"
	"github.com/dukabook/duka-ledger/internal/repository"
	"github.com/dukabook/duka-ledger/pkg/pg"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The dashboard is a read-only reporting sidecar. It talks to the read
// replica only and never mutates the ledger, so it can be scaled and
// restarted independently of the API.

type DashboardHandler struct {
	debts *repository.DebtRepository
}

func NewDashboardHandler(debts *repository.DebtRepository) *DashboardHandler {
	return &DashboardHandler{debts: debts}
}

// GetTotals returns the shop-wide aggregates shown at the top of the
// dashboard.
func (h *DashboardHandler) GetTotals(c *gin.Context) {
	totals, err := h.debts.Aggregate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, totals)
}

// GetOpenDebts lists every debt that still carries an outstanding balance.
func (h *DashboardHandler) GetOpenDebts(c *gin.Context) {
	debts, err := h.debts.ListOpen(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": debts, "total": len(debts)})
}

func (h *DashboardHandler) GetCustomers(c *gin.Context) {
	names, err := h.debts.ListCustomers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": names, "total": len(names)})
}

func (h *DashboardHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *DashboardHandler) *gin.Engine {
	router := gin.Default()

	// Tag every request with an id and log it on the way out
	router.Use(func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard/totals", handler.GetTotals)
		v1.GET("/dashboard/debts", handler.GetOpenDebts)
		v1.GET("/dashboard/customers", handler.GetCustomers)
		v1.GET("/health", handler.HealthCheck)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(getEnvPath()); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}

	// Both halves point at the read replica; nothing here writes.
	db, err := pg.CreateReadWrite(readConf, readConf, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to pg")
	}

	handler := NewDashboardHandler(repository.NewDebtRepository(db))
	router := SetupRouter(handler)

	addr := config.Get().DashboardListenAddr

	log.Info().
		Str("addr", addr).
		Msg("Starting ledger dashboard")

	// Setup HTTP server
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				log.Error().Err(err).Msg("failed to open the passed env file")
				return ""
			}
			return s[1]
		}
	}
	return ""
}
