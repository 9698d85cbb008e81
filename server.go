package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/handlers"
	"github.com/adstrategic/addinvoice/middlewares"
	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints answer 503.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist; anything else allows all for
	// developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Webhook authenticates by signature, not session.
	r.POST("/billing/webhook", handlers.StripeWebhookHandler())

	auth := r.Group("/", middlewares.SessionMiddleware(), middlewares.SubscriptionGate())

	// Onboarding: exempt from the business gate so a fresh workspace can
	// bootstrap itself and create its first business.
	auth.GET("/workspace", handlers.GetWorkspaceHandler())
	auth.GET("/businesses", handlers.ListBusinessesHandler())
	auth.POST("/businesses", handlers.CreateBusinessHandler())
	auth.GET("/businesses/:id", handlers.GetBusinessHandler())
	auth.PATCH("/businesses/:id", handlers.UpdateBusinessHandler())
	auth.DELETE("/businesses/:id", handlers.DeleteBusinessHandler())
	auth.POST("/businesses/:id/logo", handlers.UploadBusinessLogoHandler())
	auth.PATCH("/businesses/:id/default", handlers.SetDefaultBusinessHandler())

	gated := auth.Group("/", middlewares.BusinessRequired())

	gated.GET("/clients", handlers.ListClientsHandler())
	gated.POST("/clients", handlers.CreateClientHandler())
	gated.GET("/clients/:id", handlers.GetClientHandler())
	gated.PATCH("/clients/:id", handlers.UpdateClientHandler())
	gated.DELETE("/clients/:id", handlers.DeleteClientHandler())

	gated.GET("/catalog-items", handlers.ListCatalogItemsHandler())
	gated.POST("/catalog-items", handlers.CreateCatalogItemHandler())
	gated.GET("/catalog-items/:id", handlers.GetCatalogItemHandler())
	gated.PATCH("/catalog-items/:id", handlers.UpdateCatalogItemHandler())
	gated.DELETE("/catalog-items/:id", handlers.DeleteCatalogItemHandler())

	gated.GET("/invoices", handlers.ListInvoicesHandler())
	// gin's router cannot mix a static segment with the :sequence wildcard at
	// the same level, so next-number rides on the wildcard route.
	nextNumber := handlers.NextInvoiceNumberHandler()
	getInvoice := handlers.GetInvoiceHandler()
	gated.GET("/invoices/:sequence", func(c *gin.Context) {
		if c.Param("sequence") == "next-number" {
			nextNumber(c)
			return
		}
		getInvoice(c)
	})
	gated.POST("/invoices", handlers.CreateInvoiceHandler())
	gated.PATCH("/invoices/:id", handlers.UpdateInvoiceHandler())
	gated.DELETE("/invoices/:id", handlers.DeleteInvoiceHandler())
	gated.PATCH("/invoices/:id/send", handlers.SendInvoiceHandler())
	gated.PATCH("/invoices/:id/mark-as-paid", handlers.MarkInvoiceAsPaidHandler())
	gated.PATCH("/invoices/:id/mark-as-viewed", handlers.MarkInvoiceAsViewedHandler())

	gated.POST("/invoices/:id/items", handlers.CreateInvoiceItemHandler())
	gated.PATCH("/invoices/:id/items/:itemId", handlers.UpdateInvoiceItemHandler())
	gated.DELETE("/invoices/:id/items/:itemId", handlers.DeleteInvoiceItemHandler())

	gated.POST("/invoices/:id/payments", handlers.CreatePaymentHandler())
	gated.PATCH("/invoices/:id/payments/:paymentId", handlers.UpdatePaymentHandler())
	gated.DELETE("/invoices/:id/payments/:paymentId", handlers.DeletePaymentHandler())

	gated.GET("/payments/:id/receipt", handlers.PaymentReceiptHandler())

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start the notification dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewNotificationDispatcher(db, logger).Run(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED.
	// SET SESSION only affects whichever pooled connection runs it; the rest
	// of the pool keeps the server default. Correctness cannot depend on the
	// isolation level: sequence assignment is backed by the per-workspace
	// unique index and a create retry in the models layer.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're
	// draining.
	cancelDispatcher()

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that attached errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware enforces a fixed-window per-IP request limit in Redis.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
