// Package dashboard serves a read-only HTTP API over the record store,
// for browsing the board outside of chat.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ogurtsov/gorodok/internal/store"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store *store.Store
	Port  int
	Out   io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("dashboard: store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Store)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// Handler builds the gin handler without binding a listener (used by tests).
func Handler(st *store.Store) http.Handler {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, st)
	return router
}

// registerRoutes wires the read-only API endpoints.
func registerRoutes(router *gin.Engine, st *store.Store) {
	api := router.Group("/api")
	api.GET("/ads", func(c *gin.Context) { handleAds(c, st) })
	api.GET("/ads/:id", func(c *gin.Context) { handleAd(c, st) })
	api.GET("/finds", func(c *gin.Context) { handleFinds(c, st) })
	api.GET("/stats", func(c *gin.Context) { handleStats(c, st) })
}

func handleAds(c *gin.Context, st *store.Store) {
	rows, err := AdSummary(st, c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func handleAd(c *gin.Context, st *store.Store) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	detail, err := AdDetail(st, uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func handleFinds(c *gin.Context, st *store.Store) {
	rows, err := FindSummary(st, c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func handleStats(c *gin.Context, st *store.Store) {
	counts, err := st.CountAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ads":      counts.Ads,
		"finds":    counts.Finds,
		"comments": counts.Comments,
		"users":    counts.Users,
	})
}
