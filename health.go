package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheckHandler provides the liveness endpoint
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sm := GetShutdownManager(); sm != nil && sm.IsShuttingDown() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "shutting_down",
				"message": "Service is shutting down",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// ReadinessCheckHandler provides the readiness endpoint with a database
// dependency check
func ReadinessCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sm := GetShutdownManager(); sm != nil && sm.IsShuttingDown() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Service is shutting down",
			})
			return
		}

		dbStatus := checkDatabaseHealth(c.Request.Context(), db)

		status := gin.H{
			"status":    "ready",
			"timestamp": time.Now().Format(time.RFC3339),
			"dependencies": gin.H{
				"database": dbStatus,
			},
		}

		if dbStatus["status"] != "healthy" {
			status["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

// checkDatabaseHealth pings the database with a short deadline
func checkDatabaseHealth(ctx context.Context, db *sql.DB) gin.H {
	if db == nil {
		return gin.H{"status": "unavailable", "error": "database not initialized"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := db.PingContext(pingCtx); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}

	return gin.H{
		"status":     "healthy",
		"latency_ms": time.Since(start).Milliseconds(),
	}
}
