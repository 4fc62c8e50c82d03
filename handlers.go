package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// parsePropertyTypes parses the "types" query parameter, a comma-separated
// ordered list of property-type IDs. Order is preserved: it forms both the
// aggregate lookup key and the outbound link parameter indexes.
func parsePropertyTypes(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}

	parts := strings.Split(raw, ",")
	types := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		types = append(types, id)
	}
	return types, nil
}

// getLocationButtons serves the grouped location-button HTML fragment
func getLocationButtons(store ListingStore, renderer *ButtonRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		grouping := c.DefaultQuery("grouping", GroupingZip)

		propertyTypes, err := parsePropertyTypes(c.Query("types"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid types parameter"})
			return
		}

		rows, err := store.ListLocationCounts(c.Request.Context(), grouping, propertyTypes)
		if err != nil {
			GetLogger().WithContext(c.Request.Context()).WithError(err).Error("Failed to load location counts")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load location counts"})
			return
		}

		start := time.Now()
		fragment := renderer.Render(rows, grouping, propertyTypes)

		buttons := 0
		for _, row := range rows {
			if row.Count > 0 {
				buttons++
			}
		}
		GetMetricsCollector().RecordRender(grouping, buttons, time.Since(start))

		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
	}
}

// getLocationCount serves a single precomputed listing count
func getLocationCount(store ListingStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		location := c.Query("location")
		if location == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location parameter is required"})
			return
		}

		grouping := c.DefaultQuery("grouping", GroupingZip)

		propertyTypes, err := parsePropertyTypes(c.Query("types"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid types parameter"})
			return
		}

		count, err := store.GetCount(c.Request.Context(), location, propertyTypes, grouping)
		if err != nil {
			GetLogger().WithContext(c.Request.Context()).WithError(err).Error("Failed to look up listing count")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up listing count"})
			return
		}

		c.JSON(http.StatusOK, CountResponse{Location: location, Count: count})
	}
}

// getPropertyTypes serves the full property-type catalog. A store failure
// aborts the request; there is no partial response.
func getPropertyTypes(store ListingStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := store.ListPropertyTypes(c.Request.Context())
		if err != nil {
			GetLogger().WithContext(c.Request.Context()).WithError(err).Error("Failed to load property types")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load property types"})
			return
		}

		if types == nil {
			types = []PropertyType{}
		}
		c.JSON(http.StatusOK, types)
	}
}

// CORSMiddleware adds permissive CORS headers for the website frontend
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
