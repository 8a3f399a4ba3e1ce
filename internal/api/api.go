package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/checkstock/internal/api/handlers"
	"github.com/andresuchdata/checkstock/internal/api/middleware"
	"github.com/andresuchdata/checkstock/internal/service"
)

type Services struct {
	LedgerService *service.LedgerService
}

func NewRouter(services *Services, allowedOrigins []string, maxUploadMB int64) *gin.Engine {
	router := gin.New()
	if maxUploadMB > 0 {
		router.MaxMultipartMemory = maxUploadMB << 20
	}

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.LedgerService != nil {
		ledgerHandler := handlers.NewLedgerHandler(services.LedgerService)

		apiGroup.POST("/ingest", ledgerHandler.Ingest)
		apiGroup.POST("/transactions", ledgerHandler.RecordTransaction)
		apiGroup.GET("/forecast", ledgerHandler.GetForecast)
		apiGroup.GET("/lots/:lot/card", ledgerHandler.GetLotCard)

		ledgerGroup := apiGroup.Group("/ledger")
		{
			ledgerGroup.GET("", ledgerHandler.ListEntries)
			ledgerGroup.GET("/materials", ledgerHandler.GetMaterials)
		}

		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.GET("/snapshot", ledgerHandler.GetSnapshot)
			inventoryGroup.GET("/totals", ledgerHandler.GetTotals)
		}

		exportGroup := apiGroup.Group("/export")
		{
			exportGroup.GET("/xlsx", ledgerHandler.ExportXLSX)
			exportGroup.GET("/pdf", ledgerHandler.ExportPDF)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
