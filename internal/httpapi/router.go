// Package httpapi exposes the Store, Collector, and Cloud Sync Worker over
// the local HTTP boundary named in spec.md §6: runs, inventory, prices,
// stats/history, cloud, settings, icons, and status.
//
// Grounded on kasuganosora-rpgmakermvmmo/server/main.go's gin.New() +
// middleware chain + route-group wiring, and its server/api/rest package's
// handler-struct convention (NewXHandler(deps) returning a *gin.HandlerFunc
// method set). Handlers here hold no business logic of their own; they
// translate requests into calls against internal/store, internal/valuation,
// internal/collector, and internal/cloudsync.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"titrack/internal/cloudsync"
	"titrack/internal/collector"
	"titrack/internal/config"
	"titrack/internal/metrics"
	"titrack/internal/store"
)

// Deps bundles everything the route handlers need. One Deps is built once
// at startup in cmd/titrack and shared by every handler.
type Deps struct {
	Store     *store.Store
	Collector *collector.Collector
	Cloud     *cloudsync.Worker
	Config    *config.Config
	Metrics   *metrics.Metrics
	IconCache *IconCache
}

// NewRouter builds the gin.Engine serving every resource of spec.md §6.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(traceID(), requestLogger(), recovery(), scopeInjector(deps.Collector))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	runsH := NewRunsHandler(deps.Store, deps.Collector)
	invH := NewInventoryHandler(deps.Store)
	pricesH := NewPricesHandler(deps.Store, deps.Config)
	statsH := NewStatsHandler(deps.Store)
	cloudH := NewCloudHandler(deps.Cloud, deps.Store)
	settingsH := NewSettingsHandler(deps.Store)
	iconsH := NewIconsHandler(deps.Store, deps.IconCache)
	statusH := NewStatusHandler(deps.Collector)

	api := r.Group("/api")
	{
		runsG := api.Group("/runs")
		runsG.GET("", runsH.List)
		runsG.GET("/open", runsH.Open)
		runsG.GET("/summary", runsH.Summary)
		runsG.GET("/:id", runsH.Get)
		runsG.GET("/:id/report", runsH.Report)
		runsG.POST("/:id/pause", runsH.TogglePause)
		runsG.POST("/reset", runsH.Reset)

		api.GET("/inventory", invH.List)

		pricesG := api.Group("/prices")
		pricesG.GET("", pricesH.List)
		pricesG.GET("/:typeId", pricesH.Get)
		pricesG.PUT("/:typeId", pricesH.Put)
		pricesG.GET("/export", pricesH.Export)
		pricesG.POST("/migrate-legacy-season", pricesH.MigrateLegacySeason)

		api.GET("/stats/history", statsH.History)

		cloudG := api.Group("/cloud")
		cloudG.GET("/status", cloudH.Status)
		cloudG.POST("/enable", cloudH.Enable)
		cloudG.POST("/disable", cloudH.Disable)
		cloudG.POST("/sync", cloudH.ManualSync)
		cloudG.GET("/prices/:typeId", cloudH.PriceReadThrough)
		cloudG.GET("/history/:typeId", cloudH.History)

		settingsG := api.Group("/settings")
		settingsG.GET("", settingsH.List)
		settingsG.PUT("/:key", settingsH.Put)

		api.GET("/icons/:typeId", iconsH.Get)
		api.GET("/status", statusH.Get)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not_found"})
	})

	return r
}
