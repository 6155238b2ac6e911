package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"semp-gateway/internal/mw"
)

// RouterConfig tunes the middleware stack. Zero values disable the
// corresponding middleware.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	Registry        *prometheus.Registry
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	if cfg.Registry != nil {
		metrics := mw.NewMetrics(cfg.Registry, h.gateway.Count)
		r.Use(metrics.Handler())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	if cfg.RateLimitPerSec > 0 {
		api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	}

	// Only registry reads are cached; the cache key follows the gateway revision.
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.CacheTTL > 0 {
		cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
		caching = mw.Cache(cacheStore, cfg.CacheTTL, h.gateway.Revision)
	}
	{
		api.GET("/gateway", caching, h.GetGateway)

		api.GET("/devices", caching, h.GetDevices)
		api.GET("/devices/:id", caching, h.GetDevice)
		api.POST("/devices/:id", h.PostDevice)
		api.DELETE("/devices/:id", h.DeleteDevice)

		api.GET("/devices/:id/planningRequests", caching, h.GetPlanningRequests)
		api.POST("/devices/:id/planningRequests", h.PostPlanningRequest)
		api.DELETE("/devices/:id/planningRequests", h.DeletePlanningRequests)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
