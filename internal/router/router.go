package router

import (
	"golang.org/x/time/rate"

	"github.com/gin-gonic/gin"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/handler"
	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine    *gin.Engine
	waitlistH Handler
	offerH    Handler
	h         *handler.Handler
}

type RouterConfig struct {
	RateLimit rate.Limit
	RateBurst int
}

func NewRouter(waitlistH, offerH Handler, h *handler.Handler, config RouterConfig) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:    engine,
		waitlistH: waitlistH,
		offerH:    offerH,
		h:         h,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	handler.RegisterValidations()

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	r.waitlistH.RegisterRoutes(api)
	r.offerH.RegisterRoutes(api)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
