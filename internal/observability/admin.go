package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/radiomute/internal/auth"
	"github.com/danmuck/radiomute/internal/mute"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Controller is the reconciler surface the admin routes need.
type Controller interface {
	Snapshot() mute.Snapshot
	Resync() error
}

// AttachState reports whether the avatar host has been seen.
type AttachState interface {
	Attached() bool
}

type AdminConfig struct {
	Node        string
	CorsOrigins []string
	// Token guards POST routes. Empty disables them.
	Token string
}

// NewAdminRouter builds the admin HTTP surface.
func NewAdminRouter(cfg AdminConfig, ctl Controller, host AttachState) *gin.Engine {
	RegisterMetrics()
	if cfg.Node == "" {
		cfg.Node = "radiomute"
	}
	started := time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Logger))
	r.Use(RequestMetricsMiddleware(cfg.Node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(started).String(),
			"service": cfg.Node,
			"version": Version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		attached := host != nil && host.Attached()
		status := http.StatusOK
		if !attached {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":    attached,
			"attached": attached,
			"uptime":   time.Since(started).String(),
			"service":  cfg.Node,
		})
	})

	r.GET("/status", func(c *gin.Context) {
		snap := ctl.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"snapshot":      snap,
			"desired_muted": snap.State.Desired(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/resync", auth.RequireBearer(auth.StaticToken{Token: cfg.Token}), func(c *gin.Context) {
		if err := ctl.Resync(); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, mute.ErrClosed) {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot": ctl.Snapshot()})
	})

	return r
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
