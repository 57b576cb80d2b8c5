package handler

import (
	"context"
	"net/http"
	"time"

	"stockledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type healthReport struct {
	OK    bool   `json:"ok"`
	DB    string `json:"db"`
	Redis string `json:"redis"`
	// Alert backlog, only reported while Redis is reachable.
	AlertsQueued *int64 `json:"alertsQueued,omitempty"`
	AlertsDead   *int64 `json:"alertsDead,omitempty"`
}

// Health reports database and Redis reachability. The ledger only needs the
// database, so a nil Redis client reads as "disabled" and keeps the check green.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		rep := healthReport{DB: "connected", Redis: "disabled"}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			rep.DB = "error"
		}
		if rdb != nil {
			rep.Redis = "connected"
			if rdb.Ping(ctx).Err() != nil {
				rep.Redis = "error"
			} else {
				if n, err := rdb.LLen(ctx, worker.QueueStockAlerts).Result(); err == nil {
					rep.AlertsQueued = &n
				}
				if n, err := worker.DLQLength(ctx, rdb, worker.QueueStockAlerts); err == nil {
					rep.AlertsDead = &n
				}
			}
		}

		rep.OK = rep.DB == "connected" && rep.Redis != "error"
		status := http.StatusOK
		if !rep.OK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, rep)
	}
}
