package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aihub/loganomaly/internal/logger"
	"go.uber.org/zap"
)

// BaselineCounter 报告基线集合状态
type BaselineCounter interface {
	BaselinePoints(ctx context.Context) (uint64, error)
	Collection() string
}

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Log Anomaly Detection API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	Baseline BaselineCounter
}

func (c *HealthController) Health() {
	ctx, cancel := context.WithTimeout(c.Ctx.Request.Context(), 2*time.Second)
	defer cancel()

	count, err := c.Baseline.BaselinePoints(ctx)
	if err != nil {
		logger.Warn("Health check failed", zap.Error(err))
		c.JSONError(http.StatusServiceUnavailable, "vector store unavailable")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"status":          "healthy",
		"collection":      c.Baseline.Collection(),
		"baseline_points": count,
	})
}
