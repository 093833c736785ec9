package middleware

import (
	"net/http"
	"time"

	"github.com/aihub/loganomaly/internal/logger"
	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

const startTimeKey = "request_start"

// DefaultMaxRequestSize check_log 请求体上限
const DefaultMaxRequestSize int64 = 1 << 20

// RequestTimer 记录请求开始时间，供 AccessLog 计算耗时
func RequestTimer() func(*context.Context) {
	return func(ctx *context.Context) {
		ctx.Input.SetData(startTimeKey, time.Now())
	}
}

// RequestSizeLimit 拒绝超出上限的请求体
func RequestSizeLimit(maxBytes int64) func(*context.Context) {
	return func(ctx *context.Context) {
		if ctx.Request.ContentLength > maxBytes {
			ctx.Output.SetStatus(http.StatusRequestEntityTooLarge)
			_ = ctx.Output.JSON(map[string]interface{}{
				"success": false,
				"error":   "request body too large",
			}, false, false)
		}
	}
}

// AccessLog 记录每个请求的方法、路径、状态码和耗时
func AccessLog() func(*context.Context) {
	return func(ctx *context.Context) {
		fields := []zap.Field{
			zap.String("method", ctx.Input.Method()),
			zap.String("path", ctx.Input.URL()),
			zap.Int("status", ctx.ResponseWriter.Status),
			zap.String("ip", ctx.Input.IP()),
		}
		if start, ok := ctx.Input.GetData(startTimeKey).(time.Time); ok {
			fields = append(fields, zap.Duration("duration", time.Since(start)))
		}
		logger.Info("request completed", fields...)
	}
}
