package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aihub/loganomaly/internal/anomaly"
	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/aihub/loganomaly/internal/logger"
	"go.uber.org/zap"
)

// maxBodyBytes 请求体上限
const maxBodyBytes int64 = 1 << 20

// LogChecker 判定单条日志
type LogChecker interface {
	CheckLog(ctx context.Context, entry string) (anomaly.Verdict, error)
}

// CheckLogResponse /check_log 响应
type CheckLogResponse struct {
	IsAnomalous bool    `json:"is_anomalous"`
	Score       float32 `json:"score"`
	LogEntry    string  `json:"log_entry"`
}

// CheckLogController 日志异常检测控制器
// Checker 必须导出，beego 只会把导出字段复制到每个请求的控制器实例
type CheckLogController struct {
	BaseController
	Checker LogChecker
}

// CheckLog POST /check_log
func (c *CheckLogController) CheckLog() {
	entry, err := c.readLogEntry()
	if err != nil {
		logger.Debug("Rejected check_log request", zap.String("reason", apperrors.GetAppError(err).Message))
		c.JSONAppError(err)
		return
	}

	verdict, err := c.Checker.CheckLog(c.Ctx.Request.Context(), entry)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, CheckLogResponse{
		IsAnomalous: verdict.IsAnomalous,
		Score:       verdict.Score,
		LogEntry:    entry,
	})
}

// readLogEntry 读取请求体并解析 log_entry
// 分块传输的请求没有 Content-Length，只能在读取后判断是否超限
func (c *CheckLogController) readLogEntry() (string, error) {
	body := c.Ctx.Input.RequestBody
	if body == nil {
		body = c.Ctx.Input.CopyBody(maxBodyBytes + 1)
	}
	if int64(len(body)) > maxBodyBytes {
		return "", apperrors.NewBodyTooLargeError(maxBodyBytes)
	}
	return parseLogEntry(body)
}

// parseLogEntry 校验请求体，返回原样的 log_entry
func parseLogEntry(body []byte) (string, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "", apperrors.NewValidationError("invalid JSON body")
	}

	raw, ok := fields["log_entry"]
	if !ok || raw == nil {
		return "", apperrors.NewValidationError("log_entry is required")
	}
	entry, ok := raw.(string)
	if !ok {
		return "", apperrors.NewValidationError("log_entry must be a string")
	}
	if strings.TrimSpace(entry) == "" {
		return "", apperrors.NewValidationError("log_entry must not be empty")
	}
	return entry, nil
}
