package avatargo

import (
	"strconv"

	"go.uber.org/zap"
)

type MiddlewareLog struct {
	defaultLoggerMid *zap.SugaredLogger
}

// HandleHTTP 采集并打印HTTP请求日志
func (m *MiddlewareLog) HandleHTTP(context *Context) {
	context.Next()

	elapsed := context.Elapsed()
	responseTime := strconv.FormatFloat(float64(elapsed.Nanoseconds())/1e6, 'f', 1, 64)
	m.defaultLoggerMid.Infow(
		context.ClientIP()+" "+context.Method()+" "+context.Request.URL.RequestURI()+" "+strconv.Itoa(context.StatusCode()),
		"rt_ms", responseTime,
		"bytes", context.BytesWritten(),
		"range", context.Range(),
		"request_id", context.RequestID(),
		"user_agent", context.UserAgent(),
	)
}

// NewMiddlewareLog 创建日志中间件实例
func NewMiddlewareLog(logger *zap.SugaredLogger) *MiddlewareLog {
	return &MiddlewareLog{
		defaultLoggerMid: logger,
	}
}

// SetLogger 自定义日志器
func (m *MiddlewareLog) SetLogger(logger *zap.SugaredLogger) {
	m.defaultLoggerMid = logger
}
