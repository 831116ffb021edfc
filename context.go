package avatargo

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/miyingqi/avatargo/internal/route"
)

type FJ map[string]interface{}

// HandlerFunc 处理函数
type HandlerFunc func(*Context)

// HandlersChain 处理器链
type HandlersChain []HandlerFunc

// HandleHTTP 让普通函数也能作为中间件使用
func (h HandlerFunc) HandleHTTP(c *Context) {
	h(c)
}

// Context 请求上下文，由池复用，不得在处理结束后持有
type Context struct {
	// 原始 HTTP 对象
	Request *http.Request
	Writer  http.ResponseWriter

	// 请求信息
	method string
	path   string
	params route.Params
	query  url.Values

	// 响应信息
	rw responseWriter

	// 数据存储
	store map[string]interface{}

	// 处理器链
	handlers HandlersChain
	index    int
	aborted  bool

	startTime time.Time
	requestID string
	logger    *zap.SugaredLogger
}

func newContext(logger *zap.SugaredLogger) *Context {
	return &Context{
		store:  make(map[string]interface{}),
		index:  -1,
		logger: logger,
	}
}

// Reset 池化复用前重置
func (c *Context) Reset(writer http.ResponseWriter, request *http.Request) {
	c.rw.reset(writer)
	c.Request = request
	c.Writer = &c.rw
	c.method = request.Method
	c.path = request.URL.Path
	c.params = nil
	c.query = nil
	for k := range c.store {
		delete(c.store, k)
	}
	c.handlers = nil
	c.index = -1
	c.aborted = false
	c.startTime = time.Now()
	c.requestID = request.Header.Get(HeaderRequestID)
}

// Next 执行后续处理器
func (c *Context) Next() {
	c.index++
	for ; c.index < len(c.handlers) && !c.aborted; c.index++ {
		c.handlers[c.index](c)
	}
}

// Abort 终止后续处理器
func (c *Context) Abort() {
	c.aborted = true
}

func (c *Context) IsAborted() bool { return c.aborted }

func (c *Context) Method() string { return c.method }

func (c *Context) Path() string { return c.path }

// Param 路径参数
func (c *Context) Param(key string) string {
	return c.params.ByName(key)
}

// Query 查询参数
func (c *Context) Query(key string) string {
	if c.query == nil {
		c.query = c.Request.URL.Query()
	}
	return c.query.Get(key)
}

// QueryDefault 查询参数，不存在时返回默认值
func (c *Context) QueryDefault(key, defaultValue string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return defaultValue
}

func (c *Context) GetHeader(key string) string {
	return c.Request.Header.Get(key)
}

// Range 返回请求的 Range 头
func (c *Context) Range() string {
	return c.GetHeader("Range")
}

func (c *Context) UserAgent() string {
	return c.Request.UserAgent()
}

// ClientIP 真实客户端IP（处理反向代理）
func (c *Context) ClientIP() string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}

func (c *Context) RequestID() string { return c.requestID }

func (c *Context) SetRequestID(id string) { c.requestID = id }

// Logger 请求日志器
func (c *Context) Logger() *zap.SugaredLogger { return c.logger }

// Elapsed 请求已耗时
func (c *Context) Elapsed() time.Duration { return time.Since(c.startTime) }

func (c *Context) Set(key string, value interface{}) {
	c.store[key] = value
}

func (c *Context) Get(key string) (interface{}, bool) {
	v, ok := c.store[key]
	return v, ok
}

// StatusCode 已写出的状态码，未写出时为0
func (c *Context) StatusCode() int { return c.rw.status }

// Written 响应头是否已写出
func (c *Context) Written() bool { return c.rw.wroteHeader }

// BytesWritten 已写出的响应体字节数
func (c *Context) BytesWritten() int64 { return c.rw.size }

// SetHeader 设置响应头，多个值用逗号分隔
func (c *Context) SetHeader(key string, values ...string) {
	if len(values) == 0 {
		return
	}
	c.Writer.Header().Set(key, strings.Join(values, ", "))
}

// WriteHeader 写出状态码，只生效一次
func (c *Context) WriteHeader(code int) {
	c.Writer.WriteHeader(code)
}

func (c *Context) Write(data []byte) (int, error) {
	return c.Writer.Write(data)
}

func (c *Context) Data(code int, contentType string, data []byte) {
	c.SetHeader("Content-Type", contentType)
	c.WriteHeader(code)
	if c.method == http.MethodHead {
		return
	}
	if _, err := c.Writer.Write(data); err != nil {
		c.logger.Debugf("write response: %v", err)
	}
}

func (c *Context) SendString(code int, body string) {
	c.Data(code, "text/plain; charset=utf-8", []byte(body))
}

func (c *Context) SendHtml(code int, html string) {
	c.Data(code, "text/html; charset=utf-8", []byte(html))
}

func (c *Context) SendJson(code int, jsonData interface{}) {
	data, err := json.Marshal(jsonData)
	if err != nil {
		c.logger.Errorf("encode json response: %v", err)
		c.SendString(http.StatusInternalServerError, "500 Internal Server Error")
		return
	}
	c.Data(code, "application/json", data)
}

// SendError 以 {"error": message} 形式返回错误
func (c *Context) SendError(code int, message string) {
	c.SendJson(code, FJ{"error": message})
}

func (c *Context) NotFound(message string) {
	c.SendError(http.StatusNotFound, message)
}

func (c *Context) BadRequest(message string) {
	c.SendError(http.StatusBadRequest, message)
}

func (c *Context) InternalServerError(message string) {
	c.SendError(http.StatusInternalServerError, message)
}

// Redirect 重定向
func (c *Context) Redirect(code int, location string) {
	http.Redirect(c.Writer, c.Request, location, code)
}

func HTTPNotFound(c *Context) {
	c.SendString(http.StatusNotFound, "404 Not Found")
}

// responseWriter 记录状态码与写出字节数
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

func (w *responseWriter) reset(rw http.ResponseWriter) {
	w.ResponseWriter = rw
	w.status = 0
	w.size = 0
	w.wroteHeader = false
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(data)
	w.size += int64(n)
	return n, err
}

// Flush 逐块推送视频数据
func (w *responseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
