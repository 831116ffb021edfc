package avatargo

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

type CorsConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	AllowOriginRegex []*regexp.Regexp
	ExposeHeaders    []string
	MaxAge           int
}

// NewCors 默认配置允许跨域播放器发送 Range 并读取分段响应头
func NewCors() *CorsConfig {
	return &CorsConfig{
		AllowOrigins:     make([]string, 0),
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:     []string{"Accept", "Accept-Language", "Content-Language", "Content-Type", "Range", HeaderRequestID},
		AllowCredentials: false,
		ExposeHeaders:    []string{"Accept-Ranges", "Content-Length", "Content-Range", HeaderRequestID},
		MaxAge:           600,
	}
}

func (c *CorsConfig) SetCors(allowOrigins []string,
	allowMethods []string, allowHeaders []string,
	allowCredentials bool, allowOriginRegex []*regexp.Regexp,
	exposeHeaders []string, maxAge int) {
	c.AllowOrigins = allowOrigins
	c.AllowMethods = allowMethods
	c.AllowHeaders = allowHeaders
	c.AllowCredentials = allowCredentials
	c.AllowOriginRegex = allowOriginRegex
	c.ExposeHeaders = exposeHeaders
	c.MaxAge = maxAge
}

func (c *CorsConfig) allowOrigin(origin string) bool {
	for _, o := range c.AllowOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	for _, re := range c.AllowOriginRegex {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

func (c *CorsConfig) wildcard() bool {
	for _, o := range c.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// HandleHTTP 处理跨域请求与预检请求
func (c *CorsConfig) HandleHTTP(ctx *Context) {
	origin := ctx.GetHeader("Origin")
	if origin == "" {
		ctx.Next()
		return
	}
	header := ctx.Writer.Header()
	header.Add("Vary", "Origin")
	if !c.allowOrigin(origin) {
		ctx.Next()
		return
	}

	if c.wildcard() && !c.AllowCredentials {
		header.Set("Access-Control-Allow-Origin", "*")
	} else {
		header.Set("Access-Control-Allow-Origin", origin)
	}
	if c.AllowCredentials {
		header.Set("Access-Control-Allow-Credentials", "true")
	}

	preflight := ctx.Method() == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != ""
	if !preflight {
		if len(c.ExposeHeaders) > 0 {
			header.Set("Access-Control-Expose-Headers", strings.Join(c.ExposeHeaders, ", "))
		}
		ctx.Next()
		return
	}

	header.Set("Access-Control-Allow-Methods", strings.Join(c.AllowMethods, ", "))
	header.Set("Access-Control-Allow-Headers", strings.Join(c.AllowHeaders, ", "))
	if c.MaxAge > 0 {
		header.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
	ctx.Abort()
	ctx.WriteHeader(http.StatusNoContent)
}
