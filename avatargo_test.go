package avatargo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	_ "github.com/miyingqi/avatargo/docs"
)

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ParamsAndGroups(t *testing.T) {
	app := New(Options{})
	var order []string
	api := app.Group("/api", func(c *Context) {
		order = append(order, "group")
		c.Next()
	})
	v1 := api.Group("v1")
	v1.GET("/users/:id", func(c *Context) {
		order = append(order, "handler")
		c.SendString(http.StatusOK, "user "+c.Param("id"))
	})
	app.Router().GET("/files/*path", func(c *Context) {
		c.SendString(http.StatusOK, c.Param("path"))
	})

	h := app.Handler()
	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/users/42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user 42", rec.Body.String())
	assert.Equal(t, []string{"group", "handler"}, order)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/files/a/b.txt", nil))
	assert.Equal(t, "a/b.txt", rec.Body.String())

	rec = do(h, httptest.NewRequest(http.MethodPost, "/api/v1/users/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_EmptyHandlersPanics(t *testing.T) {
	assert.Panics(t, func() { NewRouter().GET("/x") })
}

func TestContext_PoolReset(t *testing.T) {
	app := New(Options{})
	app.Router().GET("/q", func(c *Context) {
		_, seen := c.Get("seen")
		assert.False(t, seen)
		c.Set("seen", true)
		c.SendString(http.StatusOK, c.QueryDefault("v", "none"))
	})
	h := app.Handler()
	assert.Equal(t, "1", do(h, httptest.NewRequest(http.MethodGet, "/q?v=1", nil)).Body.String())
	assert.Equal(t, "none", do(h, httptest.NewRequest(http.MethodGet, "/q", nil)).Body.String())
}

func TestContext_ClientIP(t *testing.T) {
	tests := []struct {
		headers map[string]string
		remote  string
		want    string
	}{
		{map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{nil, "1.2.3.4:5", "1.2.3.4"},
		{nil, "pipe", "pipe"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		for k, v := range tt.headers {
			req.Header.Set(k, v)
		}
		c := newContext(zap.NewNop().Sugar())
		c.Reset(httptest.NewRecorder(), req)
		assert.Equal(t, tt.want, c.ClientIP())
	}
}

func TestContext_WriteHeaderOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	c := newContext(zap.NewNop().Sugar())
	c.Reset(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	c.WriteHeader(http.StatusPartialContent)
	c.WriteHeader(http.StatusInternalServerError)
	_, err := c.Write([]byte("abc"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, http.StatusPartialContent, c.StatusCode())
	assert.Equal(t, int64(3), c.BytesWritten())
	assert.True(t, c.Written())
}

func TestSendJson(t *testing.T) {
	app := New(Options{})
	app.Router().GET("/err", func(c *Context) {
		c.BadRequest(`Invalid state. Use "nodding" or "speaking".`)
	})
	rec := do(app.Handler(), httptest.NewRequest(http.MethodGet, "/err", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, `Invalid state. Use "nodding" or "speaking".`, body["error"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	app := New(Options{Logger: zap.New(core)})
	app.Use(Recovery())
	app.Router().GET("/boom", func(c *Context) {
		panic("boom")
	})

	rec := do(app.Handler(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRequestID(t *testing.T) {
	app := New(Options{})
	app.Use(RequestID())
	app.Router().GET("/id", func(c *Context) {
		c.SendString(http.StatusOK, c.RequestID())
	})
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := do(h, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = do(h, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Regexp(t, `^[0-9a-f-]{36}$`, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get(HeaderRequestID))
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := New(Options{Logger: zap.New(core)})
	app.Router().GET("/ok", func(c *Context) {
		c.SendString(http.StatusTeapot, "tea")
	})
	req := httptest.NewRequest(http.MethodGet, "/ok?x=1", nil)
	req.Header.Set("Range", "bytes=0-1")
	do(app.Handler(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "HTTP", entries[0].LoggerName)
	assert.True(t, strings.HasSuffix(entries[0].Message, "GET /ok?x=1 418"), entries[0].Message)
	assert.Equal(t, "bytes=0-1", entries[0].ContextMap()["range"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["bytes"])
}

func TestCors(t *testing.T) {
	cors := NewCors()
	cors.AllowOrigins = []string{"https://a.example"}
	cors.AllowOriginRegex = []*regexp.Regexp{regexp.MustCompile(`^https://.*\.b\.example$`)}
	app := New(Options{})
	app.Use(cors)
	app.Router().GET("/v", func(c *Context) { c.SendString(http.StatusOK, "v") })
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v", nil)
	req.Header.Set("Origin", "https://x.b.example")
	rec := do(h, req)
	assert.Equal(t, "https://x.b.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Range")

	req = httptest.NewRequest(http.MethodGet, "/v", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = do(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/v", nil)
	req.Header.Set("Origin", "https://a.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = do(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Range")
}

func TestCors_Wildcard(t *testing.T) {
	cors := NewCors()
	cors.AllowOrigins = []string{"*"}
	app := New(Options{})
	app.Use(cors)
	app.Router().GET("/v", func(c *Context) { c.SendString(http.StatusOK, "v") })

	req := httptest.NewRequest(http.MethodGet, "/v", nil)
	req.Header.Set("Origin", "https://anyone.example")
	rec := do(app.Handler(), req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSwaggerHandler(t *testing.T) {
	app := New(Options{})
	app.Router().GET("/swagger/*any", SwaggerHandler())
	h := app.Handler()

	rec := do(h, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/api/v1/avatar"`)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/swagger/index.html", rec.Header().Get("Location"))

	rec = do(h, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Contains(t, rec.Body.String(), "swagger-ui")

	rec = do(h, httptest.NewRequest(http.MethodGet, "/swagger/nope.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwaggerHandler_UnknownInstance(t *testing.T) {
	app := New(Options{})
	app.Router().GET("/swagger/*any", SwaggerHandler("missing"))
	rec := do(app.Handler(), httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestParseAddress(t *testing.T) {
	host, port, err := parseAddress(":8080", false)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", host)
	assert.Equal(t, 8080, port)

	host, port, err = parseAddress("", true)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", host)
	assert.Equal(t, 443, port)

	host, port, err = parseAddress("127.0.0.1:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 9000, port)

	for _, bad := range []string{"nope", "host:abc", ":70000"} {
		_, _, err := parseAddress(bad, false)
		assert.Error(t, err, bad)
	}
}

func TestIsVirtualInterface(t *testing.T) {
	assert.True(t, isVirtualInterface("docker0"))
	assert.True(t, isVirtualInterface("vethabc"))
	assert.False(t, isVirtualInterface("eth0"))
}
