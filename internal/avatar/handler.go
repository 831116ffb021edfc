package avatar

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/miyingqi/avatargo"
	"github.com/miyingqi/avatargo/internal/stream"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const invalidStateMessage = `Invalid state. Use "nodding" or "speaking".`

// chunkOptionsKB 页面上可选的读取粒度
var chunkOptionsKB = []int{100, 200, 300, 400, 500, 600, 700, 800, 900, 1024}

// Handler 头像视频接口
type Handler struct {
	lib            *Library
	defaultChunkKB int
	rateLimit      int
}

// NewHandler 创建处理器；defaultChunkKB 不在白名单内时使用 200KB
func NewHandler(lib *Library, defaultChunkKB, rateLimit int) *Handler {
	if !stream.AllowedChunkKB(defaultChunkKB) {
		defaultChunkKB = stream.DefaultChunkKB
	}
	return &Handler{lib: lib, defaultChunkKB: defaultChunkKB, rateLimit: rateLimit}
}

// Register 注册页面与接口路由
func (h *Handler) Register(r *avatargo.Router) {
	r.GET("/", h.Index)
	api := r.Group("/api/v1")
	api.GET("/avatar", h.Avatar)
	api.HEAD("/avatar", h.Avatar)
}

// Avatar 按 state 返回视频，支持 Range 拖动
// GET /api/v1/avatar?state=nodding&chunk_size=200
func (h *Handler) Avatar(c *avatargo.Context) {
	state, err := ParseState(c.Query("state"))
	if err != nil {
		c.BadRequest(invalidStateMessage)
		return
	}

	video, err := h.lib.Video(state)
	if errors.Is(err, ErrVideoNotFound) {
		c.NotFound("Video file not found: " + state.FileName())
		return
	}
	if err != nil {
		c.Logger().Errorw("lookup video failed", "state", state, "error", err)
		c.InternalServerError("Failed to read " + state.FileName())
		return
	}

	c.ServeRange(video, avatargo.RangeOptions{
		ChunkSize: stream.ParseChunkSize(c.Query("chunk_size"), h.defaultChunkKB),
		RateLimit: h.rateLimit,
	})
}

type indexData struct {
	States         []State
	ChunkOptionsKB []int
	DefaultChunkKB int
}

// Index 渲染播放页面
func (h *Handler) Index(c *avatargo.Context) {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexData{
		States:         States,
		ChunkOptionsKB: chunkOptionsKB,
		DefaultChunkKB: h.defaultChunkKB,
	})
	if err != nil {
		c.Logger().Errorf("render index: %v", err)
		c.InternalServerError("Failed to render page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
