package avatargo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/miyingqi/avatargo/internal/rangereq"
	"github.com/miyingqi/avatargo/internal/stream"
)

// RangeReader 断点续传数据源通用接口
// 任意存储类型只需实现此接口，即可支持 Range 请求
type RangeReader interface {
	// Size 返回数据总大小（字节）
	Size() int64

	// Name 返回数据名称（用于日志）
	Name() string

	// ContentType 返回数据的MIME类型（如video/mp4）
	ContentType() string

	// Open 打开一个独占的数据源，由调用方负责关闭
	Open() (stream.Resource, error)
}

// RangeOptions 控制流式输出
type RangeOptions struct {
	ChunkSize int // 每次读取的字节数，<=0使用默认值
	RateLimit int // 每秒字节数，0不限速
}

// ServeRange resolves the request's Range header against reader and streams
// the selected window: 200 for the whole resource, 206 for a byte range,
// 400 for a malformed header and 416 for an unsatisfiable one.
func (c *Context) ServeRange(reader RangeReader, opts RangeOptions) {
	total := reader.Size()
	rangeHeader := ""
	if c.method == http.MethodGet || c.method == http.MethodHead {
		rangeHeader = c.Range()
	}

	window, err := rangereq.Resolve(total, rangeHeader)
	if err != nil {
		c.logger.Debugw("range rejected", "name", reader.Name(), "range", rangeHeader, "error", err)
		if errors.Is(err, rangereq.ErrUnsatisfiable) {
			c.SetHeader("Content-Range", rangereq.UnsatisfiedRange(total))
			c.SendError(http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable: "+rangeHeader)
			return
		}
		c.SendError(http.StatusBadRequest, "Invalid Range header: "+rangeHeader)
		return
	}

	status := http.StatusOK
	if window.Partial {
		status = http.StatusPartialContent
	}
	if c.method == http.MethodHead {
		c.setRangeHeaders(reader, window)
		c.WriteHeader(status)
		return
	}

	res, err := reader.Open()
	if err != nil {
		c.logger.Errorw("open resource failed", "name", reader.Name(), "error", err)
		c.InternalServerError("Failed to open " + reader.Name())
		return
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = stream.DefaultChunkSize
	}
	producer, err := stream.New(c.Request.Context(), res, window.Start, window.End, chunkSize,
		stream.WithRateLimit(opts.RateLimit),
		stream.WithObserver(c.observeStream(reader.Name())),
	)
	if err != nil {
		c.logger.Errorw("prepare stream failed", "name", reader.Name(), "error", err)
		c.InternalServerError("Failed to read " + reader.Name())
		return
	}
	defer producer.Close()

	c.setRangeHeaders(reader, window)
	c.WriteHeader(status)
	_, _ = producer.WriteTo(c.Writer)
}

func (c *Context) setRangeHeaders(reader RangeReader, window rangereq.Window) {
	c.SetHeader("Content-Type", reader.ContentType())
	c.SetHeader("Accept-Ranges", "bytes")
	c.SetHeader("Content-Length", strconv.FormatInt(window.Length(), 10))
	if window.Partial {
		c.SetHeader("Content-Range", window.ContentRange())
	}
}

// observeStream 记录截断与中断事件，不影响已发出的响应
func (c *Context) observeStream(name string) func(stream.Stats) {
	logger := c.logger
	requestID := c.requestID
	return func(s stream.Stats) {
		switch {
		case s.Truncated:
			logger.Warnw("resource truncated",
				"name", name,
				"start", s.Start,
				"end", s.End,
				"sent", s.Sent,
				"request_id", requestID,
			)
		case s.Err != nil:
			logger.Debugw("stream aborted",
				"name", name,
				"sent", s.Sent,
				"error", s.Err,
				"request_id", requestID,
			)
		}
	}
}
