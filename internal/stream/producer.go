// Package stream produces the bytes of an inclusive [start, end] window of a
// seekable resource in bounded chunks, one chunk per pull.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Resource 可寻址、可读、可关闭的数据源，每个请求独占一个
type Resource interface {
	io.ReadSeekCloser
}

// Stats 流结束时的统计信息
type Stats struct {
	Start     int64
	End       int64
	Sent      int64 // 已产出的字节数
	Truncated bool  // 数据源提前结束
	Err       error // 终止原因（正常结束为nil）
}

// Option 配置Producer
type Option func(*Producer)

// WithRateLimit 按每秒字节数限速，0表示不限速
func WithRateLimit(bytesPerSecond int) Option {
	return func(p *Producer) {
		if bytesPerSecond <= 0 {
			return
		}
		burst := bytesPerSecond
		if burst < len(p.buf) {
			burst = len(p.buf)
		}
		p.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
	}
}

// WithObserver 注册释放时的回调，仅调用一次
func WithObserver(fn func(Stats)) Option {
	return func(p *Producer) {
		p.observer = fn
	}
}

// Producer is a forward-only, non-restartable iterator over a byte window.
// The resource is closed when the window is exhausted, on any error, on
// context cancellation and on Close.
type Producer struct {
	ctx       context.Context
	res       Resource
	start     int64
	end       int64
	remaining int64
	sent      int64
	buf       []byte
	limiter   *rate.Limiter
	observer  func(Stats)

	truncated bool
	done      bool
	err       error
	closeOnce sync.Once
}

// New seeks res to start and returns a Producer for [start, end]. On failure
// res is closed before returning.
func New(ctx context.Context, res Resource, start, end int64, chunkSize int, opts ...Option) (*Producer, error) {
	if chunkSize <= 0 {
		_ = res.Close()
		return nil, fmt.Errorf("stream: chunk size must be positive, got %d", chunkSize)
	}
	if start < 0 || end < start-1 {
		_ = res.Close()
		return nil, fmt.Errorf("stream: invalid window [%d, %d]", start, end)
	}
	if _, err := res.Seek(start, io.SeekStart); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("stream: seek to %d: %w", start, err)
	}

	remaining := end - start + 1
	bufSize := int64(chunkSize)
	if remaining < bufSize {
		bufSize = remaining
	}
	p := &Producer{
		ctx:       ctx,
		res:       res,
		start:     start,
		end:       end,
		remaining: remaining,
		buf:       make([]byte, bufSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	if remaining == 0 {
		p.finish(nil)
	}
	return p, nil
}

// Next returns the next block of the window. The block is only valid until
// the following call. io.EOF signals the end of the window, including an
// early end when the resource is shorter than expected (see Truncated).
func (p *Producer) Next() ([]byte, error) {
	if p.done {
		if p.err != nil {
			return nil, p.err
		}
		return nil, io.EOF
	}
	if err := p.ctx.Err(); err != nil {
		p.finish(err)
		return nil, err
	}

	want := int64(len(p.buf))
	if p.remaining < want {
		want = p.remaining
	}
	if p.limiter != nil {
		if err := p.limiter.WaitN(p.ctx, int(want)); err != nil {
			p.finish(err)
			return nil, err
		}
	}

	n, err := p.res.Read(p.buf[:want])
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			p.finish(err)
			return nil, err
		}
		p.truncated = true
		p.finish(nil)
		return nil, io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		p.finish(err)
		return nil, err
	}

	p.remaining -= int64(n)
	p.sent += int64(n)
	block := p.buf[:n]
	if p.remaining == 0 {
		// 数据已取出，提前释放文件句柄
		p.finish(nil)
	}
	return block, nil
}

// WriteTo drains the producer into w, flushing after every block when w
// supports it. A write failure stops reading immediately.
func (p *Producer) WriteTo(w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)
	var written int64
	for {
		block, err := p.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, werr := w.Write(block)
		written += int64(n)
		if werr != nil {
			p.finish(werr)
			return written, werr
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Close releases the resource. Safe to call more than once.
func (p *Producer) Close() error {
	if !p.done {
		p.finish(context.Canceled)
	}
	return nil
}

// Truncated reports whether the resource ended before the window did.
func (p *Producer) Truncated() bool { return p.truncated }

// Sent returns the number of bytes produced so far.
func (p *Producer) Sent() int64 { return p.sent }

// Remaining returns the number of window bytes not yet produced.
func (p *Producer) Remaining() int64 { return p.remaining }

func (p *Producer) finish(err error) {
	p.done = true
	if p.err == nil {
		p.err = err
	}
	p.closeOnce.Do(func() {
		_ = p.res.Close()
		if p.observer != nil {
			p.observer(Stats{
				Start:     p.start,
				End:       p.end,
				Sent:      p.sent,
				Truncated: p.truncated,
				Err:       err,
			})
		}
	})
}
