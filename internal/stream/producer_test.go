package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memResource 内存数据源，记录关闭次数与读取次数
type memResource struct {
	*bytes.Reader
	closed int
	reads  int
	limit  int // 读取次数达到limit后返回0字节，模拟文件被截断；0表示不限
}

func newMemResource(data []byte) *memResource {
	return &memResource{Reader: bytes.NewReader(data)}
}

func (m *memResource) Read(p []byte) (int, error) {
	m.reads++
	if m.limit > 0 && m.reads > m.limit {
		return 0, io.EOF
	}
	return m.Reader.Read(p)
}

func (m *memResource) Close() error {
	m.closed++
	return nil
}

func randomBytes(n int) []byte {
	data := make([]byte, n)
	rand.Read(data)
	return data
}

func drain(t *testing.T, p *Producer) []byte {
	t.Helper()
	var out bytes.Buffer
	for {
		block, err := p.Next()
		if errors.Is(err, io.EOF) {
			return out.Bytes()
		}
		require.NoError(t, err)
		out.Write(block)
	}
}

func TestProducer_RoundTrip(t *testing.T) {
	data := randomBytes(10_000)
	for i := 0; i < 200; i++ {
		start := rand.Int63n(int64(len(data)))
		end := start + rand.Int63n(int64(len(data))-start)
		chunk := rand.Intn(len(data)) + 1
		t.Run(fmt.Sprintf("%d-%d/%d", start, end, chunk), func(t *testing.T) {
			res := newMemResource(data)
			p, err := New(context.Background(), res, start, end, chunk)
			require.NoError(t, err)

			got := drain(t, p)
			assert.Equal(t, data[start:end+1], got)
			assert.Equal(t, 1, res.closed)
			assert.False(t, p.Truncated())
			assert.Equal(t, int64(0), p.Remaining())
		})
	}
}

func TestProducer_BlockBoundaries(t *testing.T) {
	data := randomBytes(1000)
	p, err := New(context.Background(), newMemResource(data), 0, 999, 300)
	require.NoError(t, err)

	var sizes []int
	for {
		block, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(block))
	}
	assert.Equal(t, []int{300, 300, 300, 100}, sizes)
}

func TestProducer_ClosesOnExhaustion(t *testing.T) {
	res := newMemResource(randomBytes(100))
	p, err := New(context.Background(), res, 0, 99, 100)
	require.NoError(t, err)

	block, err := p.Next()
	require.NoError(t, err)
	assert.Len(t, block, 100)
	// 最后一块产出时即释放
	assert.Equal(t, 1, res.closed)

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, p.Close())
	assert.Equal(t, 1, res.closed)
}

func TestProducer_Truncated(t *testing.T) {
	data := randomBytes(1000)
	res := newMemResource(data[:500])

	var stats Stats
	p, err := New(context.Background(), res, 0, 999, 200, WithObserver(func(s Stats) { stats = s }))
	require.NoError(t, err)

	got := drain(t, p)
	assert.Equal(t, data[:500], got)
	assert.True(t, p.Truncated())
	assert.Equal(t, 1, res.closed)
	assert.True(t, stats.Truncated)
	assert.Equal(t, int64(500), stats.Sent)
	assert.NoError(t, stats.Err)
}

func TestProducer_ZeroByteRead(t *testing.T) {
	res := newMemResource(randomBytes(1000))
	res.limit = 2

	p, err := New(context.Background(), res, 0, 999, 100)
	require.NoError(t, err)
	got := drain(t, p)
	assert.Len(t, got, 200)
	assert.True(t, p.Truncated())
	assert.Equal(t, 1, res.closed)
}

func TestProducer_Cancellation(t *testing.T) {
	res := newMemResource(randomBytes(1000))
	ctx, cancel := context.WithCancel(context.Background())
	p, err := New(ctx, res, 0, 999, 100)
	require.NoError(t, err)

	_, err = p.Next()
	require.NoError(t, err)
	cancel()

	_, err = p.Next()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.closed)
	assert.Equal(t, 1, res.reads, "no read after cancellation")

	_, err = p.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProducer_Abandoned(t *testing.T) {
	res := newMemResource(randomBytes(1000))
	var calls int
	p, err := New(context.Background(), res, 0, 999, 100, WithObserver(func(Stats) { calls++ }))
	require.NoError(t, err)

	_, err = p.Next()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, res.closed)
	assert.Equal(t, 1, calls)

	_, err = p.Next()
	assert.Error(t, err)
	assert.Equal(t, 1, res.reads)
}

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	if w.n > w.after {
		return 0, errors.New("broken pipe")
	}
	return len(p), nil
}

func TestProducer_WriteTo(t *testing.T) {
	data := randomBytes(5000)
	res := newMemResource(data)
	p, err := New(context.Background(), res, 1000, 3999, 700)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := p.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), n)
	assert.Equal(t, data[1000:4000], out.Bytes())
	assert.Equal(t, 1, res.closed)
}

func TestProducer_WriteToStopsOnWriteError(t *testing.T) {
	res := newMemResource(randomBytes(5000))
	p, err := New(context.Background(), res, 0, 4999, 500)
	require.NoError(t, err)

	n, err := p.WriteTo(&failingWriter{after: 2})
	assert.EqualError(t, err, "broken pipe")
	assert.Equal(t, int64(1000), n)
	assert.Equal(t, 3, res.reads)
	assert.Equal(t, 1, res.closed)
}

func TestProducer_EmptyWindow(t *testing.T) {
	res := newMemResource(nil)
	p, err := New(context.Background(), res, 0, -1, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, res.closed)

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, res.reads)
}

func TestNew_InvalidArguments(t *testing.T) {
	res := newMemResource(randomBytes(10))
	_, err := New(context.Background(), res, 0, 9, 0)
	assert.Error(t, err)
	assert.Equal(t, 1, res.closed)

	res = newMemResource(randomBytes(10))
	_, err = New(context.Background(), res, 5, 2, 10)
	assert.Error(t, err)
	assert.Equal(t, 1, res.closed)
}

func TestProducer_RateLimit(t *testing.T) {
	data := randomBytes(4096)
	p, err := New(context.Background(), newMemResource(data), 0, 4095, 1024, WithRateLimit(1<<20))
	require.NoError(t, err)
	require.NotNil(t, p.limiter)
	assert.Equal(t, data, drain(t, p))

	ctx, cancel := context.WithCancel(context.Background())
	res := newMemResource(data)
	p, err = New(ctx, res, 0, 4095, 1024, WithRateLimit(1))
	require.NoError(t, err)
	cancel()
	_, err = p.Next()
	assert.Error(t, err)
	assert.Equal(t, 0, res.reads)
	assert.Equal(t, 1, res.closed)
}
