// Package rangereq resolves a single-range "bytes=" Range header against a
// resource of known size.
package rangereq

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const unitPrefix = "bytes="

var (
	// ErrMalformed 头部语法错误：非 bytes 单位、多段范围、非法数字
	ErrMalformed = errors.New("malformed range")
	// ErrUnsatisfiable 范围无法满足：起点越界、区间倒置、后缀范围
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Error 携带原始头部值的范围错误
type Error struct {
	Header string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s (%q)", e.Err, e.Reason, e.Header)
}

func (e *Error) Unwrap() error { return e.Err }

func malformed(header, reason string) error {
	return &Error{Header: header, Reason: reason, Err: ErrMalformed}
}

func unsatisfiable(header, reason string) error {
	return &Error{Header: header, Reason: reason, Err: ErrUnsatisfiable}
}

// Window 解析后的字节窗口 [Start, End]（包含End）
type Window struct {
	Start   int64
	End     int64
	Total   int64
	Partial bool
}

// Length 窗口字节数
func (w Window) Length() int64 {
	return w.End - w.Start + 1
}

// ContentRange 返回 206 响应的 Content-Range 值
func (w Window) ContentRange() string {
	return "bytes " + strconv.FormatInt(w.Start, 10) + "-" + strconv.FormatInt(w.End, 10) + "/" + strconv.FormatInt(w.Total, 10)
}

// UnsatisfiedRange 返回 416 响应的 Content-Range 值，如 bytes */1234
func UnsatisfiedRange(total int64) string {
	return "bytes */" + strconv.FormatInt(total, 10)
}

// Resolve computes the byte window for a resource of total bytes. An empty
// header means no Range was sent and yields the full resource.
func Resolve(total int64, header string) (Window, error) {
	if header == "" {
		return Window{Start: 0, End: total - 1, Total: total}, nil
	}
	if !strings.HasPrefix(header, unitPrefix) {
		return Window{}, malformed(header, "unsupported range unit")
	}
	spec := header[len(unitPrefix):]
	if strings.Contains(spec, ",") {
		return Window{}, malformed(header, "multiple ranges")
	}
	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return Window{}, malformed(header, "expected first-last")
	}

	// bytes=-N 后缀范围不支持
	if parts[0] == "" {
		if parts[1] == "" {
			return Window{}, malformed(header, "empty range")
		}
		if _, ok := parsePos(parts[1]); !ok {
			return Window{}, malformed(header, "invalid suffix length")
		}
		return Window{}, unsatisfiable(header, "suffix ranges are not supported")
	}
	start, ok := parsePos(parts[0])
	if !ok {
		return Window{}, malformed(header, "invalid first-pos")
	}

	end := total - 1
	if parts[1] != "" {
		last, ok := parsePos(parts[1])
		if !ok {
			return Window{}, malformed(header, "invalid last-pos")
		}
		if last < end {
			end = last
		}
	}
	if end < start {
		return Window{}, unsatisfiable(header, "first-pos beyond last-pos")
	}
	return Window{Start: start, End: end, Total: total, Partial: true}, nil
}

// parsePos 只接受纯十进制数字，拒绝符号和空白
func parsePos(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
