package avatargo

import (
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-Id"

// Recovery 捕获处理器中的panic，返回500
func Recovery() HandlerFunc {
	return func(c *Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			c.Logger().Errorw("panic recovered",
				"panic", r,
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.RequestID(),
				"stack", string(debug.Stack()),
			)
			c.Abort()
			if !c.Written() {
				c.InternalServerError("Internal Server Error")
			}
		}()
		c.Next()
	}
}

// RequestID 透传或生成请求ID，并写入响应头
func RequestID() HandlerFunc {
	return func(c *Context) {
		id := c.RequestID()
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.SetRequestID(id)
		c.SetHeader(HeaderRequestID, id)
		c.Next()
	}
}
