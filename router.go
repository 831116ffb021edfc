package avatargo

import (
	"net/http"
	"path"

	"github.com/miyingqi/avatargo/internal/route"
)

// Router 每个HTTP方法一棵路由树，叶子保存处理器链下标
type Router struct {
	trees  map[string]*route.Node
	chains []HandlersChain
}

// NewRouter 创建路由
func NewRouter() *Router {
	return &Router{
		trees: make(map[string]*route.Node),
	}
}

// 获取路由树
func (r *Router) getTree(method string) *route.Node {
	tree, ok := r.trees[method]
	if !ok {
		tree = route.NewTree()
		r.trees[method] = tree
	}
	return tree
}

// 添加路由
func (r *Router) addRoute(method, path string, handlers HandlersChain) {
	if len(handlers) == 0 {
		panic("avatargo: route " + method + " " + path + " has no handlers")
	}
	r.chains = append(r.chains, handlers)
	r.getTree(method).Insert(path, len(r.chains)-1)
}

// GET 添加路由
func (r *Router) GET(path string, handlers ...HandlerFunc) {
	r.addRoute(http.MethodGet, path, handlers)
}

// HEAD 添加路由
func (r *Router) HEAD(path string, handlers ...HandlerFunc) {
	r.addRoute(http.MethodHead, path, handlers)
}

// POST 添加路由
func (r *Router) POST(path string, handlers ...HandlerFunc) {
	r.addRoute(http.MethodPost, path, handlers)
}

// PUT 添加路由
func (r *Router) PUT(path string, handlers ...HandlerFunc) {
	r.addRoute(http.MethodPut, path, handlers)
}

// DELETE 添加路由
func (r *Router) DELETE(path string, handlers ...HandlerFunc) {
	r.addRoute(http.MethodDelete, path, handlers)
}

// Group 创建路由组
func (r *Router) Group(prefix string, handlers ...HandlerFunc) *RouteGroup {
	return &RouteGroup{
		prefix:   prefix,
		router:   r,
		handlers: handlers,
	}
}

// RouteGroup 共享前缀与中间件的一组路由
type RouteGroup struct {
	prefix   string
	router   *Router
	handlers HandlersChain
}

// Use 为路由组添加中间件
func (g *RouteGroup) Use(handlers ...HandlerFunc) {
	g.handlers = append(g.handlers, handlers...)
}

// Group 创建子路由组
func (g *RouteGroup) Group(prefix string, handlers ...HandlerFunc) *RouteGroup {
	return &RouteGroup{
		prefix:   g.fullPath(prefix),
		router:   g.router,
		handlers: g.combine(handlers),
	}
}

func (g *RouteGroup) GET(path string, handlers ...HandlerFunc) {
	g.router.addRoute(http.MethodGet, g.fullPath(path), g.combine(handlers))
}

func (g *RouteGroup) HEAD(path string, handlers ...HandlerFunc) {
	g.router.addRoute(http.MethodHead, g.fullPath(path), g.combine(handlers))
}

func (g *RouteGroup) POST(path string, handlers ...HandlerFunc) {
	g.router.addRoute(http.MethodPost, g.fullPath(path), g.combine(handlers))
}

func (g *RouteGroup) fullPath(p string) string {
	return path.Join("/", g.prefix, p)
}

func (g *RouteGroup) combine(handlers HandlersChain) HandlersChain {
	merged := make(HandlersChain, 0, len(g.handlers)+len(handlers))
	merged = append(merged, g.handlers...)
	return append(merged, handlers...)
}
