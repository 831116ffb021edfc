// Package avatargo is a small HTTP framework for serving seekable media:
// a trie router, pooled request contexts, a middleware chain and
// Range-aware streaming of large files.
package avatargo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Engine 中间件接口
type Engine interface {
	HandleHTTP(*Context)
}

// Options 服务器配置
type Options struct {
	Logger          *zap.Logger
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 0表示不限制
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type App struct {
	core        *core
	router      *Router
	middlewares []Engine
	logger      *zap.SugaredLogger
	once        sync.Once
}

// New 创建应用，默认启用请求日志中间件
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	app := &App{
		core:   newCore(opts, logger.Sugar()),
		router: NewRouter(),
		logger: logger.Named("AvatarGo").Sugar(),
	}
	app.middlewares = append(app.middlewares, NewMiddlewareLog(logger.Named("HTTP").Sugar()))
	return app
}

// Router 返回路由器实例
func (h *App) Router() *Router {
	return h.router
}

// SetRoutes 允许通过函数设置路由
func (h *App) SetRoutes(setupFunc func(*Router)) {
	setupFunc(h.router)
}

// Group 创建路由组
func (h *App) Group(prefix string, handlers ...HandlerFunc) *RouteGroup {
	return h.router.Group(prefix, handlers...)
}

// Use 添加中间件到应用，需在 Run/Handler 之前调用
func (h *App) Use(middlewares ...Engine) {
	h.middlewares = append(h.middlewares, middlewares...)
}

// Handler 返回组装好的 http.Handler；首次调用后路由与中间件固定
func (h *App) Handler() http.Handler {
	h.once.Do(func() {
		h.core.build(midToHandler(h.middlewares), h.router)
	})
	return h.core
}

func (h *App) Run(addr string) error {
	return h.serve(addr, "", "")
}

func (h *App) RunTLS(addr, certFile, keyFile string) error {
	return h.serve(addr, certFile, keyFile)
}

func (h *App) serve(addr, certFile, keyFile string) error {
	tls := certFile != ""
	host, port, err := parseAddress(addr, tls)
	if err != nil {
		return err
	}
	h.core.server.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	h.core.server.Handler = h.Handler()

	scheme := "http"
	if tls {
		scheme = "https"
	}
	if host == "0.0.0.0" {
		h.logger.Infof("Server started at all address")
		for _, ip := range getAllIPs() {
			h.logger.Infof("Running %s://%s:%d", scheme, ip, port)
		}
	} else {
		h.logger.Infof("Server started at %s", host)
		h.logger.Infof("Running %s://%s:%d", scheme, host, port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if tls {
			errCh <- h.core.server.ListenAndServeTLS(certFile, keyFile)
		} else {
			errCh <- h.core.server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	return h.gracefulShutdown()
}

// gracefulShutdown 优雅关闭服务器，超时后强制关闭仍在传输的流
func (h *App) gracefulShutdown() error {
	h.logger.Infof("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), h.core.shutdownTimeout)
	defer cancel()
	if err := h.core.server.Shutdown(ctx); err != nil {
		h.logger.Warnf("graceful shutdown incomplete: %v", err)
		_ = h.core.server.Close()
	}
	h.logger.Infof("Server shutdown complete")
	return nil
}

type core struct {
	server          *http.Server
	shutdownTimeout time.Duration
	chains          []HandlersChain
	notFound        HandlersChain
	router          *Router
	contextPool     sync.Pool // 上下文池，复用ctx避免GC
}

func newCore(opts Options, logger *zap.SugaredLogger) *core {
	return &core{
		server: &http.Server{
			ReadTimeout:    opts.ReadTimeout,
			WriteTimeout:   opts.WriteTimeout,
			IdleTimeout:    opts.IdleTimeout,
			MaxHeaderBytes: 1 << 20, // 1MB
		},
		shutdownTimeout: opts.ShutdownTimeout,
		contextPool: sync.Pool{
			New: func() interface{} {
				return newContext(logger)
			},
		},
	}
}

// build 把全局中间件拼接到每条路由的处理器链前面
func (s *core) build(middlewares HandlersChain, router *Router) {
	s.router = router
	s.chains = make([]HandlersChain, len(router.chains))
	for i, chain := range router.chains {
		s.chains[i] = joinChains(middlewares, chain)
	}
	s.notFound = joinChains(middlewares, HandlersChain{HTTPNotFound})
}

// ServeHTTP 单routine处理HTTP请求
func (s *core) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	ctx := s.contextPool.Get().(*Context)
	ctx.Reset(writer, request)

	ctx.handlers = s.notFound
	if tree, ok := s.router.trees[request.Method]; ok {
		if h, params := tree.Find(request.URL.Path); h >= 0 {
			ctx.handlers = s.chains[h]
			ctx.params = params
		}
	}
	ctx.Next()

	ctx.Request, ctx.Writer = nil, nil
	ctx.rw.reset(nil)
	s.contextPool.Put(ctx)
}

func joinChains(a, b HandlersChain) HandlersChain {
	merged := make(HandlersChain, 0, len(a)+len(b))
	merged = append(merged, a...)
	return append(merged, b...)
}

func midToHandler(middlewares []Engine) HandlersChain {
	handlers := make(HandlersChain, 0, len(middlewares))
	for _, middleware := range middlewares {
		handlers = append(handlers, middleware.HandleHTTP)
	}
	return handlers
}

func parseAddress(addr string, https bool) (host string, port int, err error) {
	if addr == "" {
		if https {
			return "0.0.0.0", 443, nil
		}
		return "0.0.0.0", 80, nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, errors.New("invalid address " + addr + ": " + err.Error())
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, errors.New("invalid port " + portStr)
	}
	if port < 0 || port > 65535 {
		return "", 0, errors.New("port out of range (0-65535): " + portStr)
	}
	// ":8080" 监听所有地址
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, nil
}

func getAllIPs() []string {
	ipList := []string{"localhost"}
	ipSet := map[string]struct{}{"localhost": {}}

	interfaces, err := net.Interfaces()
	if err != nil {
		return ipList
	}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 || isVirtualInterface(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil {
				continue
			}
			if _, exists := ipSet[ip.String()]; !exists {
				ipSet[ip.String()] = struct{}{}
				ipList = append(ipList, ip.String())
			}
		}
	}
	return ipList
}

// isVirtualInterface 判断是否为虚拟网卡（Docker/VMware/桥接/隧道等）
func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, keyword := range []string{
		"virtual", "vmware", "vbox", "docker", "bridge",
		"tunnel", "hyper-v", "veth", "utun", "tap",
		"virbr", "kube-", "cni-", "wsl",
	} {
		if strings.Contains(lowerName, keyword) {
			return true
		}
	}
	return false
}
