package route

import (
	"strings"
)

type nodeType uint8

const (
	static   nodeType = iota // 静态节点
	root                     // 根节点
	param                    // 参数节点，如 :id
	catchAll                 // 通配符节点，如 *path
)

// Params 路径参数
type Params map[string]string

// ByName 获取参数值
func (ps Params) ByName(name string) string {
	return ps[name]
}

// Node 路由树节点，每个HTTP方法一棵树
type Node struct {
	segment   string           // 路径片段
	indices   map[string]*Node // 静态子节点索引
	children  []*Node          // 参数/通配符子节点，按注册顺序
	handle    int              // 处理器链下标，-1表示非终点
	nType     nodeType
	paramName string // :id → id；*path → path
}

// NewTree 创建根节点
func NewTree() *Node {
	return &Node{
		indices: make(map[string]*Node),
		handle:  -1,
		nType:   root,
	}
}

// Insert 注册路径，handle 为处理器链下标；同一路径重复注册时覆盖
func (n *Node) Insert(path string, handle int) {
	current := n
	for _, part := range splitPath(path) {
		current = current.child(part)
		if current.nType == catchAll {
			// 通配符必须位于末尾
			break
		}
	}
	current.handle = handle
}

func (n *Node) child(part string) *Node {
	switch part[0] {
	case ':', '*':
		for _, c := range n.children {
			if c.segment == part {
				return c
			}
		}
		c := &Node{
			segment:   part,
			indices:   make(map[string]*Node),
			handle:    -1,
			nType:     param,
			paramName: part[1:],
		}
		if part[0] == '*' {
			c.nType = catchAll
		}
		n.children = append(n.children, c)
		return c
	default:
		if c, ok := n.indices[part]; ok {
			return c
		}
		c := &Node{
			segment: part,
			indices: make(map[string]*Node),
			handle:  -1,
			nType:   static,
		}
		n.indices[part] = c
		return c
	}
}

// Find 查找路径：优先静态匹配，再参数，最后通配符。未命中返回 -1
func (n *Node) Find(path string) (int, Params) {
	params := Params{}
	if h := n.find(splitPath(path), params); h >= 0 {
		return h, params
	}
	return -1, nil
}

func (n *Node) find(parts []string, params Params) int {
	if len(parts) == 0 {
		if n.handle >= 0 {
			return n.handle
		}
		// 允许 /static/ 命中 /static/*filepath
		for _, c := range n.children {
			if c.nType == catchAll && c.handle >= 0 {
				params[c.paramName] = ""
				return c.handle
			}
		}
		return -1
	}

	part := parts[0]
	if c, ok := n.indices[part]; ok {
		if h := c.find(parts[1:], params); h >= 0 {
			return h
		}
	}
	for _, c := range n.children {
		switch c.nType {
		case param:
			if h := c.find(parts[1:], params); h >= 0 {
				params[c.paramName] = part
				return h
			}
		case catchAll:
			if c.handle >= 0 {
				params[c.paramName] = strings.Join(parts, "/")
				return c.handle
			}
		}
	}
	return -1
}

// splitPath 分割路径
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
