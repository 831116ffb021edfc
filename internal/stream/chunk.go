package stream

import "strconv"

// DefaultChunkKB 默认读取粒度（KB）
const DefaultChunkKB = 200

// DefaultChunkSize 默认读取粒度（字节）
const DefaultChunkSize = DefaultChunkKB * 1024

// allowedChunkKB 允许客户端选择的读取粒度白名单
var allowedChunkKB = map[int]struct{}{
	100: {}, 200: {}, 300: {}, 400: {}, 500: {},
	600: {}, 700: {}, 800: {}, 900: {}, 1024: {},
}

// AllowedChunkKB reports whether kb is in the chunk-size allow-list.
func AllowedChunkKB(kb int) bool {
	_, ok := allowedChunkKB[kb]
	return ok
}

// ParseChunkSize maps a chunk_size query value in KB to a byte count. Values
// outside the allow-list, including garbage, fall back to fallbackKB, and to
// DefaultChunkKB if fallbackKB is not allowed either.
func ParseChunkSize(raw string, fallbackKB int) int {
	if !AllowedChunkKB(fallbackKB) {
		fallbackKB = DefaultChunkKB
	}
	if raw == "" {
		return fallbackKB * 1024
	}
	kb, err := strconv.Atoi(raw)
	if err != nil || !AllowedChunkKB(kb) {
		return fallbackKB * 1024
	}
	return kb * 1024
}
