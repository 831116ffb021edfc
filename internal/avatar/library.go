// Package avatar serves the avatar state videos stored as
// {videos_dir}/avatar-{state}.mp4.
package avatar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/miyingqi/avatargo/internal/stream"
)

var (
	ErrInvalidState  = errors.New("invalid avatar state")
	ErrVideoNotFound = errors.New("video file not found")
)

// State 头像动画状态
type State string

const (
	Nodding  State = "nodding"
	Speaking State = "speaking"
)

// States 所有合法状态，顺序用于页面展示
var States = []State{Nodding, Speaking}

// ParseState 校验 state 参数
func ParseState(s string) (State, error) {
	for _, st := range States {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// FileName 视频文件名
func (s State) FileName() string {
	return "avatar-" + string(s) + ".mp4"
}

// Library 以固定目录为根的视频库
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

func (l *Library) Dir() string { return l.dir }

// Video 查找状态对应的视频；文件不存在或不是普通文件时返回 ErrVideoNotFound
func (l *Library) Video(state State) (*Video, error) {
	path := filepath.Join(l.dir, state.FileName())
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, state.FileName())
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, state.FileName())
	}
	return &Video{path: path, name: state.FileName(), size: info.Size()}, nil
}

// Video 磁盘上的视频文件，实现 avatargo.RangeReader
type Video struct {
	path string
	name string
	size int64
}

func (v *Video) Size() int64 { return v.size }

func (v *Video) Name() string { return v.name }

func (v *Video) ContentType() string { return "video/mp4" }

func (v *Video) Open() (stream.Resource, error) {
	f, err := os.Open(v.path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
