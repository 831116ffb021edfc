package flog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotatingFile 按大小轮转的日志文件，实现 zapcore.WriteSyncer
type RotatingFile struct {
	path    string
	maxSize int64
	mu      sync.Mutex
	file    *os.File
	size    int64
	now     func() time.Time
}

// NewRotatingFile 打开（必要时创建）日志文件
func NewRotatingFile(path string, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	rf := &RotatingFile{path: path, maxSize: maxSize, now: time.Now}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	file, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	rf.file = file
	rf.size = info.Size()
	return nil
}

// Write 写入前检查大小，超过上限先轮转
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.maxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// rotate 调用方需持有锁
func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("close current log file: %w", err)
	}
	backup := fmt.Sprintf("%s.%s", rf.path, rf.now().Format("2006-01-02T15-04-05.000"))
	if err := os.Rename(rf.path, backup); err != nil {
		if reopenErr := rf.open(); reopenErr != nil {
			return fmt.Errorf("reopen log file after failed rotation: %v, original error: %w", reopenErr, err)
		}
		return fmt.Errorf("rotate log file: %w", err)
	}
	return rf.open()
}

// Sync 刷盘
func (rf *RotatingFile) Sync() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.file.Sync()
}

// Close 关闭文件
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.file.Close()
}
