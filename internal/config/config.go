// Package config loads avatargo settings. Precedence, lowest first:
// defaults, YAML file, AVATARGO_* environment variables, command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/miyingqi/avatargo/internal/stream"
)

const envPrefix = "AVATARGO_"

// Server HTTP服务配置
type Server struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"` // 0表示不限制，避免长视频流被截断
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CertFile     string        `yaml:"cert_file"`
	KeyFile      string        `yaml:"key_file"`
}

// Media 视频文件配置
type Media struct {
	BaseDir        string `yaml:"base_dir"`
	VideosDir      string `yaml:"videos_dir"` // 为空则使用 {base_dir}/static/videos
	DefaultChunkKB int    `yaml:"default_chunk_kb"`
	RateLimit      int    `yaml:"rate_limit"` // 每个流每秒字节数，0不限速
}

// Log 日志配置
type Log struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	MaxFileSize int64  `yaml:"max_file_size"`
	Color       bool   `yaml:"color"`
}

// CORS 跨域配置
type CORS struct {
	AllowOrigins []string `yaml:"allow_origins"`
	MaxAge       int      `yaml:"max_age"`
}

// Config 全部配置
type Config struct {
	Server Server `yaml:"server"`
	Media  Media  `yaml:"media"`
	Log    Log    `yaml:"log"`
	CORS   CORS   `yaml:"cors"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Server: Server{
			Addr:        ":8080",
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 30 * time.Second,
		},
		Media: Media{
			BaseDir:        ".",
			DefaultChunkKB: stream.DefaultChunkKB,
		},
		Log: Log{
			Level:       "INFO",
			MaxFileSize: 10 * 1024 * 1024,
			Color:       true,
		},
		CORS: CORS{
			AllowOrigins: []string{"*"},
			MaxAge:       600,
		},
	}
}

// VideosDir 返回视频目录
func (c Config) VideosDir() string {
	if c.Media.VideosDir != "" {
		return c.Media.VideosDir
	}
	return filepath.Join(c.Media.BaseDir, "static", "videos")
}

// Validate 检查配置合法性
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert_file and server.key_file must be set together"))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if !stream.AllowedChunkKB(c.Media.DefaultChunkKB) {
		errs = append(errs, fmt.Errorf("media.default_chunk_kb %d is not an allowed chunk size", c.Media.DefaultChunkKB))
	}
	if c.Media.RateLimit < 0 {
		errs = append(errs, errors.New("media.rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadFile 在 cfg 之上合并 YAML 文件
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv 用环境变量覆盖配置，lookup 一般为 os.LookupEnv
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &cfg.Server.Addr)
	dur("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	dur("IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	str("CERT_FILE", &cfg.Server.CertFile)
	str("KEY_FILE", &cfg.Server.KeyFile)
	str("BASE_DIR", &cfg.Media.BaseDir)
	str("VIDEOS_DIR", &cfg.Media.VideosDir)
	num("DEFAULT_CHUNK_KB", &cfg.Media.DefaultChunkKB)
	num("RATE_LIMIT", &cfg.Media.RateLimit)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	if v, ok := lookup(envPrefix + "CORS_ORIGINS"); ok {
		cfg.CORS.AllowOrigins = splitList(v)
	}
	return errors.Join(errs...)
}

// Load 解析命令行参数并按优先级合并所有配置来源
func Load(args []string, lookup func(string) (string, bool)) (Config, error) {
	fs := flag.NewFlagSet("avatargo", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", "", "listen address, e.g. :8080")
	baseDir := fs.String("base-dir", "", "base directory holding static/videos")
	videosDir := fs.String("videos-dir", "", "directory holding avatar-{state}.mp4")
	logLevel := fs.String("log-level", "", "DEBUG, INFO, WARN, ERROR or FATAL")
	logFile := fs.String("log-file", "", "also write logs to this file")
	chunkKB := fs.Int("chunk-kb", 0, "default read chunk size in KB")
	rateLimit := fs.Int("rate-limit", -1, "per-stream bytes per second, 0 for unlimited")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *configPath == "" {
		if v, ok := lookup(envPrefix + "CONFIG"); ok {
			*configPath = v
		}
	}
	if *configPath != "" {
		if err := LoadFile(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *baseDir != "" {
		cfg.Media.BaseDir = *baseDir
	}
	if *videosDir != "" {
		cfg.Media.VideosDir = *videosDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *chunkKB != 0 {
		cfg.Media.DefaultChunkKB = *chunkKB
	}
	if *rateLimit >= 0 {
		cfg.Media.RateLimit = *rateLimit
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
