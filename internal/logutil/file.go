package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Init 把标准 log 同时输出到 stdout 和 path。
// path 为空时只输出到 stdout；返回的 Closer 在进程退出前关闭日志文件。
func Init(path string) (io.Closer, error) {
	return InitWith(os.Stdout, path)
}

// InitWith 同 Init，stdout 可替换（测试用）
func InitWith(stdout io.Writer, path string) (io.Closer, error) {
	if path == "" {
		log.SetOutput(stdout)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	log.SetOutput(io.MultiWriter(stdout, f))
	log.Printf("Logging to file: %s", path)
	return f, nil
}
