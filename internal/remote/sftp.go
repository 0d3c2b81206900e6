package remote

import (
	"io"
)

// Session 一次上传所用的 SFTP 会话，只暴露上传流程需要的远程操作。
// 会话只用一次，上传结束（无论成败）后必须 Close。
type Session interface {
	// Exists 判断远程路径是否存在（文件或目录）
	Exists(path string) (bool, error)
	// IsDir 判断远程路径是否为已存在的目录
	IsDir(path string) (bool, error)
	// Mkdir 创建单级目录，父目录必须已存在
	Mkdir(path string) error
	// Upload 将 r 的内容写入远程文件，已存在则覆盖
	Upload(path string, r io.Reader) (int64, error)
	// Close 释放会话及底层 SSH 连接，可重复调用
	Close() error
}
