package upload

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidRequest 请求字段缺失或越界，不会发起任何连接
var ErrInvalidRequest = errors.New("invalid upload request")

// Request 一次上传请求，构造后只读、只使用一次
type Request struct {
	Host       string
	Port       int
	User       string
	RemotePath string
	FileName   string
	Content    []byte
}

// Validate 检查连接参数和文件名
func (r *Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Host) == "":
		return fmt.Errorf("%w: host is required", ErrInvalidRequest)
	case r.Port < 1 || r.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidRequest, r.Port)
	case strings.TrimSpace(r.User) == "":
		return fmt.Errorf("%w: user is required", ErrInvalidRequest)
	case r.FileName == "" || r.FileName == "." || r.FileName == "..":
		return fmt.Errorf("%w: invalid file name %q", ErrInvalidRequest, r.FileName)
	case strings.Contains(r.FileName, "/"):
		return fmt.Errorf("%w: file name %q must not contain '/'; put subdirectories in remotePath", ErrInvalidRequest, r.FileName)
	}
	return nil
}

// DestinationPath 计算远程文件的绝对路径。
// remotePath 为空、全空白或只由 / 组成时文件落在根目录；
// 否则去掉末尾的 / 再拼接文件名。相对路径按根目录处理。
func DestinationPath(remotePath, fileName string) string {
	if strings.TrimSpace(remotePath) == "" {
		return "/" + fileName
	}
	dir := strings.TrimRight(remotePath, "/")
	if dir == "" {
		return "/" + fileName
	}
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	return dir + "/" + fileName
}

// parentDir 返回需要预先创建的目录，根目录返回空
func parentDir(dest string) string {
	dir := path.Dir(dest)
	if dir == "/" || dir == "." {
		return ""
	}
	return dir
}
