package upload

import (
	"errors"
	"fmt"

	"github.com/hwuu/sftpproxy/internal/keyvault"
	"github.com/hwuu/sftpproxy/internal/remote"
)

// ErrUploadFailed 目录已就绪但文件内容无法写入目标路径
var ErrUploadFailed = errors.New("upload failed")

// PathError 写入 Path 失败
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrUploadFailed, e.Path, e.Err)
}

func (e *PathError) Unwrap() []error {
	return []error{ErrUploadFailed, e.Err}
}

// Kind 上传失败的分类，调用方据此决定如何呈现错误
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindKeyUnavailable
	KindKeyDecryptionFailed
	KindAuthenticationFailed
	KindConnectionFailed
	KindRemoteDirectoryCreationFailed
	KindUploadFailed
)

var kindNames = map[Kind]string{
	KindUnknown:                       "Unknown",
	KindInvalidRequest:                "InvalidRequest",
	KindKeyUnavailable:                "KeyUnavailable",
	KindKeyDecryptionFailed:           "KeyDecryptionFailed",
	KindAuthenticationFailed:          "AuthenticationFailed",
	KindConnectionFailed:              "ConnectionFailed",
	KindRemoteDirectoryCreationFailed: "RemoteDirectoryCreationFailed",
	KindUploadFailed:                  "UploadFailed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf 返回 err 所属的分类，nil 返回 KindUnknown
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, keyvault.ErrKeyUnavailable):
		return KindKeyUnavailable
	case errors.Is(err, keyvault.ErrKeyDecryptionFailed):
		return KindKeyDecryptionFailed
	case errors.Is(err, remote.ErrAuthenticationFailed):
		return KindAuthenticationFailed
	case errors.Is(err, remote.ErrConnectionFailed):
		return KindConnectionFailed
	case errors.Is(err, remote.ErrRemoteDirectoryCreationFailed):
		return KindRemoteDirectoryCreationFailed
	case errors.Is(err, ErrUploadFailed):
		return KindUploadFailed
	}
	return KindUnknown
}
