package remote

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed          = errors.New("authentication failed")
	ErrConnectionFailed              = errors.New("connection failed")
	ErrRemoteDirectoryCreationFailed = errors.New("remote directory creation failed")
)

// DirectoryError 某一级远程目录无法创建（已存在的情况不算）
type DirectoryError struct {
	Segment string
	Err     error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrRemoteDirectoryCreationFailed, e.Segment, e.Err)
}

func (e *DirectoryError) Unwrap() []error {
	return []error{ErrRemoteDirectoryCreationFailed, e.Err}
}
