// Package upload 编排一次完整的上传：加载私钥、建立会话、补齐远程目录、写入文件。
// 每次调用独占一个会话，任何返回路径上会话都会被关闭。
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/hwuu/sftpproxy/internal/keyvault"
	"github.com/hwuu/sftpproxy/internal/logutil"
	"github.com/hwuu/sftpproxy/internal/remote"
)

// HostResolver 把请求中的主机名解析为可拨号的地址（例如 ecs:<实例 ID>）
type HostResolver func(ctx context.Context, host string) (string, error)

// Result 上传成功后的结果
type Result struct {
	Path     string
	Bytes    int64
	UploadID string
}

// Uploader 上传编排器，零值字段使用默认实现
type Uploader struct {
	Keys    keyvault.Loader
	Open    remote.OpenFunc
	Resolve HostResolver

	ConnectTimeout  time.Duration
	IOTimeout       time.Duration
	HostKeyCallback ssh.HostKeyCallback
}

// Upload 把 req.Content 写到远程主机的 DestinationPath(req.RemotePath, req.FileName)。
// 错误按来源分类，可用 errors.Is 或 KindOf 判断，不做任何重试。
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	host := logutil.SanitizeForLog(req.Host)
	start := time.Now()

	// 1. 加载私钥；失败时不发起连接
	key, err := u.Keys.LoadKey(ctx)
	if err != nil {
		log.Printf("[upload %s] load key failed: %v", id, err)
		return nil, err
	}
	defer key.Wipe()
	if _, err := key.Signer(); err != nil {
		log.Printf("[upload %s] load key failed: %v", id, err)
		return nil, err
	}

	// 2. 建立会话
	addr, err := u.resolve(ctx, req.Host)
	if err != nil {
		log.Printf("[upload %s] resolve %s failed: %v", id, host, err)
		return nil, fmt.Errorf("%w: resolve %s: %v", remote.ErrConnectionFailed, host, err)
	}

	open := u.Open
	if open == nil {
		open = remote.Open
	}
	session, err := open(ctx, remote.DialOptions{
		Host:            addr,
		Port:            req.Port,
		User:            req.User,
		Key:             key,
		ConnectTimeout:  u.ConnectTimeout,
		IOTimeout:       u.IOTimeout,
		HostKeyCallback: u.HostKeyCallback,
	})
	key.Wipe()
	if err != nil {
		log.Printf("[upload %s] connect to %s:%d failed: %v", id, host, req.Port, err)
		return nil, err
	}
	defer session.Close()

	// 3. 补齐目标目录
	dest := DestinationPath(req.RemotePath, req.FileName)
	if dir := parentDir(dest); dir != "" {
		if err := remote.EnsureDirectory(session, dir); err != nil {
			log.Printf("[upload %s] ensure %s failed: %v", id, logutil.SanitizeForLog(dir), err)
			return nil, err
		}
	}

	// 4. 写入文件（覆盖已存在的文件）
	n, err := session.Upload(dest, bytes.NewReader(req.Content))
	if err != nil {
		log.Printf("[upload %s] write %s failed after %d bytes: %v", id, logutil.SanitizeForLog(dest), n, err)
		return nil, &PathError{Path: dest, Err: err}
	}

	log.Printf("[upload %s] %s:%s (%d bytes) in %s", id, host, logutil.SanitizeForLog(dest), n, time.Since(start).Round(time.Millisecond))
	return &Result{Path: dest, Bytes: n, UploadID: id}, nil
}

func (u *Uploader) resolve(ctx context.Context, host string) (string, error) {
	if u.Resolve == nil {
		return host, nil
	}
	return u.Resolve(ctx, host)
}
