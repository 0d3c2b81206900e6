package remote

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/hwuu/sftpproxy/internal/keyvault"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultIOTimeout      = 30 * time.Second
)

// DialOptions 建立一次 SFTP 会话所需的参数
type DialOptions struct {
	Host string
	Port int
	User string
	Key  *keyvault.KeyMaterial

	// ConnectTimeout 覆盖 TCP 建连和 SSH 握手
	ConnectTimeout time.Duration
	// IOTimeout 建连后单次读写的空闲超时，负数表示不限制
	IOTimeout time.Duration
	// HostKeyCallback 为空时不校验主机公钥
	HostKeyCallback ssh.HostKeyCallback
}

func (o *DialOptions) withDefaults() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.IOTimeout == 0 {
		o.IOTimeout = DefaultIOTimeout
	}
	if o.HostKeyCallback == nil {
		o.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
}

// OpenFunc 建立 SFTP 会话的函数类型，测试中可替换为 mock
type OpenFunc func(ctx context.Context, opts DialOptions) (Session, error)

// HostKeyCallback 根据 known_hosts 文件构造主机公钥校验函数。
// path 为空时接受任意主机公钥。
func HostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", path, err)
	}
	return cb, nil
}
