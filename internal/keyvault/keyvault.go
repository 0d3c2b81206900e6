// Package keyvault 读取并解密用于 SFTP 认证的 SSH 私钥。
//
// 私钥以密封文件形式存放在运维预置的固定路径上：文件是一个 JSON 信封，内含 Fernet token，
// 加密密钥由本机 machine-id（user 作用域下再加上当前账号）经 Argon2id 派生。
// 密封文件被拷贝到其他机器或账号下无法解密。
package keyvault

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	ErrKeyUnavailable      = errors.New("key unavailable")
	ErrKeyDecryptionFailed = errors.New("key decryption failed")
)

// Loader 加载私钥，支持 mock 测试
type Loader interface {
	LoadKey(ctx context.Context) (*KeyMaterial, error)
}

// FileVault 从本地密封文件加载私钥，只读不写
type FileVault struct {
	Path     string
	Identity IdentityFunc // 为空时使用 HostIdentity
}

// NewFileVault 创建读取指定密封文件的 FileVault
func NewFileVault(path string) *FileVault {
	return &FileVault{Path: path}
}

// LoadKey 读取密封文件并解密。
// 文件缺失、不可读或格式无法识别返回 ErrKeyUnavailable；
// 无法在当前主机/账号作用域下解密返回 ErrKeyDecryptionFailed。
func (v *FileVault) LoadKey(ctx context.Context) (*KeyMaterial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(v.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: encrypted key file not found: %s", ErrKeyUnavailable, v.Path)
		}
		return nil, fmt.Errorf("%w: read encrypted key file %s: %v", ErrKeyUnavailable, v.Path, err)
	}

	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}

	identity := v.Identity
	if identity == nil {
		identity = HostIdentity
	}
	plaintext, err := Open(env, identity)
	if err != nil {
		return nil, err
	}
	return NewKeyMaterial(plaintext), nil
}
