package keyvault

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/argon2"
)

const (
	EnvelopeVersion = 1
	KDFArgon2id     = "argon2id"
)

// Argon2id 派生参数。密封文件只在每次上传时解一次，取偏保守的内存开销
const (
	argon2Iterations  = 1
	argon2Memory      = 64 // 单位 MiB，实际传给 argon2 时乘以 1024 转为 KiB
	argon2Parallelism = 4
	saltLength        = 16
)

// noExpiry 密封文件长期有效，跳过 Fernet token 的时间戳校验
const noExpiry = -1 * time.Second

// Envelope 密封文件内容，序列化为 JSON
type Envelope struct {
	Version int    `json:"version"`
	Scope   Scope  `json:"scope"`
	KDF     string `json:"kdf"`
	Salt    string `json:"salt"`  // base64
	Token   string `json:"token"` // Fernet token
}

// Seal 用当前主机/账号身份派生密钥，把 plaintext 密封为 Envelope
func Seal(plaintext []byte, scope Scope, identity IdentityFunc) (*Envelope, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	id, err := identity(scope)
	if err != nil {
		return nil, err
	}
	key := deriveKey(id, salt)

	tok, err := fernet.EncryptAndSign(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return &Envelope{
		Version: EnvelopeVersion,
		Scope:   scope,
		KDF:     KDFArgon2id,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Token:   string(tok),
	}, nil
}

// Open 解开 Envelope。派生密钥无法验证 token（换了机器/账号、被篡改、损坏）时返回 ErrKeyDecryptionFailed
func Open(env *Envelope, identity IdentityFunc) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: corrupted salt", ErrKeyDecryptionFailed)
	}

	id, err := identity(env.Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecryptionFailed, err)
	}
	key := deriveKey(id, salt)

	msg := fernet.VerifyAndDecrypt([]byte(env.Token), noExpiry, []*fernet.Key{key})
	if msg == nil {
		return nil, fmt.Errorf("%w: invalid token for %s scope on this host", ErrKeyDecryptionFailed, env.Scope)
	}
	return msg, nil
}

// ParseEnvelope 解析密封文件。不是本程序生成的文件或版本不支持时返回 ErrKeyUnavailable
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: unrecognized key file format", ErrKeyUnavailable)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported key file version %d", ErrKeyUnavailable, env.Version)
	}
	if env.KDF != KDFArgon2id {
		return nil, fmt.Errorf("%w: unsupported kdf %q", ErrKeyUnavailable, env.KDF)
	}
	if _, err := ParseScope(string(env.Scope)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	if env.Token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrKeyUnavailable)
	}
	return &env, nil
}

// WriteArtifact 将 Envelope 写入 path（自动创建目录，权限 0600）。仅供运维工具使用
func WriteArtifact(path string, env *Envelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

func deriveKey(identity, salt []byte) *fernet.Key {
	raw := argon2.IDKey(identity, salt, argon2Iterations, argon2Memory*1024, argon2Parallelism, 32)
	var k fernet.Key
	copy(k[:], raw)
	return &k
}
