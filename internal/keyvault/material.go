package keyvault

import (
	"fmt"

	"golang.org/x/crypto/ssh"
)

// KeyMaterial 解密后的私钥字节，只在一次上传期间驻留内存。
// 打印时不会输出内容；用完后调用 Wipe 清零。
type KeyMaterial struct {
	b []byte
}

// NewKeyMaterial 接管 b 的所有权，调用方不应再使用 b
func NewKeyMaterial(b []byte) *KeyMaterial {
	return &KeyMaterial{b: b}
}

// Signer 将私钥解析为 SSH 签名器。
// 解密出的内容不是合法私钥（损坏或仍带口令）视为 ErrKeyDecryptionFailed。
func (k *KeyMaterial) Signer() (ssh.Signer, error) {
	if k == nil || len(k.b) == 0 {
		return nil, fmt.Errorf("%w: empty key material", ErrKeyDecryptionFailed)
	}
	signer, err := ssh.ParsePrivateKey(k.b)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrKeyDecryptionFailed, err)
	}
	return signer, nil
}

// Len 返回私钥字节数
func (k *KeyMaterial) Len() int {
	if k == nil {
		return 0
	}
	return len(k.b)
}

// Wipe 清零私钥字节，可重复调用
func (k *KeyMaterial) Wipe() {
	if k == nil {
		return
	}
	for i := range k.b {
		k.b[i] = 0
	}
	k.b = nil
}

func (k *KeyMaterial) String() string {
	return "KeyMaterial(redacted)"
}

func (k *KeyMaterial) GoString() string {
	return k.String()
}
