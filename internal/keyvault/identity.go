package keyvault

import (
	"fmt"
	"os/user"

	"github.com/denisbrodbeck/machineid"
)

// appID 参与 machine-id 的 HMAC，避免直接暴露原始 machine-id
const appID = "sftpproxy"

// Scope 密封作用域，对应“本机任意账号可解密”和“仅本机当前账号可解密”两种保护级别
type Scope string

const (
	ScopeMachine Scope = "machine"
	ScopeUser    Scope = "user"
)

// ParseScope 解析作用域名称（空字符串视为 machine）
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeMachine:
		return ScopeMachine, nil
	case ScopeUser:
		return ScopeUser, nil
	}
	return "", fmt.Errorf("unknown key scope %q (expected machine or user)", s)
}

// IdentityFunc 返回派生加密密钥所用的主机/账号身份材料
type IdentityFunc func(scope Scope) ([]byte, error)

// HostIdentity 读取本机 machine-id；user 作用域追加当前账号的 uid 和用户名
func HostIdentity(scope Scope) ([]byte, error) {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		return nil, fmt.Errorf("read machine id: %w", err)
	}

	switch scope {
	case ScopeMachine:
		return []byte(id), nil
	case ScopeUser:
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("read current user: %w", err)
		}
		return []byte(id + "|" + u.Uid + "|" + u.Username), nil
	}
	return nil, fmt.Errorf("unknown key scope %q", scope)
}
