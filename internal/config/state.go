// Package config 管理 sftpproxy 的运行配置、本地状态目录和 CLI 交互。
// 状态目录（~/.sftpproxy）存放密封后的 SSH 私钥和阿里云凭证，仅当前用户可访问。
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// 状态目录位于用户 home 下，密封私钥默认也放在这里
const (
	StateDirName    = ".sftpproxy"
	KeyArtifactName = "id_rsa_openssh.dat"
	StateDirPerm    = 0700
)

// GetStateDir 返回状态目录路径（~/.sftpproxy/）
func GetStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// EnsureStateDir 确保状态目录存在（权限 0700，仅当前用户可访问）
func EnsureStateDir() error {
	stateDir, err := GetStateDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(stateDir, StateDirPerm)
}

// DefaultKeyPath 返回密封私钥的默认路径（~/.sftpproxy/id_rsa_openssh.dat）
func DefaultKeyPath() (string, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, KeyArtifactName), nil
}

// ResolvePath 将 ~ 开头的路径展开为基于用户 home 目录的绝对路径
func ResolvePath(p string) (string, error) {
	if p != "~" && !hasHomePrefix(p) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

func hasHomePrefix(p string) bool {
	return len(p) >= 2 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator)
}
