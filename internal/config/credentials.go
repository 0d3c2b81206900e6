package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	CredentialsFileName = "credentials"
)

// Credentials 阿里云凭证，仅在目标主机写成 ecs:<实例 ID> 时使用
type Credentials struct {
	AccessKeyID     string
	AccessKeySecret string
	Region          string
}

// LoadCredentials 从 ~/.sftpproxy/credentials 文件加载凭证
func LoadCredentials() (*Credentials, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return nil, err
	}
	return LoadCredentialsFrom(filepath.Join(stateDir, CredentialsFileName))
}

// LoadCredentialsFrom 从指定路径加载凭证文件
func LoadCredentialsFrom(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("凭证文件不存在: %s", path)
		}
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	defer f.Close()

	return ParseCredentials(f)
}

// ParseCredentials 解析 key=value 格式的凭证（只取第一个 = 分割，# 开头为注释）
func ParseCredentials(r io.Reader) (*Credentials, error) {
	kv := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}

	cred := &Credentials{
		AccessKeyID:     kv["access_key_id"],
		AccessKeySecret: kv["access_key_secret"],
		Region:          kv["region"],
	}

	if cred.AccessKeyID == "" {
		return nil, fmt.Errorf("凭证文件缺少 access_key_id")
	}
	if cred.AccessKeySecret == "" {
		return nil, fmt.Errorf("凭证文件缺少 access_key_secret")
	}

	return cred, nil
}
