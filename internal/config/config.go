package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix 所有环境变量的前缀，例如 SFTPPROXY_KEY_PATH
const EnvPrefix = "SFTPPROXY"

// Settings 运行配置，从环境变量加载，CLI flag 可覆盖
type Settings struct {
	ListenAddr     string        `envconfig:"LISTEN_ADDR" default:":8080"`
	KeyPath        string        `envconfig:"KEY_PATH" default:""` // 空表示 ~/.sftpproxy/id_rsa_openssh.dat
	KeyScope       string        `envconfig:"KEY_SCOPE" default:"machine"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	IOTimeout      time.Duration `envconfig:"IO_TIMEOUT" default:"30s"`
	MaxBodyBytes   int64         `envconfig:"MAX_BODY_BYTES" default:"100000000"`
	KnownHosts     string        `envconfig:"KNOWN_HOSTS" default:""` // 空表示不校验主机公钥
	LogPath        string        `envconfig:"LOG_PATH" default:""`
}

// Load 从环境变量加载配置，并把 KeyPath 解析为绝对路径
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := s.resolvePaths(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) resolvePaths() error {
	if s.KeyPath == "" {
		p, err := DefaultKeyPath()
		if err != nil {
			return err
		}
		s.KeyPath = p
	}

	var err error
	if s.KeyPath, err = ResolvePath(s.KeyPath); err != nil {
		return err
	}
	if s.KnownHosts, err = ResolvePath(s.KnownHosts); err != nil {
		return err
	}
	if s.LogPath, err = ResolvePath(s.LogPath); err != nil {
		return err
	}
	return nil
}

// Validate 检查配置取值范围
func (s *Settings) Validate() error {
	if s.ConnectTimeout < 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must not be negative")
	}
	if s.IOTimeout < 0 {
		return fmt.Errorf("IO_TIMEOUT must not be negative")
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}
