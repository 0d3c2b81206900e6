package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hwuu/sftpproxy/internal/alicloud"
	"github.com/hwuu/sftpproxy/internal/config"
	"github.com/hwuu/sftpproxy/internal/keyvault"
	"github.com/hwuu/sftpproxy/internal/logutil"
	"github.com/hwuu/sftpproxy/internal/remote"
	"github.com/hwuu/sftpproxy/internal/server"
	"github.com/hwuu/sftpproxy/internal/upload"
)

// loadSettings 从环境变量加载配置，再用命令行 flag 覆盖
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("key") {
		v, _ := flags.GetString("key")
		if s.KeyPath, err = config.ResolvePath(v); err != nil {
			return nil, err
		}
	}
	if flags.Changed("known-hosts") {
		v, _ := flags.GetString("known-hosts")
		if s.KnownHosts, err = config.ResolvePath(v); err != nil {
			return nil, err
		}
	}
	if flags.Changed("connect-timeout") {
		s.ConnectTimeout, _ = flags.GetDuration("connect-timeout")
	}
	if flags.Changed("io-timeout") {
		s.IOTimeout, _ = flags.GetDuration("io-timeout")
	}
	if flags.Changed("listen") {
		s.ListenAddr, _ = flags.GetString("listen")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// addSessionFlags 注册 serve 和 upload 共用的连接参数
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("key", "", "密封私钥路径（默认 $SFTPPROXY_KEY_PATH 或 ~/.sftpproxy/id_rsa_openssh.dat）")
	cmd.Flags().String("known-hosts", "", "known_hosts 文件路径，为空时不校验主机公钥")
	cmd.Flags().Duration("connect-timeout", 0, "建连和 SSH 握手超时（默认 10s）")
	cmd.Flags().Duration("io-timeout", 0, "建连后单次读写的空闲超时（默认 30s）")
}

// newUploader 按配置组装上传编排器
func newUploader(s *config.Settings) (*upload.Uploader, error) {
	hostKeyCallback, err := remote.HostKeyCallback(s.KnownHosts)
	if err != nil {
		return nil, err
	}
	if s.KnownHosts == "" {
		log.Println("[config] WARNING: KNOWN_HOSTS not set, remote host keys are not verified")
	}

	return &upload.Uploader{
		Keys:            keyvault.NewFileVault(s.KeyPath),
		Open:            remote.Open,
		Resolve:         resolveECSHost,
		ConnectTimeout:  s.ConnectTimeout,
		IOTimeout:       s.IOTimeout,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// resolveECSHost 只在目标写成 ecs:<实例 ID> 时才加载阿里云凭证
func resolveECSHost(ctx context.Context, host string) (string, error) {
	if !alicloud.IsECSHost(host) {
		return host, nil
	}
	cfg, err := alicloud.LoadConfig()
	if err != nil {
		return "", err
	}
	clients, err := alicloud.NewClients(cfg)
	if err != nil {
		return "", fmt.Errorf("初始化阿里云客户端失败: %w", err)
	}
	return clients.NewResolver(cfg.RegionID).Resolve(ctx, host)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务（POST /sftp/upload-json）",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			logFile, err := logutil.Init(s.LogPath)
			if err != nil {
				return err
			}
			defer logFile.Close()

			up, err := newUploader(s)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("[config] key=%s connect-timeout=%s io-timeout=%s", s.KeyPath, s.ConnectTimeout, s.IOTimeout)
			return server.Run(ctx, s.ListenAddr, server.NewRouter(up, s.MaxBodyBytes))
		},
	}
	cmd.Flags().String("listen", "", "监听地址（默认 $SFTPPROXY_LISTEN_ADDR 或 :8080）")
	addSessionFlags(cmd)
	return cmd
}
