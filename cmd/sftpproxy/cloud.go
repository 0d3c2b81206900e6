package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hwuu/sftpproxy/internal/alicloud"
)

func newCloudCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "阿里云相关操作（用于 ecs:<实例 ID> 目标）",
	}
	cmd.AddCommand(newCloudWhoamiCmd())
	cmd.AddCommand(newCloudResolveCmd())
	return cmd
}

func newCloudWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "验证阿里云凭证并显示账号信息",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := alicloud.LoadConfig()
			if err != nil {
				return err
			}
			clients, err := alicloud.NewClients(cfg)
			if err != nil {
				return fmt.Errorf("初始化阿里云客户端失败: %w", err)
			}
			identity, err := alicloud.GetCallerIdentity(clients.STS)
			if err != nil {
				return fmt.Errorf("阿里云凭证验证失败: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  ✓ 阿里云账号: %s (UID: %s)\n", identity.AccountID, identity.UserID)
			fmt.Fprintf(out, "  ARN:    %s\n", identity.ARN)
			fmt.Fprintf(out, "  Region: %s\n", cfg.RegionID)
			return nil
		},
	}
}

func newCloudResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ecs:<实例 ID>",
		Short: "显示 ecs: 目标解析出的连接地址",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := resolveECSHost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}
