package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hwuu/sftpproxy/internal/upload"
)

func newUploadCmd() *cobra.Command {
	var (
		host       string
		port       int
		user       string
		remotePath string
		fileName   string
	)

	cmd := &cobra.Command{
		Use:   "upload <本地文件>",
		Short: "上传单个本地文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取本地文件失败: %w", err)
			}
			if fileName == "" {
				fileName = filepath.Base(args[0])
			}

			up, err := newUploader(s)
			if err != nil {
				return err
			}
			res, err := up.Upload(cmd.Context(), upload.Request{
				Host:       host,
				Port:       port,
				User:       user,
				RemotePath: remotePath,
				FileName:   fileName,
				Content:    content,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", upload.KindOf(err), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to %s (%d bytes)\n", res.Path, res.Bytes)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "远程主机（或 ecs:<实例 ID>）")
	cmd.Flags().IntVar(&port, "port", 22, "SSH 端口")
	cmd.Flags().StringVarP(&user, "user", "u", "", "SSH 用户名")
	cmd.Flags().StringVar(&remotePath, "remote-path", "", "远程目录，为空时上传到根目录")
	cmd.Flags().StringVar(&fileName, "name", "", "远程文件名（默认取本地文件名）")
	addSessionFlags(cmd)
	cmd.MarkFlagRequired("host")
	cmd.MarkFlagRequired("user")
	return cmd
}
