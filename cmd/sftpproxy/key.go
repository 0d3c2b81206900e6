package main

import (
	"context"
	"crypto/ed25519"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/hwuu/sftpproxy/internal/config"
	"github.com/hwuu/sftpproxy/internal/keyvault"
)

// keyTool 运维侧的私钥密封工具，通过依赖注入支持测试
type keyTool struct {
	Prompter *config.Prompter
	Output   io.Writer
	Identity keyvault.IdentityFunc // 为空时使用 keyvault.HostIdentity
}

func (k *keyTool) printf(format string, args ...interface{}) {
	fmt.Fprintf(k.Output, format, args...)
}

func (k *keyTool) identity() keyvault.IdentityFunc {
	if k.Identity != nil {
		return k.Identity
	}
	return keyvault.HostIdentity
}

// Protect 读取 PEM/OpenSSH 私钥，必要时提示输入口令解开，再以 scope 密封写入 outPath
func (k *keyTool) Protect(srcPath, outPath string, scope keyvault.Scope, force bool) error {
	pemBytes, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("读取私钥失败: %w", err)
	}
	defer wipe(pemBytes)

	plain, err := k.decryptPEM(pemBytes)
	if err != nil {
		return err
	}
	defer wipe(plain)

	signer, err := ssh.ParsePrivateKey(plain)
	if err != nil {
		return fmt.Errorf("私钥格式无法识别: %w", err)
	}

	if _, err := os.Stat(outPath); err == nil && !force {
		ok, err := k.Prompter.PromptConfirm(fmt.Sprintf("%s 已存在，是否覆盖?", outPath), false)
		if err != nil {
			return err
		}
		if !ok {
			k.printf("已取消\n")
			return nil
		}
	}

	env, err := keyvault.Seal(plain, scope, k.identity())
	if err != nil {
		return fmt.Errorf("密封私钥失败: %w", err)
	}
	if err := keyvault.WriteArtifact(outPath, env); err != nil {
		return fmt.Errorf("写入密封文件失败: %w", err)
	}

	k.printf("  ✓ 已密封 %s 私钥 (%s)\n", signer.PublicKey().Type(), ssh.FingerprintSHA256(signer.PublicKey()))
	k.printf("  ✓ 写入 %s (作用域: %s)\n", outPath, scope)
	return nil
}

// decryptPEM 私钥带口令时提示输入并解开，返回不带口令的 PEM
func (k *keyTool) decryptPEM(pemBytes []byte) ([]byte, error) {
	_, err := ssh.ParseRawPrivateKey(pemBytes)
	if err == nil {
		return append([]byte(nil), pemBytes...), nil
	}
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("私钥格式无法识别: %w", err)
	}

	passphrase, err := k.Prompter.PromptPassword("请输入私钥口令: ")
	if err != nil {
		return nil, err
	}
	defer wipe(passphrase)

	raw, err := ssh.ParseRawPrivateKeyWithPassphrase(pemBytes, passphrase)
	if err != nil {
		return nil, fmt.Errorf("私钥口令错误: %w", err)
	}
	if p, ok := raw.(*ed25519.PrivateKey); ok {
		raw = *p
	}
	block, err := ssh.MarshalPrivateKey(raw, "")
	if err != nil {
		return nil, fmt.Errorf("转换私钥格式失败: %w", err)
	}
	return pem.EncodeToMemory(block), nil
}

// Check 加载密封文件并显示公钥指纹，不输出私钥内容
func (k *keyTool) Check(ctx context.Context, path string) error {
	vault := &keyvault.FileVault{Path: path, Identity: k.identity()}
	key, err := vault.LoadKey(ctx)
	if err != nil {
		return err
	}
	defer key.Wipe()

	signer, err := key.Signer()
	if err != nil {
		return err
	}
	k.printf("  ✓ %s 可在本机解密\n", path)
	k.printf("  类型: %s\n", signer.PublicKey().Type())
	k.printf("  指纹: %s\n", ssh.FingerprintSHA256(signer.PublicKey()))
	k.printf("  公钥: %s", ssh.MarshalAuthorizedKey(signer.PublicKey()))
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "管理密封的 SSH 私钥",
	}
	cmd.AddCommand(newKeyProtectCmd())
	cmd.AddCommand(newKeyCheckCmd())
	return cmd
}

func newKeyProtectCmd() *cobra.Command {
	var (
		out   string
		scope string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "protect <私钥文件>",
		Short: "把 SSH 私钥密封到本机（拷贝到其他机器无法解密）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load()
			if err != nil {
				return err
			}
			if out == "" {
				if err := config.EnsureStateDir(); err != nil {
					return err
				}
				out = s.KeyPath
			} else if out, err = config.ResolvePath(out); err != nil {
				return err
			}
			if scope == "" {
				scope = s.KeyScope
			}
			sc, err := keyvault.ParseScope(scope)
			if err != nil {
				return err
			}

			tool := &keyTool{
				Prompter: config.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
				Output:   cmd.OutOrStdout(),
			}
			return tool.Protect(args[0], out, sc, force)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "密封文件输出路径（默认 $SFTPPROXY_KEY_PATH 或 ~/.sftpproxy/id_rsa_openssh.dat）")
	cmd.Flags().StringVar(&scope, "scope", "", "密封作用域: machine | user（默认 $SFTPPROXY_KEY_SCOPE）")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "覆盖已存在的密封文件时不再确认")
	return cmd
}

func newKeyCheckCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "验证密封私钥可在本机解密并显示指纹",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load()
			if err != nil {
				return err
			}
			if path == "" {
				path = s.KeyPath
			} else if path, err = config.ResolvePath(path); err != nil {
				return err
			}
			tool := &keyTool{Output: cmd.OutOrStdout()}
			return tool.Check(cmd.Context(), path)
		},
	}
	cmd.Flags().StringVar(&path, "key", "", "密封私钥路径")
	return cmd
}
