package remote

// ssh_impl.go 提供 SFTP 会话的真实实现（非 mock）：TCP 建连、公钥认证、sftp 子系统，
// 以及上传流程用到的 Stat/Mkdir/写文件操作。

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/hwuu/sftpproxy/internal/logutil"
)

// sftpSession 真实 SFTP 会话实现
type sftpSession struct {
	sftpClient *sftp.Client
	sshClient  *ssh.Client
	addr       string

	closeOnce sync.Once
	closeErr  error
}

// Open 建立到 opts.Host:opts.Port 的 SFTP 会话。
// 远端拒绝公钥返回 ErrAuthenticationFailed；网络、超时、握手或 sftp 子系统失败返回 ErrConnectionFailed。
// 任何失败路径上已建立的 TCP 连接都会被关闭。
func Open(ctx context.Context, opts DialOptions) (Session, error) {
	opts.withDefaults()

	signer, err := opts.Key.Signer()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: opts.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: opts.HostKeyCallback,
		Timeout:         opts.ConnectTimeout,
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnectionFailed, addr, err)
	}

	// 握手期间使用整体截止时间，ctx 取消时直接关闭连接打断握手
	conn := newDeadlineConn(rawConn)
	rawConn.SetDeadline(time.Now().Add(opts.ConnectTimeout))
	stop := context.AfterFunc(ctx, func() { rawConn.Close() })

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		stop()
		rawConn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: ssh handshake with %s: %v", ErrConnectionFailed, addr, ctxErr)
		}
		return nil, classifyHandshakeError(addr, err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if !stop() || ctx.Err() != nil {
		if err == nil {
			sftpClient.Close()
		}
		sshClient.Close()
		return nil, fmt.Errorf("%w: open sftp session with %s: %v", ErrConnectionFailed, addr, context.Cause(ctx))
	}
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("%w: start sftp subsystem on %s: %v", ErrConnectionFailed, addr, err)
	}

	// ssh 读循环此时已阻塞在下一次 Read 上，必须直接重置原始连接的截止时间
	conn.setIdleTimeout(opts.IOTimeout)
	if opts.IOTimeout > 0 {
		rawConn.SetDeadline(time.Now().Add(opts.IOTimeout))
	} else {
		rawConn.SetDeadline(time.Time{})
	}

	log.Printf("[remote] connected to %s as %s", logutil.SanitizeForLog(addr), logutil.SanitizeForLog(opts.User))
	return &sftpSession{
		sftpClient: sftpClient,
		sshClient:  sshClient,
		addr:       addr,
	}, nil
}

// classifyHandshakeError 区分认证失败和其他握手失败
func classifyHandshakeError(addr string, err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %s rejected the key: %v", ErrAuthenticationFailed, addr, err)
	}
	return fmt.Errorf("%w: ssh handshake with %s: %v", ErrConnectionFailed, addr, err)
}

func (s *sftpSession) Exists(path string) (bool, error) {
	_, err := s.sftpClient.Stat(path)
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *sftpSession) IsDir(path string) (bool, error) {
	fi, err := s.sftpClient.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

func (s *sftpSession) Mkdir(path string) error {
	return s.sftpClient.Mkdir(path)
}

// Upload 以截断方式打开远程文件并写入 r 的全部内容。
// 中途失败时远端可能残留不完整的文件。
func (s *sftpSession) Upload(path string, r io.Reader) (int64, error) {
	f, err := s.sftpClient.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("open remote file: %w", err)
	}

	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		return n, fmt.Errorf("write remote file: %w", err)
	}
	if closeErr != nil {
		return n, fmt.Errorf("close remote file: %w", closeErr)
	}
	return n, nil
}

// Close 先断开 SSH 传输层，sftp 接收循环随之退出，对端无响应时也不会阻塞
func (s *sftpSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.sshClient.Close()
		if errors.Is(s.closeErr, net.ErrClosed) {
			s.closeErr = nil
		}
		s.sftpClient.Close()
		log.Printf("[remote] disconnected from %s", logutil.SanitizeForLog(s.addr))
	})
	return s.closeErr
}

// isNotExist 兼容 pkg/sftp 归一化前后的两种“不存在”错误
func isNotExist(err error) bool {
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == uint32(sftp.ErrSSHFxNoSuchFile)
	}
	return false
}
