// Package sshtest 提供测试用的进程内 SSH/SFTP 服务端和密钥生成工具。
// 服务端的文件系统是 sftp.InMemHandler，每个测试独立一份。
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// GenerateKey 生成 ED25519 密钥对，返回公钥和 PEM 编码的私钥
func GenerateKey(t testing.TB) (ssh.PublicKey, []byte) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("create ssh public key: %v", err)
	}
	return sshPub, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})
}

// Options 控制测试服务端的行为
type Options struct {
	// RejectSFTP 拒绝 sftp 子系统请求，模拟认证成功但协议协商失败
	RejectSFTP bool
	// FailMkdir 对指定路径的 Mkdir 返回该错误（在真正创建之前）
	FailMkdir map[string]error
	// BeforeMkdir 在处理 Mkdir 之前调用，可用于模拟并发创建
	BeforeMkdir func(s *Server, path string)
}

// Server 进程内 SSH 服务端，只接受 authorizedKey 认证，提供 sftp 子系统
type Server struct {
	Host    string
	Port    int
	HostKey ssh.PublicKey

	opts     Options
	mem      sftp.Handlers
	listener net.Listener
	wg       sync.WaitGroup

	mu           sync.Mutex
	conns        map[net.Conn]struct{}
	authAttempts int
	connections  int
	active       int
	mkdirs       []string
	ops          []string
}

// NewServer 启动测试服务端，测试结束时自动关闭
func NewServer(t testing.TB, authorizedKey ssh.PublicKey, opts Options) *Server {
	t.Helper()

	hostPub, hostPEM := GenerateKey(t)
	hostSigner, err := ssh.ParsePrivateKey(hostPEM)
	if err != nil {
		t.Fatalf("parse host key: %v", err)
	}

	s := &Server{
		HostKey: hostPub,
		opts:    opts,
		mem:     sftp.InMemHandler(),
		conns:   make(map[net.Conn]struct{}),
	}

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.mu.Lock()
			s.authAttempts++
			s.mu.Unlock()
			if authorizedKey != nil && ssh.FingerprintSHA256(key) == ssh.FingerprintSHA256(authorizedKey) {
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("unknown public key")
		},
	}
	cfg.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.listener = listener
	host, port, _ := net.SplitHostPort(listener.Addr().String())
	s.Host = host
	s.Port, _ = strconv.Atoi(port)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			netConn, err := listener.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConn(netConn, cfg)
			}()
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
	return s
}

func (s *Server) handleConn(netConn net.Conn, cfg *ssh.ServerConfig) {
	s.mu.Lock()
	s.connections++
	s.active++
	s.conns[netConn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		delete(s.conns, netConn)
		s.mu.Unlock()
	}()

	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, cfg)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	for req := range requests {
		if req.Type != "subsystem" || len(req.Payload) < 4 || string(req.Payload[4:]) != "sftp" || s.opts.RejectSFTP {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}
		if req.WantReply {
			req.Reply(true, nil)
		}
		go ssh.DiscardRequests(requests)

		handlers := sftp.Handlers{
			FileGet:  s.mem.FileGet,
			FilePut:  &recordingPut{s: s, next: s.mem.FilePut},
			FileCmd:  &recordingCmd{s: s, next: s.mem.FileCmd},
			FileList: &recordingList{s: s, next: s.mem.FileList},
		}
		server := sftp.NewRequestServer(ch, handlers)
		server.Serve()
		server.Close()
		return
	}
}

// AuthAttempts 返回公钥认证尝试次数
func (s *Server) AuthAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authAttempts
}

// Connections 返回累计接受的 TCP 连接数
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// ActiveConnections 返回尚未断开的连接数
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// WaitIdle 等待所有连接断开，超时则终止测试
func (s *Server) WaitIdle(t testing.TB, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for s.ActiveConnections() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d connection(s) still open after %v", s.ActiveConnections(), timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Mkdirs 返回按顺序收到的 Mkdir 路径
func (s *Server) Mkdirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mkdirs...)
}

// Ops 返回除 Stat 以外的所有文件操作（方法 + 路径）
func (s *Server) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *Server) record(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, method+" "+path)
	if method == "Mkdir" {
		s.mkdirs = append(s.mkdirs, path)
	}
}

// CreateDir 绕过 SSH 直接在内存文件系统中创建目录
func (s *Server) CreateDir(path string) error {
	return s.mem.FileCmd.Filecmd(sftp.NewRequest("Mkdir", path))
}

// Mkdir 同 CreateDir，失败时终止测试
func (s *Server) Mkdir(t testing.TB, path string) {
	t.Helper()
	if err := s.CreateDir(path); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

// WriteFile 绕过 SSH 直接在内存文件系统中写入文件
func (s *Server) WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	req := sftp.NewRequest("Put", path)
	req.Flags = sshFxfWrite | sshFxfCreat | sshFxfTrunc
	w, err := s.mem.FilePut.Filewrite(req)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := w.WriteAt(data, 0); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile 绕过 SSH 直接读取内存文件系统中的文件
func (s *Server) ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	req := sftp.NewRequest("Get", path)
	req.Flags = sshFxfRead
	r, err := s.mem.FileGet.Fileread(req)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	buf := make([]byte, 1<<20)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		t.Fatalf("read %s: %v", path, err)
	}
	return buf[:n]
}

// IsDir 判断内存文件系统中 path 是否为目录
func (s *Server) IsDir(path string) bool {
	lister, err := s.mem.FileList.Filelist(sftp.NewRequest("Stat", path))
	if err != nil {
		return false
	}
	infos := make([]os.FileInfo, 1)
	n, _ := lister.ListAt(infos, 0)
	return n == 1 && infos[0].IsDir()
}

// SSH_FXF_* 打开标志
const (
	sshFxfRead  = 0x00000001
	sshFxfWrite = 0x00000002
	sshFxfCreat = 0x00000008
	sshFxfTrunc = 0x00000010
)

type recordingCmd struct {
	s    *Server
	next sftp.FileCmder
}

func (c *recordingCmd) Filecmd(r *sftp.Request) error {
	c.s.record(r.Method, r.Filepath)
	if r.Method == "Mkdir" {
		if c.s.opts.BeforeMkdir != nil {
			c.s.opts.BeforeMkdir(c.s, r.Filepath)
		}
		if err, ok := c.s.opts.FailMkdir[r.Filepath]; ok {
			return err
		}
	}
	return c.next.Filecmd(r)
}

type recordingPut struct {
	s    *Server
	next sftp.FileWriter
}

func (p *recordingPut) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	p.s.record(r.Method, r.Filepath)
	return p.next.Filewrite(r)
}

type recordingList struct {
	s    *Server
	next sftp.FileLister
}

func (l *recordingList) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	if r.Method != "Stat" && r.Method != "Lstat" {
		l.s.record(r.Method, r.Filepath)
	}
	return l.next.Filelist(r)
}
