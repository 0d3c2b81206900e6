package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/hwuu/sftpproxy/internal/config"
	"github.com/hwuu/sftpproxy/internal/keyvault"
	"github.com/hwuu/sftpproxy/internal/sshtest"
)

// 辅助函数：执行 CLI 命令并返回输出
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testIdentity(scope keyvault.Scope) ([]byte, error) {
	return []byte("cli-test|" + string(scope)), nil
}

func TestRootCommandHelp(t *testing.T) {
	output, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, s := range []string{"sftpproxy", "serve", "upload", "key", "cloud", "version"} {
		if !strings.Contains(output, s) {
			t.Errorf("help 输出缺少 %q\n实际输出:\n%s", s, output)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	output, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	for _, s := range []string{"sftpproxy", "commit:", "built:", "go:"} {
		if !strings.Contains(output, s) {
			t.Errorf("version 输出缺少 %q\n实际输出:\n%s", s, output)
		}
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"upload"},
		{"key", "protect"},
		{"key", "check"},
		{"cloud", "whoami"},
		{"cloud", "resolve"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("子命令 %v 未注册: %v", path, err)
		}
	}
}

func TestUploadRequiresHostAndUser(t *testing.T) {
	_, err := runCommand(t, "upload", "file.txt")
	if err == nil {
		t.Fatal("expected error when --host/--user missing")
	}
}

func TestKeyTool_ProtectAndCheck(t *testing.T) {
	dir := t.TempDir()
	_, keyPEM := sshtest.GenerateKey(t)
	src := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(src, keyPEM, 0600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "sealed", "id_rsa_openssh.dat")

	var output bytes.Buffer
	tool := &keyTool{
		Prompter: config.NewPrompter(strings.NewReader(""), &output),
		Output:   &output,
		Identity: testIdentity,
	}
	if err := tool.Protect(src, out, keyvault.ScopeMachine, false); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	if !strings.Contains(output.String(), "SHA256:") {
		t.Errorf("expected fingerprint in output, got %q", output.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read sealed file: %v", err)
	}
	if bytes.Contains(data, []byte("PRIVATE KEY")) {
		t.Error("sealed file must not contain the plaintext key")
	}

	output.Reset()
	if err := tool.Check(context.Background(), out); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !strings.Contains(output.String(), "ssh-ed25519") {
		t.Errorf("expected key type in output, got %q", output.String())
	}
}

func TestKeyTool_ProtectPassphraseKey(t *testing.T) {
	dir := t.TempDir()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(src, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "sealed.dat")

	var output bytes.Buffer
	tool := &keyTool{
		Prompter: config.NewPrompter(strings.NewReader("s3cret\n"), &output),
		Output:   &output,
		Identity: testIdentity,
	}
	if err := tool.Protect(src, out, keyvault.ScopeUser, false); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}

	key, err := (&keyvault.FileVault{Path: out, Identity: testIdentity}).LoadKey(context.Background())
	if err != nil {
		t.Fatalf("LoadKey failed: %v", err)
	}
	defer key.Wipe()
	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("sealed key is not usable without passphrase: %v", err)
	}
	want, _ := ssh.NewPublicKey(priv.Public())
	if ssh.FingerprintSHA256(signer.PublicKey()) != ssh.FingerprintSHA256(want) {
		t.Error("sealed key does not match the original")
	}
}

func TestKeyTool_ProtectWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	block, err := ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "id_ed25519")
	os.WriteFile(src, pem.EncodeToMemory(block), 0600)

	var output bytes.Buffer
	tool := &keyTool{
		Prompter: config.NewPrompter(strings.NewReader("wrong\n"), &output),
		Output:   &output,
		Identity: testIdentity,
	}
	out := filepath.Join(dir, "sealed.dat")
	if err := tool.Protect(src, out, keyvault.ScopeMachine, false); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Error("no sealed file should be written on failure")
	}
}

func TestKeyTool_ProtectDeclineOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, keyPEM := sshtest.GenerateKey(t)
	src := filepath.Join(dir, "id_ed25519")
	os.WriteFile(src, keyPEM, 0600)
	out := filepath.Join(dir, "sealed.dat")
	if err := os.WriteFile(out, []byte("existing"), 0600); err != nil {
		t.Fatal(err)
	}

	var output bytes.Buffer
	tool := &keyTool{
		Prompter: config.NewPrompter(strings.NewReader("n\n"), &output),
		Output:   &output,
		Identity: testIdentity,
	}
	if err := tool.Protect(src, out, keyvault.ScopeMachine, false); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "existing" {
		t.Error("existing sealed file must be kept when overwrite is declined")
	}
}

func TestKeyTool_CheckOtherHost(t *testing.T) {
	dir := t.TempDir()
	_, keyPEM := sshtest.GenerateKey(t)
	env, err := keyvault.Seal(keyPEM, keyvault.ScopeMachine, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "sealed.dat")
	if err := keyvault.WriteArtifact(out, env); err != nil {
		t.Fatal(err)
	}

	tool := &keyTool{
		Output: &bytes.Buffer{},
		Identity: func(scope keyvault.Scope) ([]byte, error) {
			return []byte("another-host"), nil
		},
	}
	if err := tool.Check(context.Background(), out); !errors.Is(err, keyvault.ErrKeyDecryptionFailed) {
		t.Errorf("expected ErrKeyDecryptionFailed, got %v", err)
	}
}

func TestResolveECSHost_PlainHost(t *testing.T) {
	got, err := resolveECSHost(context.Background(), "10.0.0.1")
	if err != nil || got != "10.0.0.1" {
		t.Errorf("resolveECSHost = %q, %v", got, err)
	}
}
