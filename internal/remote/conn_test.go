package remote

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"
)

func TestDeadlineConn_IdleTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newDeadlineConn(client)
	conn.setIdleTimeout(50 * time.Millisecond)

	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDeadlineConn_ActivityExtendsDeadline(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newDeadlineConn(client)
	conn.setIdleTimeout(200 * time.Millisecond)

	// 每次间隔小于空闲超时，总时长超过空闲超时
	go func() {
		for i := 0; i < 4; i++ {
			time.Sleep(100 * time.Millisecond)
			server.Write([]byte{byte(i)})
		}
	}()

	buf := make([]byte, 1)
	for i := 0; i < 4; i++ {
		if _, err := conn.Read(buf); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
}

func TestDeadlineConn_Disabled(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newDeadlineConn(client)
	conn.setIdleTimeout(-1)

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := conn.Read(buf)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("read returned early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	server.Write([]byte{1})
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
