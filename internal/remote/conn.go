package remote

import (
	"net"
	"sync/atomic"
	"time"
)

// deadlineConn 每次读写前把截止时间顺延 idle，实现“空闲超时”而不是整体超时。
// idle 为 0 时不做任何处理，握手阶段由调用方设置整体截止时间。
type deadlineConn struct {
	net.Conn
	idle atomic.Int64
}

func newDeadlineConn(c net.Conn) *deadlineConn {
	return &deadlineConn{Conn: c}
}

func (c *deadlineConn) setIdleTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.idle.Store(int64(d))
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if d := time.Duration(c.idle.Load()); d > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(d))
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if d := time.Duration(c.idle.Load()); d > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(d))
	}
	return c.Conn.Write(b)
}
