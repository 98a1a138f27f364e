//go:build linux

// Package unixfd 将非阻塞的 Unix 描述符（管道、套接字对等）包装为 network.Endpoint。
package unixfd

import (
	"errors"
	"io"
	"os"

	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
	"golang.org/x/sys/unix"
)

var _ network.Endpoint = (*Endpoint)(nil)

// Endpoint 实现基于 Unix 描述符的非阻塞端点。
type Endpoint struct {
	fd     int
	closed bool
}

// New 将描述符置为非阻塞模式并包装为端点，端点关闭时一并关闭描述符。
func New(fd int) (*Endpoint, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, os.NewSyscallError("setnonblock", err)
	}
	return &Endpoint{fd: fd}, nil
}

// Pipe 创建一对非阻塞管道端点，r 只读，w 只写。
func Pipe() (r, w *Endpoint, err error) {
	var fds [2]int
	if err = unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, nil, os.NewSyscallError("pipe2", err)
	}
	return &Endpoint{fd: fds[0]}, &Endpoint{fd: fds[1]}, nil
}

// Socketpair 创建一对相连的非阻塞双工流式套接字端点。
func Socketpair() (a, b *Endpoint, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, os.NewSyscallError("socketpair", err)
	}
	return &Endpoint{fd: fds[0]}, &Endpoint{fd: fds[1]}, nil
}

func (e *Endpoint) Fd() int {
	return e.fd
}

// Read 读取可用数据。暂无数据时返回 ErrWouldBlock，对端关闭时返回 io.EOF。
func (e *Endpoint) Read(p []byte) (int, error) {
	if e.closed {
		return 0, errs.ErrConnectionClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Read(e.fd, p)
	if err != nil {
		return 0, normalizeErr("read", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write 写入尽可能多的数据。暂无空间时返回 ErrWouldBlock。
func (e *Endpoint) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errs.ErrConnectionClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Write(e.fd, p)
	if err != nil {
		return 0, normalizeErr("write", err)
	}
	return n, nil
}

// Close 关闭描述符，多次调用安全。
func (e *Endpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return os.NewSyscallError("close", unix.Close(e.fd))
}

func normalizeErr(op string, err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return errs.ErrWouldBlock
	case errors.Is(err, unix.EPIPE), errors.Is(err, unix.ECONNRESET):
		return errs.ErrConnectionClosed
	}
	return os.NewSyscallError(op, err)
}
