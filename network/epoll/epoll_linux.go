//go:build linux

// Package epoll 提供基于 Linux epoll(7) 的水平触发轮询器。
package epoll

import (
	"errors"
	"time"

	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
	"golang.org/x/sys/unix"
)

var _ network.Poller = (*poller)(nil)

// 描述符在轮询器中的登记项。
type entry struct {
	interest network.Interest
	added    bool // 是否已在内核的就绪集合中
}

type poller struct {
	epfd    int
	entries map[int]*entry
	raw     []unix.EpollEvent
}

// New 创建 epoll 轮询器。
func New() (network.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errs.NewResource(err, "epoll create")
	}
	return &poller{
		epfd:    epfd,
		entries: make(map[int]*entry),
	}, nil
}

// Register 试探性地将描述符加入 epoll 集合以校验其可轮询，随即移出；首次 Arm 时再加入。
// 内核对集合中的描述符总是报告挂断与错误，即使不关注任何事件。
func (p *poller) Register(fd int) error {
	meta := map[string]any{"fd": fd}
	if _, ok := p.entries[fd]; ok {
		return errs.NewResource(errs.ErrEndpointInUse, meta)
	}
	ev := unix.EpollEvent{Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return errs.NewResource(classify(err), meta)
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errs.NewResource(err, meta)
	}
	p.entries[fd] = &entry{}
	return nil
}

// Arm 修改描述符关注的事件。不关注任何事件时将其移出内核集合，
// 以免空闲端点的挂断事件反复唤醒轮询。
func (p *poller) Arm(fd int, in network.Interest) error {
	e, ok := p.entries[fd]
	if !ok {
		return errs.Newf(errs.ErrorTypeInternal, nil, "epoll: 描述符 %d 未注册", fd)
	}
	if in == network.InterestNone {
		if e.added {
			if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
				return err
			}
			e.added = false
		}
		e.interest = in
		return nil
	}

	ev := unix.EpollEvent{Events: toEpoll(in), Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if e.added {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(p.epfd, op, fd, &ev); err != nil {
		return classify(err)
	}
	e.added = true
	e.interest = in
	return nil
}

// Unregister 将描述符移出 epoll 集合。
func (p *poller) Unregister(fd int) error {
	e, ok := p.entries[fd]
	if !ok {
		return nil
	}
	delete(p.entries, fd)
	if !e.added {
		return nil
	}
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EBADF) {
		return nil
	}
	return err
}

// Wait 等待就绪事件。被信号中断时返回 0 个事件。
func (p *poller) Wait(events []network.Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]

	n, err := unix.EpollWait(p.epfd, raw, toMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		events[i] = network.Event{
			Fd:    int(raw[i].Fd),
			Flags: fromEpoll(raw[i].Events),
		}
	}
	return n, nil
}

// Close 释放 epoll 描述符。
func (p *poller) Close() error {
	p.entries = nil
	return unix.Close(p.epfd)
}

func toEpoll(in network.Interest) uint32 {
	var events uint32
	if in&network.InterestRead != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if in&network.InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func fromEpoll(events uint32) network.EventFlag {
	var f network.EventFlag
	if events&unix.EPOLLIN != 0 {
		f |= network.EventRead
	}
	if events&unix.EPOLLOUT != 0 {
		f |= network.EventWrite
	}
	if events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		f |= network.EventHup
	}
	if events&unix.EPOLLERR != 0 {
		f |= network.EventErr
	}
	return f
}

// 超时向上取整到毫秒，避免短超时退化为忙轮询。
func toMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

func classify(err error) error {
	switch {
	case errors.Is(err, unix.EEXIST):
		return errs.ErrEndpointInUse
	case errors.Is(err, unix.EPERM):
		return errs.ErrNotPollable
	case errors.Is(err, unix.ENOMEM), errors.Is(err, unix.ENOSPC):
		return errs.ErrResourceExhausted
	}
	return err
}
