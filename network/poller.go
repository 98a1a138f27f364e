package network

import (
	"strings"
	"time"
)

// Interest 表示连接对端点关注的就绪事件。
type Interest uint8

const (
	// InterestNone 表示暂不轮询该端点。
	InterestNone Interest = 0
	// InterestRead 表示关注可读。
	InterestRead Interest = 1 << (iota - 1)
	// InterestWrite 表示关注可写。
	InterestWrite
)

func (in Interest) String() string {
	switch in {
	case InterestNone:
		return "none"
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	case InterestRead | InterestWrite:
		return "read|write"
	}
	return "invalid"
}

// EventFlag 表示轮询器报告的就绪状态。
type EventFlag uint8

const (
	EventRead EventFlag = 1 << iota
	EventWrite
	EventHup
	EventErr
)

func (f EventFlag) String() string {
	var s []string
	if f&EventRead != 0 {
		s = append(s, "read")
	}
	if f&EventWrite != 0 {
		s = append(s, "write")
	}
	if f&EventHup != 0 {
		s = append(s, "hup")
	}
	if f&EventErr != 0 {
		s = append(s, "err")
	}
	return strings.Join(s, "|")
}

// Event 是一个就绪通知。
type Event struct {
	Fd    int
	Flags EventFlag
}

// Poller 表示就绪通知机制。
//
// 轮询器仅在单个事件循环协程内使用，无需并发安全。
type Poller interface {
	// Register 将描述符加入轮询器，初始不关注任何事件。
	// 无法加入时返回 ErrorTypeResource 类型的错误。
	Register(fd int) error

	// Arm 设置描述符关注的事件，InterestNone 表示将其移出就绪集合。
	Arm(fd int, in Interest) error

	// Unregister 将描述符移出轮询器，须在关闭描述符前调用。
	Unregister(fd int) error

	// Wait 阻塞至有事件就绪或超时，将事件写入 events 并返回数量。
	// timeout < 0 表示无限期阻塞，0 表示立即返回。
	Wait(events []Event, timeout time.Duration) (int, error)

	// Close 释放轮询器资源。
	Close() error
}
