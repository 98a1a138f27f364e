package reactor

import (
	"fmt"

	"github.com/favbox/gale/internal/nocopy"
	"github.com/favbox/gale/network"
)

// State 表示连接的生命周期状态。
type State uint8

const (
	// StateActive 表示连接正在执行读写计划，或等待首次启动。
	StateActive State = iota
	// StateIdle 表示连接已挂起，等待被唤醒。
	StateIdle
	// StateClosing 表示连接已返回关闭计划，将在本轮末尾释放。
	StateClosing
	// StateClosed 表示连接已释放。
	StateClosed
)

var stateNames = [...]string{
	StateActive:  "active",
	StateIdle:    "idle",
	StateClosing: "closing",
	StateClosed:  "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// FinishFunc 是连接释放后的结束回调，err 为关闭计划携带的结束状态。每个连接最多调用一次。
type FinishFunc func(c *Conn, err error)

// 单槽唤醒：至多一个未处理的唤醒。
type wakeup struct {
	fn  Func
	arg any
}

// Conn 表示由事件循环驱动的一个端点连接。
//
// 其他连接可以持有 *Conn 作为弱引用，仅用于 Wake；连接关闭后引用仍可安全持有，
// 但不再是有效的唤醒目标。
type Conn struct {
	noCopy nocopy.NoCopy

	loop  *Loop
	id    uint64
	ep    network.Endpoint
	fd    int
	state State
	plan  *Plan
	done  int // 当前读写计划已传输的字节数
	armed network.Interest

	arg     any
	start   Func
	pending *wakeup
	finish  FinishFunc
	err     error
}

// ID 返回连接在所属事件循环内的序号，从 1 开始。
func (c *Conn) ID() uint64 {
	return c.id
}

// Loop 返回连接所属的事件循环。
func (c *Conn) Loop() *Loop {
	return c.loop
}

// Endpoint 返回连接的端点。
func (c *Conn) Endpoint() network.Endpoint {
	return c.ep
}

// Arg 返回注册时提供的上下文数据。
func (c *Conn) Arg() any {
	return c.arg
}

// SetArg 替换连接的上下文数据，仅影响启动延续。
func (c *Conn) SetArg(arg any) {
	c.arg = arg
}

// State 返回连接当前的生命周期状态。
func (c *Conn) State() State {
	return c.state
}

// Err 返回连接关闭时的结束状态，未关闭时为空。
func (c *Conn) Err() error {
	if c.state != StateClosed {
		return nil
	}
	return c.err
}

// SetFinish 设置或替换结束回调。
func (c *Conn) SetFinish(fn FinishFunc) {
	c.finish = fn
}

// Next 将延续 fn 与上下文 arg 绑定到本连接，作为读写计划完成后的去向。
func (c *Conn) Next(fn Func, arg any) Next {
	if fn == nil {
		panic("BUG: 延续不能为空")
	}
	return Next{conn: c, fn: fn, arg: arg}
}

func (c *Conn) String() string {
	return fmt.Sprintf("conn#%d(fd=%d,%s)", c.id, c.fd, c.state)
}

func (c *Conn) meta() map[string]any {
	return map[string]any{"conn": c.id, "fd": c.fd}
}
