package reactor

import (
	"fmt"
)

// Kind 表示计划的类型。
type Kind uint8

const (
	KindRead Kind = iota + 1
	KindWrite
	KindIdle
	KindClose
)

var kindNames = [...]string{
	KindRead:  "read",
	KindWrite: "write",
	KindIdle:  "idle",
	KindClose: "close",
}

func (k Kind) String() string {
	if k >= KindRead && k <= KindClose {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Func 是延续，在计划完成或连接被唤醒时调用，返回连接的下一个计划。
//
// 延续在事件循环协程上运行且不得阻塞。
type Func func(c *Conn, arg any) *Plan

// Next 是绑定到指定连接的延续，作为读写计划完成后的去向。
type Next struct {
	conn *Conn
	fn   Func
	arg  any
}

// Conn 返回延续所绑定的连接。
func (n Next) Conn() *Conn {
	return n.conn
}

func (n Next) call() *Plan {
	return n.fn(n.conn, n.arg)
}

// Plan 描述连接的下一步操作以及完成后的延续。计划创建后不可修改，
// 读写进度记录在连接上，因此同一个计划可以被多次返回。
type Plan struct {
	kind Kind
	buf  []byte
	next Next
	err  error
}

var (
	idlePlan  = &Plan{kind: KindIdle}
	closePlan = &Plan{kind: KindClose}
)

// Kind 返回计划的类型。
func (p *Plan) Kind() Kind {
	return p.kind
}

// Len 返回读写计划要传输的字节数。
func (p *Plan) Len() int {
	return len(p.buf)
}

// Err 返回关闭计划携带的结束状态。
func (p *Plan) Err() error {
	return p.err
}

// Read 返回读计划：等待端点可读，将恰好 n 个字节读入 buf[:n] 后调用 next。
// 短读会在后续就绪通知中继续，不足 n 个字节时数据流结束属于端点错误。
func Read(buf []byte, n int, next Next) *Plan {
	return transfer(KindRead, buf, n, next)
}

// Write 返回写计划：等待端点可写，将 buf[:n] 全部写出后调用 next。
func Write(buf []byte, n int, next Next) *Plan {
	return transfer(KindWrite, buf, n, next)
}

func transfer(kind Kind, buf []byte, n int, next Next) *Plan {
	if n < 0 || n > len(buf) {
		panic(fmt.Sprintf("BUG: %s 计划的长度 %d 超出缓冲区大小 %d", kind, n, len(buf)))
	}
	if next.conn == nil || next.fn == nil {
		panic(fmt.Sprintf("BUG: %s 计划缺少延续", kind))
	}
	return &Plan{
		kind: kind,
		buf:  buf[:n],
		next: next,
	}
}

// Idle 返回空闲计划：连接不做任何读写也不被轮询，直到被 Wake 唤醒。
func Idle() *Plan {
	return idlePlan
}

// Close 返回关闭计划：事件循环释放端点并以 err 作为结束状态调用结束回调。
func Close(err error) *Plan {
	if err == nil {
		return closePlan
	}
	return &Plan{kind: KindClose, err: err}
}
