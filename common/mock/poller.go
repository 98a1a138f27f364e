package mock

import (
	"time"

	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
)

var _ network.Poller = (*Poller)(nil)

// Poller 是内存端点的确定性轮询器。
//
// 每次 Wait 按注册顺序扫描已关注的端点，起点依次轮转，同样的输入总是得到同样的事件序列。
// 没有端点就绪且 timeout < 0 时，由于内存端点不会在轮询期间自行就绪，Wait 返回 ErrStalled。
type Poller struct {
	fds      []int
	interest map[int]network.Interest
	limit    int
	cursor   int
	closed   bool

	waits int
}

// NewPoller 创建不限注册数量的内存轮询器。
func NewPoller() *Poller {
	return NewLimitedPoller(0)
}

// NewLimitedPoller 创建最多注册 limit 个端点的内存轮询器，limit <= 0 表示不限。
func NewLimitedPoller(limit int) *Poller {
	return &Poller{
		interest: make(map[int]network.Interest),
		limit:    limit,
	}
}

// Newer 返回总是创建新内存轮询器的函数，可直接用于 reactor.WithPoller。
func Newer() func() (network.Poller, error) {
	return func() (network.Poller, error) {
		return NewPoller(), nil
	}
}

// Register 登记内存端点。仅接受本包创建且未关闭的端点。
func (p *Poller) Register(fd int) error {
	meta := map[string]any{"fd": fd}
	switch {
	case p.closed:
		return errs.NewResource(errs.ErrLoopClosed, meta)
	case p.Registered(fd):
		return errs.NewResource(errs.ErrEndpointInUse, meta)
	case p.limit > 0 && len(p.fds) >= p.limit:
		return errs.NewResource(errs.ErrResourceExhausted, meta)
	}
	if _, ok := lookup(fd); !ok {
		return errs.NewResource(errs.ErrNotPollable, meta)
	}
	p.fds = append(p.fds, fd)
	p.interest[fd] = network.InterestNone
	return nil
}

func (p *Poller) Arm(fd int, in network.Interest) error {
	if !p.Registered(fd) {
		return errs.Newf(errs.ErrorTypeInternal, nil, "mock: 描述符 %d 未注册", fd)
	}
	p.interest[fd] = in
	return nil
}

func (p *Poller) Unregister(fd int) error {
	if !p.Registered(fd) {
		return nil
	}
	delete(p.interest, fd)
	for i, v := range p.fds {
		if v == fd {
			p.fds = append(p.fds[:i], p.fds[i+1:]...)
			if p.cursor > i {
				p.cursor--
			}
			break
		}
	}
	return nil
}

func (p *Poller) Wait(events []network.Event, timeout time.Duration) (int, error) {
	if p.closed {
		return 0, errs.ErrLoopClosed
	}
	p.waits++

	n, count := 0, len(p.fds)
	if count > 0 && len(events) > 0 {
		start := p.cursor % count
		last := start
		for i := 0; i < count && n < len(events); i++ {
			idx := (start + i) % count
			fd := p.fds[idx]
			in := p.interest[fd]
			if in == network.InterestNone {
				continue
			}
			ep, ok := lookup(fd)
			if !ok {
				continue
			}
			if flags := ep.ready(in); flags != 0 {
				events[n] = network.Event{Fd: fd, Flags: flags}
				n++
				last = idx
			}
		}
		// 下次从最后报告的端点之后开始扫描，事件数受限时也不会饿死排在后面的端点
		if n > 0 {
			p.cursor = last + 1
		} else {
			p.cursor = start + 1
		}
	}

	if n == 0 {
		if timeout < 0 {
			return 0, errs.ErrStalled
		}
		if timeout > 0 {
			time.Sleep(timeout)
		}
	}
	return n, nil
}

func (p *Poller) Close() error {
	p.closed = true
	p.fds = nil
	p.interest = nil
	return nil
}

// Registered 判断描述符是否已登记。
func (p *Poller) Registered(fd int) bool {
	_, ok := p.interest[fd]
	return ok
}

// Interest 返回描述符当前关注的事件。
func (p *Poller) Interest(fd int) network.Interest {
	return p.interest[fd]
}

// Len 返回已登记的描述符数量。
func (p *Poller) Len() int {
	return len(p.fds)
}

// Waits 返回 Wait 的调用次数。
func (p *Poller) Waits() int {
	return p.waits
}
