package reactor

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/favbox/gale/common/config"
	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/common/hlog"
	"github.com/favbox/gale/internal/nocopy"
	"github.com/favbox/gale/network"
	"github.com/favbox/gale/network/epoll"
)

// Stats 是事件循环的运行计数。
type Stats struct {
	Iterations     uint64 `json:"iterations"`      // 完整轮次数
	Transfers      uint64 `json:"transfers"`       // 端点读写调用次数
	Completions    uint64 `json:"completions"`     // 完成的读写计划数
	Wakes          uint64 `json:"wakes"`           // 投递的唤醒数
	Closed         uint64 `json:"closed"`          // 释放的连接数
	EndpointErrors uint64 `json:"endpoint_errors"` // 因端点错误关闭的连接数
}

// Loop 是单协程的事件循环，拥有全部存活连接。
type Loop struct {
	noCopy nocopy.NoCopy

	options *config.Options
	poller  network.Poller
	events  []network.Event

	conns    map[int]*Conn // 描述符 -> 存活连接
	nextID   uint64
	starting []*Conn // 等待调用启动延续
	wakes    []*Conn // 等待投递唤醒
	spare    []*Conn
	closing  []*Conn // 等待释放

	running bool
	closed  bool
	err     error // 首个致命错误
	stats   Stats
}

// NewLoop 创建事件循环。默认使用平台轮询器，可通过 WithPoller 替换。
func NewLoop(opts ...config.Option) (*Loop, error) {
	options := config.NewOptions(opts)
	if options.MaxEvents <= 0 {
		options.MaxEvents = 1
	}
	newer := options.PollerNewer
	if newer == nil {
		newer = epoll.New
	}
	poller, err := newer()
	if err != nil {
		return nil, err
	}
	return &Loop{
		options: options,
		poller:  poller,
		events:  make([]network.Event, options.MaxEvents),
		conns:   make(map[int]*Conn),
	}, nil
}

// Register 注册端点并创建连接。连接从活跃状态开始，其启动延续 start 在事件循环的下一轮以 arg 调用一次，
// 因此调用方可以在启动前保存返回的连接。finish 可为空。
//
// 端点无法加入就绪集合时返回 ErrorTypeResource 类型的错误，端点保持打开由调用方处理。
func (l *Loop) Register(ep network.Endpoint, start Func, arg any, finish FinishFunc) (*Conn, error) {
	if ep == nil {
		panic("BUG: 端点不能为空")
	}
	if start == nil {
		panic("BUG: 启动延续不能为空")
	}
	if l.closed {
		return nil, errs.ErrLoopClosed
	}

	fd := ep.Fd()
	if err := l.poller.Register(fd); err != nil {
		if !errs.IsResource(err) {
			err = errs.NewResource(err, map[string]any{"fd": fd})
		}
		return nil, err
	}

	l.nextID++
	c := &Conn{
		loop:   l,
		id:     l.nextID,
		ep:     ep,
		fd:     fd,
		state:  StateActive,
		arg:    arg,
		start:  start,
		finish: finish,
	}
	l.conns[fd] = c
	l.starting = append(l.starting, c)
	return c, nil
}

// Run 驱动所有连接，直至存活连接为空（返回 nil）、发生致命错误（返回该错误）或 ctx 结束（返回 ctx.Err()）。
//
// 每一轮依次：启动新注册的连接；等待就绪；对每个就绪连接尝试一次读写；投递唤醒；释放关闭的连接。
func (l *Loop) Run(ctx context.Context) error {
	switch {
	case l.closed:
		return errs.ErrLoopClosed
	case l.running:
		return errs.ErrLoopRunning
	case l.err != nil:
		return l.err
	}
	l.running = true
	defer func() { l.running = false }()

	done := ctx.Done()
	for {
		l.startConns()
		if l.err != nil {
			return l.err
		}
		l.reap()
		if l.err != nil {
			return l.err
		}
		if len(l.conns) == 0 {
			return nil
		}

		n, err := l.poller.Wait(l.events, l.pollTimeout(done))
		if err != nil {
			l.fail(errs.New(err, errs.ErrorTypeInternal, "poll"))
			return l.err
		}
		for i := 0; i < n && l.err == nil; i++ {
			l.serve(l.events[i])
		}
		if l.err != nil {
			return l.err
		}

		l.deliverWakes()
		if l.err == nil {
			l.reap()
		}
		if l.err != nil {
			return l.err
		}
		l.stats.Iterations++

		if done != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
		}
	}
}

// 有待办事项时不阻塞；上下文可取消时按 PollTimeout 分段阻塞以便检查取消。
func (l *Loop) pollTimeout(done <-chan struct{}) time.Duration {
	if len(l.starting) > 0 || len(l.wakes) > 0 || len(l.closing) > 0 {
		return 0
	}
	if done != nil {
		return l.options.PollTimeout
	}
	return -1
}

// 依注册顺序调用启动延续，启动期间注册的连接也在本轮启动。
func (l *Loop) startConns() {
	for len(l.starting) > 0 && l.err == nil {
		batch := l.starting
		l.starting = nil
		for _, c := range batch {
			if c.state != StateActive || c.start == nil || l.err != nil {
				continue
			}
			start := c.start
			c.start = nil
			l.install(c, start(c, c.arg))
		}
	}
}

// 对就绪连接尝试一次读写。完成时调用延续并安装新计划，未完成时保留计划等待下次就绪。
func (l *Loop) serve(ev network.Event) {
	c := l.conns[ev.Fd]
	if c == nil || c.state != StateActive || c.plan == nil {
		return
	}
	p := c.plan
	if p.kind != KindRead && p.kind != KindWrite {
		return
	}

	if c.done < len(p.buf) {
		var (
			n   int
			err error
		)
		if p.kind == KindRead {
			n, err = c.ep.Read(p.buf[c.done:])
		} else {
			n, err = c.ep.Write(p.buf[c.done:])
		}
		l.stats.Transfers++
		if n > 0 {
			c.done += n
		}
		if c.done < len(p.buf) {
			if err != nil && !errors.Is(err, errs.ErrWouldBlock) {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				l.abort(c, err)
			}
			return
		}
	}

	l.stats.Completions++
	l.install(c, p.next.call())
}

// 安装连接的下一个计划，并同步其在轮询器中关注的事件。
func (l *Loop) install(c *Conn, p *Plan) {
	if p == nil {
		l.fail(errs.NewContract(errs.ErrNilPlan, c.meta()))
		return
	}

	switch p.kind {
	case KindRead, KindWrite:
		if p.next.conn != c {
			l.fail(errs.NewContract(errs.ErrForeignNext, c.meta()))
			return
		}
		c.plan, c.done, c.state = p, 0, StateActive
		in := network.InterestRead
		if p.kind == KindWrite {
			in = network.InterestWrite
		}
		if err := l.arm(c, in); err != nil {
			l.abort(c, err)
		}
	case KindIdle:
		c.plan, c.state = p, StateIdle
		if err := l.arm(c, network.InterestNone); err != nil {
			hlog.SystemLogger().Warnf("连接 %d 停止轮询失败: %v", c.id, err)
		}
	case KindClose:
		c.plan, c.state, c.err = p, StateClosing, p.err
		if err := l.arm(c, network.InterestNone); err != nil {
			hlog.SystemLogger().Warnf("连接 %d 停止轮询失败: %v", c.id, err)
		}
		l.closing = append(l.closing, c)
	default:
		l.fail(errs.Newf(errs.ErrorTypeContract, c.meta(), "未知的计划类型 %s", p.kind))
	}
}

func (l *Loop) arm(c *Conn, in network.Interest) error {
	if c.armed == in {
		return nil
	}
	if err := l.poller.Arm(c.fd, in); err != nil {
		return err
	}
	c.armed = in
	return nil
}

// 端点错误只关闭所在连接，以该错误作为结束状态，不调用原定的延续。
func (l *Loop) abort(c *Conn, err error) {
	l.stats.EndpointErrors++
	hlog.SystemLogger().Debugf("连接 %d 端点错误: %v", c.id, err)
	l.install(c, Close(errs.NewEndpoint(err, c.meta())))
}

// 释放所有返回了关闭计划的连接。结束回调中关闭的连接也在本轮释放。
func (l *Loop) reap() {
	for len(l.closing) > 0 {
		batch := l.closing
		l.closing = nil
		for _, c := range batch {
			if c.state == StateClosing {
				l.release(c, c.err)
			}
		}
	}
}

func (l *Loop) release(c *Conn, status error) {
	if err := l.poller.Unregister(c.fd); err != nil {
		hlog.SystemLogger().Warnf("连接 %d 注销端点失败: %v", c.id, err)
	}
	delete(l.conns, c.fd)
	if err := c.ep.Close(); err != nil {
		hlog.SystemLogger().Warnf("连接 %d 关闭端点失败: %v", c.id, err)
	}
	c.state, c.plan, c.err = StateClosed, nil, status
	c.pending, c.start = nil, nil
	l.stats.Closed++

	if fn := c.finish; fn != nil {
		c.finish = nil
		fn(c, status)
	}
}

// 记录首个致命错误，事件循环在当前阶段结束后退出。
func (l *Loop) fail(err error) {
	if l.err != nil {
		return
	}
	l.err = err
	hlog.SystemLogger().Errorf("事件循环终止: %v", err)
}

// Len 返回存活连接数。
func (l *Loop) Len() int {
	return len(l.conns)
}

// Stats 返回运行计数的快照。
func (l *Loop) Stats() Stats {
	return l.stats
}

// Err 返回导致事件循环终止的致命错误。
func (l *Loop) Err() error {
	return l.err
}

// Close 释放轮询器以及 Run 提前返回后仍存活的连接。已返回关闭计划的连接以其结束状态调用结束回调，
// 其余连接以 ErrLoopClosed 调用。不得在 Run 期间调用。
func (l *Loop) Close() error {
	if l.running {
		return errs.ErrLoopRunning
	}
	if l.closed {
		return nil
	}
	l.closed = true

	live := make([]*Conn, 0, len(l.conns))
	for _, c := range l.conns {
		live = append(live, c)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].id < live[j].id })
	for _, c := range live {
		status := error(errs.ErrLoopClosed)
		if c.state == StateClosing {
			status = c.err
		}
		l.release(c, status)
	}
	l.starting, l.wakes, l.closing = nil, nil, nil

	return l.poller.Close()
}
