package mock

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/cloudwego/netpoll"
	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
)

const defaultCapacity = 64 * 1024

var (
	errNotReadable = errors.New("端点不可读")
	errNotWritable = errors.New("端点不可写")
)

// 内存端点的描述符从此值起分配，避免与真实描述符混淆。
var nextFd int64 = 1 << 20

// 描述符到内存端点的登记表，供 Poller 查询就绪状态。
var endpoints sync.Map

func lookup(fd int) (*Endpoint, bool) {
	v, ok := endpoints.Load(fd)
	if !ok {
		return nil, false
	}
	return v.(*Endpoint), true
}

// 单向内存管道，数据暂存在 netpoll.LinkBuffer 中。
type pipe struct {
	buf          *netpoll.LinkBuffer
	capacity     int
	chunk        int
	jitter       bool
	readerClosed bool
	writerClosed bool
}

func (p *pipe) limit(n int) int {
	if p.chunk <= 0 || n <= 0 {
		return n
	}
	c := p.chunk
	if p.jitter {
		c = 1 + fastrand.Intn(p.chunk)
	}
	if n > c {
		return c
	}
	return n
}

// PipeOption 是内存管道的配置函数。
type PipeOption func(p *pipe)

// WithCapacity 设置管道最多暂存的字节数，默认 64KB。
func WithCapacity(n int) PipeOption {
	return func(p *pipe) {
		p.capacity = n
	}
}

// WithChunk 限制每次读写调用最多传输 n 个字节，用于模拟短读短写。
func WithChunk(n int) PipeOption {
	return func(p *pipe) {
		p.chunk = n
	}
}

// WithJitter 使每次读写调用传输 1 到 chunk 之间的随机字节数。
func WithJitter() PipeOption {
	return func(p *pipe) {
		p.jitter = true
	}
}

func newPipe(opts []PipeOption) *pipe {
	p := &pipe{
		buf:      netpoll.NewLinkBuffer(),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ network.Endpoint = (*Endpoint)(nil)

// Endpoint 是内存实现的非阻塞端点。
type Endpoint struct {
	fd     int
	rd     *pipe // 读方向，为空表示只写
	wr     *pipe // 写方向，为空表示只读
	closed bool

	reads  int
	writes int
}

func newEndpoint(rd, wr *pipe) *Endpoint {
	e := &Endpoint{
		fd: int(atomic.AddInt64(&nextFd, 1)),
		rd: rd,
		wr: wr,
	}
	endpoints.Store(e.fd, e)
	return e
}

// NewPipe 创建一对半双工内存端点，写入 w 的数据可从 r 读出。
func NewPipe(opts ...PipeOption) (r, w *Endpoint) {
	p := newPipe(opts)
	return newEndpoint(p, nil), newEndpoint(nil, p)
}

// NewDuplex 创建一对相连的双工内存端点。
func NewDuplex(opts ...PipeOption) (a, b *Endpoint) {
	ab, ba := newPipe(opts), newPipe(opts)
	return newEndpoint(ba, ab), newEndpoint(ab, ba)
}

func (e *Endpoint) Fd() int {
	return e.fd
}

// Read 读取暂存数据。暂无数据时返回 ErrWouldBlock，写端关闭且读尽时返回 io.EOF。
func (e *Endpoint) Read(p []byte) (int, error) {
	switch {
	case e.closed:
		return 0, errs.ErrConnectionClosed
	case e.rd == nil:
		return 0, errNotReadable
	case len(p) == 0:
		return 0, nil
	}
	avail := e.rd.buf.Len()
	if avail == 0 {
		if e.rd.writerClosed {
			return 0, io.EOF
		}
		return 0, errs.ErrWouldBlock
	}
	n := e.rd.limit(min(avail, len(p)))
	b, err := e.rd.buf.Next(n)
	if err != nil {
		return 0, err
	}
	copy(p, b)
	_ = e.rd.buf.Release()
	e.reads++
	return n, nil
}

// Write 写入不超过剩余容量的数据。容量已满时返回 ErrWouldBlock。
func (e *Endpoint) Write(p []byte) (int, error) {
	switch {
	case e.closed:
		return 0, errs.ErrConnectionClosed
	case e.wr == nil:
		return 0, errNotWritable
	case e.wr.readerClosed:
		return 0, errs.ErrConnectionClosed
	case len(p) == 0:
		return 0, nil
	}
	space := e.wr.capacity - e.wr.buf.Len()
	if space <= 0 {
		return 0, errs.ErrWouldBlock
	}
	n := e.wr.limit(min(space, len(p)))
	buf, err := e.wr.buf.Malloc(n)
	if err != nil {
		return 0, err
	}
	copy(buf, p[:n])
	if err = e.wr.buf.Flush(); err != nil {
		return 0, err
	}
	e.writes++
	return n, nil
}

// Close 关闭端点，对端随后读到 io.EOF 或写入失败。多次调用安全。
func (e *Endpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.rd != nil {
		e.rd.readerClosed = true
	}
	if e.wr != nil {
		e.wr.writerClosed = true
	}
	endpoints.Delete(e.fd)
	return nil
}

// Closed 判断端点是否已关闭。
func (e *Endpoint) Closed() bool {
	return e.closed
}

// Reads 返回成功传输数据的读取调用次数。
func (e *Endpoint) Reads() int {
	return e.reads
}

// Writes 返回成功传输数据的写入调用次数。
func (e *Endpoint) Writes() int {
	return e.writes
}

// Buffered 返回读方向暂存的字节数。
func (e *Endpoint) Buffered() int {
	if e.rd == nil {
		return 0
	}
	return e.rd.buf.Len()
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("mock#%d", e.fd)
}

// 计算端点对指定关注事件的就绪状态。写端已关闭的读方向和读端已关闭的写方向视为就绪，
// 以便连接在下次读写时得到错误。
func (e *Endpoint) ready(in network.Interest) network.EventFlag {
	var f network.EventFlag
	if in&network.InterestRead != 0 && e.rd != nil {
		if e.rd.buf.Len() > 0 {
			f |= network.EventRead
		}
		if e.rd.writerClosed {
			f |= network.EventRead | network.EventHup
		}
	}
	if in&network.InterestWrite != 0 && e.wr != nil {
		if e.wr.buf.Len() < e.wr.capacity {
			f |= network.EventWrite
		}
		if e.wr.readerClosed {
			f |= network.EventWrite | network.EventErr
		}
	}
	return f
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
