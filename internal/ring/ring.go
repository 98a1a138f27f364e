// Package ring 构建环形管道基准：N 个缓冲区首尾相连，每个缓冲区有一个读连接和一个写连接，
// 二者通过 Wake 交替推进，每轮数据沿环前移一格。
package ring

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/favbox/gale/network"
	"github.com/favbox/gale/reactor"
)

// BufSize 是每个缓冲区的字节数。
const BufSize = 32

var errMisrouted = errors.New("ring: 延续运行在错误的连接上")

// PipeFunc 创建一对半双工端点，写入 w 的数据可从 r 读出。
type PipeFunc func() (r, w network.Endpoint, err error)

// Buffer 是环上的一个缓冲区及其读写连接。
type Buffer struct {
	Iters  int
	Reader *reactor.Conn
	Writer *reactor.Conn
	Buf    []byte
}

// Ring 是构建在某个事件循环上的环形基准。
type Ring struct {
	Buffers []*Buffer
	iters   int
	err     error
}

// Seed 返回第 i 个缓冲区的初始内容：全部填充字节 i，开头为以零结尾的 "i-i"。
func Seed(i int) []byte {
	b := make([]byte, BufSize)
	fillSeed(b, i)
	return b
}

func fillSeed(b []byte, i int) {
	for j := range b {
		b[j] = byte(i)
	}
	s := fmt.Sprintf("%d-%d", i, i)
	copy(b, s)
	b[len(s)] = 0
}

// New 在 l 上注册 n 个缓冲区共 2n 个连接，每个缓冲区完成 iters 轮后关闭。
// 注册失败时已创建但未注册的端点会被关闭，已注册的连接由 l.Close 释放。
func New(l *reactor.Loop, n, iters int, pipe PipeFunc) (*Ring, error) {
	if n < 1 || iters < 1 {
		return nil, fmt.Errorf("ring: 无效的参数 n=%d iters=%d", n, iters)
	}
	r := &Ring{
		Buffers: make([]*Buffer, n),
		iters:   iters,
	}
	for i := range r.Buffers {
		b := &Buffer{Buf: mcache.Malloc(BufSize)}
		fillSeed(b.Buf, i)
		r.Buffers[i] = b
	}
	if err := r.link(l, pipe); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// 第 i 个缓冲区从上一条管道读入，向下一条管道写出，最后一个缓冲区闭合成环。
func (r *Ring) link(l *reactor.Loop, pipe PipeFunc) error {
	lastRead, lastWrite, err := pipe()
	if err != nil {
		return err
	}
	for i := 1; i < len(r.Buffers); i++ {
		rd, wr, err := pipe()
		if err != nil {
			closeAll(lastRead, lastWrite)
			return err
		}
		if err = r.attach(l, r.Buffers[i], lastRead, wr); err != nil {
			closeAll(rd, lastWrite)
			return fmt.Errorf("ring: 创建第 %d 个缓冲区的连接失败: %w", i, err)
		}
		lastRead = rd
	}

	if err = r.attach(l, r.Buffers[0], lastRead, lastWrite); err != nil {
		return fmt.Errorf("ring: 创建第 0 个缓冲区的连接失败: %w", err)
	}
	return nil
}

func (r *Ring) attach(l *reactor.Loop, b *Buffer, rd, wr network.Endpoint) (err error) {
	if b.Reader, err = l.Register(rd, r.waitForWriter, b, r.finish); err != nil {
		closeAll(rd, wr)
		return err
	}
	if b.Writer, err = l.Register(wr, r.doWrite, b, r.finish); err != nil {
		closeAll(wr)
		return err
	}
	return nil
}

func closeAll(eps ...network.Endpoint) {
	for _, ep := range eps {
		_ = ep.Close()
	}
}

// 读连接先空闲，等写连接通知后再读。
func (r *Ring) waitForWriter(c *reactor.Conn, arg any) *reactor.Plan {
	b := arg.(*Buffer)
	if c != b.Reader {
		return reactor.Close(errMisrouted)
	}
	return reactor.Idle()
}

func (r *Ring) doRead(c *reactor.Conn, arg any) *reactor.Plan {
	b := arg.(*Buffer)
	if c != b.Reader {
		return reactor.Close(errMisrouted)
	}
	return reactor.Read(b.Buf, BufSize, c.Next(r.pokeWriter, b))
}

func (r *Ring) doWrite(c *reactor.Conn, arg any) *reactor.Plan {
	b := arg.(*Buffer)
	if c != b.Writer {
		return reactor.Close(errMisrouted)
	}
	return reactor.Write(b.Buf, BufSize, c.Next(r.pokeReader, b))
}

// 读完后让写连接写出，自己空闲等待下一轮。
func (r *Ring) pokeWriter(c *reactor.Conn, arg any) *reactor.Plan {
	b := arg.(*Buffer)
	if b.Iters == r.iters {
		return reactor.Close(nil)
	}
	if err := reactor.Wake(b.Writer, r.doWrite, b); err != nil {
		return reactor.Close(err)
	}
	return reactor.Idle()
}

// 写完后让读连接读入，满 iters 轮后关闭。
func (r *Ring) pokeReader(c *reactor.Conn, arg any) *reactor.Plan {
	b := arg.(*Buffer)
	if err := reactor.Wake(b.Reader, r.doRead, b); err != nil {
		return reactor.Close(err)
	}
	b.Iters++
	if b.Iters == r.iters {
		return reactor.Close(nil)
	}
	return reactor.Idle()
}

func (r *Ring) finish(c *reactor.Conn, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("ring: 连接 %d 异常关闭: %w", c.ID(), err)
	}
}

// Err 返回首个异常关闭的连接的结束状态。
func (r *Ring) Err() error {
	return r.err
}

// Verify 检查数据已沿环前移 iters 格：第 (i+iters)%n 个缓冲区的内容应为第 i 个缓冲区的初始内容。
func (r *Ring) Verify() error {
	n := len(r.Buffers)
	want := make([]byte, BufSize)
	for i := 0; i < n; i++ {
		fillSeed(want, i)
		got := r.Buffers[(i+r.iters)%n].Buf
		if !bytes.Equal(want, got) {
			return fmt.Errorf("缓冲区 %d 的内容为 '%s' 而非 '%s'", i, cString(got), cString(want))
		}
	}
	return nil
}

// Release 归还缓冲区内存，之后不得再访问 Buffers。
func (r *Ring) Release() {
	for _, b := range r.Buffers {
		if b.Buf != nil {
			mcache.Free(b.Buf)
			b.Buf = nil
		}
	}
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
