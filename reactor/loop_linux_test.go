package reactor

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/favbox/gale/common/config"
	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network/unixfd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newEpollLoop(t *testing.T, opts ...config.Option) *Loop {
	l, err := NewLoop(opts...)
	require.Nil(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestEpollPingPong(t *testing.T) {
	l := newEpollLoop(t)
	a, b, err := unixfd.Socketpair()
	require.Nil(t, err)

	pp := startPingPong(t, l, a, b, 1000, nil)
	require.Nil(t, l.Run(context.Background()))
	assert.Equal(t, 1000, pp.pings)
	assert.Equal(t, 1000, pp.pongs)
	assert.Nil(t, pp.af.err)
	assert.Nil(t, pp.bf.err)
}

func TestEpollPerpetualDeadline(t *testing.T) {
	l := newEpollLoop(t, WithPollTimeout(5*time.Millisecond))
	a, b, err := unixfd.Socketpair()
	require.Nil(t, err)

	pp := startPingPong(t, l, a, b, 0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Equal(t, context.DeadlineExceeded, l.Run(ctx))
	assert.Greater(t, pp.pings, 0)
	assert.Equal(t, 2, l.Len())

	require.Nil(t, l.Close())
	assert.Equal(t, errs.ErrLoopClosed, pp.af.err)
}

func TestEpollIdleHangup(t *testing.T) {
	l := newEpollLoop(t, WithPollTimeout(10*time.Millisecond))
	a, b, err := unixfd.Socketpair()
	require.Nil(t, err)
	require.Nil(t, b.Close())

	c, err := l.Register(a, idle, nil, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, l.Run(ctx))
	assert.Equal(t, StateIdle, c.State())
	// 空闲端点不在就绪集合中，对端挂断不会使事件循环空转
	assert.Less(t, l.Stats().Iterations, uint64(50))
	assert.Zero(t, l.Stats().Transfers)
}

func TestEpollEndpointErrors(t *testing.T) {
	t.Run("TestUnexpectedEOF", func(t *testing.T) {
		l := newEpollLoop(t)
		r, w, err := unixfd.Pipe()
		require.Nil(t, err)

		var rf finishRecorder
		_, err = l.Register(r, readAll(make([]byte, 64)), nil, rf.finish)
		require.Nil(t, err)
		_, err = l.Register(w, writeAll([]byte("short")), nil, nil)
		require.Nil(t, err)

		require.Nil(t, l.Run(context.Background()))
		assert.True(t, errs.IsEndpoint(rf.err))
		assert.True(t, errors.Is(rf.err, io.ErrUnexpectedEOF))
	})

	t.Run("TestBrokenPipe", func(t *testing.T) {
		l := newEpollLoop(t)
		r, w, err := unixfd.Pipe()
		require.Nil(t, err)
		require.Nil(t, r.Close())

		var wf finishRecorder
		_, err = l.Register(w, writeAll([]byte("lost")), nil, wf.finish)
		require.Nil(t, err)

		require.Nil(t, l.Run(context.Background()))
		assert.True(t, errs.IsEndpoint(wf.err))
		assert.True(t, errors.Is(wf.err, errs.ErrConnectionClosed))
		assert.Equal(t, uint64(1), l.Stats().EndpointErrors)
	})
}

func TestEpollRegisterErrors(t *testing.T) {
	l := newEpollLoop(t)

	f, err := os.CreateTemp(t.TempDir(), "regular")
	require.Nil(t, err)
	defer f.Close()
	fd, err := unix.Dup(int(f.Fd()))
	require.Nil(t, err)
	ep, err := unixfd.New(fd)
	require.Nil(t, err)
	defer ep.Close()

	_, err = l.Register(ep, nop, nil, nil)
	assert.True(t, errs.IsResource(err))
	assert.True(t, errors.Is(err, errs.ErrNotPollable))

	r, w, err := unixfd.Pipe()
	require.Nil(t, err)
	defer w.Close()
	_, err = l.Register(r, idle, nil, nil)
	require.Nil(t, err)
	_, err = l.Register(r, idle, nil, nil)
	assert.True(t, errs.IsResource(err))
	assert.True(t, errors.Is(err, errs.ErrEndpointInUse))
}
