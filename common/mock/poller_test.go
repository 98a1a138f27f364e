package mock

import (
	"errors"
	"strconv"
	"testing"

	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(i int) string {
	return strconv.Itoa(i)
}

func TestPollerRegister(t *testing.T) {
	p := NewLimitedPoller(2)
	r, w := NewPipe()
	extra, _ := NewPipe()

	require.Nil(t, p.Register(r.Fd()))
	err := p.Register(r.Fd())
	assert.True(t, errs.IsResource(err))
	assert.True(t, errors.Is(err, errs.ErrEndpointInUse))

	require.Nil(t, p.Register(w.Fd()))
	err = p.Register(extra.Fd())
	assert.True(t, errors.Is(err, errs.ErrResourceExhausted))

	err = NewPoller().Register(12345)
	assert.True(t, errors.Is(err, errs.ErrNotPollable))

	assert.Nil(t, p.Unregister(r.Fd()))
	assert.False(t, p.Registered(r.Fd()))
	assert.Equal(t, 1, p.Len())
	assert.NotNil(t, p.Arm(r.Fd(), network.InterestRead))
}

func TestPollerWait(t *testing.T) {
	p := NewPoller()
	r, w := NewPipe()
	require.Nil(t, p.Register(r.Fd()))
	require.Nil(t, p.Register(w.Fd()))
	events := make([]network.Event, 4)

	// 均未关注任何事件
	_, err := p.Wait(events, -1)
	assert.Equal(t, errs.ErrStalled, err)
	n, err := p.Wait(events, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	assert.Nil(t, p.Arm(r.Fd(), network.InterestRead))
	assert.Nil(t, p.Arm(w.Fd(), network.InterestWrite))
	assert.Equal(t, network.InterestRead, p.Interest(r.Fd()))

	n, err = p.Wait(events, -1)
	assert.Nil(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, network.Event{Fd: w.Fd(), Flags: network.EventWrite}, events[0])

	_, _ = w.Write([]byte("x"))
	n, err = p.Wait(events, -1)
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, p.Waits())
}

func TestPollerRotation(t *testing.T) {
	p := NewPoller()
	var fds []int
	for i := 0; i < 3; i++ {
		_, w := NewPipe()
		require.Nil(t, p.Register(w.Fd()))
		require.Nil(t, p.Arm(w.Fd(), network.InterestWrite))
		fds = append(fds, w.Fd())
	}

	// 每次只取一个事件，三个端点依次轮到
	events := make([]network.Event, 1)
	var got []int
	for i := 0; i < 6; i++ {
		n, err := p.Wait(events, 0)
		require.Nil(t, err)
		require.Equal(t, 1, n)
		got = append(got, events[0].Fd)
	}
	assert.Equal(t, []int{fds[0], fds[1], fds[2], fds[0], fds[1], fds[2]}, got)
}

func TestPollerClose(t *testing.T) {
	p := NewPoller()
	assert.Nil(t, p.Close())
	_, err := p.Wait(make([]network.Event, 1), 0)
	assert.Equal(t, errs.ErrLoopClosed, err)
	r, _ := NewPipe()
	assert.True(t, errors.Is(p.Register(r.Fd()), errs.ErrLoopClosed))

	newer := Newer()
	np, err := newer()
	assert.Nil(t, err)
	assert.NotNil(t, np)
}
