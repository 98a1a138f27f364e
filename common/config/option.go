package config

import (
	"time"

	"github.com/favbox/gale/network"
)

const (
	defaultMaxEvents   = 128
	defaultPollTimeout = 100 * time.Millisecond
)

// Option 是用于配置 Options 唯一结构体。
type Option struct {
	F func(o *Options)
}

// Options 是事件循环配置项的结构体。
type Options struct {
	// MaxEvents 是单次轮询最多取回的就绪事件数，默认 128。
	MaxEvents int

	// PollTimeout 是运行上下文可被取消时单次轮询的最长阻塞时间，默认 100ms。
	// 上下文不可取消时，轮询将无限期阻塞直至有端点就绪。
	PollTimeout time.Duration

	// PollerNewer 是轮询器的自定义创建函数，默认使用平台轮询器（Linux 上为 epoll）。
	PollerNewer func() (network.Poller, error)
}

// Apply 将指定的一组配置方法 opts 应用到配置项上。
func (o *Options) Apply(opts []Option) {
	for _, opt := range opts {
		opt.F(o)
	}
}

// NewOptions 创建基于给定配置函数的配置项。
func NewOptions(opts []Option) *Options {
	options := &Options{
		MaxEvents:   defaultMaxEvents,
		PollTimeout: defaultPollTimeout,
	}
	options.Apply(opts)
	return options
}
