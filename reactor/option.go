package reactor

import (
	"time"

	"github.com/favbox/gale/common/config"
	"github.com/favbox/gale/network"
)

// WithPoller 设置轮询器的创建函数。默认值：Linux 上为 epoll。
func WithPoller(newer func() (network.Poller, error)) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.PollerNewer = newer
	}}
}

// WithMaxEvents 设置单次轮询最多取回的就绪事件数。默认值：128。
func WithMaxEvents(n int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.MaxEvents = n
	}}
}

// WithPollTimeout 设置上下文可取消时单次轮询的最长阻塞时间。默认值：100ms。
func WithPollTimeout(d time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.PollTimeout = d
	}}
}
