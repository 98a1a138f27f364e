//go:build !linux

package epoll

import (
	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
)

// New 在非 Linux 平台上返回 ErrNotSupported。
func New() (network.Poller, error) {
	return nil, errs.ErrNotSupported
}
