package main

import (
	"github.com/favbox/gale/network"
	"github.com/favbox/gale/network/unixfd"
	"golang.org/x/sys/unix"
)

// 将进程的打开文件数软上限提升到至少 want，不超过硬上限。
func raiseFileLimit(want uint64) error {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return err
	}
	if lim.Cur >= want {
		return nil
	}
	if want > lim.Max {
		want = lim.Max
	}
	lim.Cur = want
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &lim)
}

func osPipe() (network.Endpoint, network.Endpoint, error) {
	r, w, err := unixfd.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return r, w, nil
}
