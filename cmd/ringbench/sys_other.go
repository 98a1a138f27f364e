//go:build !linux

package main

import (
	errs "github.com/favbox/gale/common/errors"
	"github.com/favbox/gale/network"
)

func raiseFileLimit(uint64) error {
	return errs.ErrNotSupported
}

func osPipe() (network.Endpoint, network.Endpoint, error) {
	return nil, nil, errs.ErrNotSupported
}
