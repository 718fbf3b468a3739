package xrsr

import (
	"errors"
	"fmt"
)

// ErrConfig marks an invalid precompute partition. It is detected while a
// kernel is built and is never retried.
var ErrConfig = errors.New("invalid precompute configuration")

type configError struct {
	msg string
}

func (e configError) Error() string {
	return e.msg
}

func (e configError) Unwrap() error {
	return ErrConfig
}

func configErrorf(format string, args ...any) error {
	return configError{msg: fmt.Sprintf(format, args...)}
}
