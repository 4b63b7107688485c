package config

import (
	"errors"

	"github.com/ezrec/bearcore/translate"
)

var f = translate.From

var (
	ErrDecode     = errors.New(f("configuration unreadable"))
	ErrRamSize    = errors.New(f("ram size must be a non-zero multiple of 4"))
	ErrStackTop   = errors.New(f("stack top must be 16-byte aligned and inside ram"))
	ErrEntry      = errors.New(f("entry point must be word aligned"))
	ErrDeviceBase = errors.New(f("device base must be word aligned"))
	ErrWaitBound  = errors.New(f("wait bound must be positive"))
	ErrBistLength = errors.New(f("bist length must be 1 to the self-test message length"))
)

// ErrUnknownKey names configuration keys that match no setting.
type ErrUnknownKey string

func (err ErrUnknownKey) Error() string {
	return f("unknown configuration key %v", string(err))
}
