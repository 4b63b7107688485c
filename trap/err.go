package trap

import (
	"errors"

	"github.com/ezrec/bearcore/translate"
)

var f = translate.From

var (
	ErrHalted        = errors.New(f("halted on unrecoverable exception"))
	ErrFrameSize     = errors.New(f("frame size invalid"))
	ErrFrameVersion  = errors.New(f("frame version unsupported"))
	ErrFrameMissing  = errors.New(f("frame missing"))
	ErrFrameMismatch = errors.New(f("dispatcher returned a foreign frame"))
	ErrTimerUnparked = errors.New(f("timer interrupt with no comparator to park"))
)

// ErrUnrecoverable carries the context of the exception that halted the core.
type ErrUnrecoverable struct {
	Cause Cause
	Pc    uint32
	Tval  uint32
}

func (err *ErrUnrecoverable) Error() string {
	return f("unrecoverable %v (cause 0x%08x) at pc 0x%08x tval 0x%08x",
		err.Cause, uint32(err.Cause), err.Pc, err.Tval)
}

func (err *ErrUnrecoverable) Unwrap() error {
	return ErrHalted
}
