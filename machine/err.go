package machine

import (
	"errors"

	"github.com/ezrec/bearcore/translate"
)

var f = translate.From

var (
	ErrImage      = errors.New(f("image does not fit the memory map"))
	ErrCycleLimit = errors.New(f("cycle limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint32
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc 0x%08x %v", err.Pc, err.Err)
	}
	return f("line %d (pc 0x%08x) %v", err.LineNo, err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrLayout names a device that could not be mapped.
type ErrLayout struct {
	Region string
	Base   uint32
	Err    error
}

func (err *ErrLayout) Error() string {
	return f("%v at 0x%08x: %v", err.Region, err.Base, err.Err)
}

func (err *ErrLayout) Unwrap() error {
	return err.Err
}
