package device

import (
	"errors"

	"github.com/ezrec/bearcore/translate"
)

var f = translate.From

var (
	ErrBusFault      = errors.New(f("bus fault"))
	ErrMisaligned    = errors.New(f("misaligned access"))
	ErrAccessSize    = errors.New(f("access size invalid"))
	ErrRegionOverlap = errors.New(f("region overlaps an existing mapping"))
	ErrReadOnly      = errors.New(f("register is read-only"))
)

// ErrAccess locates a failed bus access.
type ErrAccess struct {
	Addr  uint32
	Size  int
	Store bool
	Err   error
}

func (err *ErrAccess) Error() string {
	op := "load"
	if err.Store {
		op = "store"
	}
	return f("%v%d at 0x%08x %v", op, err.Size*8, err.Addr, err.Err)
}

func (err *ErrAccess) Unwrap() error {
	return err.Err
}
