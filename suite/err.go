package suite

import (
	"errors"

	"github.com/ezrec/bearcore/translate"
)

var f = translate.From

var (
	ErrGroupUnknown = errors.New(f("validation group unknown"))
)

// ErrGroup names the group that could not run.
type ErrGroup struct {
	Group string
	Err   error
}

func (err *ErrGroup) Error() string {
	return f("group %v: %v", err.Group, err.Err)
}

func (err *ErrGroup) Unwrap() error {
	return err.Err
}
