package hart

import (
	"errors"

	"github.com/ezrec/bearcore/translate"
)

var f = translate.From

var (
	// Hart errors
	ErrNoBus        = errors.New(f("no bus attached"))
	ErrFrameStore   = errors.New(f("trap frame store failed"))
	ErrFrameLoad    = errors.New(f("trap frame reload failed"))
	ErrHandlerFrame = errors.New(f("handler returned no frame"))

	// Hex image errors
	ErrHexAddress = errors.New(f("hex address invalid"))
	ErrHexWord    = errors.New(f("hex word invalid"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrCsrInvalid         = errors.New(f("csr invalid"))
	ErrImmRange           = errors.New(f("immediate out of range"))
	ErrUimmRange          = errors.New(f("csr immediate exceeds 5 bits"))
	ErrOffsetRange        = errors.New(f("branch offset out of range"))
	ErrOriginBackwards    = errors.New(f(".org moves backwards"))
)

// ErrLabelMissing names a label referenced but never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrSyntax locates an assembler error.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrMacro locates an error inside a macro expansion.
type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}
