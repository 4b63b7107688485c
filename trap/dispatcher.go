// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package trap

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// SKIP_WIDTH is the size of the instruction skipped on recovery. The hart has
// no compressed instructions, so every instruction is four bytes wide.
const SKIP_WIDTH = 4

// State of the dispatcher.
type State int

const (
	STATE_RUNNING     = State(iota) // running
	STATE_TRAPPED                   // trapped
	STATE_DISPATCHING               // dispatching
	STATE_RESUMING                  // resuming
	STATE_HALTED                    // halted
)

func (s State) String() string {
	switch s {
	case STATE_RUNNING:
		return "running"
	case STATE_TRAPPED:
		return "trapped"
	case STATE_DISPATCHING:
		return "dispatching"
	case STATE_RESUMING:
		return "resuming"
	case STATE_HALTED:
		return "halted"
	}
	return fmt.Sprintf("state %d", int(s))
}

// Context is what the trampoline passes on trap entry.
type Context struct {
	Cause Cause  // mcause
	Pc    uint32 // mepc: faulting or interrupted program counter.
	Tval  uint32 // mtval
	Frame *Frame // Saved registers, borrowed from the trampoline.
}

// Parker silences the timer comparator until it is explicitly re-armed.
type Parker interface {
	Park()
}

// Handler is the entry point the trampoline calls. The returned frame must be
// the one passed in.
type Handler interface {
	Dispatch(ctx Context) (*Frame, error)
}

// Dispatcher decodes traps and decides how the core resumes.
type Dispatcher struct {
	Console io.Writer          // Diagnostic text output.
	Log     logrus.FieldLogger // Trace logging; nil disables.
	Timer   Parker             // Comparator to silence on a timer interrupt; required to survive one.
	OnTimer func()             // Called on every timer interrupt, before the comparator is parked.

	SyscallObserved bool // Set on every environment call.
	IrqHandled      bool // Set on every timer interrupt.

	Stats [KIND_COUNT]int // Traps handled, per variant.

	state State
	halt  *ErrUnrecoverable
}

var _ Handler = (*Dispatcher)(nil)

type handlerFunc func(d *Dispatcher, ctx *Context, code uint32) error

var dispatchTable = [KIND_COUNT]handlerFunc{
	KIND_ILLEGAL_INSN:      (*Dispatcher).onIllegal,
	KIND_BREAKPOINT:        (*Dispatcher).onBreakpoint,
	KIND_ECALL:             (*Dispatcher).onEcall,
	KIND_FATAL_EXCEPTION:   (*Dispatcher).onFatal,
	KIND_UNKNOWN_EXCEPTION: (*Dispatcher).onFatal,
	KIND_SOFTWARE_IRQ:      (*Dispatcher).onSoftware,
	KIND_TIMER_IRQ:         (*Dispatcher).onTimer,
	KIND_EXTERNAL_IRQ:      (*Dispatcher).onExternal,
	KIND_UNKNOWN_IRQ:       (*Dispatcher).onUnknownIrq,
}

// NewDispatcher creates a dispatcher writing diagnostics to console. Set Timer
// before enabling the timer interrupt: a timer interrupt with no comparator to
// park halts.
func NewDispatcher(console io.Writer) *Dispatcher {
	return &Dispatcher{Console: console}
}

// Reset returns the dispatcher to the running state and clears all flags.
func (d *Dispatcher) Reset() {
	d.SyscallObserved = false
	d.IrqHandled = false
	clear(d.Stats[:])
	d.state = STATE_RUNNING
	d.halt = nil
}

// State returns the current state.
func (d *Dispatcher) State() State {
	return d.state
}

// Halted returns the exception that halted the core, if any.
func (d *Dispatcher) Halted() (err *ErrUnrecoverable, ok bool) {
	return d.halt, d.halt != nil
}

func (d *Dispatcher) printf(format string, args ...any) {
	if d.Console == nil {
		return
	}
	fmt.Fprintf(d.Console, format, args...)
}

func (d *Dispatcher) setState(state State) {
	if d.Log != nil {
		d.Log.WithFields(logrus.Fields{"from": d.state, "to": state}).Trace("trap: state")
	}
	d.state = state
}

// Dispatch handles a single trap. Recoverable traps return the frame, possibly
// with a corrected resumption PC, and a nil error. Unrecoverable exceptions
// leave the frame untouched, move to the halted state and return an error
// wrapping ErrHalted; from then on every call returns ErrHalted.
func (d *Dispatcher) Dispatch(ctx Context) (frame *Frame, err error) {
	frame = ctx.Frame

	if d.state == STATE_HALTED {
		err = ErrHalted
		return
	}

	if frame == nil {
		err = ErrFrameMissing
		return
	}

	if frame.Version != FRAME_VERSION {
		err = ErrFrameVersion
		return
	}

	d.setState(STATE_TRAPPED)
	d.setState(STATE_DISPATCHING)

	decoded := Decode(ctx.Cause)
	d.Stats[decoded.Kind]++

	if d.Log != nil {
		d.Log.WithFields(logrus.Fields{
			"cause": fmt.Sprintf("0x%08x", uint32(ctx.Cause)),
			"kind":  decoded.Kind,
			"pc":    fmt.Sprintf("0x%08x", ctx.Pc),
			"tval":  fmt.Sprintf("0x%08x", ctx.Tval),
		}).Debug("trap: dispatch")
	}

	err = dispatchTable[decoded.Kind](d, &ctx, decoded.Code)
	if err != nil {
		d.setState(STATE_HALTED)
		return
	}

	d.setState(STATE_RESUMING)
	d.setState(STATE_RUNNING)

	return
}

// skip resumes at the instruction after the one that trapped.
func (d *Dispatcher) skip(ctx *Context) {
	ctx.Frame.SetPC(ctx.Pc + SKIP_WIDTH)
}

func (d *Dispatcher) logException(ctx *Context) {
	d.printf("[EXCEPTION] Cause: %d at PC=0x%08X tval=0x%08X\n",
		ctx.Cause.Code(), ctx.Pc, ctx.Tval)
}

func (d *Dispatcher) onIllegal(ctx *Context, code uint32) error {
	d.logException(ctx)
	d.printf("Illegal instruction\n")
	d.skip(ctx)
	return nil
}

func (d *Dispatcher) onBreakpoint(ctx *Context, code uint32) error {
	d.logException(ctx)
	d.printf("Breakpoint\n")
	d.skip(ctx)
	return nil
}

func (d *Dispatcher) onEcall(ctx *Context, code uint32) error {
	d.logException(ctx)
	d.printf("ECALL\n")
	d.SyscallObserved = true
	d.skip(ctx)
	return nil
}

// onFatal never touches the frame; an arbitrary exception is not safe to skip.
func (d *Dispatcher) onFatal(ctx *Context, code uint32) error {
	d.logException(ctx)
	d.printf("Unhandled exception: %v\n", Exception(code))
	d.printf("[TRAP] Cause: 0x%08X EPC: 0x%08X Halted.\n", uint32(ctx.Cause), ctx.Pc)

	d.halt = &ErrUnrecoverable{Cause: ctx.Cause, Pc: ctx.Pc, Tval: ctx.Tval}
	if d.Log != nil {
		d.Log.WithError(d.halt).Error("trap: halted")
	}
	return d.halt
}

func (d *Dispatcher) onSoftware(ctx *Context, code uint32) error {
	d.printf("[INT] Software interrupt\n")
	return nil
}

func (d *Dispatcher) onTimer(ctx *Context, code uint32) error {
	if d.OnTimer != nil {
		d.OnTimer()
	}

	// The comparator must be parked before resuming.
	if d.Timer == nil {
		d.printf("[INT] Timer interrupt, no comparator. Halted.\n")
		return errors.Join(ErrHalted, ErrTimerUnparked)
	}
	d.Timer.Park()

	d.IrqHandled = true
	return nil
}

func (d *Dispatcher) onExternal(ctx *Context, code uint32) error {
	d.printf("[INT] External interrupt\n")
	return nil
}

func (d *Dispatcher) onUnknownIrq(ctx *Context, code uint32) error {
	d.printf("[INT] Unknown interrupt: %d\n", code)
	return nil
}
