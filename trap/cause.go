// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package trap

import (
	"fmt"
)

// Cause is the raw value of mcause.
type Cause uint32

// CAUSE_INTERRUPT is the interrupt/exception discriminator bit.
const CAUSE_INTERRUPT = Cause(1 << 31)

// IsInterrupt reports whether the trap was asynchronous.
func (c Cause) IsInterrupt() bool {
	return c&CAUSE_INTERRUPT != 0
}

// Code is the cause code without the discriminator.
func (c Cause) Code() uint32 {
	return uint32(c &^ CAUSE_INTERRUPT)
}

func (c Cause) String() string {
	if c.IsInterrupt() {
		return Interrupt(c.Code()).String()
	}
	return Exception(c.Code()).String()
}

// Exception is a synchronous cause code.
type Exception uint32

// Every exception code this hart has been observed to raise, or could raise.
const (
	EXC_INSN_MISALIGNED  = Exception(0)  // instruction address misaligned
	EXC_INSN_FAULT       = Exception(1)  // instruction access fault
	EXC_ILLEGAL_INSN     = Exception(2)  // illegal instruction
	EXC_BREAKPOINT       = Exception(3)  // breakpoint
	EXC_LOAD_MISALIGNED  = Exception(4)  // load address misaligned
	EXC_LOAD_FAULT       = Exception(5)  // load access fault
	EXC_STORE_MISALIGNED = Exception(6)  // store address misaligned
	EXC_STORE_FAULT      = Exception(7)  // store access fault
	EXC_ECALL_U          = Exception(8)  // environment call from U-mode
	EXC_ECALL_S          = Exception(9)  // environment call from S-mode
	EXC_ECALL_M          = Exception(11) // environment call from M-mode
)

var exceptionName = map[Exception]string{
	EXC_INSN_MISALIGNED:  "instruction address misaligned",
	EXC_INSN_FAULT:       "instruction access fault",
	EXC_ILLEGAL_INSN:     "illegal instruction",
	EXC_BREAKPOINT:       "breakpoint",
	EXC_LOAD_MISALIGNED:  "load address misaligned",
	EXC_LOAD_FAULT:       "load access fault",
	EXC_STORE_MISALIGNED: "store address misaligned",
	EXC_STORE_FAULT:      "store access fault",
	EXC_ECALL_U:          "environment call from U-mode",
	EXC_ECALL_S:          "environment call from S-mode",
	EXC_ECALL_M:          "environment call from M-mode",
}

// Known reports whether the code is one of the named exceptions.
func (e Exception) Known() bool {
	_, ok := exceptionName[e]
	return ok
}

func (e Exception) String() string {
	name, ok := exceptionName[e]
	if !ok {
		return fmt.Sprintf("exception %d", uint32(e))
	}
	return name
}

// Cause returns the mcause value of the exception.
func (e Exception) Cause() Cause {
	return Cause(e) &^ CAUSE_INTERRUPT
}

// Interrupt is an asynchronous cause code.
type Interrupt uint32

const (
	IRQ_SOFTWARE = Interrupt(3)  // machine software interrupt
	IRQ_TIMER    = Interrupt(7)  // machine timer interrupt
	IRQ_EXTERNAL = Interrupt(11) // machine external interrupt
)

var interruptName = map[Interrupt]string{
	IRQ_SOFTWARE: "software interrupt",
	IRQ_TIMER:    "timer interrupt",
	IRQ_EXTERNAL: "external interrupt",
}

// Known reports whether the id is one of the named interrupts.
func (i Interrupt) Known() bool {
	_, ok := interruptName[i]
	return ok
}

func (i Interrupt) String() string {
	name, ok := interruptName[i]
	if !ok {
		return fmt.Sprintf("interrupt %d", uint32(i))
	}
	return name
}

// Cause returns the mcause value of the interrupt.
func (i Interrupt) Cause() Cause {
	return Cause(i) | CAUSE_INTERRUPT
}

// Kind is the decoded variant of a trap cause.
type Kind int

const (
	KIND_ILLEGAL_INSN      = Kind(iota) // illegal
	KIND_BREAKPOINT                     // breakpoint
	KIND_ECALL                          // ecall
	KIND_FATAL_EXCEPTION                // fatal
	KIND_UNKNOWN_EXCEPTION              // unknown-exception
	KIND_SOFTWARE_IRQ                   // software
	KIND_TIMER_IRQ                      // timer
	KIND_EXTERNAL_IRQ                   // external
	KIND_UNKNOWN_IRQ                    // unknown-interrupt
	KIND_COUNT
)

var kindName = [KIND_COUNT]string{
	"illegal", "breakpoint", "ecall", "fatal", "unknown-exception",
	"software", "timer", "external", "unknown-interrupt",
}

func (k Kind) String() string {
	if k < 0 || k >= KIND_COUNT {
		return fmt.Sprintf("kind %d", int(k))
	}
	return kindName[k]
}

// Recoverable reports whether the dispatcher resumes after this kind of trap.
func (k Kind) Recoverable() bool {
	return k != KIND_FATAL_EXCEPTION && k != KIND_UNKNOWN_EXCEPTION
}

// Decoded is a cause split into its variant. Code carries the raw numeric
// code for every variant, including the unknown ones.
type Decoded struct {
	Kind Kind
	Code uint32
}

// Decode classifies a cause.
func Decode(c Cause) (d Decoded) {
	d.Code = c.Code()

	if c.IsInterrupt() {
		switch Interrupt(d.Code) {
		case IRQ_SOFTWARE:
			d.Kind = KIND_SOFTWARE_IRQ
		case IRQ_TIMER:
			d.Kind = KIND_TIMER_IRQ
		case IRQ_EXTERNAL:
			d.Kind = KIND_EXTERNAL_IRQ
		default:
			d.Kind = KIND_UNKNOWN_IRQ
		}
		return
	}

	switch exc := Exception(d.Code); exc {
	case EXC_ILLEGAL_INSN:
		d.Kind = KIND_ILLEGAL_INSN
	case EXC_BREAKPOINT:
		d.Kind = KIND_BREAKPOINT
	case EXC_ECALL_M:
		d.Kind = KIND_ECALL
	default:
		if exc.Known() {
			d.Kind = KIND_FATAL_EXCEPTION
		} else {
			d.Kind = KIND_UNKNOWN_EXCEPTION
		}
	}

	return
}
