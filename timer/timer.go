// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package timer programs the 64-bit machine timer comparator, which is only
// reachable as two independently written 32-bit halves.
//
// Arming writes the high half to the all-ones sentinel before touching the low
// half, so the comparator never observes a deadline earlier than the target
// while the halves disagree.
package timer

import (
	"github.com/ezrec/bearcore/csr"
)

// Register selects one 32-bit half of the timer.
type Register int

const (
	MTIME_LO    = Register(iota) // mtime[31:0]
	MTIME_HI                     // mtime[63:32]
	MTIMECMP_LO                  // mtimecmp[31:0]
	MTIMECMP_HI                  // mtimecmp[63:32]
)

// SENTINEL is the all-ones compare half, a deadline never reached.
const SENTINEL = uint32(0xffff_ffff)

// Registers gives word access to the timer halves.
type Registers interface {
	Load(reg Register) uint32
	Store(reg Register, value uint32)
}

// Timer drives the comparator and its interrupt enables.
type Timer struct {
	Regs Registers  // Memory-mapped timer registers.
	CSR  csr.Access // Interrupt enable bookkeeping; nil skips it.
}

// Now reads mtime, re-reading when the low half carries into the high half
// between the two loads.
func (t *Timer) Now() uint64 {
	for {
		hi := t.Regs.Load(MTIME_HI)
		lo := t.Regs.Load(MTIME_LO)
		if t.Regs.Load(MTIME_HI) == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
	}
}

// Compare reads the current deadline.
func (t *Timer) Compare() uint64 {
	hi := t.Regs.Load(MTIMECMP_HI)
	lo := t.Regs.Load(MTIMECMP_LO)
	return uint64(hi)<<32 | uint64(lo)
}

// Arm sets the deadline.
func (t *Timer) Arm(deadline uint64) {
	t.Regs.Store(MTIMECMP_HI, SENTINEL)
	t.Regs.Store(MTIMECMP_LO, uint32(deadline))
	t.Regs.Store(MTIMECMP_HI, uint32(deadline>>32))
}

// ArmAfter sets the deadline delta ticks from now.
func (t *Timer) ArmAfter(delta uint64) (deadline uint64) {
	deadline = t.Now() + delta
	t.Arm(deadline)
	return
}

// Park moves the deadline to the sentinel so the comparator cannot fire again
// until re-armed. Interrupt enables are left alone.
func (t *Timer) Park() {
	t.Regs.Store(MTIMECMP_HI, SENTINEL)
	t.Regs.Store(MTIMECMP_LO, SENTINEL)
}

// Enable turns on the timer interrupt and the global interrupt enable.
func (t *Timer) Enable() {
	if t.CSR == nil {
		return
	}
	t.CSR.Set(csr.MIE, csr.MIE_MTIE)
	t.CSR.Set(csr.MSTATUS, csr.MSTATUS_MIE)
}

// Disarm parks the comparator and clears the timer interrupt enable. The
// global enable is cleared too, unless another enabled source is pending.
func (t *Timer) Disarm() {
	t.Park()

	if t.CSR == nil {
		return
	}

	t.CSR.Clear(csr.MIE, csr.MIE_MTIE)
	if t.CSR.Read(csr.MIP)&t.CSR.Read(csr.MIE) == 0 {
		t.CSR.ClearImm(csr.MSTATUS, csr.Uimm5(csr.MSTATUS_MIE))
	}
}
