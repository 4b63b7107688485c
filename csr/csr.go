// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package csr describes the machine-mode control and status registers of the
// BearCore-V hart, and the atomic access capability used to manipulate them.
//
// Every operation of Access maps onto exactly one CSR instruction (csrrw,
// csrrs, csrrc and their immediate forms), so each one is atomic with respect
// to interrupts. Sequences built from several operations are not, and must be
// wrapped with WithoutInterrupts when that matters.
package csr

import (
	"fmt"
)

// Addr is a 12-bit CSR address.
type Addr uint16

const (
	MSTATUS  = Addr(0x300) // Machine status.
	MISA     = Addr(0x301) // ISA and extensions (read-only).
	MIE      = Addr(0x304) // Machine interrupt enable.
	MTVEC    = Addr(0x305) // Trap vector base.
	MSCRATCH = Addr(0x340) // Scratch.
	MEPC     = Addr(0x341) // Exception program counter.
	MCAUSE   = Addr(0x342) // Trap cause.
	MTVAL    = Addr(0x343) // Trap value.
	MIP      = Addr(0x344) // Machine interrupt pending.
)

// mstatus bits.
const (
	MSTATUS_MIE  = uint32(1 << 3) // Global machine interrupt enable.
	MSTATUS_MPIE = uint32(1 << 7) // MIE prior to the trap.
)

// mie / mip bits.
const (
	MIP_MSIP = uint32(1 << 3)  // Machine software interrupt.
	MIP_MTIP = uint32(1 << 7)  // Machine timer interrupt.
	MIP_MEIP = uint32(1 << 11) // Machine external interrupt.

	MIE_MSIE = MIP_MSIP
	MIE_MTIE = MIP_MTIP
	MIE_MEIE = MIP_MEIP
)

// MISA_RV32IM is the misa value of the hart: MXL=1 (32-bit), I and M.
const MISA_RV32IM = uint32(0x4000_1100)

var addrName = map[Addr]string{
	MSTATUS:  "mstatus",
	MISA:     "misa",
	MIE:      "mie",
	MTVEC:    "mtvec",
	MSCRATCH: "mscratch",
	MEPC:     "mepc",
	MCAUSE:   "mcause",
	MTVAL:    "mtval",
	MIP:      "mip",
}

// Known returns the machine-mode CSRs implemented by the hart, in address order.
func Known() []Addr {
	return []Addr{MSTATUS, MISA, MIE, MTVEC, MSCRATCH, MEPC, MCAUSE, MTVAL, MIP}
}

// Lookup finds a CSR by its assembler name.
func Lookup(name string) (addr Addr, ok bool) {
	for a, n := range addrName {
		if n == name {
			return a, true
		}
	}
	return
}

func (a Addr) String() string {
	name, ok := addrName[a]
	if ok {
		return name
	}
	return fmt.Sprintf("csr_%03x", uint16(a))
}

// Uimm5 is the 5-bit unsigned immediate of csrrwi, csrrsi and csrrci.
type Uimm5 uint8

// UIMM5_MAX is the largest encodable immediate.
const UIMM5_MAX = Uimm5(31)

// MustUimm5 converts a value to an immediate. It panics if the value does not
// fit in five bits; use it only with constants, where the panic happens at
// package initialization.
func MustUimm5(value uint32) Uimm5 {
	if value > uint32(UIMM5_MAX) {
		panic(fmt.Sprintf("csr: immediate %d does not fit in 5 bits", value))
	}
	return Uimm5(value)
}

// Valid reports whether the immediate is encodable.
func (u Uimm5) Valid() bool {
	return u <= UIMM5_MAX
}

// Bits returns the immediate as an operand. An immediate that does not fit
// in five bits panics rather than being truncated.
func (u Uimm5) Bits() uint32 {
	return uint32(MustUimm5(uint32(u)))
}

// Access is the capability to manipulate CSRs. One implementation exists per
// target; the dispatcher and validation code never depend on instructions.
type Access interface {
	// Read returns the register (csrrs rd, csr, x0).
	Read(addr Addr) uint32
	// Write replaces the register (csrrw x0, csr, rs1).
	Write(addr Addr, value uint32)
	// Swap installs value and returns the prior contents (csrrw).
	Swap(addr Addr, value uint32) (old uint32)
	// Set ORs mask into the register and returns the prior contents (csrrs).
	Set(addr Addr, mask uint32) (old uint32)
	// Clear removes mask from the register and returns the prior contents (csrrc).
	Clear(addr Addr, mask uint32) (old uint32)
	// SwapImm is the immediate form of Swap (csrrwi).
	SwapImm(addr Addr, imm Uimm5) (old uint32)
	// SetImm is the immediate form of Set (csrrsi).
	SetImm(addr Addr, imm Uimm5) (old uint32)
	// ClearImm is the immediate form of Clear (csrrci).
	ClearImm(addr Addr, imm Uimm5) (old uint32)
}

// ReadModifyWrite replaces a register with fn(old), returning old.
// This is a read followed by a separate write: it is NOT atomic.
func ReadModifyWrite(a Access, addr Addr, fn func(old uint32) uint32) (old uint32) {
	old = a.Read(addr)
	a.Write(addr, fn(old))
	return
}

// WithoutInterrupts runs fn with mstatus.MIE cleared, and restores MIE
// afterwards if it was set on entry.
func WithoutInterrupts(a Access, fn func()) {
	prior := a.ClearImm(MSTATUS, Uimm5(MSTATUS_MIE))
	defer func() {
		if prior&MSTATUS_MIE != 0 {
			a.SetImm(MSTATUS, Uimm5(MSTATUS_MIE))
		}
	}()

	fn()
}
