// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package csr

// File is the register model of the machine-mode CSRs.
//
// Per-register behavior:
//   - mtvec: the base is 4-byte aligned, the low two bits always read as zero.
//   - mepc: bit 0 always reads as zero.
//   - misa: read-only, writes are ignored.
//   - mip: MTIP is owned by the timer and ignores software writes; MSIP and
//     MEIP are writable. Reading mip has no side effects.
//   - mstatus: only MIE and MPIE are implemented.
//   - any other address reads as zero and ignores writes.
type File struct {
	Mstatus  uint32
	Misa     uint32
	Mie      uint32
	Mtvec    uint32
	Mscratch uint32
	Mepc     uint32
	Mcause   uint32
	Mtval    uint32
	Mip      uint32
}

var _ Access = (*File)(nil)

const (
	mstatusMask = MSTATUS_MIE | MSTATUS_MPIE
	mieMask     = MIE_MSIE | MIE_MTIE | MIE_MEIE
	mipSoftMask = MIP_MSIP | MIP_MEIP
)

// Reset to the power-on values.
func (f *File) Reset() {
	*f = File{
		Misa:  MISA_RV32IM,
		Mtvec: 0x100,
	}
}

// Read implements Access.
func (f *File) Read(addr Addr) (value uint32) {
	switch addr {
	case MSTATUS:
		value = f.Mstatus
	case MISA:
		value = f.Misa
	case MIE:
		value = f.Mie
	case MTVEC:
		value = f.Mtvec
	case MSCRATCH:
		value = f.Mscratch
	case MEPC:
		value = f.Mepc
	case MCAUSE:
		value = f.Mcause
	case MTVAL:
		value = f.Mtval
	case MIP:
		value = f.Mip
	}
	return
}

// Write implements Access.
func (f *File) Write(addr Addr, value uint32) {
	switch addr {
	case MSTATUS:
		f.Mstatus = value & mstatusMask
	case MISA:
		// read-only
	case MIE:
		f.Mie = value & mieMask
	case MTVEC:
		f.Mtvec = value &^ 0x3
	case MSCRATCH:
		f.Mscratch = value
	case MEPC:
		f.Mepc = value &^ 0x1
	case MCAUSE:
		f.Mcause = value
	case MTVAL:
		f.Mtval = value
	case MIP:
		f.Mip = (f.Mip &^ mipSoftMask) | (value & mipSoftMask)
	}
}

// Swap implements Access.
func (f *File) Swap(addr Addr, value uint32) (old uint32) {
	old = f.Read(addr)
	f.Write(addr, value)
	return
}

// Set implements Access.
func (f *File) Set(addr Addr, mask uint32) (old uint32) {
	old = f.Read(addr)
	if mask != 0 {
		f.Write(addr, old|mask)
	}
	return
}

// Clear implements Access.
func (f *File) Clear(addr Addr, mask uint32) (old uint32) {
	old = f.Read(addr)
	if mask != 0 {
		f.Write(addr, old&^mask)
	}
	return
}

// SwapImm implements Access.
func (f *File) SwapImm(addr Addr, imm Uimm5) (old uint32) {
	return f.Swap(addr, imm.Bits())
}

// SetImm implements Access.
func (f *File) SetImm(addr Addr, imm Uimm5) (old uint32) {
	return f.Set(addr, imm.Bits())
}

// ClearImm implements Access.
func (f *File) ClearImm(addr Addr, imm Uimm5) (old uint32) {
	return f.Clear(addr, imm.Bits())
}

// SetPending drives a hardware-owned mip bit.
func (f *File) SetPending(bit uint32, pending bool) {
	if pending {
		f.Mip |= bit
	} else {
		f.Mip &^= bit
	}
}

// Enabled returns the pending interrupts that are locally enabled.
// Global enable (mstatus.MIE) is not considered.
func (f *File) Enabled() uint32 {
	return f.Mip & f.Mie
}

// Enter latches trap state: mepc, mcause and mtval are set, MPIE takes the
// value of MIE and MIE is cleared.
func (f *File) Enter(cause uint32, pc uint32, tval uint32) {
	f.Mepc = pc &^ 0x1
	f.Mcause = cause
	f.Mtval = tval

	status := f.Mstatus &^ MSTATUS_MPIE
	if f.Mstatus&MSTATUS_MIE != 0 {
		status |= MSTATUS_MPIE
	}
	f.Mstatus = status &^ MSTATUS_MIE
}

// Return performs the mret status update: MIE takes the value of MPIE, and MPIE
// is set. The resumption address (mepc) is returned.
func (f *File) Return() (pc uint32) {
	status := f.Mstatus &^ MSTATUS_MIE
	if f.Mstatus&MSTATUS_MPIE != 0 {
		status |= MSTATUS_MIE
	}
	f.Mstatus = status | MSTATUS_MPIE

	return f.Mepc
}
