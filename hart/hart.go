// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package hart

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/bearcore/csr"
	"github.com/ezrec/bearcore/device"
	"github.com/ezrec/bearcore/trap"
)

// Line is an interrupt request line.
type Line interface {
	Pending() bool
}

// Hart is the simulation context of one RV32IM hart.
type Hart struct {
	Verbose bool               // Set to enable instruction tracing.
	Log     logrus.FieldLogger // Trace destination.

	X   [32]uint32 // Integer registers. X[0] reads as zero.
	Pc  uint32     // Program counter.
	CSR csr.File   // Machine-mode CSRs.

	Bus      *device.Bus  // Memory and devices.
	TimerIrq Line         // Drives mip.MTIP; nil leaves it clear.
	Handler  trap.Handler // Go trap handler; nil vectors to mtvec.

	Entry    uint32 // Reset program counter.
	StackTop uint32 // Reset stack pointer.

	cycles   uint64
	instret  uint64
	waiting  bool  // Stalled in wfi.
	spinning bool  // Last instruction jumped to itself.
	halt     error // Parked after an unrecoverable trap.
}

var _ csr.Access = (*Hart)(nil)
var _ device.CounterSource = (*Hart)(nil)

// fault is a synchronous exception raised by an instruction.
type fault struct {
	cause trap.Exception
	tval  uint32
}

// irqPriority lists the interrupts from highest to lowest priority.
var irqPriority = [](struct {
	bit uint32
	irq trap.Interrupt
}){
	{csr.MIP_MEIP, trap.IRQ_EXTERNAL},
	{csr.MIP_MSIP, trap.IRQ_SOFTWARE},
	{csr.MIP_MTIP, trap.IRQ_TIMER},
}

// NewHart creates a hart on a bus.
func NewHart(bus *device.Bus) (h *Hart) {
	h = &Hart{
		Bus: bus,
		Log: logrus.StandardLogger(),
	}
	h.Reset()
	return
}

// Reset the hart state. Devices on the bus are not touched.
func (h *Hart) Reset() {
	clear(h.X[:])
	h.X[2] = h.StackTop
	h.Pc = h.Entry
	h.CSR.Reset()

	h.cycles = 0
	h.instret = 0
	h.waiting = false
	h.spinning = false
	h.halt = nil

	h.trace("reset: pc 0x%08x sp 0x%08x", h.Pc, h.X[2])
}

func (h *Hart) trace(format string, args ...any) {
	if !h.Verbose || h.Log == nil {
		return
	}
	h.Log.Debugf(format, args...)
}

// Cycles implements device.CounterSource.
func (h *Hart) Cycles() uint64 {
	return h.cycles
}

// Instret implements device.CounterSource.
func (h *Hart) Instret() uint64 {
	return h.instret
}

// Halted returns the error that parked the hart, or nil.
func (h *Hart) Halted() error {
	return h.halt
}

// Waiting reports whether the hart is stalled in wfi.
func (h *Hart) Waiting() bool {
	return h.waiting
}

// Stuck reports whether the hart is spinning in place, or waiting, with no
// interrupt able to move it on.
func (h *Hart) Stuck() bool {
	switch {
	case h.waiting:
		return h.CSR.Mie == 0
	case h.spinning:
		return h.CSR.Mie == 0 || h.CSR.Mstatus&csr.MSTATUS_MIE == 0
	}
	return false
}

// String returns the register state.
func (h *Hart) String() (text string) {
	text = fmt.Sprintf("% 8s: %04X_%04X\n", "pc", h.Pc>>16, h.Pc&0xffff)
	for n := range 32 {
		name := fmt.Sprintf("x%d/%v", n, RegName(n))
		text += fmt.Sprintf("% 8s: %04X_%04X\n", name, h.X[n]>>16, h.X[n]&0xffff)
	}
	for _, addr := range csr.Known() {
		val := h.CSR.Read(addr)
		text += fmt.Sprintf("% 8s: %04X_%04X\n", addr.String(), val>>16, val&0xffff)
	}
	return
}

// Tick runs one cycle: the devices advance, pending interrupts are sampled,
// and at most one instruction executes.
func (h *Hart) Tick() (err error) {
	if h.halt != nil {
		return h.halt
	}
	if h.Bus == nil {
		return ErrNoBus
	}

	h.cycles++
	h.Bus.Tick()

	if h.TimerIrq != nil {
		h.CSR.SetPending(csr.MIP_MTIP, h.TimerIrq.Pending())
	}

	taken, err := h.interrupt()
	if taken || err != nil {
		return
	}

	if h.waiting {
		if h.CSR.Enabled() == 0 {
			return
		}
		h.trace("wfi: wake at 0x%08x", h.Pc)
		h.waiting = false
	}

	return h.step()
}

// interrupt takes the highest priority enabled interrupt, if any.
func (h *Hart) interrupt() (taken bool, err error) {
	if h.CSR.Mstatus&csr.MSTATUS_MIE == 0 {
		return
	}

	pending := h.CSR.Enabled()
	if pending == 0 {
		return
	}

	for _, entry := range irqPriority {
		if pending&entry.bit == 0 {
			continue
		}
		// Software and external requests are acknowledged on entry; the
		// timer line stays asserted until the comparator is moved.
		if entry.bit != csr.MIP_MTIP {
			h.CSR.SetPending(entry.bit, false)
		}
		taken = true
		h.waiting = false
		err = h.enter(entry.irq.Cause(), 0)
		return
	}

	return
}

// step fetches and executes one instruction.
func (h *Hart) step() (err error) {
	pc := h.Pc

	if pc&0x3 != 0 {
		return h.enter(trap.EXC_INSN_MISALIGNED.Cause(), pc)
	}

	word, err := h.Bus.Load(pc, 4)
	if err != nil {
		h.trace("fetch 0x%08x: %v", pc, err)
		return h.enter(trap.EXC_INSN_FAULT.Cause(), pc)
	}

	insn := Insn(word)
	h.trace("0x%08x: %08x %v", pc, word, insn)

	exc := h.execute(insn)
	h.X[0] = 0

	if exc != nil {
		h.spinning = false
		return h.enter(exc.cause.Cause(), exc.tval)
	}

	h.instret++
	h.spinning = h.Pc == pc
	return
}

// enter latches the trap into the CSRs and transfers control to the handler.
func (h *Hart) enter(cause trap.Cause, tval uint32) (err error) {
	h.CSR.Enter(uint32(cause), h.Pc, tval)
	h.trace("trap: %v at 0x%08x tval 0x%08x", cause, h.Pc, tval)

	if h.Handler == nil {
		h.Pc = h.CSR.Mtvec
		return
	}

	err = h.trampoline()
	if err != nil {
		if !errors.Is(err, trap.ErrHalted) {
			err = errors.Join(trap.ErrHalted, err)
		}
		h.halt = err
	}
	return
}

func (h *Hart) setRd(rd int, value uint32) {
	if rd != 0 {
		h.X[rd] = value
	}
}

func memFault(err error, misaligned, access trap.Exception, addr uint32) *fault {
	if errors.Is(err, device.ErrMisaligned) {
		return &fault{cause: misaligned, tval: addr}
	}
	return &fault{cause: access, tval: addr}
}

var loadSize = map[uint32]int{0: 1, 1: 2, 2: 4, 4: 1, 5: 2}
var storeSize = map[uint32]int{0: 1, 1: 2, 2: 4}

// execute runs one instruction, returning the exception it raises, if any.
func (h *Hart) execute(insn Insn) (exc *fault) {
	illegal := &fault{cause: trap.EXC_ILLEGAL_INSN, tval: uint32(insn)}

	if insn.Compressed() {
		return illegal
	}

	rd := insn.Rd()
	a := h.X[insn.Rs1()]
	b := h.X[insn.Rs2()]
	f3 := insn.Funct3()
	next := h.Pc + 4

	switch insn.Opcode() {
	case OP_LUI:
		h.setRd(rd, insn.ImmU())
	case OP_AUIPC:
		h.setRd(rd, h.Pc+insn.ImmU())
	case OP_JAL:
		h.setRd(rd, next)
		next = h.Pc + uint32(insn.ImmJ())
	case OP_JALR:
		if f3 != 0 {
			return illegal
		}
		target := (a + uint32(insn.ImmI())) &^ 1
		h.setRd(rd, next)
		next = target
	case OP_BRANCH:
		var taken bool
		switch f3 {
		case 0:
			taken = a == b
		case 1:
			taken = a != b
		case 4:
			taken = int32(a) < int32(b)
		case 5:
			taken = int32(a) >= int32(b)
		case 6:
			taken = a < b
		case 7:
			taken = a >= b
		default:
			return illegal
		}
		if taken {
			next = h.Pc + uint32(insn.ImmB())
		}
	case OP_LOAD:
		size, ok := loadSize[f3]
		if !ok {
			return illegal
		}
		addr := a + uint32(insn.ImmI())
		value, err := h.Bus.Load(addr, size)
		if err != nil {
			return memFault(err, trap.EXC_LOAD_MISALIGNED, trap.EXC_LOAD_FAULT, addr)
		}
		switch f3 {
		case 0:
			value = uint32(int32(int8(value)))
		case 1:
			value = uint32(int32(int16(value)))
		}
		h.setRd(rd, value)
	case OP_STORE:
		size, ok := storeSize[f3]
		if !ok {
			return illegal
		}
		addr := a + uint32(insn.ImmS())
		err := h.Bus.Store(addr, b, size)
		if err != nil {
			return memFault(err, trap.EXC_STORE_MISALIGNED, trap.EXC_STORE_FAULT, addr)
		}
	case OP_IMM:
		imm := uint32(insn.ImmI())
		shamt := imm & 0x1f
		switch f3 {
		case 0:
			h.setRd(rd, a+imm)
		case 1:
			if insn.Funct7() != 0 {
				return illegal
			}
			h.setRd(rd, a<<shamt)
		case 2:
			h.setRd(rd, b2u(int32(a) < int32(imm)))
		case 3:
			h.setRd(rd, b2u(a < imm))
		case 4:
			h.setRd(rd, a^imm)
		case 5:
			switch insn.Funct7() {
			case 0x00:
				h.setRd(rd, a>>shamt)
			case 0x20:
				h.setRd(rd, uint32(int32(a)>>shamt))
			default:
				return illegal
			}
		case 6:
			h.setRd(rd, a|imm)
		case 7:
			h.setRd(rd, a&imm)
		}
	case OP_REG:
		value, ok := alu(insn.Funct7(), f3, a, b)
		if !ok {
			return illegal
		}
		h.setRd(rd, value)
	case OP_MISC_MEM:
		// fence: a single hart with no caches has nothing to order.
	case OP_SYSTEM:
		return h.system(insn, &next)
	default:
		return illegal
	}

	h.Pc = next
	return
}

func b2u(cond bool) uint32 {
	if cond {
		return 1
	}
	return 0
}

// alu evaluates an OP_REG instruction, including the M extension.
func alu(funct7 uint32, funct3 uint32, a, b uint32) (value uint32, ok bool) {
	ok = true
	switch funct7 {
	case 0x00:
		switch funct3 {
		case 0:
			value = a + b
		case 1:
			value = a << (b & 0x1f)
		case 2:
			value = b2u(int32(a) < int32(b))
		case 3:
			value = b2u(a < b)
		case 4:
			value = a ^ b
		case 5:
			value = a >> (b & 0x1f)
		case 6:
			value = a | b
		case 7:
			value = a & b
		}
	case 0x20:
		switch funct3 {
		case 0:
			value = a - b
		case 5:
			value = uint32(int32(a) >> (b & 0x1f))
		default:
			ok = false
		}
	case 0x01:
		switch funct3 {
		case 0:
			value = a * b
		case 1:
			value = uint32(uint64(int64(int32(a))*int64(int32(b))) >> 32)
		case 2:
			value = uint32(uint64(int64(int32(a))*int64(b)) >> 32)
		case 3:
			value, _ = bits.Mul32(a, b)
		case 4:
			switch {
			case b == 0:
				value = 0xffff_ffff
			case int32(a) == -0x8000_0000 && int32(b) == -1:
				value = a
			default:
				value = uint32(int32(a) / int32(b))
			}
		case 5:
			if b == 0 {
				value = 0xffff_ffff
			} else {
				value = a / b
			}
		case 6:
			switch {
			case b == 0:
				value = a
			case int32(a) == -0x8000_0000 && int32(b) == -1:
				value = 0
			default:
				value = uint32(int32(a) % int32(b))
			}
		case 7:
			if b == 0 {
				value = a
			} else {
				value = a % b
			}
		}
	default:
		ok = false
	}
	return
}

// system executes ecall, ebreak, mret, wfi and the Zicsr instructions.
func (h *Hart) system(insn Insn, next *uint32) (exc *fault) {
	illegal := &fault{cause: trap.EXC_ILLEGAL_INSN, tval: uint32(insn)}

	switch insn.Funct3() {
	case F3_PRIV:
		switch insn {
		case INSN_ECALL:
			return &fault{cause: trap.EXC_ECALL_M}
		case INSN_EBREAK:
			return &fault{cause: trap.EXC_BREAKPOINT}
		case INSN_MRET:
			*next = h.CSR.Return()
			h.trace("mret: resume at 0x%08x", *next)
		case INSN_WFI:
			h.waiting = true
		default:
			return illegal
		}
	case F3_CSRRW, F3_CSRRS, F3_CSRRC:
		old := h.csrOp(insn.Funct3(), csr.Addr(insn.Csr()), h.X[insn.Rs1()])
		h.setRd(insn.Rd(), old)
	case F3_CSRRWI, F3_CSRRSI, F3_CSRRCI:
		old := h.csrOp(insn.Funct3(), csr.Addr(insn.Csr()), uint32(insn.Rs1()))
		h.setRd(insn.Rd(), old)
	default:
		return illegal
	}

	h.Pc = *next
	return
}

// csrOp is the single read-modify-write of one Zicsr instruction.
func (h *Hart) csrOp(funct3 uint32, addr csr.Addr, src uint32) (old uint32) {
	switch funct3 {
	case F3_CSRRW:
		old = h.CSR.Swap(addr, src)
	case F3_CSRRS:
		old = h.CSR.Set(addr, src)
	case F3_CSRRC:
		old = h.CSR.Clear(addr, src)
	case F3_CSRRWI:
		old = h.CSR.SwapImm(addr, csr.Uimm5(src))
	case F3_CSRRSI:
		old = h.CSR.SetImm(addr, csr.Uimm5(src))
	case F3_CSRRCI:
		old = h.CSR.ClearImm(addr, csr.Uimm5(src))
	}

	if h.Verbose {
		h.trace("csr: %v 0x%08x -> 0x%08x", addr, old, h.CSR.Read(addr))
	}
	return
}

// Read implements csr.Access, as csrrs rd, csr, x0.
func (h *Hart) Read(addr csr.Addr) uint32 {
	return h.csrOp(F3_CSRRS, addr, 0)
}

// Write implements csr.Access, as csrrw x0, csr, rs1.
func (h *Hart) Write(addr csr.Addr, value uint32) {
	h.csrOp(F3_CSRRW, addr, value)
}

// Swap implements csr.Access, as csrrw.
func (h *Hart) Swap(addr csr.Addr, value uint32) (old uint32) {
	return h.csrOp(F3_CSRRW, addr, value)
}

// Set implements csr.Access, as csrrs.
func (h *Hart) Set(addr csr.Addr, mask uint32) (old uint32) {
	return h.csrOp(F3_CSRRS, addr, mask)
}

// Clear implements csr.Access, as csrrc.
func (h *Hart) Clear(addr csr.Addr, mask uint32) (old uint32) {
	return h.csrOp(F3_CSRRC, addr, mask)
}

// SwapImm implements csr.Access, as csrrwi.
func (h *Hart) SwapImm(addr csr.Addr, imm csr.Uimm5) (old uint32) {
	return h.csrOp(F3_CSRRWI, addr, imm.Bits())
}

// SetImm implements csr.Access, as csrrsi.
func (h *Hart) SetImm(addr csr.Addr, imm csr.Uimm5) (old uint32) {
	return h.csrOp(F3_CSRRSI, addr, imm.Bits())
}

// ClearImm implements csr.Access, as csrrci.
func (h *Hart) ClearImm(addr csr.Addr, imm csr.Uimm5) (old uint32) {
	return h.csrOp(F3_CSRRCI, addr, imm.Bits())
}
