// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package suite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ezrec/bearcore/csr"
	"github.com/ezrec/bearcore/device"
	"github.com/ezrec/bearcore/timer"
	"github.com/ezrec/bearcore/trap"
)

// Group is a set of related checks, selectable from the menu by Key.
type Group struct {
	Key  byte
	Name string
	Run  func(s *Session) error
}

// Groups lists every validation group, in menu order.
var Groups = []*Group{
	{'1', "CSR", testCSR},
	{'2', "Exceptions", testExceptions},
	{'3', "Timer", testTimer},
	{'4', "Interrupts", testInterrupts},
	{'5', "BIST", testBist},
}

// Lookup finds a group by name, ignoring case, or by menu key.
func Lookup(name string) (g *Group, err error) {
	for _, g = range Groups {
		if strings.EqualFold(g.Name, name) || (len(name) == 1 && name[0] == g.Key) {
			return
		}
	}
	g = nil
	err = fmt.Errorf("%w: %v", ErrGroupUnknown, name)
	return
}

func testCSR(s *Session) (err error) {
	m := s.Machine
	l := &s.Ledger
	var a csr.Access = m.Hart

	m.Reset()

	s.heading("MSCRATCH Basic Test")
	orig := a.Read(csr.MSCRATCH)
	a.Write(csr.MSCRATCH, 0x1234_5678)
	l.Report("CSRW Write/Read", a.Read(csr.MSCRATCH), 0x1234_5678)
	a.Write(csr.MSCRATCH, orig)

	s.heading("MSTATUS MIE Bit Test")
	orig = a.Read(csr.MSTATUS)
	a.Set(csr.MSTATUS, csr.MSTATUS_MIE)
	l.Report("Set MIE Bit", a.Read(csr.MSTATUS)&csr.MSTATUS_MIE, csr.MSTATUS_MIE)
	a.Clear(csr.MSTATUS, csr.MSTATUS_MIE)
	l.Report("Clear MIE Bit", a.Read(csr.MSTATUS)&csr.MSTATUS_MIE, 0)
	a.Write(csr.MSTATUS, orig)

	s.heading("MTVEC Alignment Test")
	orig = a.Read(csr.MTVEC)
	a.Write(csr.MTVEC, 0x123)
	l.Report("MTVEC Write (auto-align)", a.Read(csr.MTVEC), 0x120)
	a.Write(csr.MTVEC, orig)

	s.heading("MIE Register Test")
	orig = a.Read(csr.MIE)
	a.Set(csr.MIE, csr.MIE_MTIE|csr.MIE_MSIE)
	l.Report("Set MIE bits", a.Read(csr.MIE)&0x88, 0x88)
	a.Clear(csr.MIE, 0xffff_ffff)
	l.Report("Clear all MIE bits", a.Read(csr.MIE), 0)
	a.Write(csr.MIE, orig)

	s.heading("Exception Register Test")
	a.Write(csr.MEPC, 0x1001)
	l.Report("MEPC Write/Read", a.Read(csr.MEPC), 0x1000)
	a.Write(csr.MCAUSE, uint32(trap.EXC_ECALL_M))
	l.Report("MCAUSE Write/Read", a.Read(csr.MCAUSE), uint32(trap.EXC_ECALL_M))
	a.Write(csr.MTVAL, 0xdead_beef)
	l.Report("MTVAL Write/Read", a.Read(csr.MTVAL), 0xdead_beef)

	s.heading("CSR Atomic Operation Test")
	orig = a.Read(csr.MSCRATCH)
	a.Write(csr.MSCRATCH, 0x5a5a_0000)
	l.Report("CSRRW Returns Prior", a.Swap(csr.MSCRATCH, 0xa5a5_a5a5), 0x5a5a_0000)
	l.Report("CSRRW Atomic Swap", a.Read(csr.MSCRATCH), 0xa5a5_a5a5)
	a.Set(csr.MSCRATCH, 0x0000_ffff)
	l.Report("CSRRS Set Bits", a.Read(csr.MSCRATCH), 0xa5a5_ffff)
	a.Clear(csr.MSCRATCH, 0xffff_0000)
	l.Report("CSRRC Clear Bits", a.Read(csr.MSCRATCH), 0x0000_ffff)

	a.Write(csr.MSCRATCH, 0x1234_0000)
	a.Set(csr.MSCRATCH, 0x0000_00ff)
	a.Clear(csr.MSCRATCH, 0x0000_00ff)
	l.Report("Set/Clear Restore", a.Read(csr.MSCRATCH), 0x1234_0000)

	s.heading("CSR Immediate Instruction Test")
	a.Write(csr.MSCRATCH, 0)
	a.SwapImm(csr.MSCRATCH, 5)
	l.Report("CSRRWI Write Immediate 5", a.Read(csr.MSCRATCH), 0x5)
	a.SetImm(csr.MSCRATCH, 3)
	l.Report("CSRRSI Set Immediate 3", a.Read(csr.MSCRATCH), 0x7)
	a.ClearImm(csr.MSCRATCH, 2)
	l.Report("CSRRCI Clear Immediate 2", a.Read(csr.MSCRATCH), 0x5)
	a.Write(csr.MSCRATCH, orig)

	s.heading("MISA Test")
	misa := a.Read(csr.MISA)
	l.Report("MISA RV32IM", misa, csr.MISA_RV32IM)
	a.Write(csr.MISA, 0)
	l.Report("MISA Read-Only", a.Read(csr.MISA), misa)

	// The same swap, as the instructions firmware would use.
	s.heading("CSR Firmware Test")
	err = s.Load(
		"  li t0, 0x1234",
		"  csrw mscratch, t0",
		"  li t1, 0x5678",
		"  csrrw a0, mscratch, t1",
		"  csrr a1, mscratch",
		"  csrrsi a2, mscratch, 1",
		"  csrr a3, mscratch",
		"  j .",
	)
	if err != nil {
		return
	}
	_, err = m.Run(0)
	if err != nil {
		return
	}
	l.Report("CSRRW Swap Observes Prior Write", m.X[10], 0x1234)
	l.Report("CSRRW Swap Installs Value", m.X[11], 0x5678)
	l.Report("CSRRSI Returns Prior", m.X[12], 0x5678)
	l.Report("CSRRSI Sets Bit", m.X[13], 0x5679)

	return
}

func testExceptions(s *Session) (err error) {
	m := s.Machine
	l := &s.Ledger

	s.heading("Recoverable Exception Test")
	err = s.Load(
		"  ecall",
		"  li s1, 1",
		"  ebreak",
		"  li s2, 1",
		"  .word 0x00000000",
		"  li s3, 1",
		"  j .",
	)
	if err != nil {
		return
	}

	_, err = m.Run(0)
	l.Check(err == nil, "Recoverable Exceptions Resume")
	err = nil

	l.Check(m.Dispatcher.SyscallObserved, "ECALL Trap")
	l.Report("ECALL Skip", m.X[9], 1)
	l.Report("EBREAK Skip", m.X[18], 1)
	l.Report("Illegal Instruction Skip", m.X[19], 1)

	s.heading("Unrecoverable Exception Test")
	err = s.Load(
		"  li a0, 0x55",
		"fault:",
		"  lw a1, -4(zero)",
		"  li a0, 0xaa",
		"  j .",
	)
	if err != nil {
		return
	}

	_, err = m.Run(0)
	l.Check(errors.Is(err, trap.ErrHalted), "Load Fault Halts")
	l.Check(m.Dispatcher.State() == trap.STATE_HALTED, "Dispatcher Halted")
	l.Report("No Instruction After Halt", m.X[10], 0x55)

	fault := m.Program.Labels["fault"]
	slot, err := m.Bus.Load(m.X[2]-trap.FRAME_BYTES, 4)
	if err != nil {
		return
	}
	l.Report("Halted Frame Untouched", slot, fault)

	_, err = m.Tick()
	l.Check(errors.Is(err, trap.ErrHalted), "Halt Is Permanent")
	err = nil

	return
}

func testTimer(s *Session) (err error) {
	m := s.Machine
	l := &s.Ledger

	s.heading("Timer Increment Test")
	err = s.Load(
		"  li s0, MTIME_LO",
		"  lw a0, 0(s0)",
		"  li t0, 100",
		"delay:",
		"  addi t0, t0, -1",
		"  bnez t0, delay",
		"  lw a1, 0(s0)",
		"  j .",
	)
	if err != nil {
		return
	}
	_, err = m.Run(0)
	if err != nil {
		return
	}
	l.Check(m.X[11] > m.X[10], "Timer Increment")

	s.heading("Timer Arm Test")
	for _, start := range []uint64{0, 0xffff_ff00} {
		m.Reset()
		m.Clint.Mtime = start

		target := m.Timer.Now() + 0x200
		m.Timer.Arm(target)

		cmp := m.Timer.Compare()
		l.Report(fmt.Sprintf("Arm 0x%X Low", target), uint32(cmp), uint32(target))
		l.Report(fmt.Sprintf("Arm 0x%X High", target), uint32(cmp>>32), uint32(target>>32))

		early := 0
		for _, write := range m.Clint.History {
			if write.Early() {
				early++
			}
		}
		l.Report(fmt.Sprintf("Arm 0x%X Never Early", target), uint32(early), 0)
	}

	s.heading("Firmware Timer Arm Test")
	err = s.Load(
		"  li s0, MTIME_LO",
		"  lw a0, 0(s0)",
		"  lw a1, 4(s0)",
		"  addi a2, a0, 0x200",
		"  sltu t0, a2, a0",
		"  add a3, a1, t0",
		"  li s1, MTIMECMP_LO",
		"  li t1, TIMER_SENTINEL",
		"  sw t1, 4(s1)",
		"  sw a2, 0(s1)",
		"  sw a3, 4(s1)",
		"  j .",
	)
	if err != nil {
		return
	}
	// Start just below a carry into the high half, replacing a deadline
	// whose high half is zero.
	m.Clint.Mtime = 0xffff_ff00
	m.Clint.Mtimecmp = 0xffff_fff0
	m.Clint.History = nil

	_, err = m.Run(0)
	if err != nil {
		return
	}

	target := uint64(m.X[13])<<32 | uint64(m.X[12])
	l.Report("Firmware Arm Low", uint32(m.Timer.Compare()), uint32(target))
	l.Report("Firmware Arm High", uint32(m.Timer.Compare()>>32), 1)

	early := 0
	for _, write := range m.Clint.History {
		if write.Early() {
			early++
		}
	}
	l.Report("Firmware Arm Writes", uint32(len(m.Clint.History)), 3)
	l.Report("Firmware Arm Never Early", uint32(early), 0)

	s.heading("Timer Interrupt Test")
	err = s.Load(
		"  li t0, MIE_MTIE",
		"  csrs mie, t0",
		"  csrsi mstatus, MSTATUS_MIE",
		"spin:",
		"  addi s1, s1, 1",
		"  j spin",
	)
	if err != nil {
		return
	}

	ticks := s.TimerTicks
	m.Timer.ArmAfter(uint64(s.Config.Suite.WaitBound / 4))
	s.printf("Waiting for IRQ...")
	ok := s.Wait(func() bool { return m.Dispatcher.IrqHandled })
	if ok {
		s.printf(" [IRQ Received!] ")
	}
	s.printf("\n")
	l.Check(ok, "Timer Interrupt")
	l.Report("Timer Callback Count", uint32(s.TimerTicks-ticks), 1)
	l.Report("Comparator Parked", uint32(m.Timer.Compare()>>32), timer.SENTINEL)
	l.Report("Interrupts Restored", m.Hart.Read(csr.MSTATUS)&csr.MSTATUS_MIE, csr.MSTATUS_MIE)

	s.heading("Timer Disarm Test")
	m.Timer.Enable()
	m.Timer.ArmAfter(1000)
	m.Timer.Disarm()
	l.Report("Disarm Clears MTIE", m.Hart.Read(csr.MIE)&csr.MIE_MTIE, 0)
	l.Report("Disarm Clears MIE", m.Hart.Read(csr.MSTATUS)&csr.MSTATUS_MIE, 0)
	l.Report("Disarm Parks Comparator", uint32(m.Timer.Compare()), timer.SENTINEL)

	m.Hart.Set(csr.MIE, csr.MIE_MSIE)
	m.Hart.Set(csr.MIP, csr.MIP_MSIP)
	m.Timer.Enable()
	m.Timer.Disarm()
	l.Report("Disarm Keeps MIE For Pending Source", m.Hart.Read(csr.MSTATUS)&csr.MSTATUS_MIE, csr.MSTATUS_MIE)
	m.Hart.Clear(csr.MIP, csr.MIP_MSIP)

	return
}

func testInterrupts(s *Session) (err error) {
	m := s.Machine
	l := &s.Ledger

	s.heading("Software Interrupt Test")
	err = s.Load(
		"  li t0, $(MIE_MSIE | MIE_MEIE)",
		"  csrs mie, t0",
		"  csrsi mstatus, MSTATUS_MIE",
		"  li t0, MIP_MSIP",
		"  csrs mip, t0",
		"spin:",
		"  addi s1, s1, 1",
		"  j spin",
	)
	if err != nil {
		return
	}

	ok := s.Wait(func() bool { return m.Dispatcher.Stats[trap.KIND_SOFTWARE_IRQ] > 0 })
	l.Check(ok, "Software Interrupt")
	l.Report("MSIP Acknowledged", m.Hart.Read(csr.MIP)&csr.MIP_MSIP, 0)

	s.heading("External Interrupt Test")
	m.Hart.CSR.SetPending(csr.MIP_MEIP, true)
	ok = s.Wait(func() bool { return m.Dispatcher.Stats[trap.KIND_EXTERNAL_IRQ] > 0 })
	l.Check(ok, "External Interrupt")

	// Resumed in the loop, with interrupts back on.
	before := m.X[9]
	s.Wait(func() bool { return m.X[9] != before })
	l.Check(m.X[9] != before, "Execution Resumed")
	l.Report("Interrupts Restored", m.Hart.Read(csr.MSTATUS)&csr.MSTATUS_MIE, csr.MSTATUS_MIE)

	return
}

// BIST_BUFFER is the RAM offset where the self-test firmware stores received
// characters.
const BIST_BUFFER = 0x4000

func testBist(s *Session) (err error) {
	m := s.Machine
	l := &s.Ledger

	s.heading("UART Hardware BIST")
	err = s.Load(
		fmt.Sprintf(".equ BUFFER %#x", s.Config.Memory.RamBase+BIST_BUFFER),
		"  li s0, UART_DATA",
		"  li t0, UART_TEST_MODE_RX",
		"  sw t0, 0(s0)",
		"  li t0, $(UART_TEST_MODE_RX | UART_TEST_MODE_TX)",
		"  sw t0, 0(s0)",
		"  li s1, BUFFER",
		"  li s2, BIST_LENGTH",
		"  li s3, WAIT_BOUND",
		"poll:",
		"  lw t1, 4(s0)",
		"  andi t1, t1, UART_STATUS_RX_READY",
		"  bnez t1, ready",
		"  addi s3, s3, -1",
		"  bnez s3, poll",
		"  j done",
		"ready:",
		"  lw t1, 0(s0)",
		"  sb t1, 0(s1)",
		"  addi s1, s1, 1",
		"  addi s2, s2, -1",
		"  bnez s2, poll",
		"done:",
		"  sw zero, 0(s0)",
		"  j .",
	)
	if err != nil {
		return
	}

	_, err = m.Run(0)
	if err != nil {
		return
	}
	l.Report("Loopback Released", m.Uart.Mode(), 0)

	length := s.Config.Suite.BistLength
	received := make([]byte, length+1)
	for n := range received {
		var c uint32
		c, err = m.Bus.Load(s.Config.Memory.RamBase+BIST_BUFFER+uint32(n), 1)
		if err != nil {
			return
		}
		received[n] = byte(c)
	}

	count := FuzzyMatch([]byte(device.UART_BIST_MESSAGE), received, length)
	s.printf("Match Count: %d/%d\n", count, length)
	l.Check(FuzzyPass(count, length), "UART Hardware BIST (Smart Aligned)")

	return
}
