package csr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFile_Reset(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Reset()

	assert.Equal(MISA_RV32IM, f.Read(MISA))
	assert.Equal(uint32(0x100), f.Read(MTVEC))
	assert.Equal(uint32(0), f.Read(MSTATUS))
}

func TestFile_Alignment(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		addr  Addr
		write uint32
		read  uint32
	}){
		{MTVEC, 0x0000_0103, 0x0000_0100},
		{MTVEC, 0x8000_0001, 0x8000_0000},
		{MEPC, 0x0000_0201, 0x0000_0200},
		{MEPC, 0x0000_0202, 0x0000_0202},
		{MSCRATCH, 0xdead_beef, 0xdead_beef},
		{MCAUSE, 0x0000_000b, 0x0000_000b},
		{MISA, 0x0000_0000, MISA_RV32IM},
		{MSTATUS, 0xffff_ffff, MSTATUS_MIE | MSTATUS_MPIE},
		{MIE, 0xffff_ffff, MIE_MSIE | MIE_MTIE | MIE_MEIE},
		{Addr(0x7c0), 0x1234_5678, 0},
	}

	for _, entry := range table {
		f := &File{}
		f.Reset()
		f.Write(entry.addr, entry.write)
		assert.Equal(entry.read, f.Read(entry.addr), fmt.Sprintf("%v", entry.addr))
	}
}

func TestFile_MipOwnership(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Reset()

	f.Write(MIP, 0xffff_ffff)
	assert.Equal(MIP_MSIP|MIP_MEIP, f.Read(MIP))

	f.SetPending(MIP_MTIP, true)
	f.Write(MIP, 0)
	assert.Equal(MIP_MTIP, f.Read(MIP))

	// Reads never clear pending state.
	assert.Equal(MIP_MTIP, f.Read(MIP))
	assert.Equal(MIP_MTIP, f.Read(MIP))

	f.SetPending(MIP_MTIP, false)
	assert.Equal(uint32(0), f.Read(MIP))
}

func TestFile_SetClearRestores(t *testing.T) {
	assert := assert.New(t)

	for _, mask := range []uint32{0, 1, 0x5, 0x8000_0000, 0xffff_ffff, 0x0f0f_0f0f} {
		for _, start := range []uint32{0, 0x4, 0xdead_beef, 0xffff_ffff} {
			f := &File{}
			f.Write(MSCRATCH, start)
			old := f.Set(MSCRATCH, mask)
			assert.Equal(start, old)
			assert.Equal(start|mask, f.Read(MSCRATCH))
			old = f.Clear(MSCRATCH, mask)
			assert.Equal(start|mask, old)

			// Restores the pre-set value for bits the mask did not cover.
			assert.Equal(start&^mask, f.Read(MSCRATCH))
			if start&mask == 0 {
				assert.Equal(start, f.Read(MSCRATCH))
			}
		}
	}
}

func TestFile_SwapObservesPriorWrite(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Write(MSCRATCH, 0x1111_1111)
	f.Read(MSCRATCH)
	f.Read(MSCRATCH)
	assert.Equal(uint32(0x1111_1111), f.Swap(MSCRATCH, 0x2222_2222))
	assert.Equal(uint32(0x2222_2222), f.Swap(MSCRATCH, 0))
	assert.Equal(uint32(0), f.Read(MSCRATCH))
}

func TestFile_Immediates(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Write(MSCRATCH, 0xffff_ff00)

	assert.Equal(uint32(0xffff_ff00), f.SwapImm(MSCRATCH, 0x1f))
	assert.Equal(uint32(0x1f), f.ClearImm(MSCRATCH, 0x10))
	assert.Equal(uint32(0x0f), f.SetImm(MSCRATCH, 0x10))
	assert.Equal(uint32(0x1f), f.Read(MSCRATCH))
}

func TestFile_EnterReturn(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Reset()
	f.Write(MSTATUS, MSTATUS_MIE)

	f.Enter(0x8000_0007, 0x1235, 0)
	assert.Equal(uint32(0x1234), f.Mepc)
	assert.Equal(uint32(0x8000_0007), f.Mcause)
	assert.Equal(MSTATUS_MPIE, f.Mstatus)

	pc := f.Return()
	assert.Equal(uint32(0x1234), pc)
	assert.Equal(MSTATUS_MIE|MSTATUS_MPIE, f.Mstatus)

	// A trap taken with interrupts disabled resumes with them disabled.
	f.Write(MSTATUS, 0)
	f.Enter(11, 0x40, 0)
	assert.Equal(uint32(0), f.Mstatus&MSTATUS_MPIE)
	f.Return()
	assert.Equal(uint32(0), f.Mstatus&MSTATUS_MIE)
}

func TestWithoutInterrupts(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Write(MSTATUS, MSTATUS_MIE)

	WithoutInterrupts(f, func() {
		assert.Equal(uint32(0), f.Read(MSTATUS)&MSTATUS_MIE)
		ReadModifyWrite(f, MSCRATCH, func(old uint32) uint32 { return old + 1 })
	})
	assert.Equal(MSTATUS_MIE, f.Read(MSTATUS)&MSTATUS_MIE)
	assert.Equal(uint32(1), f.Read(MSCRATCH))

	f.Write(MSTATUS, 0)
	WithoutInterrupts(f, func() {})
	assert.Equal(uint32(0), f.Read(MSTATUS)&MSTATUS_MIE)
}

func TestUimm5(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Uimm5(31), MustUimm5(31))
	assert.True(Uimm5(0).Valid())
	assert.False(Uimm5(32).Valid())
	assert.Panics(func() { MustUimm5(32) })
}

func TestFile_ImmRange(t *testing.T) {
	assert := assert.New(t)

	f := &File{}
	f.Write(MSCRATCH, 0x55)

	assert.Panics(func() { f.SwapImm(MSCRATCH, Uimm5(40)) })
	assert.Panics(func() { f.SetImm(MSTATUS, Uimm5(MSTATUS_MPIE)) })
	assert.Panics(func() { f.ClearImm(MSCRATCH, Uimm5(32)) })

	assert.Equal(uint32(0x55), f.Read(MSCRATCH), "truncated immediate written")
	assert.Equal(uint32(0), f.Read(MSTATUS))

	assert.Equal(uint32(0x55), f.SwapImm(MSCRATCH, UIMM5_MAX))
	assert.Equal(uint32(31), f.Read(MSCRATCH))
}

func TestAddr_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("mtvec", MTVEC.String())
	assert.Equal("csr_7c0", Addr(0x7c0).String())

	addr, ok := Lookup("mscratch")
	assert.True(ok)
	assert.Equal(MSCRATCH, addr)

	_, ok = Lookup("satp")
	assert.False(ok)
	assert.Len(Known(), 9)
}
