package trap

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type parkCounter struct {
	parked int
}

func (pc *parkCounter) Park() {
	pc.parked++
}

func testFrame(pc uint32) *Frame {
	var regs [32]uint32
	for n := range regs {
		regs[n] = 0x1000 + uint32(n)
	}
	return NewFrame(0x7f80, pc, &regs)
}

func TestDispatch_RecoverableExceptions(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		cause   Exception
		console string
	}){
		{EXC_ILLEGAL_INSN, "[EXCEPTION] Cause: 2 at PC=0x00000200 tval=0x0000FFFF\nIllegal instruction\n"},
		{EXC_BREAKPOINT, "[EXCEPTION] Cause: 3 at PC=0x00000200 tval=0x0000FFFF\nBreakpoint\n"},
		{EXC_ECALL_M, "[EXCEPTION] Cause: 11 at PC=0x00000200 tval=0x0000FFFF\nECALL\n"},
	}

	for _, entry := range table {
		console := &bytes.Buffer{}
		d := NewDispatcher(console)

		frame := testFrame(0x200)
		want := *frame
		want.SetPC(0x200 + SKIP_WIDTH)

		got, err := d.Dispatch(Context{Cause: entry.cause.Cause(), Pc: 0x200, Tval: 0xffff, Frame: frame})
		assert.NoError(err, entry.cause.String())
		assert.Same(frame, got, entry.cause.String())
		if diff := cmp.Diff(&want, got); diff != "" {
			t.Errorf("%v: frame mismatch (-want +got):\n%s", entry.cause, diff)
		}
		assert.Equal(entry.console, console.String())
		assert.Equal(STATE_RUNNING, d.State())
	}
}

func TestDispatch_EcallFlag(t *testing.T) {
	assert := assert.New(t)

	d := NewDispatcher(nil)
	assert.False(d.SyscallObserved)

	_, err := d.Dispatch(Context{Cause: EXC_ECALL_M.Cause(), Pc: 0x40, Frame: testFrame(0x40)})
	assert.NoError(err)
	assert.True(d.SyscallObserved)
	assert.Equal(1, d.Stats[KIND_ECALL])
}

func TestDispatch_FatalExceptions(t *testing.T) {
	assert := assert.New(t)

	for _, code := range []uint32{0, 1, 4, 5, 6, 7, 8, 9, 10, 12, 15, 24, 0x7fff_ffff} {
		console := &bytes.Buffer{}
		d := NewDispatcher(console)

		frame := testFrame(0x300)
		want := *frame

		got, err := d.Dispatch(Context{Cause: Cause(code), Pc: 0x300, Tval: 0x12, Frame: frame})
		name := fmt.Sprintf("cause %d", code)
		assert.ErrorIs(err, ErrHalted, name)
		assert.Same(frame, got, name)
		assert.Empty(cmp.Diff(&want, got), name)
		assert.Equal(STATE_HALTED, d.State(), name)
		assert.Contains(console.String(), "Halted.", name)

		var unrecoverable *ErrUnrecoverable
		assert.True(errors.As(err, &unrecoverable), name)
		assert.Equal(uint32(0x300), unrecoverable.Pc, name)

		halt, ok := d.Halted()
		assert.True(ok, name)
		assert.Equal(Cause(code), halt.Cause, name)

		// Halted is terminal, even for recoverable causes.
		frame = testFrame(0x400)
		_, err = d.Dispatch(Context{Cause: EXC_ECALL_M.Cause(), Pc: 0x400, Frame: frame})
		assert.ErrorIs(err, ErrHalted, name)
		assert.Equal(uint32(0x400), frame.PC(), name)
		assert.False(d.SyscallObserved, name)
	}
}

func TestDispatch_Interrupts(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		cause   Cause
		console string
		kind    Kind
	}){
		{IRQ_SOFTWARE.Cause(), "[INT] Software interrupt\n", KIND_SOFTWARE_IRQ},
		{IRQ_EXTERNAL.Cause(), "[INT] External interrupt\n", KIND_EXTERNAL_IRQ},
		{Interrupt(5).Cause(), "[INT] Unknown interrupt: 5\n", KIND_UNKNOWN_IRQ},
		{Interrupt(16).Cause(), "[INT] Unknown interrupt: 16\n", KIND_UNKNOWN_IRQ},
		{IRQ_TIMER.Cause(), "", KIND_TIMER_IRQ},
	}

	for _, entry := range table {
		console := &bytes.Buffer{}
		parker := &parkCounter{}
		d := NewDispatcher(console)
		d.Timer = parker

		frame := testFrame(0x500)
		want := *frame

		got, err := d.Dispatch(Context{Cause: entry.cause, Pc: 0x500, Frame: frame})
		assert.NoError(err, entry.console)
		assert.Same(frame, got)
		assert.Empty(cmp.Diff(&want, got), "interrupts never move the resumption pc")
		assert.Equal(entry.console, console.String())
		assert.Equal(1, d.Stats[entry.kind])
		assert.Equal(STATE_RUNNING, d.State())

		if entry.kind == KIND_TIMER_IRQ {
			assert.Equal(1, parker.parked)
			assert.True(d.IrqHandled)
		} else {
			assert.Equal(0, parker.parked)
			assert.False(d.IrqHandled)
		}
	}
}

func TestDispatch_TimerCallback(t *testing.T) {
	assert := assert.New(t)

	var order []string
	parker := &parkCounter{}
	d := NewDispatcher(nil)
	d.Timer = parker
	d.OnTimer = func() {
		assert.Equal(0, parker.parked, "callback runs before the comparator is parked")
		order = append(order, "callback")
	}

	for n := range 3 {
		_, err := d.Dispatch(Context{Cause: IRQ_TIMER.Cause(), Pc: uint32(n * 4), Frame: testFrame(uint32(n * 4))})
		assert.NoError(err)
		parker.parked = 0
	}

	assert.Equal([]string{"callback", "callback", "callback"}, order)
	assert.Equal(3, d.Stats[KIND_TIMER_IRQ])
}

func TestDispatch_TimerUnparked(t *testing.T) {
	assert := assert.New(t)

	console := &bytes.Buffer{}
	d := NewDispatcher(console)

	frame := testFrame(0x600)
	want := *frame

	got, err := d.Dispatch(Context{Cause: IRQ_TIMER.Cause(), Pc: 0x600, Frame: frame})
	assert.ErrorIs(err, ErrTimerUnparked)
	assert.ErrorIs(err, ErrHalted)
	assert.Same(frame, got)
	assert.Empty(cmp.Diff(&want, got))
	assert.False(d.IrqHandled)
	assert.Equal(STATE_HALTED, d.State())
	assert.Equal("[INT] Timer interrupt, no comparator. Halted.\n", console.String())

	// The interrupt is not taken again as if it had been handled.
	_, err = d.Dispatch(Context{Cause: IRQ_TIMER.Cause(), Pc: 0x600, Frame: frame})
	assert.ErrorIs(err, ErrHalted)
	assert.Equal(1, d.Stats[KIND_TIMER_IRQ])
}

func TestDispatch_FrameContract(t *testing.T) {
	assert := assert.New(t)

	d := NewDispatcher(nil)

	_, err := d.Dispatch(Context{Cause: EXC_ECALL_M.Cause()})
	assert.ErrorIs(err, ErrFrameMissing)

	frame := testFrame(0)
	frame.Version = 2
	_, err = d.Dispatch(Context{Cause: EXC_ECALL_M.Cause(), Frame: frame})
	assert.ErrorIs(err, ErrFrameVersion)
	assert.Equal(STATE_RUNNING, d.State())
}

func TestDispatch_Reset(t *testing.T) {
	assert := assert.New(t)

	d := NewDispatcher(nil)
	_, err := d.Dispatch(Context{Cause: EXC_LOAD_FAULT.Cause(), Frame: testFrame(0)})
	assert.Error(err)
	assert.Equal(STATE_HALTED, d.State())

	d.Reset()
	assert.Equal(STATE_RUNNING, d.State())
	_, ok := d.Halted()
	assert.False(ok)
	assert.Equal(0, d.Stats[KIND_FATAL_EXCEPTION])
}
