package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		cause Cause
		kind  Kind
		code  uint32
	}){
		{0x0000_0002, KIND_ILLEGAL_INSN, 2},
		{0x0000_0003, KIND_BREAKPOINT, 3},
		{0x0000_000b, KIND_ECALL, 11},
		{0x0000_0008, KIND_FATAL_EXCEPTION, 8},
		{0x0000_0005, KIND_FATAL_EXCEPTION, 5},
		{0x0000_000a, KIND_UNKNOWN_EXCEPTION, 10},
		{0x0000_0030, KIND_UNKNOWN_EXCEPTION, 0x30},
		{0x8000_0003, KIND_SOFTWARE_IRQ, 3},
		{0x8000_0007, KIND_TIMER_IRQ, 7},
		{0x8000_000b, KIND_EXTERNAL_IRQ, 11},
		{0x8000_0002, KIND_UNKNOWN_IRQ, 2},
		{0xffff_ffff, KIND_UNKNOWN_IRQ, 0x7fff_ffff},
	}

	for _, entry := range table {
		d := Decode(entry.cause)
		assert.Equal(entry.kind, d.Kind, entry.cause.String())
		assert.Equal(entry.code, d.Code, entry.cause.String())
	}
}

func TestCause_Disjoint(t *testing.T) {
	assert := assert.New(t)

	// The same numeric code decodes differently on each side of the discriminator.
	for code := uint32(0); code < 16; code++ {
		exc := Decode(Exception(code).Cause())
		irq := Decode(Interrupt(code).Cause())
		assert.Less(int(exc.Kind), int(KIND_SOFTWARE_IRQ))
		assert.GreaterOrEqual(int(irq.Kind), int(KIND_SOFTWARE_IRQ))
		assert.Equal(exc.Code, irq.Code)
	}
}

func TestKind_Recoverable(t *testing.T) {
	assert := assert.New(t)

	for k := Kind(0); k < KIND_COUNT; k++ {
		fatal := k == KIND_FATAL_EXCEPTION || k == KIND_UNKNOWN_EXCEPTION
		assert.Equal(!fatal, k.Recoverable(), k.String())
	}
}

func TestCause_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("illegal instruction", EXC_ILLEGAL_INSN.Cause().String())
	assert.Equal("timer interrupt", IRQ_TIMER.Cause().String())
	assert.Equal("exception 10", Cause(10).String())
	assert.Equal("interrupt 9", Interrupt(9).Cause().String())
	assert.True(IRQ_TIMER.Cause().IsInterrupt())
	assert.False(EXC_BREAKPOINT.Cause().IsInterrupt())
}

func TestFrame(t *testing.T) {
	assert := assert.New(t)

	var regs [32]uint32
	for n := range regs {
		regs[n] = uint32(n) * 0x11
	}
	regs[0] = 0xdead

	frame := NewFrame(0x8000, 0x124, &regs)
	assert.Equal(FRAME_VERSION, frame.Version)
	assert.Equal(uint32(0x124), frame.PC())
	assert.Equal(uint32(0), frame.Reg(0))
	assert.Equal(uint32(0x11), frame.Reg(1))
	assert.Equal(uint32(31*0x11), frame.Reg(31))

	frame.SetReg(0, 5)
	assert.Equal(uint32(0x124), frame.PC(), "x0 writes never alias the pc slot")
	frame.SetReg(10, 0xa)

	data, err := frame.MarshalBinary()
	assert.NoError(err)
	assert.Len(data, FRAME_BYTES)
	assert.Equal([]byte{0x24, 0x01, 0x00, 0x00}, data[0:4])

	var back Frame
	assert.NoError(back.UnmarshalBinary(data))
	assert.Equal(frame.Words, back.Words)
	assert.ErrorIs(back.UnmarshalBinary(data[:8]), ErrFrameSize)

	var out [32]uint32
	out[0] = 7
	pc := frame.Restore(&out)
	assert.Equal(uint32(0x124), pc)
	assert.Equal(uint32(0), out[0])
	assert.Equal(uint32(0xa), out[10])
}
