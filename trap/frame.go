// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package trap

import (
	"encoding/binary"
)

// Saved context layout shared by the trampoline and the dispatcher.
//
// The trampoline reserves FRAME_BYTES below the interrupted stack pointer and
// stores one little-endian word per slot:
//
//	slot 0      resumption program counter (restored into mepc)
//	slot 1..31  x1..x31
//
// x0 is hardwired to zero and is never saved.
const (
	FRAME_VERSION = 1
	FRAME_WORDS   = 32
	FRAME_BYTES   = FRAME_WORDS * 4

	FRAME_SLOT_PC = 0
)

// Frame is the saved register context of one trap. The trampoline owns it;
// the dispatcher only borrows it for the duration of Dispatch.
type Frame struct {
	Version int                 // Layout version, FRAME_VERSION.
	Addr    uint32              // Stack address of slot 0.
	Words   [FRAME_WORDS]uint32 // Saved slots.
}

// NewFrame builds a frame from a trapped program counter and register file.
func NewFrame(addr uint32, pc uint32, regs *[32]uint32) (frame *Frame) {
	frame = &Frame{
		Version: FRAME_VERSION,
		Addr:    addr,
	}

	frame.Words[FRAME_SLOT_PC] = pc
	for n := 1; n < FRAME_WORDS; n++ {
		frame.Words[n] = regs[n]
	}

	return
}

// PC is the resumption program counter.
func (frame *Frame) PC() uint32 {
	return frame.Words[FRAME_SLOT_PC]
}

// SetPC changes where the trampoline resumes execution.
func (frame *Frame) SetPC(pc uint32) {
	frame.Words[FRAME_SLOT_PC] = pc
}

// Reg returns saved register xn. x0 reads as zero.
func (frame *Frame) Reg(n int) uint32 {
	if n <= 0 || n >= FRAME_WORDS {
		return 0
	}
	return frame.Words[n]
}

// SetReg changes saved register xn. Writes to x0 are ignored.
func (frame *Frame) SetReg(n int, value uint32) {
	if n <= 0 || n >= FRAME_WORDS {
		return
	}
	frame.Words[n] = value
}

// Restore copies the saved registers back into a register file, and returns
// the resumption program counter.
func (frame *Frame) Restore(regs *[32]uint32) (pc uint32) {
	regs[0] = 0
	for n := 1; n < FRAME_WORDS; n++ {
		regs[n] = frame.Words[n]
	}
	return frame.PC()
}

// MarshalBinary encodes the frame in its stack layout.
func (frame *Frame) MarshalBinary() (data []byte, err error) {
	data = make([]byte, FRAME_BYTES)
	for n, word := range frame.Words {
		binary.LittleEndian.PutUint32(data[n*4:], word)
	}
	return
}

// UnmarshalBinary decodes a frame from its stack layout.
func (frame *Frame) UnmarshalBinary(data []byte) (err error) {
	if len(data) != FRAME_BYTES {
		err = ErrFrameSize
		return
	}

	frame.Version = FRAME_VERSION
	for n := range frame.Words {
		frame.Words[n] = binary.LittleEndian.Uint32(data[n*4:])
	}
	return
}
