package hart

import (
	"encoding/binary"
	"errors"

	"github.com/ezrec/bearcore/csr"
	"github.com/ezrec/bearcore/trap"
)

// trampoline runs the Go trap handler on a frame saved below the stack
// pointer. It is the only writer of mepc on the handler path: the handler's
// corrections reach mepc through frame slot 0.
func (h *Hart) trampoline() (err error) {
	addr := h.X[2] - trap.FRAME_BYTES

	frame := trap.NewFrame(addr, h.CSR.Mepc, &h.X)
	err = h.storeFrame(frame)
	if err != nil {
		return
	}

	ctx := trap.Context{
		Cause: trap.Cause(h.CSR.Mcause),
		Pc:    h.CSR.Mepc,
		Tval:  h.CSR.Mtval,
		Frame: frame,
	}

	got, err := h.Handler.Dispatch(ctx)
	if err != nil {
		return
	}
	switch {
	case got == nil:
		err = ErrHandlerFrame
		return
	case got != frame:
		err = trap.ErrFrameMismatch
		return
	}

	err = h.storeFrame(frame)
	if err != nil {
		return
	}

	saved, err := h.loadFrame(addr)
	if err != nil {
		return
	}

	pc := saved.Restore(&h.X)
	h.CSR.Write(csr.MEPC, pc)
	h.Pc = h.CSR.Return()

	h.trace("trampoline: resume at 0x%08x", h.Pc)

	return
}

// storeFrame writes a frame to its stack slot.
func (h *Hart) storeFrame(frame *trap.Frame) (err error) {
	for n, word := range frame.Words {
		err = h.Bus.Store(frame.Addr+uint32(n*4), word, 4)
		if err != nil {
			err = errors.Join(ErrFrameStore, err)
			return
		}
	}
	return
}

// loadFrame reads a frame back from the stack.
func (h *Hart) loadFrame(addr uint32) (frame *trap.Frame, err error) {
	data := make([]byte, 0, trap.FRAME_BYTES)
	for n := range trap.FRAME_WORDS {
		var word uint32
		word, err = h.Bus.Load(addr+uint32(n*4), 4)
		if err != nil {
			err = errors.Join(ErrFrameLoad, err)
			return
		}
		data = binary.LittleEndian.AppendUint32(data, word)
	}

	frame = &trap.Frame{Addr: addr}
	err = frame.UnmarshalBinary(data)
	return
}
