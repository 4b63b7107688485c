// Package hart implements a single RV32IM machine-mode hart with the Zicsr
// extension, and the assembler and hex image loader for its firmware.
//
// Interrupts are sampled between instructions only, so every CSR instruction,
// and every csr.Access operation issued through the hart, is atomic with
// respect to them.
//
// On a trap the hart either vectors to mtvec, where firmware provides the
// handler, or, when a Go Handler is installed, runs the trampoline: the
// registers are saved to a frame below the stack pointer, the handler is
// called with that frame, and the possibly corrected frame is restored before
// mret.
package hart
