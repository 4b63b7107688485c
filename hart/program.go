package hart

import (
	"iter"
)

// Statement is one assembled source line.
type Statement struct {
	LineNo    int      // Source line number.
	Addr      uint32   // Address of the first word.
	Words     []string // Source words, after expansion.
	Codes     []Insn   // Generated words.
	LinkLabel string   // Label resolved in the link pass.
}

// Program is an assembled firmware image: contiguous words starting at
// Origin, plus the listing that generated them.
type Program struct {
	Origin     uint32
	Statements []Statement
	Labels     map[string]uint32
}

// Size is the image size in bytes.
func (prog *Program) Size() (size uint32) {
	for _, st := range prog.Statements {
		size += uint32(len(st.Codes) * 4)
	}
	return
}

// Words enumerates the image words with their addresses.
func (prog *Program) Words() iter.Seq2[uint32, uint32] {
	return func(yield func(addr uint32, word uint32) bool) {
		for _, st := range prog.Statements {
			for n, code := range st.Codes {
				if !yield(st.Addr+uint32(n*4), uint32(code)) {
					return
				}
			}
		}
	}
}

// Binary returns the image words in address order.
func (prog *Program) Binary() (bins []uint32) {
	for _, word := range prog.Words() {
		bins = append(bins, word)
	}
	return
}

// Debug finds the statement that generated the word at addr.
func (prog *Program) Debug(addr uint32) (st *Statement, ok bool) {
	for n := range prog.Statements {
		s := &prog.Statements[n]
		if addr >= s.Addr && addr < s.Addr+uint32(len(s.Codes)*4) {
			return s, true
		}
	}
	return
}

// LineNo returns the source line of the word at addr, or 0.
func (prog *Program) LineNo(addr uint32) int {
	st, ok := prog.Debug(addr)
	if !ok {
		return 0
	}
	return st.LineNo
}
