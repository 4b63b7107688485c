package hart

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Segment is a run of words loaded at one address.
type Segment struct {
	Addr  uint32
	Words []uint32
}

// ReadHex parses a hex image: "@addr" lines set the byte address of the
// following words, every other non-blank line is one 8-digit hex word.
func ReadHex(r io.Reader) (segs []Segment, err error) {
	scanner := bufio.NewScanner(r)

	var lineno int
	var line string
	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	var seg *Segment
	for scanner.Scan() {
		lineno++
		line = strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}

		if line[0] == '@' {
			var addr uint64
			addr, err = strconv.ParseUint(line[1:], 16, 32)
			if err != nil || addr&0x3 != 0 {
				err = ErrHexAddress
				return
			}
			segs = append(segs, Segment{Addr: uint32(addr)})
			seg = &segs[len(segs)-1]
			continue
		}

		text := strings.ReplaceAll(line, " ", "")
		if len(text) != 8 {
			err = ErrHexWord
			return
		}
		var word uint64
		word, err = strconv.ParseUint(text, 16, 32)
		if err != nil {
			err = ErrHexWord
			return
		}

		if seg == nil {
			segs = append(segs, Segment{})
			seg = &segs[len(segs)-1]
		}
		seg.Words = append(seg.Words, uint32(word))
	}

	err = scanner.Err()
	return
}

// WriteHex writes the program image in hex format.
func WriteHex(w io.Writer, prog *Program) (err error) {
	_, err = fmt.Fprintf(w, "@%08x\n", prog.Origin)
	if err != nil {
		return
	}

	next := prog.Origin
	for addr, word := range prog.Words() {
		if addr != next {
			_, err = fmt.Fprintf(w, "@%08x\n", addr)
			if err != nil {
				return
			}
		}
		_, err = fmt.Fprintf(w, "%08x\n", word)
		if err != nil {
			return
		}
		next = addr + 4
	}

	return
}
