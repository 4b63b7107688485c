package suite

import (
	"bufio"
	"errors"
	"io"
)

// Menu keys outside the group keys.
const (
	MENU_ALL  = 'a'
	MENU_QUIT = 'q'
)

func (s *Session) showMenu() {
	s.printf("\r\n--- Main Menu ---\r\n")
	for _, g := range Groups {
		s.printf("%c. %s\r\n", g.Key, g.Name)
	}
	s.printf("%c. Run ALL Groups\r\n", MENU_ALL)
	s.printf("%c. Quit\r\n", MENU_QUIT)
	s.printf("Select Test: \r\n")
}

// Select runs the groups for one menu key, with a fresh ledger, and prints
// the result line. Unknown keys run nothing.
func (s *Session) Select(key byte) (err error) {
	s.Ledger.Reset()

	switch key {
	case MENU_ALL:
		err = s.Run(Groups...)
	default:
		var g *Group
		for _, entry := range Groups {
			if entry.Key == key {
				g = entry
				break
			}
		}
		if g == nil {
			s.printf("Unknown command.\r\n")
			break
		}
		err = s.Run(g)
	}

	s.printf("\r\n%s\r\n", s.Ledger.Summary())
	return
}

// Menu reads single-character selections from in until quit or end of
// input. Line endings between selections are ignored.
func (s *Session) Menu(in io.Reader) (err error) {
	s.printf("\r\n\r\n=== BearCore-V Validation Suite ===\r\n")

	reader := bufio.NewReader(in)
	for {
		s.showMenu()

		var key byte
		for {
			key, err = reader.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				return
			}
			if key != '\r' && key != '\n' {
				break
			}
		}

		s.printf("%c\r\n\r\n", key)
		if key == MENU_QUIT {
			return
		}

		err = s.Select(key)
		if err != nil {
			return
		}
	}
}
