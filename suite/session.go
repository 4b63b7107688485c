// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package suite

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/bearcore/config"
	"github.com/ezrec/bearcore/machine"
)

// Session owns one machine and the ledger its groups report into.
type Session struct {
	Log     logrus.FieldLogger // Progress logging.
	Config  *config.Config
	Ledger  Ledger
	Machine *machine.Machine
	Console io.Writer // UART, dispatcher and verdict output.

	TimerTicks int // Timer interrupts taken, counted from the dispatcher callback.
}

// NewSession builds a machine for the configuration.
func NewSession(cfg *config.Config, console io.Writer) (s *Session, err error) {
	if cfg == nil {
		cfg = config.Default()
	}

	m, err := machine.NewMachine(cfg, console)
	if err != nil {
		return
	}

	s = &Session{
		Log:     logrus.StandardLogger(),
		Config:  cfg,
		Ledger:  Ledger{Out: console},
		Machine: m,
		Console: console,
	}
	m.Dispatcher.OnTimer = func() { s.TimerTicks++ }
	return
}

func (s *Session) printf(format string, args ...any) {
	if s.Console == nil {
		return
	}
	fmt.Fprintf(s.Console, format, args...)
}

func (s *Session) heading(title string) {
	s.printf("\n=== %s ===\n", title)
}

// Load assembles firmware onto the machine, and resets it. The suite
// settings are available as WAIT_BOUND and BIST_LENGTH.
func (s *Session) Load(lines ...string) (err error) {
	source := []string{
		fmt.Sprintf(".equ WAIT_BOUND %d", s.Config.Suite.WaitBound),
		fmt.Sprintf(".equ BIST_LENGTH %d", s.Config.Suite.BistLength),
	}
	source = append(source, lines...)

	_, err = s.Machine.Assemble(strings.NewReader(strings.Join(source, "\n")))
	return
}

// Wait ticks the machine until cond holds, at most WaitBound times. It
// reports whether cond was met; a bound exhausted is not an error.
func (s *Session) Wait(cond func() bool) (ok bool) {
	for range s.Config.Suite.WaitBound {
		if cond() {
			return true
		}
		_, err := s.Machine.Tick()
		if err != nil {
			s.Log.WithError(err).Debug("suite: wait")
			break
		}
	}
	return cond()
}

// Run executes groups in order. Verdicts accumulate in the ledger; an error
// means a group could not run at all.
func (s *Session) Run(groups ...*Group) (err error) {
	for _, g := range groups {
		total, passed := s.Ledger.Total, s.Ledger.Passed

		err = g.Run(s)
		if err != nil {
			err = &ErrGroup{Group: g.Name, Err: err}
			return
		}

		s.Log.WithFields(logrus.Fields{
			"group":  g.Name,
			"passed": s.Ledger.Passed - passed,
			"failed": (s.Ledger.Total - total) - (s.Ledger.Passed - passed),
		}).Debug("suite: group done")
	}
	return
}
