package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ezrec/bearcore/config"
	"github.com/ezrec/bearcore/suite"
)

// Menu implements subcommands.Command for the "menu" command.
type Menu struct {
	cooked bool
}

// Name implements subcommands.Command.Name.
func (*Menu) Name() string {
	return "menu"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Menu) Synopsis() string {
	return "interactive single-key test selection"
}

// Usage implements subcommands.Command.Usage.
func (*Menu) Usage() string {
	return `menu [flags]

Reads one key per selection from stdin, as the firmware console would.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Menu) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.cooked, "cooked", false, "leave the terminal in line mode")
}

// crlfWriter expands bare newlines, for a terminal in raw mode.
type crlfWriter struct {
	io.Writer
}

func (w crlfWriter) Write(p []byte) (n int, err error) {
	var out bytes.Buffer
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out.WriteByte('\r')
		}
		out.WriteByte(b)
	}
	_, err = w.Writer.Write(out.Bytes())
	if err != nil {
		return
	}
	n = len(p)
	return
}

// Execute implements subcommands.Command.Execute.
func (m *Menu) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg := args[0].(*config.Config)

	var console io.Writer = os.Stdout

	fd := int(os.Stdin.Fd())
	if !m.cooked && term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			log.Errorf("menu: raw mode: %v", err)
			return subcommands.ExitFailure
		}
		defer func() { _ = term.Restore(fd, state) }()
		console = crlfWriter{os.Stdout}
	}

	s, err := suite.NewSession(cfg, console)
	if err != nil {
		log.Errorf("menu: %v", err)
		return subcommands.ExitFailure
	}

	err = s.Menu(os.Stdin)
	if err != nil {
		log.Errorf("menu: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
