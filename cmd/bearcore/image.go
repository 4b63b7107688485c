package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"github.com/ezrec/bearcore/config"
	"github.com/ezrec/bearcore/hart"
	"github.com/ezrec/bearcore/machine"
)

// openIn opens path for reading, with "-" as stdin.
func openIn(path string) (r io.ReadCloser, err error) {
	if path == "-" {
		r = io.NopCloser(os.Stdin)
		return
	}
	return os.Open(path)
}

// Asm implements subcommands.Command for the "asm" command.
type Asm struct {
	output string
}

// Name implements subcommands.Command.Name.
func (*Asm) Name() string {
	return "asm"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Asm) Synopsis() string {
	return "assemble firmware source into a hex image"
}

// Usage implements subcommands.Command.Usage.
func (*Asm) Usage() string {
	return `asm [flags] <source.s>

The machine layout equates (UART_DATA, MTIME_LO, ...) are predefined.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (a *Asm) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.output, "o", "-", "hex image output")
}

// Execute implements subcommands.Command.Execute.
func (a *Asm) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg := args[0].(*config.Config)

	m, err := machine.NewMachine(cfg, nil)
	if err != nil {
		log.Fatalf("asm: %v", err)
	}

	in, err := openIn(f.Arg(0))
	if err != nil {
		log.Fatalf("asm: %v", err)
	}
	defer in.Close()

	prog, err := m.Assemble(in)
	if err != nil {
		log.Fatalf("asm: %v: %v", f.Arg(0), err)
	}

	var out io.Writer = os.Stdout
	if a.output != "-" {
		fd, err := os.Create(a.output)
		if err != nil {
			log.Fatalf("asm: %v", err)
		}
		defer fd.Close()
		out = fd
	}

	err = hart.WriteHex(out, prog)
	if err != nil {
		log.Errorf("asm: %v", err)
		return subcommands.ExitFailure
	}

	log.WithFields(log.Fields{
		"source": f.Arg(0),
		"bytes":  prog.Size(),
	}).Debug("asm: done")
	return subcommands.ExitSuccess
}

// Exec implements subcommands.Command for the "exec" command.
type Exec struct {
	maxCycles int
	dump      bool
}

// Name implements subcommands.Command.Name.
func (*Exec) Name() string {
	return "exec"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Exec) Synopsis() string {
	return "run firmware on the simulated machine"
}

// Usage implements subcommands.Command.Usage.
func (*Exec) Usage() string {
	return `exec [flags] <image>

An image ending in .s is assembled first, anything else is read as hex.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Exec) SetFlags(f *flag.FlagSet) {
	f.IntVar(&e.maxCycles, "max-cycles", 0, "cycle limit; 0 uses the configured limit")
	f.BoolVar(&e.dump, "dump", false, "print the register state on exit")
}

// Execute implements subcommands.Command.Execute.
func (e *Exec) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg := args[0].(*config.Config)
	path := f.Arg(0)

	m, err := machine.NewMachine(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("exec: %v", err)
	}

	in, err := openIn(path)
	if err != nil {
		log.Fatalf("exec: %v", err)
	}
	defer in.Close()

	if strings.HasSuffix(path, ".s") {
		_, err = m.Assemble(in)
	} else {
		var segs []hart.Segment
		segs, err = hart.ReadHex(in)
		if err == nil {
			err = m.LoadSegments(segs)
		}
	}
	if err != nil {
		log.Fatalf("exec: %v: %v", path, err)
	}

	cycles, err := m.Run(e.maxCycles)

	log.WithFields(log.Fields{
		"cycles":  cycles,
		"instret": m.Instret(),
	}).Debug("exec: stopped")

	if e.dump {
		fmt.Print(m.String())
	}

	switch {
	case err == nil:
		return subcommands.ExitSuccess
	case errors.Is(err, machine.ErrCycleLimit):
		log.Warnf("exec: %v after %d cycles", err, cycles)
	default:
		log.Errorf("exec: %v", err)
	}
	return subcommands.ExitFailure
}
