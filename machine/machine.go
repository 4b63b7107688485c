// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package machine

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/bearcore/config"
	"github.com/ezrec/bearcore/device"
	"github.com/ezrec/bearcore/hart"
	"github.com/ezrec/bearcore/internal"
	"github.com/ezrec/bearcore/timer"
	"github.com/ezrec/bearcore/trap"
)

// Machine state. Hart + bus + devices + trap dispatcher.
type Machine struct {
	Verbose bool               // If set, enables instruction tracing.
	Log     logrus.FieldLogger // Trace destination.
	Config  *config.Config     // Layout the machine was built from.

	*hart.Hart                   // The simulated core.
	Program    *hart.Program     // Listing of the loaded image, if assembled.
	Dispatcher *trap.Dispatcher  // Go trap handler.
	Timer      *timer.Timer      // Comparator driver, over the bus.
	Ram        *device.Ram       // Main memory.
	Uart       *device.Uart      // Serial port; its output is the console.
	Clint      *device.Clint     // Machine timer.
	Counters   *device.Counters  // Performance counters.
	Segments   []hart.Segment    // Image reloaded on every Reset.
	defines    map[string]string // Layout equates.
}

// NewMachine builds a machine with the configured layout. Console receives
// both UART output and dispatcher diagnostics.
func NewMachine(cfg *config.Config, console io.Writer) (m *Machine, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	err = cfg.Validate()
	if err != nil {
		return
	}

	m = &Machine{
		Verbose: cfg.Run.Verbose,
		Log:     logrus.StandardLogger(),
		Config:  cfg,
		Ram:     device.NewRam(cfg.Memory.RamSize),
		Uart: &device.Uart{
			Output:       console,
			BistInterval: cfg.Uart.BistInterval,
			Skew:         cfg.Uart.Skew,
			Corrupt:      cfg.Uart.Corrupt,
		},
		Clint:      &device.Clint{Step: cfg.Clint.Step},
		Counters:   &device.Counters{},
		Dispatcher: trap.NewDispatcher(console),
	}

	bus := &device.Bus{}
	for _, region := range []struct {
		name string
		base uint32
		dev  device.Device
	}{
		{"ram", cfg.Memory.RamBase, m.Ram},
		{"uart", cfg.Uart.Base, m.Uart},
		{"clint", cfg.Clint.Base, m.Clint},
		{"counters", cfg.Counters.Base, m.Counters},
	} {
		err = bus.Map(region.name, region.base, region.dev)
		if err != nil {
			err = &ErrLayout{Region: region.name, Base: region.base, Err: err}
			return
		}
	}

	m.Hart = hart.NewHart(bus)
	m.Hart.Entry = cfg.Memory.Entry
	m.Hart.StackTop = cfg.Memory.StackTop
	m.Hart.TimerIrq = m.Clint
	m.Hart.Handler = m.Dispatcher
	m.Counters.Source = m.Hart

	m.Timer = &timer.Timer{
		Regs: &busTimer{bus: bus, base: cfg.Clint.Base, log: m.Log},
		CSR:  m.Hart,
	}
	m.Dispatcher.Timer = m.Timer

	m.defines = map[string]string{
		"RAM_BASE":    fmt.Sprintf("%#x", cfg.Memory.RamBase),
		"RAM_SIZE":    fmt.Sprintf("%#x", cfg.Memory.RamSize),
		"STACK_TOP":   fmt.Sprintf("%#x", cfg.Memory.StackTop),
		"UART_BASE":   fmt.Sprintf("%#x", cfg.Uart.Base),
		"UART_DATA":   fmt.Sprintf("%#x", cfg.Uart.Base+device.UART_DATA),
		"UART_STATUS": fmt.Sprintf("%#x", cfg.Uart.Base+device.UART_STATUS),
		"CLINT_BASE":  fmt.Sprintf("%#x", cfg.Clint.Base),
		"MTIME_LO":    fmt.Sprintf("%#x", cfg.Clint.Base+device.CLINT_MTIME_LO),
		"MTIME_HI":    fmt.Sprintf("%#x", cfg.Clint.Base+device.CLINT_MTIME_HI),
		"MTIMECMP_LO": fmt.Sprintf("%#x", cfg.Clint.Base+device.CLINT_MTIMECMP_LO),
		"MTIMECMP_HI": fmt.Sprintf("%#x", cfg.Clint.Base+device.CLINT_MTIMECMP_HI),
		"CYCLE_LO":    fmt.Sprintf("%#x", cfg.Counters.Base+device.COUNTERS_CYCLE_LO),
		"CYCLE_HI":    fmt.Sprintf("%#x", cfg.Counters.Base+device.COUNTERS_CYCLE_HI),
		"INSTRET_LO":  fmt.Sprintf("%#x", cfg.Counters.Base+device.COUNTERS_INSTRET_LO),
		"INSTRET_HI":  fmt.Sprintf("%#x", cfg.Counters.Base+device.COUNTERS_INSTRET_HI),
	}

	m.Reset()
	return
}

// Defines returns an iterator over all of the layout and device defines.
func (m *Machine) Defines() iter.Seq2[string, string] {
	return internal.Chain2(maps.All(m.defines), deviceDefines())
}

// Assemble parses firmware source with the machine defines available, and
// loads the result.
func (m *Machine) Assemble(source io.Reader) (prog *hart.Program, err error) {
	asm := &hart.Assembler{Verbose: m.Verbose, Log: m.Log}
	for key, value := range m.Defines() {
		asm.Predefine(key, value)
	}

	prog, err = asm.Parse(source)
	if err != nil {
		return
	}

	err = m.Load(prog)
	return
}

// AssembleLines assembles a program given as source lines.
func (m *Machine) AssembleLines(lines ...string) (prog *hart.Program, err error) {
	return m.Assemble(strings.NewReader(strings.Join(lines, "\n")))
}

// Load installs an assembled program, keeping its listing for line lookup,
// and resets the machine.
func (m *Machine) Load(prog *hart.Program) (err error) {
	err = m.LoadSegments([]hart.Segment{{Addr: prog.Origin, Words: prog.Binary()}})
	if err != nil {
		return
	}
	m.Program = prog
	return
}

// LoadSegments installs a raw image and resets the machine.
func (m *Machine) LoadSegments(segs []hart.Segment) (err error) {
	m.Program = nil
	m.Segments = segs
	err = m.reload()
	if err != nil {
		m.Segments = nil
		return
	}
	m.Dispatcher.Reset()
	m.Hart.Reset()
	return
}

func (m *Machine) reload() (err error) {
	m.Hart.Bus.Reset()
	for _, seg := range m.Segments {
		for n, word := range seg.Words {
			addr := seg.Addr + uint32(n*4)
			err = m.Hart.Bus.Store(addr, word, 4)
			if err != nil {
				err = errors.Join(ErrImage, err)
				return
			}
		}
	}
	return
}

// Reset returns every device to power-on, reloads the image and resets the
// hart and dispatcher.
func (m *Machine) Reset() {
	// The image was stored once already, so it fits.
	_ = m.reload()
	m.Dispatcher.Reset()
	m.Hart.Reset()
}

// LineNo returns the source line of the instruction at pc, when the image was
// assembled.
func (m *Machine) LineNo() int {
	if m.Program == nil {
		return 0
	}
	return m.Program.LineNo(m.Hart.Pc)
}

// Tick performs a single cycle of the machine. Done is set once the hart can
// make no further progress: spinning in place, or in wfi, with nothing
// enabled to interrupt it.
func (m *Machine) Tick() (done bool, err error) {
	m.Hart.Verbose = m.Verbose
	m.Hart.Log = m.Log
	m.Dispatcher.Log = nil
	if m.Verbose {
		m.Dispatcher.Log = m.Log
	}

	pc := m.Hart.Pc
	lineno := m.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	err = m.Hart.Tick()
	if err != nil {
		return
	}

	done = m.Hart.Stuck()
	return
}

// Run ticks until the hart is done, halts, or max cycles pass. A max of zero
// uses the configured limit.
func (m *Machine) Run(max int) (cycles int, err error) {
	if max <= 0 {
		max = m.Config.Run.MaxCycles
	}

	for cycles < max {
		var done bool
		done, err = m.Tick()
		cycles++
		if done || err != nil {
			return
		}
	}

	err = ErrCycleLimit
	return
}

// RunUntil ticks until cond holds, the hart halts, or max cycles pass.
func (m *Machine) RunUntil(max int, cond func() bool) (cycles int, err error) {
	for ; cycles < max; cycles++ {
		if cond() {
			return
		}
		_, err = m.Tick()
		if err != nil {
			return
		}
	}

	if !cond() {
		err = ErrCycleLimit
	}
	return
}

// String returns the register state plus the interrupt-relevant devices.
func (m *Machine) String() string {
	return m.Hart.String() + fmt.Sprintf("% 8s: %016X\n% 8s: %016X\n",
		"mtime", m.Clint.Mtime, "mtimecmp", m.Clint.Mtimecmp)
}
