// Package config holds the machine and validation-run settings, read from
// TOML.
//
// A minimal file only names what differs from Default:
//
//	[uart]
//	skew = -2
//	corrupt = [1]
//
//	[suite]
//	wait_bound = 20000
package config

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/bearcore/device"
)

const (
	DEFAULT_RAM_BASE   = 0x0000_0000
	DEFAULT_RAM_SIZE   = 0x0001_0000
	DEFAULT_STACK_TOP  = 0x0000_8000
	DEFAULT_ENTRY      = 0x0000_0000
	DEFAULT_UART_BASE  = 0x1000_0000
	DEFAULT_CLINT_BASE = 0x1000_0008
	DEFAULT_COUNT_BASE = 0x1000_0018

	DEFAULT_BIST_INTERVAL = 8
	DEFAULT_WAIT_BOUND    = 10000
	DEFAULT_BIST_LENGTH   = 15
	DEFAULT_MAX_CYCLES    = 1_000_000
)

// Memory describes the RAM region and the reset state of the hart.
type Memory struct {
	RamBase  uint32 `toml:"ram_base"`
	RamSize  uint32 `toml:"ram_size"`
	StackTop uint32 `toml:"stack_top"`
	Entry    uint32 `toml:"entry"`
}

// Uart places the serial port and sets its loopback fault injection.
type Uart struct {
	Base         uint32 `toml:"base"`
	BistInterval int    `toml:"bist_interval"`
	Skew         int    `toml:"skew"`
	Corrupt      []int  `toml:"corrupt"`
}

// Clint places the machine timer.
type Clint struct {
	Base uint32 `toml:"base"`
	Step uint64 `toml:"step"` // mtime increment per cycle.
}

// Counters places the performance counters.
type Counters struct {
	Base uint32 `toml:"base"`
}

// Suite tunes the validation groups.
type Suite struct {
	WaitBound  int `toml:"wait_bound"`  // Iterations before a wait loop gives up.
	BistLength int `toml:"bist_length"` // Characters compared by the UART self-test.
}

// Run limits a firmware run.
type Run struct {
	MaxCycles int  `toml:"max_cycles"`
	Verbose   bool `toml:"verbose"`
}

// Config is the complete configuration.
type Config struct {
	Memory   Memory   `toml:"memory"`
	Uart     Uart     `toml:"uart"`
	Clint    Clint    `toml:"clint"`
	Counters Counters `toml:"counters"`
	Suite    Suite    `toml:"suite"`
	Run      Run      `toml:"run"`
}

// Default returns the reference machine layout.
func Default() (cfg *Config) {
	cfg = &Config{
		Memory: Memory{
			RamBase:  DEFAULT_RAM_BASE,
			RamSize:  DEFAULT_RAM_SIZE,
			StackTop: DEFAULT_STACK_TOP,
			Entry:    DEFAULT_ENTRY,
		},
		Uart: Uart{
			Base:         DEFAULT_UART_BASE,
			BistInterval: DEFAULT_BIST_INTERVAL,
		},
		Clint: Clint{
			Base: DEFAULT_CLINT_BASE,
			Step: 1,
		},
		Counters: Counters{
			Base: DEFAULT_COUNT_BASE,
		},
		Suite: Suite{
			WaitBound:  DEFAULT_WAIT_BOUND,
			BistLength: DEFAULT_BIST_LENGTH,
		},
		Run: Run{
			MaxCycles: DEFAULT_MAX_CYCLES,
		},
	}
	return
}

// Decode reads TOML on top of the defaults.
func Decode(r io.Reader) (cfg *Config, err error) {
	cfg = Default()

	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		err = errors.Join(ErrDecode, err)
		return
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		err = ErrUnknownKey(strings.Join(keys, ", "))
		return
	}

	err = cfg.Validate()
	return
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (cfg *Config, err error) {
	fd, err := os.Open(path)
	if err != nil {
		err = errors.Join(ErrDecode, err)
		return
	}
	defer fd.Close()

	return Decode(fd)
}

// Validate checks the settings are usable.
func (cfg *Config) Validate() (err error) {
	mem := &cfg.Memory

	var errs []error
	if mem.RamSize == 0 || mem.RamSize&0x3 != 0 {
		errs = append(errs, ErrRamSize)
	}
	ramEnd := uint64(mem.RamBase) + uint64(mem.RamSize)
	if mem.StackTop&0xf != 0 || uint64(mem.StackTop) > ramEnd ||
		uint64(mem.StackTop) < uint64(mem.RamBase)+0x100 {
		errs = append(errs, ErrStackTop)
	}
	if mem.Entry&0x3 != 0 {
		errs = append(errs, ErrEntry)
	}
	for _, base := range []uint32{cfg.Uart.Base, cfg.Clint.Base, cfg.Counters.Base} {
		if base&0x3 != 0 {
			errs = append(errs, ErrDeviceBase)
			break
		}
	}
	if cfg.Suite.WaitBound <= 0 {
		errs = append(errs, ErrWaitBound)
	}
	if cfg.Suite.BistLength <= 0 || cfg.Suite.BistLength > len(device.UART_BIST_MESSAGE) {
		errs = append(errs, ErrBistLength)
	}

	err = errors.Join(errs...)
	return
}

// Encode writes the configuration as TOML.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}
