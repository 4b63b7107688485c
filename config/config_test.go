package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.NoError(cfg.Validate())
	assert.Equal(uint32(0x8000), cfg.Memory.StackTop)
	assert.Equal(uint32(0x1000_0000), cfg.Uart.Base)
	assert.Equal(15, cfg.Suite.BistLength)
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	text := strings.Join([]string{
		"[memory]",
		"ram_size = 0x20000",
		"stack_top = 0x10000",
		"[uart]",
		"skew = -2",
		"corrupt = [1, 7]",
		"[suite]",
		"wait_bound = 500",
		"[run]",
		"verbose = true",
	}, "\n")

	cfg, err := Decode(strings.NewReader(text))
	assert.NoError(err)
	assert.Equal(uint32(0x20000), cfg.Memory.RamSize)
	assert.Equal(uint32(0x10000), cfg.Memory.StackTop)
	assert.Equal(-2, cfg.Uart.Skew)
	assert.Equal([]int{1, 7}, cfg.Uart.Corrupt)
	assert.Equal(500, cfg.Suite.WaitBound)
	assert.True(cfg.Run.Verbose)

	// Untouched settings keep their defaults.
	assert.Equal(uint32(DEFAULT_CLINT_BASE), cfg.Clint.Base)
	assert.Equal(DEFAULT_MAX_CYCLES, cfg.Run.MaxCycles)
}

func TestDecodeErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		text string
		err  error
	}){
		{"[memory]\nram_size = 6", ErrRamSize},
		{"[memory]\nstack_top = 0x8004", ErrStackTop},
		{"[memory]\nstack_top = 0x20000", ErrStackTop},
		{"[memory]\nentry = 2", ErrEntry},
		{"[clint]\nbase = 0x10000009", ErrDeviceBase},
		{"[suite]\nwait_bound = 0", ErrWaitBound},
		{"[suite]\nbist_length = -1", ErrBistLength},
		{"[suite]\nbist_length = 16", ErrBistLength},
		{"[suite]\nbist_length = 18", ErrBistLength},
		{"[memory\n", ErrDecode},
	}

	for _, entry := range table {
		_, err := Decode(strings.NewReader(entry.text))
		assert.ErrorIs(err, entry.err, entry.text)
	}

	_, err := Decode(strings.NewReader("[uart]\nbaud = 9600"))
	var unknown ErrUnknownKey
	assert.True(errors.As(err, &unknown))
	assert.Equal(ErrUnknownKey("uart.baud"), unknown)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "bearcore.toml")

	cfg := Default()
	cfg.Uart.Corrupt = []int{3}
	cfg.Run.MaxCycles = 1234

	buf := &bytes.Buffer{}
	assert.NoError(cfg.Encode(buf))
	assert.NoError(os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := Load(path)
	assert.NoError(err)
	assert.Equal(cfg, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(err, ErrDecode)
	assert.ErrorIs(err, os.ErrNotExist)
}
