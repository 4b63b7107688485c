// Package device provides the memory-mapped peripherals of the BearCore-V
// machine: RAM, the UART with its built-in self-test loopback, the machine
// timer, and the performance counters. All devices hang off a Bus.
package device

// Device defines the interface for every memory-mapped peripheral.
// Offsets are relative to the base address the device is mapped at.
type Device interface {
	// Reset returns the device to its power-on state.
	Reset()
	// Size is the length of the mapped window, in bytes.
	Size() uint32
	// Load reads 1, 2 or 4 bytes.
	Load(offset uint32, size int) (value uint32, err error)
	// Store writes 1, 2 or 4 bytes.
	Store(offset uint32, value uint32, size int) error
}

// Ticker is a device that advances with the hart clock.
type Ticker interface {
	Tick()
}
