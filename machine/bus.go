package machine

import (
	"fmt"
	"iter"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/bearcore/device"
	"github.com/ezrec/bearcore/timer"
)

var timerOffset = map[timer.Register]uint32{
	timer.MTIME_LO:    device.CLINT_MTIME_LO,
	timer.MTIME_HI:    device.CLINT_MTIME_HI,
	timer.MTIMECMP_LO: device.CLINT_MTIMECMP_LO,
	timer.MTIMECMP_HI: device.CLINT_MTIMECMP_HI,
}

// busTimer reaches the timer registers through their memory-mapped
// addresses, as firmware does.
type busTimer struct {
	bus  *device.Bus
	base uint32
	log  logrus.FieldLogger // Bus faults; nil drops them.
}

var _ timer.Registers = (*busTimer)(nil)

func (bt *busTimer) fault(op string, reg timer.Register, addr uint32, err error) {
	if bt.log == nil {
		return
	}
	bt.log.WithError(err).WithFields(logrus.Fields{
		"op":       op,
		"register": reg,
		"addr":     fmt.Sprintf("0x%08x", addr),
	}).Warn("machine: timer register fault")
}

// Load implements timer.Registers. The CLINT is always mapped, so errors
// only arise from a broken layout; they are logged and read as zero.
func (bt *busTimer) Load(reg timer.Register) uint32 {
	addr := bt.base + timerOffset[reg]
	value, err := bt.bus.Load(addr, 4)
	if err != nil {
		bt.fault("load", reg, addr, err)
	}
	return value
}

// Store implements timer.Registers.
func (bt *busTimer) Store(reg timer.Register, value uint32) {
	addr := bt.base + timerOffset[reg]
	err := bt.bus.Store(addr, value, 4)
	if err != nil {
		bt.fault("store", reg, addr, err)
	}
}

var _device_defines = map[string]string{
	"UART_STATUS_TX_BUSY":  fmt.Sprintf("%#x", device.UART_STATUS_TX_BUSY),
	"UART_STATUS_RX_READY": fmt.Sprintf("%#x", device.UART_STATUS_RX_READY),
	"UART_TEST_MODE_TX":    fmt.Sprintf("%#x", device.UART_TEST_MODE_TX),
	"UART_TEST_MODE_RX":    fmt.Sprintf("%#x", device.UART_TEST_MODE_RX),
	"UART_BIST_LENGTH":     fmt.Sprintf("%d", len(device.UART_BIST_MESSAGE)),
	"TIMER_SENTINEL":       fmt.Sprintf("%#x", timer.SENTINEL),
}

func deviceDefines() iter.Seq2[string, string] {
	return maps.All(_device_defines)
}
