package device

import (
	"io"
)

const (
	UART_DATA   = 0x0 // Data register offset.
	UART_STATUS = 0x4 // Status register offset.
	UART_SIZE   = 0x8

	UART_STATUS_TX_BUSY  = uint32(1 << 0) // Transmitter busy.
	UART_STATUS_RX_READY = uint32(1 << 1) // Receive FIFO not empty.

	UART_TEST_MODE_TX   = uint32(1 << 31) // Hardware transmits the BIST string.
	UART_TEST_MODE_RX   = uint32(1 << 30) // Transmitter looped back into the receiver.
	UART_TEST_MODE_MASK = UART_TEST_MODE_TX | UART_TEST_MODE_RX

	UART_FIFO_DEPTH = 16

	// UART_DEFAULT_BIST_INTERVAL is the number of ticks per BIST character.
	UART_DEFAULT_BIST_INTERVAL = 8
)

// UART_BIST_MESSAGE is the string the transmitter emits in TX test mode.
const UART_BIST_MESSAGE = "Hello! RISC-V!\n"

// Uart is a byte-wide serial port. Writes to the data register transmit to
// Output, reads pop the receive FIFO, which is filled from Input or, in
// loopback test mode, from the transmitter's self-test string.
//
// Loopback timing faults can be injected: Skew shifts the received string
// (positive values prefix Skew junk characters, negative values lose the first
// characters) and Corrupt lists positions of the message that arrive damaged.
type Uart struct {
	Output io.Writer // Transmit sink.
	Input  io.Reader // Receive source, outside of loopback mode.

	BistInterval int   // Ticks per self-test character.
	Skew         int   // Loopback alignment skew, in characters.
	Corrupt      []int // Message positions damaged in loopback.

	Overruns int // Characters lost to a full receive FIFO.

	mode    uint32
	fifo    []byte
	bist    []byte
	bistCnt int
}

var _ Device = (*Uart)(nil)
var _ Ticker = (*Uart)(nil)

// Reset implements Device. Fault injection settings are kept.
func (uart *Uart) Reset() {
	uart.mode = 0
	uart.fifo = uart.fifo[:0]
	uart.bist = nil
	uart.bistCnt = 0
	uart.Overruns = 0
}

// Size implements Device.
func (uart *Uart) Size() uint32 {
	return UART_SIZE
}

// Mode returns the active test mode bits.
func (uart *Uart) Mode() uint32 {
	return uart.mode
}

func (uart *Uart) push(c byte) {
	if len(uart.fifo) >= UART_FIFO_DEPTH {
		uart.Overruns++
		return
	}
	uart.fifo = append(uart.fifo, c)
}

// Feed places bytes in the receive FIFO, as if they arrived on the wire.
func (uart *Uart) Feed(data []byte) {
	for _, c := range data {
		uart.push(c)
	}
}

// fill pulls one byte from Input when the FIFO is empty.
func (uart *Uart) fill() {
	if len(uart.fifo) > 0 || uart.Input == nil || uart.mode&UART_TEST_MODE_RX != 0 {
		return
	}

	var buf [1]byte
	n, _ := uart.Input.Read(buf[:])
	if n == 1 {
		uart.push(buf[0])
	}
}

// bistStream builds the character sequence the line carries for one self-test.
func (uart *Uart) bistStream() (stream []byte) {
	msg := []byte(UART_BIST_MESSAGE)
	for _, pos := range uart.Corrupt {
		if pos >= 0 && pos < len(msg) {
			msg[pos] ^= 0x5a
		}
	}

	switch {
	case uart.Skew > 0:
		for range uart.Skew {
			stream = append(stream, 0xff)
		}
		stream = append(stream, msg...)
	case uart.Skew < 0:
		if -uart.Skew < len(msg) {
			stream = append(stream, msg[-uart.Skew:]...)
		}
	default:
		stream = msg
	}

	return
}

func (uart *Uart) setMode(mode uint32) {
	starting := mode&UART_TEST_MODE_TX != 0 && uart.mode&UART_TEST_MODE_TX == 0
	uart.mode = mode & UART_TEST_MODE_MASK

	if starting {
		uart.bist = uart.bistStream()
		uart.bistCnt = 0
	}
	if uart.mode&UART_TEST_MODE_TX == 0 {
		uart.bist = nil
	}
}

// Load implements Device.
func (uart *Uart) Load(offset uint32, size int) (value uint32, err error) {
	switch offset {
	case UART_DATA:
		uart.fill()
		if len(uart.fifo) > 0 {
			value = uint32(uart.fifo[0])
			uart.fifo = uart.fifo[1:]
		}
	case UART_STATUS:
		uart.fill()
		if len(uart.fifo) > 0 {
			value |= UART_STATUS_RX_READY
		}
	default:
		err = ErrBusFault
	}
	return
}

// Store implements Device. Any write with a test mode bit set, or any write
// while a test mode is active, updates the mode instead of transmitting.
func (uart *Uart) Store(offset uint32, value uint32, size int) (err error) {
	switch offset {
	case UART_DATA:
		if size == 4 && (value&UART_TEST_MODE_MASK != 0 || uart.mode != 0) {
			uart.setMode(value)
			return
		}
		if uart.Output != nil {
			_, err = uart.Output.Write([]byte{byte(value)})
		}
	case UART_STATUS:
		err = ErrReadOnly
	default:
		err = ErrBusFault
	}
	return
}

// Tick implements Ticker: in TX test mode one self-test character leaves the
// transmitter every BistInterval ticks.
func (uart *Uart) Tick() {
	if len(uart.bist) == 0 {
		return
	}

	interval := uart.BistInterval
	if interval <= 0 {
		interval = UART_DEFAULT_BIST_INTERVAL
	}

	uart.bistCnt++
	if uart.bistCnt < interval {
		return
	}
	uart.bistCnt = 0

	c := uart.bist[0]
	uart.bist = uart.bist[1:]

	if uart.mode&UART_TEST_MODE_RX != 0 {
		uart.push(c)
	} else if uart.Output != nil {
		uart.Output.Write([]byte{c})
	}
}
