package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_Map(t *testing.T) {
	assert := assert.New(t)

	bus := &Bus{}
	assert.NoError(bus.Map("ram", 0x0, NewRam(0x100)))
	assert.NoError(bus.Map("uart", 0x1000_0000, &Uart{}))
	assert.ErrorIs(bus.Map("ram2", 0x80, NewRam(0x100)), ErrRegionOverlap)
	assert.ErrorIs(bus.Map("clint", 0x1000_0004, &Clint{}), ErrRegionOverlap)
	assert.NoError(bus.Map("clint", 0x1000_0008, &Clint{}))

	region, ok := bus.Find(0x1000_000c, 4)
	assert.True(ok)
	assert.Equal("clint", region.Name)

	_, ok = bus.Find(0xfe, 4)
	assert.False(ok, "straddles the end of ram")
}

func TestBus_LoadStore(t *testing.T) {
	assert := assert.New(t)

	bus := &Bus{}
	assert.NoError(bus.Map("ram", 0x100, NewRam(0x100)))

	assert.NoError(bus.Store(0x100, 0xdead_beef, 4))
	value, err := bus.Load(0x100, 4)
	assert.NoError(err)
	assert.Equal(uint32(0xdead_beef), value)

	value, err = bus.Load(0x101, 1)
	assert.NoError(err)
	assert.Equal(uint32(0xbe), value)

	value, err = bus.Load(0x102, 2)
	assert.NoError(err)
	assert.Equal(uint32(0xdead), value)

	assert.NoError(bus.Store(0x100, 0xaa, 1))
	assert.NoError(bus.Store(0x101, 0xbb, 1))
	value, _ = bus.Load(0x100, 4)
	assert.Equal(uint32(0xdead_bbaa), value)

	_, err = bus.Load(0x102, 4)
	assert.ErrorIs(err, ErrMisaligned)

	_, err = bus.Load(0x0, 4)
	assert.ErrorIs(err, ErrBusFault)
	var access *ErrAccess
	assert.ErrorAs(err, &access)
	assert.Equal(uint32(0x0), access.Addr)

	err = bus.Store(0x100, 0, 3)
	assert.ErrorIs(err, ErrAccessSize)
}

func TestClint(t *testing.T) {
	assert := assert.New(t)

	clint := &Clint{Step: 1}
	clint.Reset()
	assert.False(clint.Pending())
	assert.Equal(^uint64(0), clint.Mtimecmp)

	for range 10 {
		clint.Tick()
	}
	assert.Equal(uint64(10), clint.Mtime)

	assert.NoError(clint.Store(CLINT_MTIMECMP_LO, 12, 4))
	assert.False(clint.Pending(), "high half still at the sentinel")
	assert.NoError(clint.Store(CLINT_MTIMECMP_HI, 0, 4))
	assert.False(clint.Pending())
	clint.Tick()
	clint.Tick()
	assert.True(clint.Pending())

	assert.Len(clint.History, 2)
	assert.Equal(uint64(0xffff_ffff_0000_000c), clint.History[0].Visible)
	assert.Equal(uint64(12), clint.History[1].Visible)
	assert.False(clint.History[1].Early())

	assert.ErrorIs(clint.Store(CLINT_MTIME_LO, 0, 4), ErrReadOnly)
	_, err := clint.Load(CLINT_MTIME_LO, 1)
	assert.ErrorIs(err, ErrAccessSize)

	value, err := clint.Load(CLINT_MTIME_LO, 4)
	assert.NoError(err)
	assert.Equal(uint32(12), value)
}

func TestClint_HistoryLimit(t *testing.T) {
	assert := assert.New(t)

	clint := &Clint{}
	clint.Reset()
	for n := range CLINT_HISTORY_LIMIT + 10 {
		assert.NoError(clint.Store(CLINT_MTIMECMP_LO, uint32(n), 4))
	}
	assert.Len(clint.History, CLINT_HISTORY_LIMIT)
	assert.Equal(uint64(0xffff_ffff_0000_0000)|uint64(CLINT_HISTORY_LIMIT+9), clint.History[CLINT_HISTORY_LIMIT-1].Visible)
}

func TestUart_Transmit(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	uart := &Uart{Output: out}
	uart.Reset()

	for _, c := range []byte("ok\n") {
		assert.NoError(uart.Store(UART_DATA, uint32(c), 4))
	}
	assert.Equal("ok\n", out.String())

	status, err := uart.Load(UART_STATUS, 4)
	assert.NoError(err)
	assert.Equal(uint32(0), status)

	assert.ErrorIs(uart.Store(UART_STATUS, 0, 4), ErrReadOnly)
}

func TestUart_Receive(t *testing.T) {
	assert := assert.New(t)

	uart := &Uart{Input: bytes.NewReader([]byte("k"))}
	uart.Reset()

	status, _ := uart.Load(UART_STATUS, 4)
	assert.Equal(UART_STATUS_RX_READY, status)
	value, _ := uart.Load(UART_DATA, 4)
	assert.Equal(uint32('k'), value)

	status, _ = uart.Load(UART_STATUS, 4)
	assert.Equal(uint32(0), status)
}

func runBist(uart *Uart, ticks int) (received []byte) {
	uart.Store(UART_DATA, UART_TEST_MODE_RX, 4)
	uart.Store(UART_DATA, UART_TEST_MODE_RX|UART_TEST_MODE_TX, 4)

	for range ticks {
		uart.Tick()
		status, _ := uart.Load(UART_STATUS, 4)
		if status&UART_STATUS_RX_READY != 0 {
			c, _ := uart.Load(UART_DATA, 4)
			received = append(received, byte(c))
		}
	}

	uart.Store(UART_DATA, 0, 4)
	return
}

func TestUart_Bist(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		skew    int
		corrupt []int
		want    string
	}){
		{"aligned", 0, nil, UART_BIST_MESSAGE},
		{"late", 2, nil, "\xff\xff" + UART_BIST_MESSAGE},
		{"early", -3, nil, UART_BIST_MESSAGE[3:]},
		{"glitch", 0, []int{1}, "H\x3fllo! RISC-V!\n"},
	}

	for _, entry := range table {
		out := &bytes.Buffer{}
		uart := &Uart{Output: out, BistInterval: 2, Skew: entry.skew, Corrupt: entry.corrupt}
		uart.Reset()

		received := runBist(uart, 100)
		assert.Equal(entry.want, string(received), entry.name)
		assert.Empty(out.String(), entry.name+": loopback never reaches the line")
		assert.Equal(uint32(0), uart.Mode(), entry.name)
	}
}

func TestUart_BistWithoutLoopback(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	uart := &Uart{Output: out, BistInterval: 1}
	uart.Reset()

	assert.NoError(uart.Store(UART_DATA, UART_TEST_MODE_TX, 4))
	for range 32 {
		uart.Tick()
	}
	assert.Equal(UART_BIST_MESSAGE, out.String())
}

func TestUart_Overrun(t *testing.T) {
	assert := assert.New(t)

	uart := &Uart{}
	uart.Reset()
	uart.Feed(make([]byte, UART_FIFO_DEPTH+3))
	assert.Equal(3, uart.Overruns)
}

type fixedCounters struct{}

func (fixedCounters) Cycles() uint64  { return 0x1_0000_0002 }
func (fixedCounters) Instret() uint64 { return 7 }

func TestCounters(t *testing.T) {
	assert := assert.New(t)

	c := &Counters{Source: fixedCounters{}}

	value, err := c.Load(COUNTERS_CYCLE_LO, 4)
	assert.NoError(err)
	assert.Equal(uint32(2), value)
	value, _ = c.Load(COUNTERS_CYCLE_HI, 4)
	assert.Equal(uint32(1), value)
	value, _ = c.Load(COUNTERS_INSTRET_LO, 4)
	assert.Equal(uint32(7), value)

	assert.ErrorIs(c.Store(COUNTERS_CYCLE_LO, 0, 4), ErrReadOnly)
}
