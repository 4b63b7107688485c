package device

const (
	COUNTERS_CYCLE_LO   = 0x0
	COUNTERS_CYCLE_HI   = 0x4
	COUNTERS_INSTRET_LO = 0x8
	COUNTERS_INSTRET_HI = 0xc
	COUNTERS_SIZE       = 0x10
)

// CounterSource supplies the performance counters.
type CounterSource interface {
	Cycles() uint64
	Instret() uint64
}

// Counters exposes the cycle and retired-instruction counters read-only.
type Counters struct {
	Source CounterSource
}

var _ Device = (*Counters)(nil)

// Reset implements Device.
func (c *Counters) Reset() {}

// Size implements Device.
func (c *Counters) Size() uint32 {
	return COUNTERS_SIZE
}

// Load implements Device.
func (c *Counters) Load(offset uint32, size int) (value uint32, err error) {
	if size != 4 {
		err = ErrAccessSize
		return
	}

	var cycles, instret uint64
	if c.Source != nil {
		cycles = c.Source.Cycles()
		instret = c.Source.Instret()
	}

	switch offset {
	case COUNTERS_CYCLE_LO:
		value = uint32(cycles)
	case COUNTERS_CYCLE_HI:
		value = uint32(cycles >> 32)
	case COUNTERS_INSTRET_LO:
		value = uint32(instret)
	case COUNTERS_INSTRET_HI:
		value = uint32(instret >> 32)
	default:
		err = ErrBusFault
	}
	return
}

// Store implements Device.
func (c *Counters) Store(offset uint32, value uint32, size int) (err error) {
	if offset >= COUNTERS_SIZE {
		return ErrBusFault
	}
	return ErrReadOnly
}
