package device

const (
	CLINT_MTIME_LO    = 0x0 // mtime[31:0]
	CLINT_MTIME_HI    = 0x4 // mtime[63:32]
	CLINT_MTIMECMP_LO = 0x8 // mtimecmp[31:0]
	CLINT_MTIMECMP_HI = 0xc // mtimecmp[63:32]
	CLINT_SIZE        = 0x10

	// CLINT_HISTORY_LIMIT bounds the recorded compare writes.
	CLINT_HISTORY_LIMIT = 64
)

// CompareWrite records the comparator as the hardware sees it right after one
// half was written.
type CompareWrite struct {
	Mtime   uint64 // Time of the write.
	Visible uint64 // Full 64-bit compare value after the write.
}

// Early reports whether the comparator would fire on this intermediate value.
func (cw CompareWrite) Early() bool {
	return cw.Visible <= cw.Mtime
}

// Clint is the machine timer: a free running 64-bit mtime and a 64-bit
// comparator, both split into 32-bit halves.
type Clint struct {
	Mtime    uint64
	Mtimecmp uint64
	Step     uint64 // mtime increment per tick.

	History []CompareWrite // Most recent compare writes, oldest first.
}

var _ Device = (*Clint)(nil)
var _ Ticker = (*Clint)(nil)

// Reset implements Device. The comparator powers up parked.
func (clint *Clint) Reset() {
	clint.Mtime = 0
	clint.Mtimecmp = ^uint64(0)
	clint.History = nil
}

// Size implements Device.
func (clint *Clint) Size() uint32 {
	return CLINT_SIZE
}

// Pending is the level of the timer interrupt line.
func (clint *Clint) Pending() bool {
	return clint.Mtime >= clint.Mtimecmp
}

// Tick implements Ticker.
func (clint *Clint) Tick() {
	step := clint.Step
	if step == 0 {
		step = 1
	}
	clint.Mtime += step
}

// Load implements Device. Only word access is supported.
func (clint *Clint) Load(offset uint32, size int) (value uint32, err error) {
	if size != 4 {
		err = ErrAccessSize
		return
	}

	switch offset {
	case CLINT_MTIME_LO:
		value = uint32(clint.Mtime)
	case CLINT_MTIME_HI:
		value = uint32(clint.Mtime >> 32)
	case CLINT_MTIMECMP_LO:
		value = uint32(clint.Mtimecmp)
	case CLINT_MTIMECMP_HI:
		value = uint32(clint.Mtimecmp >> 32)
	default:
		err = ErrBusFault
	}
	return
}

// Store implements Device. mtime is read-only.
func (clint *Clint) Store(offset uint32, value uint32, size int) (err error) {
	if size != 4 {
		err = ErrAccessSize
		return
	}

	switch offset {
	case CLINT_MTIME_LO, CLINT_MTIME_HI:
		err = ErrReadOnly
		return
	case CLINT_MTIMECMP_LO:
		clint.Mtimecmp = (clint.Mtimecmp &^ 0xffff_ffff) | uint64(value)
	case CLINT_MTIMECMP_HI:
		clint.Mtimecmp = (clint.Mtimecmp & 0xffff_ffff) | (uint64(value) << 32)
	default:
		err = ErrBusFault
		return
	}

	clint.History = append(clint.History, CompareWrite{Mtime: clint.Mtime, Visible: clint.Mtimecmp})
	if len(clint.History) > CLINT_HISTORY_LIMIT {
		clint.History = clint.History[len(clint.History)-CLINT_HISTORY_LIMIT:]
	}

	return
}
