package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/bearcore/csr"
	"github.com/ezrec/bearcore/device"
)

// clintRegs routes timer register accesses to a CLINT model.
type clintRegs struct {
	clint *device.Clint
}

var clintOffset = map[Register]uint32{
	MTIME_LO:    device.CLINT_MTIME_LO,
	MTIME_HI:    device.CLINT_MTIME_HI,
	MTIMECMP_LO: device.CLINT_MTIMECMP_LO,
	MTIMECMP_HI: device.CLINT_MTIMECMP_HI,
}

func (r *clintRegs) Load(reg Register) uint32 {
	value, _ := r.clint.Load(clintOffset[reg], 4)
	return value
}

func (r *clintRegs) Store(reg Register, value uint32) {
	r.clint.Store(clintOffset[reg], value, 4)
}

func newTimer(mtime uint64) (tm *Timer, clint *device.Clint, file *csr.File) {
	clint = &device.Clint{}
	clint.Reset()
	clint.Mtime = mtime
	file = &csr.File{}
	file.Reset()
	tm = &Timer{Regs: &clintRegs{clint: clint}, CSR: file}
	return
}

func TestTimer_ArmNeverEarly(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		mtime    uint64
		previous uint64
		target   uint64
	}){
		{"low half only", 100, ^uint64(0), 200},
		{"carry pending", 0x0000_0000_ffff_ff00, ^uint64(0), 0x0000_0001_0000_0010},
		{"previous deadline low", 0x1_0000_0000, 0x0_0000_0005, 0x1_0000_1000},
		{"previous high, new low word smaller", 0x2_0000_0000, 0x3_0000_0000, 0x2_ffff_0000},
		{"far future", 5, 0, 0x7fff_ffff_0000_0000},
	}

	for _, entry := range table {
		tm, clint, _ := newTimer(entry.mtime)
		clint.Mtimecmp = entry.previous
		clint.History = nil

		tm.Arm(entry.target)

		assert.Equal(entry.target, clint.Mtimecmp, entry.name)
		assert.Equal(entry.target, tm.Compare(), entry.name)
		assert.Len(clint.History, 3, entry.name)
		for n, cw := range clint.History {
			assert.False(cw.Early(), "%v: write %d exposed 0x%016x at 0x%x", entry.name, n, cw.Visible, cw.Mtime)
		}
		assert.Equal(uint64(SENTINEL)<<32|uint64(entry.previous&0xffff_ffff), clint.History[0].Visible, entry.name)
	}
}

func TestTimer_ArmAfter(t *testing.T) {
	assert := assert.New(t)

	tm, clint, _ := newTimer(1000)

	deadline := tm.ArmAfter(50)
	assert.Equal(uint64(1050), deadline)
	assert.Equal(uint64(1050), clint.Mtimecmp)

	for range 49 {
		clint.Tick()
	}
	assert.False(clint.Pending())
	clint.Tick()
	assert.True(clint.Pending())
}

func TestTimer_Now(t *testing.T) {
	assert := assert.New(t)

	tm, _, _ := newTimer(0x1_2345_6789)
	assert.Equal(uint64(0x1_2345_6789), tm.Now())
}

// carryRegs advances mtime across a 32-bit boundary between the first two
// reads.
type carryRegs struct {
	mtime uint64
	reads int
}

func (r *carryRegs) Load(reg Register) uint32 {
	r.reads++
	if r.reads == 2 {
		r.mtime = 0x1_0000_0001
	}
	switch reg {
	case MTIME_LO:
		return uint32(r.mtime)
	case MTIME_HI:
		return uint32(r.mtime >> 32)
	}
	return 0
}

func (r *carryRegs) Store(reg Register, value uint32) {}

func TestTimer_NowCarry(t *testing.T) {
	assert := assert.New(t)

	regs := &carryRegs{mtime: 0x0_ffff_ffff}
	tm := &Timer{Regs: regs}
	assert.Equal(uint64(0x1_0000_0001), tm.Now())
	assert.Equal(6, regs.reads)
}

func TestTimer_Park(t *testing.T) {
	assert := assert.New(t)

	tm, clint, file := newTimer(10)
	tm.Arm(20)
	tm.Enable()

	tm.Park()
	assert.Equal(^uint64(0), clint.Mtimecmp)
	for _, cw := range clint.History {
		assert.False(cw.Early())
	}
	assert.Equal(csr.MIE_MTIE, file.Mie&csr.MIE_MTIE, "park leaves enables alone")
	assert.Equal(csr.MSTATUS_MIE, file.Mstatus&csr.MSTATUS_MIE)
}

func TestTimer_EnableDisarm(t *testing.T) {
	assert := assert.New(t)

	tm, clint, file := newTimer(0)

	tm.Enable()
	assert.Equal(csr.MIE_MTIE, file.Mie)
	assert.Equal(csr.MSTATUS_MIE, file.Mstatus)

	tm.Arm(3)
	tm.Disarm()
	assert.Equal(^uint64(0), clint.Mtimecmp)
	assert.Equal(uint32(0), file.Mie)
	assert.Equal(uint32(0), file.Mstatus, "nothing else pending")

	// Another enabled source pending keeps the global enable.
	tm.Enable()
	file.Set(csr.MIE, csr.MIE_MSIE)
	file.Set(csr.MIP, csr.MIP_MSIP)
	tm.Disarm()
	assert.Equal(csr.MIE_MSIE, file.Mie)
	assert.Equal(csr.MSTATUS_MIE, file.Mstatus)
}

func TestTimer_NoCSR(t *testing.T) {
	assert := assert.New(t)

	clint := &device.Clint{}
	clint.Reset()
	tm := &Timer{Regs: &clintRegs{clint: clint}}

	assert.NotPanics(func() {
		tm.Enable()
		tm.Arm(7)
		tm.Disarm()
	})
	assert.Equal(^uint64(0), clint.Mtimecmp)
}
