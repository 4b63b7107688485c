package suite

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_Report(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	l := &Ledger{Out: out}

	assert.True(l.Report("X", 5, 5))
	assert.Equal(1, l.Total)
	assert.Equal(1, l.Passed)

	assert.False(l.Report("Y", 5, 6))
	assert.Equal(2, l.Total)
	assert.Equal(1, l.Passed)
	assert.Equal(1, l.Failed())

	assert.Equal("Test 1: X - PASS (0x00000005)\n"+
		"Test 2: Y - FAIL (got 0x00000005, expected 0x00000006)\n", out.String())
}

func TestLedger_Check(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	l := &Ledger{Out: out}

	assert.True(l.Check(true, "ECALL Trap"))
	assert.False(l.Check(false, "Timer Interrupt"))
	assert.Equal(" [PASS] ECALL Trap\n [FAIL] Timer Interrupt\n", out.String())
	assert.Equal("--- Result: PASS=1 FAIL=1 ---", l.Summary())

	l.Reset()
	assert.Equal(0, l.Total)
	assert.Equal("--- Result: PASS=0 FAIL=0 ---", l.Summary())
}

func TestLedger_Silent(t *testing.T) {
	assert := assert.New(t)

	l := &Ledger{}
	assert.True(l.Report("quiet", 1, 1))
	assert.Equal(1, l.Passed)
}
