package suite

import (
	"fmt"
	"io"
)

// Ledger counts validation outcomes and writes one verdict line per check.
type Ledger struct {
	Out    io.Writer // Verdict lines; nil discards them.
	Total  int       // Checks performed.
	Passed int       // Checks that passed.
}

func (l *Ledger) printf(format string, args ...any) {
	if l.Out == nil {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}

// Reset zeroes the counters.
func (l *Ledger) Reset() {
	l.Total = 0
	l.Passed = 0
}

// Failed is the number of checks that did not pass.
func (l *Ledger) Failed() int {
	return l.Total - l.Passed
}

// Report compares an observed value against the expected one. Only the
// counters change.
func (l *Ledger) Report(name string, actual uint32, expected uint32) (ok bool) {
	l.Total++

	ok = actual == expected
	if ok {
		l.Passed++
		l.printf("Test %d: %s - PASS (0x%08X)\n", l.Total, name, actual)
	} else {
		l.printf("Test %d: %s - FAIL (got 0x%08X, expected 0x%08X)\n", l.Total, name, actual, expected)
	}

	return
}

// Check records a boolean outcome.
func (l *Ledger) Check(cond bool, name string) bool {
	l.Total++

	if cond {
		l.Passed++
		l.printf(" [PASS] %s\n", name)
	} else {
		l.printf(" [FAIL] %s\n", name)
	}

	return cond
}

// Summary is the result line printed after a run.
func (l *Ledger) Summary() string {
	return fmt.Sprintf("--- Result: PASS=%d FAIL=%d ---", l.Passed, l.Failed())
}
