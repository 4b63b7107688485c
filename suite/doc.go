// Package suite is the BearCore-V validation suite: a ledger of verdicts, the
// tolerant comparator used by the UART self-test, and the validation groups
// that exercise the CSRs, trap dispatch, timer and interrupts on a simulated
// machine.
package suite
