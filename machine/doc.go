// Package machine assembles a complete BearCore-V system: the hart, its bus
// with RAM, UART, CLINT timer and performance counters, and the Go trap
// dispatcher installed behind the hart's trampoline.
//
// The dispatcher owns the timer comparator through the same memory-mapped
// registers firmware uses, so parking it on a timer interrupt is visible in
// the CLINT write history.
package machine
