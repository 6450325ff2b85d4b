// Package val implements the VAL file transfer protocol: a reliable,
// transport-agnostic, blocking-I/O engine for shipping one or more files
// from a sender to a receiver over any ordered byte stream (TCP, UART,
// USB CDC, a pseudo-tty).
//
// The core is shaped for embedded use: callers own the transport,
// filesystem, and clock through small hook interfaces, and a single
// Session drives the whole batch on the caller's own goroutine. There is
// no background I/O and no internal event loop — SendFiles and ReceiveFiles block
// until the batch finishes, fails, or is cancelled.
package val
