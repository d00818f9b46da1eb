// Package lib is the root of the sortixkernel module: a simulated
// Unix-like kernel covering virtual memory, scheduling, the VFS,
// interrupts and signals, the block/file cache, clocks and timers,
// device probing, the TTY, and the syscall gate — built as a set of
// internal packages wired together by cmd/sortixkernel.
//
// See internal/ for the kernel subsystems and cmd/sortixkernel for the
// boot sequence that constructs and connects them.
package lib
