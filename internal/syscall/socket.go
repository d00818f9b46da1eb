package syscall

import "github.com/sortix-go/kernel/internal/kernelerr"

// Socket and Socketpair are stubbed: spec.md §6 describes socket as
// dispatching through a pseudo-path under /dev/net/... to a network
// stack, and socketpair as a named AF_UNIX socket bound under /tmp with
// bind+listen+connect — both need a real network/named-socket backend
// behind vfs.Backend that nothing in this kernel implements yet (no
// transport-layer component exists anywhere in SPEC_FULL.md's module
// list to drive one). Reporting ENOSYS here is accurate rather than
// silently pretending sockets work; a future socket backend would slot
// in as another DirOpener-style vfs.Backend and these two calls would
// dispatch to it the same way Open dispatches to the regular
// filesystem tree.
func (g *Gate) Socket(pid int32, domain, typ, proto int) (int, kernelerr.Errno) {
	return -1, g.reportErrno(pid, kernelerr.ENOSYS)
}

func (g *Gate) Socketpair(pid int32, domain, typ, proto int) ([2]int, kernelerr.Errno) {
	return [2]int{-1, -1}, g.reportErrno(pid, kernelerr.ENOSYS)
}
