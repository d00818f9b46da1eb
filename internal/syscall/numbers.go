// Package syscall implements the kernel's syscall gate: a stable
// numeric index table, a dispatch entry per syscall, and errno-slot
// registration, wiring spec.md §6's syscall subset to internal/process,
// internal/vfs, internal/pipe, internal/clock, internal/signal, and
// internal/tty.
package syscall

// Number is a stable syscall index, matching spec.md §4's "stable
// numeric index" contract: once assigned, a number is never reused for
// a different syscall.
type Number int

const (
	SysExit Number = iota
	SysFork
	SysRfork
	SysExec
	SysWait
	SysGetpid
	SysGetppid
	SysGetuid
	SysGetgid
	SysGeteuid
	SysGetegid
	SysSetuid
	SysSetgid
	SysSeteuid
	SysSetegid
	SysGethostname
	SysSethostname
	SysKernelinfo
	SysOpen
	SysClose
	SysRead
	SysWrite
	SysPread
	SysPwrite
	SysLseek
	SysDup
	SysDup2
	SysReaddirents
	SysStat
	SysFstat
	SysLstat
	SysMkdir
	SysUnlink
	SysRmdir
	SysSymlink
	SysLink
	SysRename
	SysChmod
	SysChown
	SysUtimens
	SysTruncate
	SysFtruncate
	SysPipe
	SysPoll
	SysSigaction
	SysSigprocmask
	SysKill
	SysClockGettime
	SysClockSettime
	SysNanosleep
	SysTimerCreate
	SysTimerDelete
	SysTimerSettime
	SysTimerGettime
	SysTimerGetoverrun
	SysMemstat
	SysChroot
	SysMount
	SysUnmount
	SysTcsetblob
	numSyscalls
)

// ArgCount is the (fn, argc) dispatch table's argument-count half,
// purely descriptive here since Go calls are already type-checked —
// kept so a caller enumerating the table (e.g. kernelinfo tooling) can
// report it, matching spec.md's literal "(fn_ptr, arg_count)" contract.
var ArgCount = [numSyscalls]int{
	SysExit: 1, SysFork: 0, SysRfork: 1, SysExec: 3, SysWait: 3,
	SysGetpid: 0, SysGetppid: 0, SysGetuid: 0, SysGetgid: 0,
	SysGeteuid: 0, SysGetegid: 0, SysSetuid: 1, SysSetgid: 1,
	SysSeteuid: 1, SysSetegid: 1, SysGethostname: 2, SysSethostname: 2,
	SysKernelinfo: 3, SysOpen: 3, SysClose: 1, SysRead: 3, SysWrite: 3,
	SysPread: 4, SysPwrite: 4, SysLseek: 3, SysDup: 1, SysDup2: 2,
	SysReaddirents: 3, SysStat: 2, SysFstat: 2, SysLstat: 2,
	SysMkdir: 2, SysUnlink: 1, SysRmdir: 1, SysSymlink: 2, SysLink: 2,
	SysRename: 2, SysChmod: 2, SysChown: 3, SysUtimens: 3,
	SysTruncate: 2, SysFtruncate: 2, SysPipe: 1, SysPoll: 3,
	SysSigaction: 3, SysSigprocmask: 3, SysKill: 2, SysClockGettime: 2,
	SysClockSettime: 2, SysNanosleep: 2, SysTimerCreate: 3,
	SysTimerDelete: 1, SysTimerSettime: 4, SysTimerGettime: 2,
	SysTimerGetoverrun: 1, SysMemstat: 1, SysChroot: 1, SysMount: 4,
	SysUnmount: 2, SysTcsetblob: 3,
}
