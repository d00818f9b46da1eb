package process

import "sync"

// hostname is the kernel-wide hostname singleton, guarded by
// hostname_lock per spec.md §5's shared-resource list.
var (
	hostnameLock sync.Mutex
	hostname     = "sortix"
)

// Hostname returns the current system hostname.
func Hostname() string {
	hostnameLock.Lock()
	defer hostnameLock.Unlock()
	return hostname
}

// SetHostname replaces the system hostname.
func SetHostname(name string) {
	hostnameLock.Lock()
	defer hostnameLock.Unlock()
	hostname = name
}
