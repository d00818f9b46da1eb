package vfs

// Access mask bits, combined to describe what a caller is trying to do
// to an object (read its data, write it, or search/execute it).
const (
	AccessExec  = 1
	AccessWrite = 2
	AccessRead  = 4
)

// HasAccess reports whether a caller identified by uid/gid may act on an
// object owned by fileUid/fileGid with permission bits mode, against the
// requested mask. uid 0 and an empty mask always pass. Otherwise the
// owner's rwx nibble applies if uid matches, the group's if not but gid
// matches, and the world's nibble otherwise — the same owner/group/other
// selection every POSIX permission check makes, with all of mask's bits
// required rather than any one of them.
func HasAccess(uid, gid, fileUid, fileGid, mode, mask uint32) bool {
	if mask == 0 || uid == 0 {
		return true
	}
	var bits uint32
	switch {
	case uid == fileUid:
		bits = (mode >> 6) & 7
	case gid == fileGid:
		bits = (mode >> 3) & 7
	default:
		bits = mode & 7
	}
	return bits&mask == mask
}
