package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasAccessOwnerGroupOtherSelection(t *testing.T) {
	cases := []struct {
		name                       string
		uid, gid, fileUid, fileGid uint32
		mode, mask                 uint32
		want                       bool
	}{
		{"owner exec bit set, exec requested", 1, 1, 1, 1, 0100, AccessExec, true},
		{"owner bits all clear", 1, 1, 1, 1, 0000, AccessExec, false},
		{"owner write bit only, exec requested", 1, 1, 1, 1, 0200, AccessExec, false},
		{"group match, group write granted", 1, 2, 9, 2, 0020, AccessWrite, true},
		{"no match, falls to other, other exec granted", 1, 1, 9, 9, 0001, AccessExec, true},
		{"no match, other bits clear", 1, 1, 9, 9, 0000, AccessExec, false},
		{"empty mask always passes", 1, 1, 9, 9, 0000, 0, true},
		{"uid 0 bypasses regardless of mode", 0, 1, 9, 9, 0000, AccessRead, true},
		{"read+write both required, only read set", 1, 1, 1, 1, 0400, AccessRead | AccessWrite, false},
		{"read+write both required, both set", 1, 1, 1, 1, 0600, AccessRead | AccessWrite, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HasAccess(tc.uid, tc.gid, tc.fileUid, tc.fileGid, tc.mode, tc.mask)
			require.Equal(t, tc.want, got)
		})
	}
}
