// Package numeric centralizes integer parsing for the kernel, replacing
// the scattered per-file C parsers (libc/integer.cpp and friends) with a
// single implementation that always detects overflow.
package numeric

import (
	"math"

	"github.com/sortix-go/kernel/internal/kernelerr"
)

// ParseUintBase parses s as an unsigned integer in the given base (2-36).
// Base 0 means auto-detect from a "0x"/"0"/decimal prefix, mirroring
// strconv.ParseUint(... base 0). Unlike the original libc/integer.cpp
// parser, overflow of the requested bit width is always reported as
// ERANGE rather than silently wrapping.
func ParseUintBase(s string, base int, bitSize int) (uint64, kernelerr.Errno) {
	if s == "" {
		return 0, kernelerr.EINVAL
	}
	if base == 0 {
		base = 10
		switch {
		case len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'):
			base = 16
			s = s[2:]
		case len(s) > 1 && s[0] == '0':
			base = 8
			s = s[1:]
		}
	}
	if base < 2 || base > 36 {
		return 0, kernelerr.EINVAL
	}

	var max uint64
	if bitSize <= 0 || bitSize >= 64 {
		max = math.MaxUint64
	} else {
		max = (uint64(1) << uint(bitSize)) - 1
	}

	var acc uint64
	for i := 0; i < len(s); i++ {
		d, ok := digitValue(s[i])
		if !ok || d >= base {
			return 0, kernelerr.EINVAL
		}
		// Overflow-safe: check before multiplying/adding, per the
		// REDESIGN FLAGS note that the old parser lacked this check.
		if acc > (max-uint64(d))/uint64(base) {
			return 0, kernelerr.ERANGE
		}
		acc = acc*uint64(base) + uint64(d)
	}
	return acc, kernelerr.OK
}

// ParseIntBase is the signed counterpart of ParseUintBase.
func ParseIntBase(s string, base int, bitSize int) (int64, kernelerr.Errno) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	bits := bitSize
	if bits <= 0 || bits > 64 {
		bits = 64
	}
	u, errno := ParseUintBase(s, base, bits-1)
	// The magnitude budget for the negative side is one bit larger, handled
	// below; re-parse only to the unsigned magnitude here.
	if errno == kernelerr.ERANGE && neg {
		u2, errno2 := ParseUintBase(s, base, bits)
		if errno2 == kernelerr.OK && u2 == uint64(1)<<uint(bits-1) {
			return -int64(u2), kernelerr.OK
		}
		return 0, kernelerr.ERANGE
	}
	if errno != kernelerr.OK {
		return 0, errno
	}
	if neg {
		return -int64(u), kernelerr.OK
	}
	return int64(u), kernelerr.OK
}

// AddOverflows reports whether a+b overflows a uint64, the guard that
// UtilMemoryBuffer::pwrite's TODO (off + count overflow) required.
func AddOverflows(a, b uint64) bool {
	return a > math.MaxUint64-b
}

func digitValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
