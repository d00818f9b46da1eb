// Package fsprobe implements filesystem-signature probing and
// dispatch: blockdevice_inspect_filesystem reads a leading chunk of a
// block device, asks each registered Handler to recognize it in
// registration order, and the first positive hit constructs the
// filesystem, per spec.md §4.7.
package fsprobe

import (
	"bytes"

	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/kernelerr"
)

// minProbeAmount is the floor spec.md describes: "max(probe_amount
// across handlers, 65536)".
const minProbeAmount = 65536

// Result classifies the outcome of InspectFilesystem.
type Result int

const (
	Absent Result = iota
	Unrecognized
	Recognized
)

// Handler is one registered filesystem prober. ProbeAmount is how many
// leading bytes Probe needs to see; Probe reports a positive
// recognition; Inspect is only called on the winning handler and
// constructs the filesystem representation (an opaque interface{} —
// the kernel doesn't otherwise need to know the concrete filesystem
// type at this layer).
type Handler interface {
	Name() string
	ProbeAmount() int
	Probe(lead []byte) bool
	Inspect(disk blockdev.Device, lead []byte) (interface{}, kernelerr.Errno)
}

// Registry is an ordered list of Handlers, probed in registration
// order.
type Registry struct {
	handlers []Handler
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends h to the probe order.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// InspectFilesystem reads the leading bytes of disk and dispatches to
// the first handler (in registration order) whose Probe returns true.
func (r *Registry) InspectFilesystem(disk blockdev.Device) (Result, interface{}, kernelerr.Errno) {
	amount := minProbeAmount
	for _, h := range r.handlers {
		if a := h.ProbeAmount(); a > amount {
			amount = a
		}
	}
	if int64(amount) > disk.Size() {
		amount = int(disk.Size())
	}

	lead := make([]byte, amount)
	if errno := blockdev.PreadAll(disk, lead, 0); errno != kernelerr.OK {
		return Unrecognized, nil, errno
	}

	for _, h := range r.handlers {
		probeLen := h.ProbeAmount()
		if probeLen > len(lead) {
			probeLen = len(lead)
		}
		if h.Probe(lead[:probeLen]) {
			fs, errno := h.Inspect(disk, lead)
			if errno != kernelerr.OK {
				return Unrecognized, nil, errno
			}
			return Recognized, fs, kernelerr.OK
		}
	}

	if bytes.Equal(lead, make([]byte, len(lead))) {
		return Absent, nil, kernelerr.OK
	}
	return Unrecognized, nil, kernelerr.OK
}
