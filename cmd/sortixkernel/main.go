// Command sortixkernel wires every kernel subsystem together into a
// single in-process instance and walks it through a small boot-like
// sequence: probe a simulated disk, mount an in-memory root filesystem,
// spawn the init process, open its console, and fork/wait once. It is
// an integration harness, not a bootloader — there is no GDT/IDT glue
// or real hardware underneath any of this.
package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/sortix-go/kernel/internal/bcache"
	"github.com/sortix-go/kernel/internal/clock"
	"github.com/sortix-go/kernel/internal/device/blockdev"
	"github.com/sortix-go/kernel/internal/device/fsprobe"
	"github.com/sortix-go/kernel/internal/device/partition"
	"github.com/sortix-go/kernel/internal/device/pci"
	"github.com/sortix-go/kernel/internal/kernelerr"
	"github.com/sortix-go/kernel/internal/klog"
	"github.com/sortix-go/kernel/internal/memfs"
	"github.com/sortix-go/kernel/internal/mm"
	"github.com/sortix-go/kernel/internal/process"
	"github.com/sortix-go/kernel/internal/sched"
	"github.com/sortix-go/kernel/internal/syscall"
	"github.com/sortix-go/kernel/internal/tty"
	"github.com/sortix-go/kernel/internal/vfs"
	"github.com/sortix-go/kernel/internal/worker"
)

var (
	version   = "0.1.0"
	buildDate = "unknown"
	buildTime = "unknown"
)

func main() {
	ttyWidth := flag.Int("tty-width", 80, "console text buffer width")
	ttyHeight := flag.Int("tty-height", 25, "console text buffer height")
	blockSize := flag.Int("block-size", 4096, "block cache block size in bytes")
	blocksPerArea := flag.Int("blocks-per-area", 64, "blocks allocated per cache area growth")
	pages := flag.Int64("pages", 16384, "number of physical pages available to the address-space allocator")
	workers := flag.Int("workers", 2, "bottom-half worker threads")
	queueDepth := flag.Int("queue-depth", 64, "bottom-half work queue capacity")
	tickPeriod := flag.Duration("tick-period", 10*time.Millisecond, "simulated timer-IRQ period")
	flag.Parse()

	klog.Info("sortixkernel starting", map[string]interface{}{
		"version": version, "build_date": buildDate, "build_time": buildTime,
	})

	diskReg := fsprobe.NewRegistry()
	probeBootDisk(diskReg)

	bus := pci.NewSimBus()
	bus.Add(pci.MakeDevAddr(0, 4, 0), pci.Info{VendorID: 0x8086, DeviceID: 0x100e, Class: 0x02})
	klog.Info("pci probe complete", map[string]interface{}{"devices": len(bus.Devices())})

	reclaim := worker.NewPool(*queueDepth, *workers)
	defer reclaim.Shutdown()
	scheduler := sched.New(reclaim)

	clocks := clock.NewRegistry(clock.ResolutionSet{
		Realtime:  time.Millisecond,
		Monotonic: time.Microsecond,
		Boot:      time.Microsecond,
	})

	kb := tty.NewKeyboard()
	screen := tty.NewGridBuffer(*ttyWidth, *ttyHeight)
	handle := tty.NewHandle(screen)
	console := tty.New(handle, kb)

	rootFS := memfs.New(1, *blocksPerArea)
	rootInode := rootFS.NewRoot(0755)
	consoleInode := vfs.NewInode(1, 2, vfs.TypeTTY, console)
	if linker, ok := rootInode.Backend.(vfs.Linker); ok {
		if errno := linker.Link("console", consoleInode); errno != kernelerr.OK {
			klog.Warn("failed to link console device", map[string]interface{}{"errno": errno.Error()})
		}
	}
	tree := vfs.NewTree(vfs.NewVnode(rootInode))
	resolver := vfs.NewResolver(tree)

	table := process.NewTable()
	pool := bcache.NewPool(*blockSize, *blocksPerArea)
	space := mm.NewAddressSpace(mm.NewPageAllocator(*pages))

	gate := syscall.NewGate(table, resolver, scheduler, clocks, kb)

	tickTicker := time.NewTicker(*tickPeriod)
	defer tickTicker.Stop()
	tickDone := make(chan struct{})
	defer close(tickDone)
	go func() {
		for {
			select {
			case <-tickTicker.C:
				scheduler.Tick(clocks, *tickPeriod)
			case <-tickDone:
				return
			}
		}
	}()

	initProc := table.New(space)
	thread := scheduler.CreateKernelThread(initProc)
	initProc.AddThread(thread)
	self := thread.ID

	rootDesc := vfs.NewDescriptor(vfs.NewVnode(rootInode), vfs.ORdonly)
	initProc.Root = rootDesc
	initProc.Cwd = rootDesc.Acquire()

	for fd := 0; fd < 3; fd++ {
		if _, errno := gate.Open(initProc.PID, self, "/console", vfs.ORdwr, 0); errno != kernelerr.OK {
			klog.Warn("failed to open console fd", map[string]interface{}{"fd": fd, "errno": errno.Error()})
		}
	}

	info, errno := gate.Kernelinfo(syscall.KernelinfoVersion, syscall.BuildInfo{
		Version: version, BuildDate: buildDate, BuildTime: buildTime,
	})
	if errno == kernelerr.OK {
		klog.Info("kernel identity", map[string]interface{}{"version": info})
	}

	if _, errno := gate.Write(initProc.PID, self, 1, []byte("sortixkernel: init ready\n")); errno != kernelerr.OK {
		klog.Warn("console write failed", map[string]interface{}{"errno": errno.Error()})
	}

	childPID, errno := gate.Fork(initProc.PID)
	if errno != kernelerr.OK {
		klog.Warn("fork failed", map[string]interface{}{"errno": errno.Error()})
	} else {
		klog.Info("forked child", map[string]interface{}{"pid": childPID})
		if errno := gate.Exit(childPID, 0); errno != kernelerr.OK {
			klog.Warn("child exit failed", map[string]interface{}{"errno": errno.Error()})
		}
		gotPID, status, errno := gate.Wait(initProc.PID, childPID)
		if errno != kernelerr.OK {
			klog.Warn("wait failed", map[string]interface{}{"errno": errno.Error()})
		} else {
			klog.Info("reaped child", map[string]interface{}{"pid": gotPID, "status": status})
		}
	}

	stat, errno := gate.Memstat(initProc.PID, pool)
	if errno == kernelerr.OK {
		klog.Info("memstat", map[string]interface{}{
			"mapped_pages": stat.MappedPages,
			"cache_areas":  stat.CacheAreas,
			"cache_used":   stat.CacheUsed,
			"cache_unused": stat.CacheUnused,
		})
	}

	fmt.Fprintln(os.Stdout, "sortixkernel: boot sequence complete")
}

// probeBootDisk classifies a small synthetic disk image's partition
// table and runs it through the filesystem-signature registry, purely
// to exercise the device-probing stack at startup — no handler is
// registered and the image is all zeros, so the filesystem probe
// reports Absent.
func probeBootDisk(reg *fsprobe.Registry) {
	image := make([]byte, 2048)
	disk := blockdev.NewDisk(bytes.NewReader(image), int64(len(image)), 512)
	tableType, errno := partition.ProbeTableType(disk)
	if errno != kernelerr.OK {
		klog.Warn("partition probe failed", map[string]interface{}{"errno": errno.Error()})
		return
	}
	result, _, errno := reg.InspectFilesystem(disk)
	if errno != kernelerr.OK {
		klog.Warn("filesystem probe failed", map[string]interface{}{"errno": errno.Error()})
		return
	}
	klog.Info("boot disk probed", map[string]interface{}{
		"partition_table": int(tableType),
		"fs_result":       int(result),
	})
}
