package osdpatch

import (
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

type GSRegister uint32

const (
	GSPMODE    GSRegister = 0x12000000
	GSSMODE2   GSRegister = 0x12000020
	GSDISPFB2  GSRegister = 0x12000090
	GSDISPLAY2 GSRegister = 0x120000a0
	GSBGCOLOR  GSRegister = 0x120000e0
	GSCSR      GSRegister = 0x12001000
)

// Host is the machine the patched menu runs on: real hardware, an emulator or
// a test fake. Routines reach menu code and hardware only through it.
//
// A Host that also implements hook.ICache gets every patched word reported
// for instruction cache invalidation.
type Host interface {
	/* Runs the menu function at addr with up to six arguments */
	Call(addr osdmem.Address, args ...uint32) uint32

	SyscallHandler(n int) osdmem.Address
	SetSyscall(n int, handler osdmem.Address)

	ReadGSRegister(reg GSRegister) uint64
	WriteGSRegister(reg GSRegister, value uint64)

	/* COP0 PRId implementation revision */
	CPURevision() uint8

	FileExists(path string) bool

	DisableIntc(n int)
	ResetIOP() error
	FlushCache(mode int)
	ExecPS2(entry, gp osdmem.Address, argv []string) error
}

// OfflineHost is used when an image is patched without running it. Calls
// into menu code return zero and nothing is ever found on storage.
type OfflineHost struct {
	Syscalls map[int]osdmem.Address
	EERev    uint8
	GSRev    uint8
}

func (h *OfflineHost) Call(addr osdmem.Address, args ...uint32) uint32 {
	return 0
}

func (h *OfflineHost) SyscallHandler(n int) osdmem.Address {
	return h.Syscalls[n]
}

func (h *OfflineHost) SetSyscall(n int, handler osdmem.Address) {
	if h.Syscalls == nil {
		h.Syscalls = make(map[int]osdmem.Address)
	}
	h.Syscalls[n] = handler
}

func (h *OfflineHost) ReadGSRegister(reg GSRegister) uint64 {
	if reg == GSCSR {
		return uint64(h.GSRev) << 16
	}
	return 0
}

func (h *OfflineHost) WriteGSRegister(reg GSRegister, value uint64) {}

func (h *OfflineHost) CPURevision() uint8 {
	return h.EERev
}

func (h *OfflineHost) FileExists(path string) bool {
	return false
}

func (h *OfflineHost) DisableIntc(n int) {}

func (h *OfflineHost) ResetIOP() error {
	return nil
}

func (h *OfflineHost) FlushCache(mode int) {}

func (h *OfflineHost) ExecPS2(entry, gp osdmem.Address, argv []string) error {
	return nil
}
