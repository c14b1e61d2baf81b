package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
)

const syscallSetGsCrt = 2

type gsState struct {
	/* Original SetGsCrt handler in kseg0, zero when not replaced */
	orig osdmem.Address
	mode settings.VideoMode
}

/* sceGsDispEnv as passed to sceGsPutDispEnv */
type dispEnv struct {
	pmode   uint64
	smode2  uint64
	dispfb  uint64
	display uint64
	bgcolor uint64
}

func display2(dx, dy, magh, magv, dw, dh uint64) uint64 {
	return dx | dy<<12 | magh<<23 | magv<<27 | dw<<32 | dh<<44
}

var (
	display480p  = display2(318, 50, 1, 1, 1279, 447)
	display1080i = display2(558, 130, 1, 1, 1279, 895)
)

// Forces PAL or NTSC where the menu decides which one to use.
func (s *Session) patchVideoMode() ([]hook.Action, error) {
	var w uint32
	switch s.settings.VideoMode {
	case settings.VideoModePAL:
		w = mips.LoadImmediate(mips.RegV0, 1)
	case settings.VideoModeNTSC, settings.VideoMode480p, settings.VideoMode1080i:
		w = mips.MoveZero(mips.RegV0)
	default:
		return []hook.Action{hook.NoOp{Reason: "automatic video mode"}}, nil
	}

	addr, err := s.find(patternVideoMode, 0)
	if err != nil {
		return nil, err
	}
	return []hook.Action{
		hook.Overwrite{Name: "video mode", Site: addr.Add(20), Words: []uint32{w}},
	}, nil
}

func kseg0(addr osdmem.Address) osdmem.Address {
	return addr&0x0fffffff | 0x80000000
}

// Outputs 480p or 1080i. Every sceGsPutDispEnv call is replaced and the
// SetGsCrt syscall is redirected, both until RestoreVideoMode.
func (s *Session) patchGSVideoMode() ([]hook.Action, error) {
	mode := s.settings.VideoMode
	if !mode.IsDTV() {
		return []hook.Action{hook.NoOp{Reason: "no DTV video mode"}}, nil
	}

	l := s.variant.layout()

	orig := s.host.SyscallHandler(syscallSetGsCrt)
	if orig == 0 {
		return nil, fmt.Errorf("%w: SetGsCrt handler", ErrUnsafeRegion)
	}
	orig = kseg0(orig)

	var sites []osdmem.Address
	for _, offset := range l.gsWindows {
		site, err := s.find(patternGsPutDispEnv, offset)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	put, err := s.Register("gsPutDispEnv", func(args []uint32) uint32 {
		s.GSPutDispEnv(osdmem.Address(args[0]))
		return 0
	})
	if err != nil {
		return nil, err
	}

	interlace, out := uint32(0), uint32(settings.VideoMode480p)
	name := "setGsCrt480p"
	if mode == settings.VideoMode1080i {
		interlace, out = 1, uint32(settings.VideoMode1080i)
		name = "setGsCrt1080i"
	}
	crt, err := s.Register(name, func(args []uint32) uint32 {
		s.host.Call(s.gs.orig, interlace, out, args[2])
		return 0
	})
	if err != nil {
		return nil, err
	}

	var actions []hook.Action
	for i, site := range sites {
		actions = append(actions, hook.Hook{Name: fmt.Sprintf("gs put dispenv %d", i), Site: site, Replacement: put})
	}
	actions = append(actions, hook.Deferred{Name: "SetGsCrt", Run: func() error {
		s.gs = gsState{orig: orig, mode: mode}
		s.host.SetSyscall(syscallSetGsCrt, crt&^0xe0000000|0x80000000)
		return nil
	}})
	return actions, nil
}

// GSPutDispEnv programs the display registers from the environment at
// addr, with the DTV timing substituted.
func (s *Session) GSPutDispEnv(addr osdmem.Address) {
	var d dispEnv
	for i, f := range []*uint64{&d.pmode, &d.smode2, &d.dispfb, &d.display, &d.bgcolor} {
		v, err := osdmem.ReadDouble(s.bus, addr.Add(8*i))
		if err != nil {
			s.log(1, "Display environment at %s: %v", addr, err)
			return
		}
		*f = v
	}

	mode := s.gs.mode
	if g := s.ver.gsGetGParam; g != 0 && mode.IsDTV() {
		/* Only for the version submenu */
		param := osdmem.Address(s.host.Call(g))
		if mode == settings.VideoMode480p {
			osdmem.WriteHalf(s.bus, param, 0)
		}
		osdmem.WriteHalf(s.bus, param.Add(2), uint16(mode))
	}

	switch mode {
	case settings.VideoMode480p:
		s.host.WriteGSRegister(GSSMODE2, 2)
		s.host.WriteGSRegister(GSDISPLAY2, display480p)
	case settings.VideoMode1080i:
		s.host.WriteGSRegister(GSSMODE2, d.smode2)
		s.host.WriteGSRegister(GSDISPLAY2, display1080i)
	default:
		s.host.WriteGSRegister(GSSMODE2, d.smode2)
		s.host.WriteGSRegister(GSDISPLAY2, d.display)
	}

	s.host.WriteGSRegister(GSPMODE, d.pmode)
	s.host.WriteGSRegister(GSDISPFB2, d.dispfb)
	s.host.WriteGSRegister(GSBGCOLOR, d.bgcolor)
}

// Puts the SetGsCrt syscall back, harmless when it was never replaced.
func (s *Session) restoreVideoMode() {
	if s.gs.orig == 0 {
		return
	}
	s.host.SetSyscall(syscallSetGsCrt, s.gs.orig)
}
