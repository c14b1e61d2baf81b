package osdpatch

import (
	"fmt"
	"testing"

	"github.com/BertoldVdb/osdmenu-tools/launch"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
	"github.com/BertoldVdb/osdmenu-tools/test"
)

/* Where the synthetic packed menu keeps everything */
const (
	fxBase osdmem.Address = 0x00100000
	fxSize                = 0x200000
	fxOSD  osdmem.Address = 0x00200000
	fxGP   osdmem.Address = 0x00270000

	fxExecPS2      osdmem.Address = 0x00100100
	fxInput        osdmem.Address = 0x00210000
	fxOSDString    osdmem.Address = 0x00211000
	fxDraw         osdmem.Address = 0x00212000
	fxMenuLoop     osdmem.Address = 0x00213004
	fxExecuteDisc  osdmem.Address = 0x00214000
	fxVideoMode    osdmem.Address = 0x00215000
	fxGsPutDispEnv osdmem.Address = 0x00216000
	fxVersionInit  osdmem.Address = 0x00217000
	fxVersionOrig  osdmem.Address = 0x00218000
	fxGsGetGParam  osdmem.Address = 0x00219000
	fxGParamFn     osdmem.Address = 0x0021a000
	fxCdApplySCmd  osdmem.Address = 0x0021b000
	fxDetectDisc   osdmem.Address = 0x0021c000
	fxBrowserInit  osdmem.Address = 0x0021d000
	fxBrowserOrig  osdmem.Address = 0x0021e000
	fxDrawFn       osdmem.Address = 0x00240000
	fxDiscTable    osdmem.Address = 0x00250000
	fxVersionTable osdmem.Address = 0x00261000
	fxVersionText  osdmem.Address = 0x00262000
	fxGParam       osdmem.Address = 0x00263000
	fxIconProps    osdmem.Address = 0x00264000
	fxMenuInfo     osdmem.Address = 0x00280010
	fxUpdatePath   osdmem.Address = 0x002a0001
)

type hostCall struct {
	addr osdmem.Address
	args []uint32
}

type fakeHost struct {
	OfflineHost

	funcs  map[osdmem.Address]func(args []uint32) uint32
	calls  []hostCall
	gs     map[GSRegister]uint64
	files  map[string]bool
	events []string

	execArgv []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		funcs: make(map[osdmem.Address]func(args []uint32) uint32),
		gs:    make(map[GSRegister]uint64),
		files: make(map[string]bool),
	}
}

func (h *fakeHost) Call(addr osdmem.Address, args ...uint32) uint32 {
	h.calls = append(h.calls, hostCall{addr: addr, args: append([]uint32(nil), args...)})
	if f, ok := h.funcs[addr]; ok {
		return f(args)
	}
	return 0
}

func (h *fakeHost) callsTo(addr osdmem.Address) []hostCall {
	var result []hostCall
	for _, m := range h.calls {
		if m.addr == addr {
			result = append(result, m)
		}
	}
	return result
}

func (h *fakeHost) SetSyscall(n int, handler osdmem.Address) {
	h.events = append(h.events, fmt.Sprintf("syscall%d=%s", n, handler))
	h.OfflineHost.SetSyscall(n, handler)
}

func (h *fakeHost) WriteGSRegister(reg GSRegister, value uint64) {
	h.gs[reg] = value
}

func (h *fakeHost) FileExists(path string) bool {
	return h.files[path]
}

func (h *fakeHost) DisableIntc(n int) {
	h.events = append(h.events, fmt.Sprintf("intc%d", n))
}

func (h *fakeHost) ResetIOP() error {
	h.events = append(h.events, "iop")
	return nil
}

func (h *fakeHost) FlushCache(mode int) {
	h.events = append(h.events, fmt.Sprintf("flush%d", mode))
}

func (h *fakeHost) ExecPS2(entry, gp osdmem.Address, argv []string) error {
	h.events = append(h.events, "execps2")
	h.execArgv = argv
	return nil
}

type fixture struct {
	t    *testing.T
	img  *osdmem.Image
	host *fakeHost
	argv [][]string
}

func (f *fixture) put(addr osdmem.Address, words ...uint32) {
	f.t.Helper()
	test.DemandSuccess(f.t, osdmem.WriteWords(f.img, addr, words))
}

/* Masked out bits are left zero */
func (f *fixture) putPattern(addr osdmem.Address, p sigscan.Pattern) {
	f.t.Helper()
	f.put(addr, p.Words...)
}

func (f *fixture) jal(site, target osdmem.Address) {
	f.t.Helper()
	w, err := mips.EncodeJAL(target, site)
	test.DemandSuccess(f.t, err)
	f.put(site, w)
}

func (f *fixture) word(addr osdmem.Address) uint32 {
	f.t.Helper()
	w, err := osdmem.ReadWord(f.img, addr)
	test.DemandSuccess(f.t, err)
	return w
}

func (f *fixture) exec() launch.Exec {
	return launch.ExecFunc(func(argv []string) error {
		f.argv = append(f.argv, argv)
		return nil
	})
}

// newPackedFixture assembles a menu image that carries every signature the
// packed variant searches for.
func newPackedFixture(t *testing.T) *fixture {
	f := &fixture{
		t:    t,
		img:  osdmem.NewImage(fxBase, make([]byte, fxSize)),
		host: newFakeHost(),
	}

	f.putPattern(fxExecPS2, patternExecPS2)

	/* Native Browser and System Configuration entries below the struct */
	f.put(fxMenuInfo.Add(-16), 0, 0, 1, 0)
	f.put(fxMenuInfo, 1, uint32(fxMenuInfo.Add(-16)), 2, 3, 0)

	f.putPattern(fxInput, patternUserInputHandler)
	f.put(fxInput.Add(12), 0x8c430010)

	f.putPattern(fxOSDString, patternOSDString)

	for _, d := range []osdmem.Address{fxDraw, fxDraw.Add(48)} {
		f.putPattern(d, patternDrawMenuItem)
		f.jal(d.Add(32), fxDrawFn)
	}

	f.put(fxMenuLoop.Add(-4), 0x8e03fff0)
	f.putPattern(fxMenuLoop, patternMenuLoop)
	f.put(fxMenuLoop.Add(36), 0x30624000)
	f.put(fxMenuLoop.Add(80), 0x24045200)

	f.putPattern(fxExecuteDisc, patternExecuteDisc)
	f.put(fxExecuteDisc.Add(40), 0x3c030025, 0x24630000)
	for i := 0; i < 7; i++ {
		f.put(fxDiscTable.Add(4*i), uint32(0x00230000+0x100*i))
	}

	f.putPattern(fxVideoMode, patternVideoMode)

	f.putPattern(fxVersionInit, patternVersionInit)
	f.jal(fxVersionInit.Add(4), fxVersionOrig)
	f.put(fxVersionOrig.Add(16), 0x3c030026, 0x00000018, 0x34631000)
	f.put(fxVersionTable,
		uint32(fxVersionText), uint32(fxVersionText.Add(0x10)), 0,
		uint32(fxVersionText.Add(0x20)), uint32(fxVersionText.Add(0x30)), 0)

	f.putPattern(fxGsGetGParam, patternGsGetGParam)
	f.jal(fxGsGetGParam, fxGParamFn)
	test.DemandSuccess(t, osdmem.WriteHalf(f.img, fxGParam.Add(2), uint16(settings.VideoModePAL)))
	f.host.funcs[fxGParamFn] = func(args []uint32) uint32 {
		return uint32(fxGParam)
	}

	f.put(fxCdApplySCmd, 0x27bdffe0)
	f.put(fxCdApplySCmd.Add(16), 0, 0, 0x3c020000, 0x24040019, 0, 0)
	f.jal(fxCdApplySCmd.Add(16), fxCdApplySCmd.Add(0x800))
	f.jal(fxCdApplySCmd.Add(36), fxCdApplySCmd.Add(0x900))

	f.putPattern(fxDetectDisc, patternDetectDisc1)
	f.putPattern(fxDetectDisc.Add(80), patternDetectDisc2)

	f.put(fxBrowserInit, 0x27bdffe0, 0x30a500ff)
	f.jal(fxBrowserInit.Add(16), fxBrowserOrig)
	f.put(fxBrowserOrig.Add(32), 0x8f82fff0, 0x2442fffe, 0x2c420005)
	f.put(fxGP.Add(-16), 6)
	test.DemandSuccess(t, osdmem.WriteString(f.img, fxIconProps.Add(iconPathOffset), "APPS/APP_X", 32))

	test.DemandSuccess(t, osdmem.WriteString(f.img, fxUpdatePath, "EXEC-SYSTEM", 12))

	f.host.EERev = 0x2a
	f.host.GSRev = 0x1b
	return f
}

func testSettings() *settings.Settings {
	st := settings.Default()
	st.DisplayedItems = 5
	st.AddItem(5, "Game A")
	st.AddItem(12, "Game B")
	st.AddItem(40, "Game C")
	return st
}

func (f *fixture) session(st *settings.Settings) *Session {
	f.t.Helper()

	s, err := NewSession(f.img, Config{
		Settings: st,
		Host:     f.host,
		Exec:     f.exec(),
	})
	test.DemandSuccess(f.t, err)
	return s
}

/* Runs the unpacker hook the way the console would after decompression */
func (f *fixture) boot(s *Session) {
	f.t.Helper()

	_, err := s.Install()
	test.DemandSuccess(f.t, err)

	apply, ok := s.RoutineAddress("applyPatches")
	test.DemandEquality(f.t, ok, true)
	_, err = s.Dispatch(apply, []uint32{uint32(fxOSD), uint32(fxGP)})
	test.DemandSuccess(f.t, err)
}

func (f *fixture) call(s *Session, name string, args ...uint32) uint32 {
	f.t.Helper()

	addr, ok := s.RoutineAddress(name)
	test.DemandEquality(f.t, ok, true, name)
	v, err := s.Dispatch(addr, args)
	test.DemandSuccess(f.t, err)
	return v
}
