package osdpatch

import (
	"errors"
	"testing"

	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/test"
)

func resultStates(r Report) map[string]string {
	states := make(map[string]string)
	for _, m := range r.Results {
		switch {
		case m.Err != nil:
			states[m.Name] = "failed"
		case m.Skipped != "":
			states[m.Name] = "skipped"
		default:
			states[m.Name] = "ok"
		}
	}
	return states
}

func TestPackedEndToEnd(t *testing.T) {
	f := newPackedFixture(t)
	st := testSettings()
	st.VideoMode = settings.VideoModePAL
	s := f.session(st)

	test.DemandEquality(t, s.Variant().Name(), VariantPacked)
	f.boot(s)

	report, err := s.ApplyAll()
	test.ExpectEquality(t, errors.Is(err, ErrAlreadyPatched), true)

	states := resultStates(report)
	for name, expected := range map[string]string{
		"menu":            "ok",
		"menu draw":       "ok",
		"infinite scroll": "ok",
		"button panel":    "failed",
		"version info":    "ok",
		"video mode":      "ok",
		"gs video mode":   "skipped",
		"skip disc":       "ok",
		"compatibility":   "skipped",
		"skip hdd":        "failed",
		"disc launch":     "ok",
		"browser launch":  "ok",
		"update paths":    "ok",
		"deinit":          "failed",
	} {
		test.ExpectEquality(t, states[name], expected, name)
	}
	for _, m := range report.Results {
		if m.Name == "button panel" {
			test.ExpectEquality(t, errors.Is(m.Err, ErrSignatureNotFound), true)
		}
	}

	/* The patched menu is started with the boot arguments */
	test.DemandEquality(t, len(f.host.execArgv), 2)
	test.ExpectEquality(t, f.host.execArgv[0], "rom0:")
	test.ExpectEquality(t, f.host.execArgv[1], "BootClock")

	/* Native entries followed by one sentinel entry per item */
	test.ExpectEquality(t, f.word(fxMenuInfo.Add(8)), uint32(5))
	table := osdmem.Address(f.word(fxMenuInfo.Add(4)))
	words, err := osdmem.ReadWords(s.Bus(), table, 10)
	test.DemandSuccess(t, err)
	expected := []uint32{0, 0, 1, 0, Sentinel(0), 0, Sentinel(1), 0, Sentinel(2), 0}
	for i := range expected {
		test.ExpectEquality(t, words[i], expected[i], i)
	}

	/* Position three is the second custom item */
	test.ExpectEquality(t, f.call(s, "handleMenuEntry", 3), uint32(0))
	test.DemandEquality(t, len(f.argv), 1)
	test.ExpectEquality(t, f.argv[0][0], st.LauncherPath)
	test.ExpectEquality(t, f.argv[0][1], "fmcb0:12")

	test.ExpectEquality(t, f.call(s, "handleMenuEntry", 1), uint32(1))
	test.ExpectEquality(t, f.call(s, "handleMenuEntry", 5), uint32(0))
	test.ExpectEquality(t, len(f.argv), 1)
}

func TestResolveEntryString(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())
	f.boot(s)

	strings := osdmem.Address(0x00265000)
	f.put(strings.Add(4), uint32(fxVersionText))

	name := osdmem.Address(f.call(s, "resolveEntryString", uint32(strings), Sentinel(1)))
	str, err := osdmem.ReadString(s.Bus(), name, 32)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, str, "Game B")

	test.ExpectEquality(t, osdmem.Address(f.call(s, "resolveEntryString", uint32(strings), 1)), fxVersionText)
	test.ExpectEquality(t, f.call(s, "resolveEntryString", uint32(strings), Sentinel(7)), uint32(0))
}

func TestLaunchEnvironment(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())
	f.boot(s)

	f.host.events = nil
	f.call(s, "handleMenuEntry", 2)

	expected := []string{"intc3", "intc2", "iop", "flush0", "flush2"}
	test.DemandEquality(t, len(f.host.events), len(expected))
	for i := range expected {
		test.ExpectEquality(t, f.host.events[i], expected[i])
	}
}

func TestMenuDraw(t *testing.T) {
	f := newPackedFixture(t)
	st := testSettings()
	s := f.session(st)
	f.boot(s)

	/* Selection moved into the slot the routine reads */
	test.ExpectEquality(t, f.word(fxDraw), uint32(0x001048c0))
	test.ExpectEquality(t, f.word(fxDraw.Add(48)), uint32(0x001048c0))

	f.host.calls = nil
	f.call(s, "drawMenuItemSelected", 0, 0, 0, 0x80, uint32(fxVersionText), 0)

	calls := f.host.callsTo(fxDrawFn)
	test.DemandEquality(t, len(calls), 5)
	test.ExpectEquality(t, int32(calls[0].args[0]), int32(st.MenuX))
	test.ExpectEquality(t, int32(calls[0].args[1]), int32(st.MenuY))
	test.ExpectEquality(t, osdmem.Address(calls[0].args[4]), fxVersionText)

	/* Entries far from the selection are not drawn at all */
	f.host.calls = nil
	f.call(s, "drawMenuItemUnselected", 0, 0, 0, 0x80, uint32(fxVersionText), 8*10)
	test.ExpectEquality(t, len(f.host.callsTo(fxDrawFn)), 0)
}

func TestScrollAndSkipDisc(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())
	f.boot(s)

	test.ExpectEquality(t, f.word(fxMenuLoop.Add(8)), scrollUp[0])
	test.ExpectEquality(t, f.word(fxMenuLoop.Add(44)), scrollDown[0])
	test.ExpectEquality(t, f.word(fxMenuLoop.Add(40)), uint32(0x8e03fff0))
	test.ExpectEquality(t, f.word(fxMenuLoop.Add(-4)), uint32(0x8e03fff8))

	test.ExpectEquality(t, f.word(fxDetectDisc.Add(48)), uint32(0x10000007))
	test.ExpectEquality(t, f.word(fxDetectDisc.Add(52)), mips.Nop)

	str, _ := osdmem.ReadString(f.img, fxUpdatePath, 12)
	test.ExpectEquality(t, str, "EX")
}

func TestScrollGuard(t *testing.T) {
	f := newPackedFixture(t)
	f.put(fxMenuLoop.Add(80), 0)
	s := f.session(testSettings())
	f.boot(s)

	report, _ := s.ApplyAll()
	test.ExpectEquality(t, resultStates(report)["infinite scroll"], "skipped")
	test.ExpectEquality(t, f.word(fxMenuLoop.Add(-4)), uint32(0x8e03fff0))
}

func TestDiscLaunch(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())
	f.boot(s)

	stub, ok := s.RoutineAddress("launchDisc")
	test.DemandEquality(t, ok, true)
	for i := 0; i < 3; i++ {
		test.ExpectEquality(t, osdmem.Address(f.word(fxDiscTable.Add(4*i))), stub, i)
	}
	test.ExpectEquality(t, f.word(fxDiscTable.Add(12)), uint32(0x00230300))

	table, handlers := s.DiscHandlers()
	test.ExpectEquality(t, table, fxDiscTable)
	test.DemandEquality(t, len(handlers), 7)
	test.ExpectEquality(t, handlers[0].Address, osdmem.Address(0x00230000))

	test.ExpectEquality(t, f.call(s, "launchDisc"), uint32(1))
	test.DemandEquality(t, len(f.argv), 1)
	test.ExpectEquality(t, f.argv[0][1], "cdrom")
}

func TestDiscTableOutOfRange(t *testing.T) {
	f := newPackedFixture(t)
	f.put(fxDiscTable.Add(4), 0x00000010)
	s := f.session(testSettings())
	f.boot(s)

	report, _ := s.ApplyAll()
	for _, m := range report.Results {
		if m.Name == "disc launch" {
			test.ExpectEquality(t, errors.Is(m.Err, ErrAddressOutOfRange), true)
		}
	}
	test.ExpectEquality(t, f.word(fxDiscTable), uint32(0x00230000))
}

func TestBrowserLaunch(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())
	f.boot(s)

	path, ok := s.BrowserTitlePath(fxIconProps)
	test.DemandEquality(t, ok, true)
	test.ExpectEquality(t, path, "mc1:/APP_X/title.cfg")

	/* Option keeps the Copy/Delete menu */
	f.call(s, "browserFileMenu", uint32(fxIconProps), 1)
	calls := f.host.callsTo(fxBrowserOrig)
	test.DemandEquality(t, len(calls), 1)
	test.ExpectEquality(t, calls[0].args[1], uint32(0))

	/* Without title.cfg the properties are shown */
	f.call(s, "browserFileMenu", uint32(fxIconProps), 0)
	test.ExpectEquality(t, len(f.argv), 0)
	calls = f.host.callsTo(fxBrowserOrig)
	test.DemandEquality(t, len(calls), 2)
	test.ExpectEquality(t, calls[1].args[1], uint32(1))

	f.host.files[path] = true
	f.call(s, "browserFileMenu", uint32(fxIconProps), 0)
	test.DemandEquality(t, len(f.argv), 1)
	test.ExpectEquality(t, f.argv[0][1], path)
}

func TestVersionInfo(t *testing.T) {
	f := newPackedFixture(t)
	st := testSettings()
	s := f.session(st)

	f.host.funcs[fxCdApplySCmd] = func(args []uint32) uint32 {
		/* status 1, major 5, minor 11 */
		osdmem.WriteWord(s.Resident(), osdmem.Address(args[1]), 0x000b0501)
		return args[1]
	}
	f.boot(s)

	f.call(s, "versionInfoInit")
	test.ExpectEquality(t, len(f.host.callsTo(fxVersionOrig)), 1)

	expected := []struct{ label, value string }{
		{"Video Mode", "PAL"},
		{"OSDMenu Patch", "\ar0.80dev\ar0.00"},
		{"ROM", "-"},
		{"Emotion Engine", "2.10"},
		{"Graphics Synthesizer", "1.11"},
		{"MechaCon", "5.10 (Debug)"},
	}

	check := func() {
		t.Helper()
		for i, e := range expected {
			row := fxVersionTable.Add(versionRowSize * (2 + i))
			w, err := osdmem.ReadWords(s.Bus(), row, 3)
			test.DemandSuccess(t, err)

			label, _ := osdmem.ReadString(s.Bus(), osdmem.Address(w[0]), 64)
			value, _ := osdmem.ReadString(s.Bus(), osdmem.Address(w[1]), 64)
			test.ExpectEquality(t, label, e.label)
			test.ExpectEquality(t, value, e.value)
			test.ExpectEquality(t, w[2], uint32(0))
		}
		end := fxVersionTable.Add(versionRowSize * (2 + len(expected)))
		test.ExpectEquality(t, f.word(end), uint32(0))
	}
	check()

	/* Opening again rewrites the same rows and queries the drive once */
	f.call(s, "versionInfoInit")
	check()
	test.ExpectEquality(t, len(f.host.callsTo(fxCdApplySCmd)), 1)
}

func TestVersionInfoMechaConFailure(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())
	f.boot(s)

	f.call(s, "versionInfoInit")
	f.call(s, "versionInfoInit")

	/* The row is left out and the query is not repeated */
	last := fxVersionTable.Add(versionRowSize * 7)
	test.ExpectEquality(t, f.word(last), uint32(0))
	test.ExpectEquality(t, len(f.host.callsTo(fxCdApplySCmd)), 1)

	_, ok := s.MechaConRevision()
	test.ExpectEquality(t, ok, false)
}

func TestDryRun(t *testing.T) {
	f := newPackedFixture(t)
	s, err := NewSession(f.img, Config{
		Settings: testSettings(),
		Host:     f.host,
		DryRun:   true,
		OSDBase:  fxOSD,
	})
	test.DemandSuccess(t, err)

	before := f.word(fxExecPS2)
	_, err = s.Install()
	test.DemandSuccess(t, err)
	_, err = s.ApplyAll()
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, f.word(fxExecPS2), before)
	test.ExpectEquality(t, f.word(fxMenuInfo.Add(8)), uint32(2))
	test.ExpectInequality(t, len(s.Records()), 0)
}

func TestDetect(t *testing.T) {
	f := newPackedFixture(t)
	v, err := Detect(f.img)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v.Name(), VariantPacked)

	_, err = Detect(osdmem.NewImage(fxBase, make([]byte, 0x1000)))
	test.ExpectEquality(t, errors.Is(err, ErrorUnknownVariant), true)

	_, err = VariantByName("fmcb")
	test.ExpectEquality(t, errors.Is(err, ErrorUnknownVariant), true)

	v, err = VariantByName("Protokernel")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v.Name(), VariantProtokernel)
}

func TestProtokernelInstall(t *testing.T) {
	base := osdmem.Address(0x00200000)
	img := osdmem.NewImage(base, make([]byte, 0x10000))
	initAddr := base.Add(0x100)
	osdmem.WriteWords(img, initAddr, patternProtokernelInit.Words)
	osdmem.WriteString(img, base.Add(0x801), "EXEC-SYSTEM", 12)

	s, err := NewSession(img, Config{Settings: testSettings()})
	test.DemandSuccess(t, err)
	test.DemandEquality(t, s.Variant().Name(), VariantProtokernel)

	records, err := s.Install()
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(records), 1)

	w, _ := osdmem.ReadWord(img, initAddr.Add(0x3c))
	test.ExpectEquality(t, mips.IsJ(w), true)
	apply, _ := s.RoutineAddress("applyPatches")
	test.ExpectEquality(t, mips.DecodeTarget(w, initAddr.Add(0x3c)), apply)

	str, _ := osdmem.ReadString(img, base.Add(0x801), 12)
	test.ExpectEquality(t, str, "EX")
	test.ExpectEquality(t, len(s.BootArgs()), 2)

	/* Nothing else is present, every operation fails or skips on its own */
	_, err = s.Dispatch(apply, nil)
	test.DemandSuccess(t, err)
	report, err := s.ApplyAll()
	test.ExpectEquality(t, errors.Is(err, ErrAlreadyPatched), true)
	test.ExpectEquality(t, report.Applied(), 0)
	test.ExpectEquality(t, resultStates(report)["update paths"], "skipped")
	test.ExpectEquality(t, resultStates(report)["menu"], "failed")
}

func TestDispatchUnknown(t *testing.T) {
	f := newPackedFixture(t)
	s := f.session(testSettings())

	_, err := s.Dispatch(0x000c1234, nil)
	test.ExpectEquality(t, errors.Is(err, ErrorUnknownRoutine), true)
}

func TestSentinel(t *testing.T) {
	for _, i := range []int{0, 1, 42, settings.MaxItems - 1} {
		w := Sentinel(i)
		test.ExpectEquality(t, osdmem.Address(w) < osdmem.MinLoadAddress, true, i)

		n, ok := SentinelOrdinal(w)
		test.ExpectEquality(t, ok, true, i)
		test.ExpectEquality(t, n, i, i)
	}

	_, ok := SentinelOrdinal(uint32(fxVersionText))
	test.ExpectEquality(t, ok, false)
	_, ok = SentinelOrdinal(1)
	test.ExpectEquality(t, ok, false)
}
