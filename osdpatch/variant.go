package osdpatch

import (
	"fmt"
	"strings"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

const (
	VariantPacked      = "packed"
	VariantProtokernel = "protokernel"
)

// layout is everything that differs between the menu builds: where code is
// searched for, which signatures find it and how the structures are laid out.
type layout struct {
	protokernel bool

	/* Offset from the entry point of the menu code searches */
	menuOffset int

	menuInfo sigscan.Pattern
	/* Match accepted when word(match+anchorField) == match+anchorDelta */
	anchorField int
	anchorDelta int
	/* Menu info struct relative to the match */
	structOffset int
	/* Native entry words before the struct */
	nativeWords int
	entryWords  int

	drawMenuItem sigscan.Pattern
	drawCall     int
	/* Second draw site search: start after the first and window size */
	drawNext   int
	drawWindow int
	/* Packed builds have the second match at a fixed distance */
	drawPair int

	menuLoop sigscan.Pattern

	versionInit sigscan.Pattern
	versionSite int
	cdApplySCmd sigscan.Pattern

	executeDisc sigscan.Pattern
	discHi      int
	discLo      int
	discFirst   int
	discSlots   int

	/* sceGsPutDispEnv is hooked once per window */
	gsWindows []int

	browserOffset int
}

var packedLayout = layout{
	menuInfo:     patternMenuInfo,
	anchorField:  4,
	anchorDelta:  -16,
	structOffset: 0,
	nativeWords:  4,
	entryWords:   2,

	drawMenuItem: patternDrawMenuItem,
	drawCall:     32,
	drawNext:     4,
	drawWindow:   256,
	drawPair:     48,

	menuLoop: patternMenuLoop,

	versionInit: patternVersionInit,
	versionSite: 4,
	cdApplySCmd: patternCdApplySCmd,

	executeDisc: patternExecuteDisc,
	discHi:      40,
	discLo:      44,
	discFirst:   0,
	discSlots:   7,

	gsWindows: []int{0},
}

var protokernelLayout = layout{
	protokernel: true,
	menuOffset:  protoMenuOffset,

	menuInfo:     patternMenuInfoProto,
	anchorField:  0,
	anchorDelta:  -32,
	structOffset: -4,
	nativeWords:  6,
	entryWords:   3,

	drawMenuItem: patternDrawMenuItemProto,
	drawCall:     0x10,
	drawNext:     0x18,
	drawWindow:   0x100,

	menuLoop: patternMenuLoopProto,

	versionInit: patternVersionInitProto,
	versionSite: 8,
	cdApplySCmd: patternCdApplySCmdProto,

	executeDisc: patternExecuteDiscProto,
	discHi:      28,
	discLo:      36,
	discFirst:   2,
	discSlots:   6,

	gsWindows: []int{0x300000, 0x400000, 0x500000},

	browserOffset: protoMenuOffset + 0x100000,
}

type op struct {
	name string
	run  func(s *Session) ([]hook.Action, error)
}

// Variant is one of the two menu builds. It decides how the patcher gets
// control and which operations run, in which order.
type Variant interface {
	Name() string
	BootArgs(s *Session) []string

	layout() *layout
	entry(s *Session) ([]hook.Action, error)
	ops(s *Session) []op
}

type packedVariant struct{}
type protokernelVariant struct{}

// Detect looks at the unpacker first. Compressed menus always start with it,
// protokernel menus are loaded unpacked and are found by their init code.
func Detect(img osdmem.MemoryRegion) (Variant, error) {
	if _, ok := sigscan.FindIn(img, osdmem.UnpackerBase, 0x1000, patternExecPS2); ok {
		return packedVariant{}, nil
	}
	if _, ok := sigscan.Find(img, img.GetBase(), patternProtokernelInit); ok {
		return protokernelVariant{}, nil
	}
	return nil, ErrorUnknownVariant
}

func VariantByName(name string) (Variant, error) {
	switch strings.ToLower(name) {
	case VariantPacked:
		return packedVariant{}, nil
	case VariantProtokernel:
		return protokernelVariant{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrorUnknownVariant, name)
}

func (packedVariant) Name() string {
	return VariantPacked
}

func (packedVariant) layout() *layout {
	return &packedLayout
}

// The unpacker ends in ExecPS2 of the unpacked menu. Calling the patcher
// there instead hands it the entry point and gp in a0 and a1.
func (packedVariant) entry(s *Session) ([]hook.Action, error) {
	site, ok := sigscan.FindIn(s.image, osdmem.UnpackerBase, 0x1000, patternExecPS2)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternExecPS2.Name)
	}

	apply, err := s.Register("applyPatches", func(args []uint32) uint32 {
		s.osd = osdmem.Address(args[0])
		s.gp = osdmem.Address(args[1])
		if _, err := s.ApplyAll(); err != nil {
			s.log(1, "Patching failed: %v", err)
		}

		s.host.FlushCache(0)
		s.host.FlushCache(2)
		if err := s.host.ExecPS2(s.osd, s.gp, s.BootArgs()); err != nil {
			s.log(1, "ExecPS2 returned: %v", err)
		}
		return 0
	})
	if err != nil {
		return nil, err
	}

	return []hook.Action{
		hook.Hook{Name: "unpacker exec", Site: site, Replacement: apply},
		hook.Overwrite{Name: "unpacker exec", Site: site.Add(4), Words: []uint32{0}},
	}, nil
}

func (packedVariant) ops(s *Session) []op {
	var ops []op
	if s.settings.Has(settings.FlagCustomMenu) {
		ops = append(ops,
			op{"menu", (*Session).patchMenu},
			op{"menu draw", (*Session).patchMenuDraw},
			op{"infinite scroll", (*Session).patchMenuScroll},
			op{"button panel", (*Session).patchButtonPanel},
		)
	}

	ops = append(ops,
		op{"version info", (*Session).patchVersionInfo},
		op{"video mode", (*Session).patchVideoMode},
		op{"gs video mode", (*Session).patchGSVideoMode},
	)

	if s.settings.Has(settings.FlagSkipDisc) {
		ops = append(ops, op{"skip disc", (*Session).patchSkipDisc})
	}

	ops = append(ops,
		op{"compatibility", (*Session).patchCompat},
		op{"skip hdd", (*Session).patchSkipHDD},
		op{"disc launch", (*Session).patchDiscLaunch},
	)

	if s.settings.Has(settings.FlagBrowserLauncher) {
		ops = append(ops, op{"browser launch", (*Session).patchBrowserLaunch})
	}

	return append(ops,
		op{"update paths", (*Session).patchUpdatePaths},
		op{"deinit", (*Session).findDeinit},
	)
}

func (packedVariant) BootArgs(s *Session) []string {
	args := bootArgs(s.settings)

	/* Newer menus skip the memory card update and HDD load themselves */
	if _, ok := sigscan.FindString(osdmem.Window(s.image, s.osd, searchWindow), s.osd, "SkipMc"); ok {
		args = append(args, "SkipMc")
	}
	if s.supportsSkipHDD() {
		args = append(args, "SkipHdd")
	}
	return args
}

func (protokernelVariant) Name() string {
	return VariantProtokernel
}

func (protokernelVariant) layout() *layout {
	return &protokernelLayout
}

// Protokernel menus are not packed. The patcher runs from the menu's own
// init through a jump placed at the end of it, the update paths are mangled
// before the menu starts.
func (protokernelVariant) entry(s *Session) ([]hook.Action, error) {
	initAddr, ok := sigscan.Find(s.image, s.osd, patternProtokernelInit)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternProtokernelInit.Name)
	}

	apply, err := s.Register("applyPatches", func(args []uint32) uint32 {
		if _, err := s.ApplyAll(); err != nil {
			s.log(1, "Patching failed: %v", err)
		}
		s.host.FlushCache(0)
		s.host.FlushCache(2)
		return 0
	})
	if err != nil {
		return nil, err
	}

	actions := []hook.Action{
		hook.Hook{Name: "protokernel init", Site: initAddr.Add(0x3c), Replacement: apply, Jump: true},
	}

	mangle, err := s.patchUpdatePaths()
	if err != nil {
		return nil, err
	}
	return append(actions, mangle...), nil
}

func (protokernelVariant) ops(s *Session) []op {
	var ops []op
	if s.settings.Has(settings.FlagCustomMenu) {
		ops = append(ops,
			op{"menu", (*Session).patchMenu},
			op{"menu draw", (*Session).patchMenuDraw},
			op{"infinite scroll", (*Session).patchMenuScroll},
		)
	}

	ops = append(ops,
		op{"version info", (*Session).patchVersionInfo},
		op{"gs video mode", (*Session).patchGSVideoMode},
		op{"disc launch", (*Session).patchDiscLaunch},
	)

	if s.settings.Has(settings.FlagBrowserLauncher) {
		ops = append(ops, op{"browser launch", (*Session).patchBrowserLaunch})
	}
	return append(ops, op{"update paths", (*Session).patchUpdatePaths})
}

func (protokernelVariant) BootArgs(s *Session) []string {
	return bootArgs(s.settings)
}

func bootArgs(st *settings.Settings) []string {
	args := []string{"rom0:"}
	if st.Has(settings.FlagBootBrowser) {
		args = append(args, "BootBrowser")
	} else if st.Has(settings.FlagSkipDisc) || st.Has(settings.FlagSkipSCELogo) {
		args = append(args, "BootClock")
	}
	return args
}
