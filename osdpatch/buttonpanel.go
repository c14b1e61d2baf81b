package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

const (
	PanelMainMenu = 1
	PanelSysConf  = 8

	/* Text is drawn this far right of its icon */
	panelTextOffset = 28

	panelWindow = 0x1000
)

// panelState relocates the "Enter" and "Version" prompts of the main menu
// button panel. Coordinates left at -1 are taken from the first draw.
type panelState struct {
	panelType int

	drawIcon osdmem.Address
	drawText osdmem.Address

	enterX, enterY     int
	versionX, versionY int
}

func (p *panelState) position(version bool, x, y int) (int, int) {
	px, py := &p.enterX, &p.enterY
	if version {
		px, py = &p.versionX, &p.versionY
	}

	if *px == -1 {
		*px = x
	}
	if *py == -1 {
		*py = y
	}
	return *px, *py
}

// DrawPanelIcon draws a button icon, moved when on the main menu panel.
func (s *Session) DrawPanelIcon(version bool, icon, x, y, alpha int) {
	p := &s.panel
	if p.panelType == PanelMainMenu {
		x, y = p.position(version, x, y)
	}
	s.host.Call(p.drawIcon, reg(icon), reg(x), reg(y), reg(alpha))
}

// DrawPanelText draws a button label, moved along with its icon.
func (s *Session) DrawPanelText(version bool, x, y int, color osdmem.Address, alpha int, text osdmem.Address) {
	p := &s.panel
	if p.panelType == PanelMainMenu {
		x, y = p.position(version, x-panelTextOffset, y)
		x += panelTextOffset
	}
	s.host.Call(p.drawText, reg(x), reg(y), uint32(color), reg(alpha), uint32(text))
}

/* The last icon and text of the panel are the version prompt, all earlier
 * ones belong to enter */
func (s *Session) patchButtonPanel() ([]hook.Action, error) {
	first, err := s.find(patternDrawButtonPanel1, 0)
	if err != nil {
		return nil, err
	}
	icon, ok := sigscan.FindIn(s.image, first, panelWindow, patternDrawButtonPanel2)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternDrawButtonPanel2.Name)
	}
	text, ok := sigscan.FindIn(s.image, first, panelWindow, patternDrawButtonPanel3)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternDrawButtonPanel3.Name)
	}

	/* The other calls are found by the exact call instruction */
	iconCall := s.word(icon.Add(24))
	iconLeft, ok := sigscan.FindIn(s.image, icon.Add(28), panelWindow, sigscan.Exact("DrawIcon", iconCall))
	if !ok {
		return nil, fmt.Errorf("%w: second DrawIcon call", ErrSignatureNotFound)
	}
	textCall := s.word(text.Add(20))
	textLeft, ok := sigscan.FindIn(s.image, text.Add(24), panelWindow, sigscan.Exact("DrawNonSelectableItem", textCall))
	if !ok {
		return nil, fmt.Errorf("%w: second DrawNonSelectableItem call", ErrSignatureNotFound)
	}

	p := panelState{
		enterX:   s.settings.EnterX,
		enterY:   s.settings.EnterY,
		versionX: s.settings.VersionX,
		versionY: s.settings.VersionY,
	}
	if p.drawIcon, err = s.callTarget(icon.Add(24)); err != nil {
		return nil, err
	}
	if p.drawText, err = s.callTarget(text.Add(20)); err != nil {
		return nil, err
	}

	routines := []struct {
		name string
		fn   Routine
	}{
		{"recordPanelType", func(args []uint32) uint32 {
			s.panel.panelType = int(int32(args[0]))
			return 0
		}},
		{"drawIconRight", func(args []uint32) uint32 {
			s.DrawPanelIcon(true, int(int32(args[0])), int(int32(args[1])), int(int32(args[2])), int(int32(args[3])))
			return 0
		}},
		{"drawIconLeft", func(args []uint32) uint32 {
			s.DrawPanelIcon(false, int(int32(args[0])), int(int32(args[1])), int(int32(args[2])), int(int32(args[3])))
			return 0
		}},
		{"drawTextRight", func(args []uint32) uint32 {
			s.DrawPanelText(true, int(int32(args[0])), int(int32(args[1])), osdmem.Address(args[2]), int(int32(args[3])), osdmem.Address(args[4]))
			return 0
		}},
		{"drawTextLeft", func(args []uint32) uint32 {
			s.DrawPanelText(false, int(int32(args[0])), int(int32(args[1])), osdmem.Address(args[2]), int(int32(args[3])), osdmem.Address(args[4]))
			return 0
		}},
	}

	stubs := make([]osdmem.Address, len(routines))
	for i, r := range routines {
		if stubs[i], err = s.Register(r.name, r.fn); err != nil {
			return nil, err
		}
	}

	s.panel = p
	return []hook.Action{
		hook.Detour{Name: "panel type", Site: first.Add(32), Hook: stubs[0]},
		hook.Hook{Name: "version icon", Site: icon.Add(24), Replacement: stubs[1]},
		hook.Hook{Name: "enter icon", Site: iconLeft, Replacement: stubs[2]},
		hook.Hook{Name: "version text", Site: text.Add(20), Replacement: stubs[3]},
		hook.Hook{Name: "enter text", Site: textLeft, Replacement: stubs[4]},
	}, nil
}

// PanelPosition returns the prompt coordinates in effect.
func (s *Session) PanelPosition() (enterX, enterY, versionX, versionY int) {
	p := &s.panel
	return p.enterX, p.enterY, p.versionX, p.versionY
}
