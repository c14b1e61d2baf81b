package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

/* Y of the first protokernel entry and the distance between entries */
const (
	protoFirstY = 0x62
	protoStepY  = 0x10
)

type drawState struct {
	animator *Animator

	/* The menu's DrawMenuItem(x, y, color, alpha, text) */
	drawMenuItem osdmem.Address

	colorSelected   osdmem.Address
	colorUnselected osdmem.Address

	/* Protokernel DrawMenuItem takes a pointer to the text pointer */
	landing osdmem.Address

	strings map[PlacementKind]osdmem.Address
}

func (s *Session) writeColor(addr osdmem.Address, c settings.Color) {
	osdmem.WriteWords(s.resident, addr, c[:])
}

/* Draws text the menu did not hand us, which protokernels take indirectly */
func (s *Session) drawString(x, y int, color osdmem.Address, alpha int, text osdmem.Address) {
	d := &s.draw
	if d.landing != 0 {
		osdmem.WriteWords(s.resident, d.landing, []uint32{uint32(text), uint32(text)})
		text = d.landing
	}
	s.host.Call(d.drawMenuItem, reg(x), reg(y), uint32(color), reg(alpha), uint32(text))
}

// DrawMenuItem replaces the menu's item drawing. text is the pointer the menu
// passed, num the entry number times eight.
func (s *Session) DrawMenuItem(selected bool, x, y, alpha int, text osdmem.Address, num int) {
	d := &s.draw
	if d.animator == nil {
		return
	}

	color := d.colorUnselected
	c := s.settings.ColorUnselected
	if selected {
		color = d.colorSelected
		c = s.settings.ColorSelected
	}
	s.writeColor(color, c)

	current := 0
	if s.menu.info != nil {
		current, _ = s.menu.info.Current()
	}

	for _, p := range d.animator.Draw(selected, y, alpha, num, current, len(s.menu.items)) {
		if p.Kind == PlaceItem {
			s.host.Call(d.drawMenuItem, reg(p.X), reg(p.Y), uint32(color), reg(p.Alpha), uint32(text))
			continue
		}
		s.drawString(p.X, p.Y, color, p.Alpha, d.strings[p.Kind])
	}
}

func (s *Session) registerDraw(name string, selected, proto bool) (osdmem.Address, error) {
	return s.Register(name, func(args []uint32) uint32 {
		x := int(int32(args[0]))
		y := int(int32(args[1]))
		alpha := int(int32(args[3]))
		text := osdmem.Address(args[4])

		num := int(int32(args[5]))
		if proto {
			/* Entries are evenly spaced, the number follows from Y */
			num = ((y - protoFirstY) / protoStepY) * 8
		}

		s.DrawMenuItem(selected, x, y, alpha, text, num)
		return 0
	})
}

// Takes over drawing of the main menu entries. Packed menus are also changed
// to pass the entry number as sixth argument.
func (s *Session) patchMenuDraw() ([]hook.Action, error) {
	l := s.variant.layout()

	animator := NewAnimator(s.settings)
	if s.menu.info == nil {
		return nil, ErrorNoMenu
	}

	sel, err := s.find(l.drawMenuItem, l.menuOffset)
	if err != nil {
		return nil, err
	}
	unsel, ok := sigscan.FindIn(s.image, sel.Add(l.drawNext), l.drawWindow, l.drawMenuItem)
	if !ok || (l.drawPair != 0 && unsel != sel.Add(l.drawPair)) {
		return nil, fmt.Errorf("%w: second %s", ErrSignatureNotFound, l.drawMenuItem.Name)
	}

	drawMenuItem, err := s.callTarget(sel.Add(l.drawCall))
	if err != nil {
		return nil, err
	}

	d := drawState{
		animator:     animator,
		drawMenuItem: drawMenuItem,
		strings:      make(map[PlacementKind]osdmem.Address),
	}

	if d.colorSelected, err = s.allocAligned(16, 16); err != nil {
		return nil, err
	}
	if d.colorUnselected, err = s.allocAligned(16, 16); err != nil {
		return nil, err
	}
	if l.protokernel {
		if d.landing, err = s.resident.Alloc(8); err != nil {
			return nil, err
		}
	}

	for _, m := range []struct {
		kind PlacementKind
		text string
	}{
		{PlaceLeftCursor, s.settings.LeftCursor},
		{PlaceRightCursor, s.settings.RightCursor},
		{PlaceDelimiterTop, s.settings.DelimiterTop},
		{PlaceDelimiterBottom, s.settings.DelimiterBottom},
	} {
		addr, err := s.resident.AllocString(m.text)
		if err != nil {
			return nil, err
		}
		d.strings[m.kind] = addr
	}

	drawSel, err := s.registerDraw("drawMenuItemSelected", true, l.protokernel)
	if err != nil {
		return nil, err
	}
	drawUnsel, err := s.registerDraw("drawMenuItemUnselected", false, l.protokernel)
	if err != nil {
		return nil, err
	}

	var actions []hook.Action
	if !l.protokernel {
		/* sll t1, s0, 3; addu v0, t1, v1 */
		index := []uint32{0x001048c0, 0x01231021}
		actions = append(actions,
			hook.Overwrite{Name: "selected index", Site: sel, Words: index},
			hook.Overwrite{Name: "unselected index", Site: unsel, Words: index},
		)
	}
	actions = append(actions,
		hook.Hook{Name: "draw selected", Site: sel.Add(l.drawCall), Replacement: drawSel},
		hook.Hook{Name: "draw unselected", Site: unsel.Add(l.drawCall), Replacement: drawUnsel},
	)

	s.draw = d
	return actions, nil
}
