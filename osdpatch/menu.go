package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/launch"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/settings"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

// SentinelTag marks entry table words that stand for a configured item
// instead of a native string index. Every sentinel lies below the lowest
// load address, so it can never be confused with a string pointer.
const SentinelTag = 0x0009

func Sentinel(ordinal int) uint32 {
	return SentinelTag<<16 | uint32(ordinal&0xffff)
}

func SentinelOrdinal(w uint32) (int, bool) {
	if w>>16 != SentinelTag {
		return 0, false
	}
	return int(w & 0xffff), true
}

/* Browser and System Configuration */
const nativeEntries = 2

type menuField int

const (
	fieldUnknown1 menuField = iota
	fieldMenuPtr
	fieldCount
	fieldUnknown2
	fieldCurrent
	menuFieldCount
)

// MenuInfo is a view of the menu's own structure describing the main menu:
// the entry table, the number of entries and the current selection.
type MenuInfo struct {
	mem  osdmem.MemoryRegion
	Base osdmem.Address
}

func (m *MenuInfo) field(f menuField) (osdmem.Address, error) {
	if f < 0 || f >= menuFieldCount {
		return 0, osdmem.ErrorOutOfBounds
	}
	return m.Base.Add(4 * int(f)), nil
}

func (m *MenuInfo) read(f menuField) (uint32, error) {
	addr, err := m.field(f)
	if err != nil {
		return 0, err
	}
	return osdmem.ReadWord(m.mem, addr)
}

func (m *MenuInfo) MenuPtr() (osdmem.Address, error) {
	w, err := m.read(fieldMenuPtr)
	return osdmem.Address(w), err
}

func (m *MenuInfo) Count() (int, error) {
	w, err := m.read(fieldCount)
	return int(w), err
}

func (m *MenuInfo) Current() (int, error) {
	w, err := m.read(fieldCurrent)
	return int(w), err
}

// LocateMenuInfo finds the menu info structure. The pattern is not unique,
// the right match is the one whose menu pointer points just below itself at
// the native entry table.
func LocateMenuInfo(img osdmem.MemoryRegion, v Variant, osd osdmem.Address) (*MenuInfo, error) {
	l := v.layout()
	start := osd.Add(l.menuOffset)

	scanner := sigscan.NewScanner(osdmem.Window(img, start, searchWindow), start, l.menuInfo)
	match, ok := scanner.First(func(m osdmem.Address) bool {
		w, err := osdmem.ReadWord(img, m.Add(l.anchorField))
		return err == nil && osdmem.Address(w) == m.Add(l.anchorDelta)
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, l.menuInfo.Name)
	}

	return &MenuInfo{mem: img, Base: match.Add(l.structOffset)}, nil
}

type menuState struct {
	info  *MenuInfo
	items []settings.MenuItem
	names []osdmem.Address
	table osdmem.Address
}

// Adds the configured items to the main menu. The new entry table lives in
// resident memory: the native entries first, one entry per item after them.
func (s *Session) patchMenu() ([]hook.Action, error) {
	l := s.variant.layout()

	info, err := LocateMenuInfo(s.image, s.variant, s.osd)
	if err != nil {
		return nil, err
	}
	entry, err := s.find(patternUserInputHandler, l.menuOffset)
	if err != nil {
		return nil, err
	}

	var actions []hook.Action
	if !l.protokernel {
		osdString, err := s.find(patternOSDString, 0)
		if err != nil {
			return nil, err
		}

		resolve, err := s.Register("resolveEntryString", func(args []uint32) uint32 {
			return uint32(s.ResolveEntryString(osdmem.Address(args[0]), args[1]))
		})
		if err != nil {
			return nil, err
		}

		actions = append(actions,
			hook.Overwrite{Name: "string index", Site: osdString.Add(8), Words: []uint32{0x0200282d /* daddu a1, s0, zero */}},
			hook.Hook{Name: "entry string", Site: osdString.Add(16), Replacement: resolve},
			hook.Overwrite{Name: "entry string", Site: osdString.Add(20), Words: []uint32{mips.Nop}},
		)
	}

	handle, err := s.Register("handleMenuEntry", func(args []uint32) uint32 {
		return uint32(s.HandleMenuEntry(int(int32(args[0]))))
	})
	if err != nil {
		return nil, err
	}

	/* Selection is loaded into a0 in the delay slot, the result decides */
	selection := s.word(entry.Add(12))
	actions = append(actions,
		hook.Hook{Name: "menu entry", Site: entry.Add(8), Replacement: handle},
		hook.Overwrite{Name: "menu entry", Site: entry.Add(12), Words: []uint32{
			selection&0xffff | 0x8c440000, /* lw a0, current(v0) */
			0x1040000a,                    /* beq v0, zero, exit */
		}},
	)

	nativePtr, err := info.MenuPtr()
	if err != nil {
		return nil, err
	}
	table, err := osdmem.ReadWords(s.image, nativePtr, l.nativeWords)
	if err != nil {
		return nil, fmt.Errorf("%w: native entries: %v", ErrUnsafeRegion, err)
	}

	items := s.settings.Items
	if len(items) > settings.MaxItems {
		items = items[:settings.MaxItems]
	}

	names := make([]osdmem.Address, len(items))
	for i, m := range items {
		names[i], err = s.resident.AllocString(m.Name)
		if err != nil {
			return nil, err
		}

		if l.protokernel {
			/* Protokernel entries point at the text directly */
			table = append(table, uint32(names[i]), uint32(names[i]), 0)
		} else {
			table = append(table, Sentinel(i), 0)
		}
	}

	tableAddr, err := s.resident.AllocWords(table...)
	if err != nil {
		return nil, err
	}

	ptr, err := info.field(fieldMenuPtr)
	if err != nil {
		return nil, err
	}
	actions = append(actions, hook.Overwrite{
		Name:  "menu table",
		Site:  ptr,
		Words: []uint32{uint32(tableAddr), uint32(nativeEntries + len(items))},
	})

	s.menu = menuState{
		info:  info,
		items: items,
		names: names,
		table: tableAddr,
	}
	s.log(1, "Menu info at %s, %d custom entries in table at %s", info.Base, len(items), tableAddr)
	return actions, nil
}

// HandleMenuEntry is called when an entry is chosen. It returns 1 to let the
// menu open System Configuration and 0 when it has nothing to do.
func (s *Session) HandleMenuEntry(selected int) int {
	if selected == 1 {
		return 1
	}

	n := len(s.menu.items)
	if selected < nativeEntries || selected >= nativeEntries+n {
		return 0
	}

	item := s.menu.items[selected-nativeEntries]
	if err := s.launcher.Launch(launch.MenuItemPath(s.settings.MCSlot, item.Index)); err != nil {
		s.log(1, "Launching %q failed: %v", item.Name, err)
	}
	return 0
}

// ResolveEntryString returns the text pointer for an entry table word: the
// resident copy of the name for sentinels, the menu's string table otherwise.
func (s *Session) ResolveEntryString(strings osdmem.Address, index uint32) osdmem.Address {
	if ordinal, ok := SentinelOrdinal(index); ok {
		if ordinal < len(s.menu.names) {
			return s.menu.names[ordinal]
		}
		return 0
	}
	return osdmem.Address(s.word(strings.Add(4 * int(index))))
}

// CustomItems returns the items that made it into the menu table.
func (s *Session) CustomItems() []settings.MenuItem {
	return s.menu.items
}

func (s *Session) MenuInfo() *MenuInfo {
	return s.menu.info
}
