package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

/* PS2 DVD, PS2 CD and PS1 CD */
const discReplaced = 3

// DiscHandler is one slot of the disc type handler table.
type DiscHandler struct {
	Slot    int
	Address osdmem.Address
}

type discState struct {
	table    osdmem.Address
	handlers []DiscHandler
}

// The disc type indexes a table of handler pointers. Every slot must hold a
// code pointer, the ones that are replaced must point into the menu.
func (s *Session) discTableParse(table osdmem.Address, slots, first int) ([]DiscHandler, error) {
	words, err := osdmem.ReadWords(s.bus, table, slots)
	if err != nil {
		return nil, fmt.Errorf("%w: disc handler table: %v", ErrUnsafeRegion, err)
	}

	var results []DiscHandler
	for i, w := range words {
		addr := osdmem.Address(w)
		if i >= first && i < first+discReplaced {
			if err := mips.ValidateLoadAddress(addr); err != nil {
				return nil, fmt.Errorf("disc handler %d: %w", i, err)
			}
		}
		results = append(results, DiscHandler{Slot: i, Address: addr})
	}
	return results, nil
}

func discTableWrite(table osdmem.Address, entries []DiscHandler) hook.Overwrite {
	words := make([]uint32, len(entries))
	for i, m := range entries {
		words[i] = uint32(m.Address)
	}
	return hook.Overwrite{Name: "disc handlers", Site: table, Words: words}
}

// Sends discs to the launcher instead of the firmware's own boot code.
func (s *Session) patchDiscLaunch() ([]hook.Action, error) {
	l := s.variant.layout()

	fn, err := s.find(l.executeDisc, 0)
	if err != nil {
		return nil, err
	}

	/* lui/addiu pair, the low half is signed */
	table := mips.SplitAddressSigned(s.word(fn.Add(l.discHi)), s.word(fn.Add(l.discLo)))
	if err := mips.ValidateLoadAddress(table); err != nil {
		return nil, err
	}

	handlers, err := s.discTableParse(table, l.discSlots, l.discFirst)
	if err != nil {
		return nil, err
	}

	launch, err := s.Register("launchDisc", func(args []uint32) uint32 {
		if err := s.launcher.LaunchDisc(); err != nil {
			s.log(1, "Disc launch failed: %v", err)
		}
		return 1
	})
	if err != nil {
		return nil, err
	}

	patched := make([]DiscHandler, len(handlers))
	copy(patched, handlers)
	for i := l.discFirst; i < l.discFirst+discReplaced; i++ {
		patched[i].Address = launch
	}

	s.disc = discState{table: table, handlers: handlers}
	s.log(2, "Disc handler table at %s", table)
	return []hook.Action{discTableWrite(table, patched)}, nil
}

// DiscHandlers returns the handler table as it was before patching.
func (s *Session) DiscHandlers() (osdmem.Address, []DiscHandler) {
	return s.disc.table, s.disc.handlers
}
