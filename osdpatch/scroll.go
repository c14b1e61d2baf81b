package osdpatch

import (
	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

/* Wrap around at the top of the menu */
var scrollUp = []uint32{0x8e04fff8, 0x8e05fff0, 0x0004102a, 0x0082280b, 0x20a3ffff, 0x1000000c, 0xae03fff8}

/* Wrap around at the bottom */
var scrollDown = []uint32{0x1040000e, 0x30620020, 0x8e05fff8, 0x8e02fff0, 0x24a30001, 0x0062102a, 0x0002180a, 0x00000000, 0xae03fff8}

/* Words at these offsets identify the pad handling loop */
var scrollGuards = []struct {
	offset int
	word   uint32
}{
	{9 * 4, 0x30624000},
	{20 * 4, 0x24045200},
}

// Makes the cursor wrap from the last entry to the first and back. The loop
// reads the pad state through the word just before the match; it is moved to
// the repeat state and the plain state is reloaded where the patch needs it.
func (s *Session) patchMenuScroll() ([]hook.Action, error) {
	l := s.variant.layout()

	addr, err := s.find(l.menuLoop, l.menuOffset)
	if err != nil {
		return nil, err
	}

	words, err := osdmem.ReadWords(s.image, addr.Add(-4), 22)
	if err != nil {
		return []hook.Action{hook.NoOp{Reason: "menu loop at image edge"}}, nil
	}
	for _, g := range scrollGuards {
		if words[1+g.offset/4] != g.word {
			return []hook.Action{hook.NoOp{Reason: "unexpected menu loop layout"}}, nil
		}
	}

	padLoad := words[0]
	return []hook.Action{
		hook.Overwrite{Name: "scroll up", Site: addr.Add(8), Words: scrollUp},
		hook.Overwrite{Name: "pad reload", Site: addr.Add(40), Words: []uint32{padLoad}},
		hook.Overwrite{Name: "scroll down", Site: addr.Add(44), Words: scrollDown},
		hook.Overwrite{Name: "pad repeat", Site: addr.Add(-4), Words: []uint32{padLoad + 8}},
	}, nil
}
