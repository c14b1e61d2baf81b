package osdpatch

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

const (
	/* The icon directory path follows at this offset in the icon properties */
	iconPathOffset = 0x160
	iconPathLength = 0x40
)

type browserState struct {
	orig osdmem.Address
	/* Selected memory card, relative to gp */
	mcOffset int16
}

// browserCard maps the browser's memory card number to the unit number. The
// browser uses 2 for mc0 and 6 for mc1, protokernels use 3 for mc1.
func browserCard(n uint32) (int, bool) {
	switch n {
	case 2:
		return 0, true
	case 3, 6:
		return 1, true
	}
	return 0, false
}

// BrowserTitlePath returns the title.cfg path for the icon whose properties
// are at props, when the browser shows a memory card.
func (s *Session) BrowserTitlePath(props osdmem.Address) (string, bool) {
	card, ok := browserCard(s.word(s.gp.Add(int(s.browse.mcOffset))))
	if !ok {
		return "", false
	}

	start := props.Add(iconPathOffset)
	for i := 0; i < iconPathLength; i++ {
		b, err := osdmem.ReadByte(s.bus, start.Add(i))
		if err != nil || b == 0 {
			return "", false
		}
		if b != '/' {
			continue
		}

		dir, err := osdmem.ReadString(s.bus, start.Add(i), iconPathLength)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("mc%d:%s/title.cfg", card, dir), true
	}
	return "", false
}

/* Option opens Copy/Delete, Enter launches the application when it has a
 * title.cfg and shows the properties otherwise */
func (s *Session) browserFileMenu(args []uint32) uint32 {
	props := args[0]
	b := &s.browse

	if args[1] == 1 {
		s.host.Call(b.orig, props, 0)
		return 0
	}

	if path, ok := s.BrowserTitlePath(osdmem.Address(props)); ok && s.host.FileExists(path) {
		if err := s.launcher.Launch(path); err != nil {
			s.log(1, "Launching %s failed: %v", path, err)
		}
	}

	s.host.Call(b.orig, props, 1)
	return 0
}

// Starts applications from the memory card browser.
func (s *Session) patchBrowserLaunch() ([]hook.Action, error) {
	l := s.variant.layout()

	match, err := s.find(patternBrowserFileMenuInit, l.browserOffset)
	if err != nil {
		return nil, err
	}
	site := match.Add(16)
	if !mips.IsJAL(s.word(site)) {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternBrowserFileMenuInit.Name)
	}

	b := browserState{}
	if b.orig, err = s.callTarget(site); err != nil {
		return nil, err
	}

	mc, ok := sigscan.FindIn(s.image, b.orig, 0x500, patternBrowserSelectedMC)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, patternBrowserSelectedMC.Name)
	}
	b.mcOffset = int16(mips.Immediate(s.word(mc)))

	stub, err := s.Register("browserFileMenu", s.browserFileMenu)
	if err != nil {
		return nil, err
	}

	s.browse = b
	return []hook.Action{
		hook.Hook{Name: "browser file menu", Site: site, Replacement: stub},
	}, nil
}
