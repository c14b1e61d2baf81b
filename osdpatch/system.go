package osdpatch

import (
	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/BertoldVdb/osdmenu-tools/sigscan"
)

const maxSkipDiscDistance = 0x40

// Branches over the automatic disc launch on the way to the main menu.
func (s *Session) patchSkipDisc() ([]hook.Action, error) {
	part1, err := s.find(patternDetectDisc1, 0)
	if err != nil {
		return nil, err
	}
	part2, err := s.find(patternDetectDisc2, 0)
	if err != nil {
		return nil, err
	}

	site := part1.Add(48)
	if part2 <= site {
		return []hook.Action{hook.NoOp{Reason: "disc detection parts out of order"}}, nil
	}
	dist := mips.BranchOffset(site, part2)
	if dist > maxSkipDiscDistance {
		return []hook.Action{hook.NoOp{Reason: "disc detection parts too far apart"}}, nil
	}

	branch, err := mips.BranchAlways(dist)
	if err != nil {
		return nil, err
	}
	return []hook.Action{
		hook.Overwrite{Name: "skip disc", Site: site, Words: []uint32{branch, mips.Nop}},
	}, nil
}

type compatWord struct {
	site     osdmem.Address
	expected uint32
	patched  uint32
}

/* Calls that hang some consoles, only replaced when all three are present */
var compatWords = []compatWord{
	{0x00202d78, 0x0c080898, mips.Nop},
	{0x00202b40, 0x0c080934, 0x24020000},
	{0x0020ffa0, 0x0c080934, 0x24020000},
}

func (s *Session) patchCompat() ([]hook.Action, error) {
	var actions []hook.Action
	for _, m := range compatWords {
		w, err := osdmem.ReadWord(s.bus, m.site)
		if err != nil || w != m.expected {
			return []hook.Action{hook.NoOp{Reason: "compatibility words not present"}}, nil
		}
		actions = append(actions, hook.Overwrite{Name: "compatibility", Site: m.site, Words: []uint32{m.patched}})
	}
	return actions, nil
}

func (s *Session) supportsSkipHDD() bool {
	_, ok := s.findString("SkipHdd")
	return ok
}

// Old menus have no SkipHdd argument, branch over the HDD module load
// right after the memory card update check instead.
func (s *Session) patchSkipHDD() ([]hook.Action, error) {
	if s.supportsSkipHDD() {
		return []hook.Action{hook.NoOp{Reason: "menu supports SkipHdd"}}, nil
	}

	addr, err := s.find(patternHDDLoad, 0)
	if err != nil {
		return nil, err
	}

	/* bltz v0, exit: reuse its offset, five words further up */
	exit := int(int16(s.word(addr.Add(28)) & 0xffff))
	branch, err := mips.BranchAlways(exit + 5)
	if err != nil {
		return nil, err
	}
	return []hook.Action{
		hook.Overwrite{Name: "skip hdd", Site: addr.Add(8), Words: []uint32{branch}},
	}, nil
}

// Cuts every "EXEC-SYSTEM" path short so no system update is ever loaded.
func (s *Session) patchUpdatePaths() ([]hook.Action, error) {
	var actions []hook.Action

	region := osdmem.Window(s.image, s.osd, searchWindow)
	start := s.osd
	for {
		addr, ok := sigscan.FindString(region, start, "EXEC-SYSTEM")
		if !ok {
			break
		}

		/* Zero the third byte, written as the word that contains it */
		target := addr.Add(2)
		aligned := target &^ 3
		w := s.word(aligned)
		shift := 8 * uint(target-aligned)
		w &^= 0xff << shift

		actions = append(actions, hook.Overwrite{Name: "update path", Site: aligned, Words: []uint32{w}})
		start = addr.Add(1)
	}

	if len(actions) == 0 {
		return []hook.Action{hook.NoOp{Reason: "no update paths"}}, nil
	}
	return actions, nil
}

func (s *Session) findDeinit() ([]hook.Action, error) {
	addr, err := s.find(patternDeinit, 0)
	if err != nil {
		return nil, err
	}

	s.deinit = addr
	s.log(2, "Deinit routine at %s", addr)
	return nil, nil
}
