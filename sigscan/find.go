package sigscan

import (
	"bytes"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

func readAll(r osdmem.MemoryRegion, start osdmem.Address) ([]uint32, osdmem.Address, bool) {
	start = (start + 3) &^ 3
	if start < r.GetBase() {
		start = r.GetBase()
	}

	end := osdmem.RegionEnd(r)
	if start >= end {
		return nil, start, false
	}

	words, err := osdmem.ReadWords(r, start, int(end-start)/4)
	if err != nil {
		return nil, start, false
	}
	return words, start, true
}

func scanWords(words []uint32, p Pattern) int {
	n := len(p.Words)
	for i := 0; i+n <= len(words); i++ {
		if p.Matches(words[i:]) {
			return i
		}
	}
	return -1
}

// Find returns the address of the first match of p at or after start inside
// r. Not finding the pattern is the normal way of learning that a patch does
// not apply to this image.
func Find(r osdmem.MemoryRegion, start osdmem.Address, p Pattern) (osdmem.Address, bool) {
	words, base, ok := readAll(r, start)
	if !ok {
		return 0, false
	}

	i := scanWords(words, p)
	if i < 0 {
		return 0, false
	}
	return base.Add(4 * i), true
}

// FindIn searches length bytes starting at start, the way most patches scope
// their searches to a function or a 1MB window.
func FindIn(r osdmem.MemoryRegion, start osdmem.Address, length int, p Pattern) (osdmem.Address, bool) {
	return Find(osdmem.Window(r, start, length), start, p)
}

// FindString locates a literal byte string.
func FindString(r osdmem.MemoryRegion, start osdmem.Address, s string) (osdmem.Address, bool) {
	if start < r.GetBase() {
		start = r.GetBase()
	}
	end := osdmem.RegionEnd(r)
	if start >= end || len(s) == 0 {
		return 0, false
	}

	buf := make([]byte, int(end-start))
	if _, err := r.Access(false, start, buf); err != nil {
		return 0, false
	}

	i := bytes.Index(buf, []byte(s))
	if i < 0 {
		return 0, false
	}
	return start.Add(i), true
}

// Scanner lazily produces successive matches of one pattern.
type Scanner struct {
	region  osdmem.MemoryRegion
	pattern Pattern

	words []uint32
	base  osdmem.Address
	pos   int
	valid bool
}

func NewScanner(r osdmem.MemoryRegion, start osdmem.Address, p Pattern) *Scanner {
	words, base, ok := readAll(r, start)
	return &Scanner{
		region:  r,
		pattern: p,
		words:   words,
		base:    base,
		valid:   ok,
	}
}

func (s *Scanner) Next() (osdmem.Address, bool) {
	if !s.valid || s.pos >= len(s.words) {
		return 0, false
	}

	i := scanWords(s.words[s.pos:], s.pattern)
	if i < 0 {
		s.pos = len(s.words)
		return 0, false
	}

	addr := s.base.Add(4 * (s.pos + i))
	s.pos += i + 1
	return addr, true
}

// First returns the first match for which accept holds.
func (s *Scanner) First(accept func(addr osdmem.Address) bool) (osdmem.Address, bool) {
	for {
		addr, ok := s.Next()
		if !ok {
			return 0, false
		}
		if accept(addr) {
			return addr, true
		}
	}
}

func (s *Scanner) All() []osdmem.Address {
	var result []osdmem.Address
	for {
		addr, ok := s.Next()
		if !ok {
			return result
		}
		result = append(result, addr)
	}
}
