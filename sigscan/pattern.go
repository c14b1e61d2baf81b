// Package sigscan locates instruction sequences in a menu image by masked
// word comparison.
package sigscan

import (
	"fmt"
	"strconv"
	"strings"
)

// Pattern is a sequence of instruction words. A word w matches position i
// when w&Mask[i] == Words[i].
type Pattern struct {
	Name  string
	Words []uint32
	Mask  []uint32
}

func NewPattern(name string, words, mask []uint32) (Pattern, error) {
	if len(words) == 0 {
		return Pattern{}, fmt.Errorf("pattern %s: empty pattern", name)
	}
	if len(words) != len(mask) {
		return Pattern{}, fmt.Errorf("pattern %s: mask length (%d) doesn't match pattern length (%d)", name, len(mask), len(words))
	}
	for i := range words {
		if words[i]&^mask[i] != 0 {
			return Pattern{}, fmt.Errorf("pattern %s: word %d (%08x) has bits outside mask %08x", name, i, words[i], mask[i])
		}
	}

	return Pattern{
		Name:  name,
		Words: append([]uint32(nil), words...),
		Mask:  append([]uint32(nil), mask...),
	}, nil
}

// MustPattern is NewPattern for the static signature tables.
func MustPattern(name string, words, mask []uint32) Pattern {
	p, err := NewPattern(name, words, mask)
	if err != nil {
		panic(err)
	}
	return p
}

// Exact matches a single instruction word bit for bit.
func Exact(name string, words ...uint32) Pattern {
	mask := make([]uint32, len(words))
	for i := range mask {
		mask[i] = 0xffffffff
	}
	return MustPattern(name, words, mask)
}

func (p Pattern) Len() int {
	return len(p.Words)
}

// Size is the pattern length in bytes.
func (p Pattern) Size() int {
	return 4 * len(p.Words)
}

func (p Pattern) Matches(words []uint32) bool {
	if len(words) < len(p.Words) {
		return false
	}
	for i, m := range p.Words {
		if words[i]&p.Mask[i] != m {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	parts := make([]string, len(p.Words))
	for i := range p.Words {
		if p.Mask[i] == 0xffffffff {
			parts[i] = fmt.Sprintf("%08x", p.Words[i])
		} else {
			parts[i] = fmt.Sprintf("%08x/%08x", p.Words[i], p.Mask[i])
		}
	}
	return strings.Join(parts, " ")
}

// ParsePattern reads the notation produced by String: whitespace or comma
// separated words, each optionally followed by /mask. "??" is a wildcard.
func ParsePattern(name, text string) (Pattern, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})

	var words, mask []uint32
	for _, f := range fields {
		if f == "??" {
			words = append(words, 0)
			mask = append(mask, 0)
			continue
		}

		w, m := f, "ffffffff"
		if i := strings.IndexByte(f, '/'); i >= 0 {
			w, m = f[:i], f[i+1:]
		}

		wv, err := strconv.ParseUint(strings.TrimPrefix(w, "0x"), 16, 32)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern %s: bad word %q: %w", name, w, err)
		}
		mv, err := strconv.ParseUint(strings.TrimPrefix(m, "0x"), 16, 32)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern %s: bad mask %q: %w", name, m, err)
		}

		words = append(words, uint32(wv)&uint32(mv))
		mask = append(mask, uint32(mv))
	}

	return NewPattern(name, words, mask)
}
