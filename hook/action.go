// Package hook rewrites call sites in a menu image and keeps track of what it
// replaced.
package hook

import (
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

// Action is one change to the image, produced by a patch operation and
// performed by an Executor.
type Action interface {
	action()
	String() string
}

// Hook redirects the jal (or j) at Site to Replacement.
type Hook struct {
	Name        string
	Site        osdmem.Address
	Replacement osdmem.Address

	/* Encode "j" instead of "jal" */
	Jump bool
}

// Overwrite stores Words starting at Site.
type Overwrite struct {
	Name  string
	Site  osdmem.Address
	Words []uint32
}

// Detour makes the jal at Site call Hook first and then its original
// destination, through a trampoline in resident memory.
type Detour struct {
	Name string
	Site osdmem.Address
	Hook osdmem.Address
}

// Deferred runs a side effect that is not a memory write, like replacing a
// syscall handler, in order with the writes. Dry runs skip it.
type Deferred struct {
	Name string
	Run  func() error
}

// NoOp records an operation that decided not to touch the image.
type NoOp struct {
	Reason string
}

func (Hook) action()      {}
func (Overwrite) action() {}
func (Detour) action()    {}
func (Deferred) action()  {}
func (NoOp) action()      {}

func (h Hook) String() string {
	op := "jal"
	if h.Jump {
		op = "j"
	}
	return fmt.Sprintf("%s: %s %s at %s", h.Name, op, h.Replacement, h.Site)
}

func (o Overwrite) String() string {
	return fmt.Sprintf("%s: %d words at %s", o.Name, len(o.Words), o.Site)
}

func (d Detour) String() string {
	return fmt.Sprintf("%s: detour %s via %s", d.Name, d.Site, d.Hook)
}

func (d Deferred) String() string {
	return d.Name
}

func (n NoOp) String() string {
	return "skipped: " + n.Reason
}

// Record describes an installed hook. Original is the decoded target of the
// instruction that was replaced, zero if it was not a jump.
type Record struct {
	Name        string
	Site        osdmem.Address
	Original    osdmem.Address
	Replacement osdmem.Address

	OriginalWord uint32
	NewWord      uint32
}

func (r Record) String() string {
	return fmt.Sprintf("%s: %s %08x->%08x (%s -> %s)", r.Name, r.Site, r.OriginalWord, r.NewWord, r.Original, r.Replacement)
}
