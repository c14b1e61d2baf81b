package hook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

var ErrorNoResident = errors.New("Detour needs resident memory")

// Executor performs the actions produced by patch operations. All writes go
// through it so every one is logged and followed by an icache invalidation.
type Executor struct {
	Memory   osdmem.MemoryRegion
	Resident *osdmem.Resident
	ICache   ICache
	LogFunc  osdmem.LogFunc

	/* Evaluate actions and produce records without touching memory */
	DryRun bool

	hooked  map[osdmem.Address]Record
	records []Record
	writes  int
}

func NewExecutor(mem osdmem.MemoryRegion, icache ICache, logFunc osdmem.LogFunc) *Executor {
	if icache == nil {
		icache = nopCache{}
	}

	return &Executor{
		Memory:  mem,
		ICache:  icache,
		LogFunc: logFunc,
		hooked:  make(map[osdmem.Address]Record),
	}
}

func (e *Executor) log(level int, format string, param ...interface{}) {
	if e.LogFunc != nil {
		e.LogFunc(level, format, param...)
	}
}

func (e *Executor) write(site osdmem.Address, words []uint32) error {
	e.writes += len(words)
	if e.DryRun {
		return nil
	}

	if err := osdmem.WriteWords(e.Memory, site, words); err != nil {
		return err
	}
	e.ICache.Invalidate(site, 4*len(words))
	return nil
}

type batchCheck struct {
	e       *Executor
	pending map[osdmem.Address]bool
}

func (c *batchCheck) claim(name string, site osdmem.Address) error {
	if _, ok := c.e.hooked[site]; ok || c.pending[site] {
		return fmt.Errorf("%w: %s at %s", ErrorAlreadyHooked, name, site)
	}
	c.pending[site] = true
	return nil
}

func (c *batchCheck) check(a Action) error {
	e := c.e

	switch a := a.(type) {
	case Hook:
		if err := c.claim(a.Name, a.Site); err != nil {
			return err
		}
		if _, err := buildRecord(e.Memory, a.Name, a.Site, a.Replacement, a.Jump); err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}

	case Detour:
		if e.Resident == nil {
			return fmt.Errorf("%w: %s", ErrorNoResident, a.Name)
		}
		if err := c.claim(a.Name, a.Site); err != nil {
			return err
		}
		w, err := osdmem.ReadWord(e.Memory, a.Site)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrorUnsafeRegion, a.Name, err)
		}
		if !mips.IsJAL(w) {
			return fmt.Errorf("%s: %w: %08x at %s", a.Name, mips.ErrorNotJump, w, a.Site)
		}

	case Overwrite:
		if len(a.Words) == 0 {
			return nil
		}
		if _, err := osdmem.ReadWords(e.Memory, a.Site, len(a.Words)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrorUnsafeRegion, a.Name, err)
		}
		for i := range a.Words {
			site := a.Site.Add(4 * i)
			if _, ok := e.hooked[site]; ok || c.pending[site] {
				return fmt.Errorf("%w: %s overwrites %s", ErrorAlreadyHooked, a.Name, site)
			}
		}
	}
	return nil
}

// Apply validates every action first and only then writes, so a batch that
// fails validation leaves the image untouched. Records of the installed hooks
// are returned in action order.
func (e *Executor) Apply(actions ...Action) ([]Record, error) {
	c := batchCheck{e: e, pending: make(map[osdmem.Address]bool)}
	for _, a := range actions {
		if err := c.check(a); err != nil {
			return nil, err
		}
	}

	var records []Record
	for _, a := range actions {
		switch a := a.(type) {
		case Hook:
			r, err := buildRecord(e.Memory, a.Name, a.Site, a.Replacement, a.Jump)
			if err != nil {
				return records, err
			}

			e.log(2, "%s", r)
			if err := e.write(r.Site, []uint32{r.NewWord}); err != nil {
				return records, err
			}
			e.hooked[r.Site] = r
			e.records = append(e.records, r)
			records = append(records, r)

		case Detour:
			r, err := e.detour(a)
			if err != nil {
				return records, err
			}
			records = append(records, r)

		case Overwrite:
			e.log(2, "%s: writing at %s: %s", a.Name, a.Site, formatWords(a.Words))
			if err := e.write(a.Site, a.Words); err != nil {
				return records, err
			}

		case Deferred:
			if e.DryRun {
				e.log(2, "%s: skipped in dry run", a.Name)
				continue
			}
			e.log(2, "%s", a.Name)
			if err := a.Run(); err != nil {
				return records, fmt.Errorf("%s: %w", a.Name, err)
			}

		case NoOp:
			e.log(3, "%s", a)
		}
	}

	return records, nil
}

// Hooked returns the record of the hook at site, if there is one.
func (e *Executor) Hooked(site osdmem.Address) (Record, bool) {
	r, ok := e.hooked[site]
	return r, ok
}

func (e *Executor) Records() []Record {
	return e.records
}

// Writes counts the words written (or that would have been in a dry run).
func (e *Executor) Writes() int {
	return e.writes
}

/* Spills a0-a3 and ra around the hook call so the original sees its arguments */
var (
	detourPrologue = []uint32{
		0x27bdffd0, /* addiu sp, sp, -0x30 */
		0xffbf0000, /* sd ra, 0x00(sp) */
		0xffa40008, /* sd a0, 0x08(sp) */
		0xffa50010, /* sd a1, 0x10(sp) */
		0xffa60018, /* sd a2, 0x18(sp) */
		0xffa70020, /* sd a3, 0x20(sp) */
	}
	detourEpilogue = []uint32{
		0xdfa70020, /* ld a3, 0x20(sp) */
		0xdfa60018, /* ld a2, 0x18(sp) */
		0xdfa50010, /* ld a1, 0x10(sp) */
		0xdfa40008, /* ld a0, 0x08(sp) */
		0xdfbf0000, /* ld ra, 0x00(sp) */
	}
)

func (e *Executor) detour(d Detour) (Record, error) {
	orig, err := osdmem.ReadWord(e.Memory, d.Site)
	if err != nil {
		return Record{}, err
	}
	target := mips.DecodeTarget(orig, d.Site)

	size := 4 * (len(detourPrologue) + 2 + len(detourEpilogue) + 2)
	stub, err := e.Resident.Alloc(size)
	if err != nil {
		return Record{}, err
	}

	callHook, err := mips.EncodeJAL(d.Hook, stub.Add(4*len(detourPrologue)))
	if err != nil {
		return Record{}, err
	}
	jumpOrig, err := mips.EncodeJ(target, stub.Add(size-8))
	if err != nil {
		return Record{}, err
	}

	code := append([]uint32{}, detourPrologue...)
	code = append(code, callHook, mips.Nop)
	code = append(code, detourEpilogue...)
	code = append(code, jumpOrig, 0x27bd0030 /* addiu sp, sp, 0x30 */)

	e.log(2, "%s: trampoline at %s: %s", d.Name, stub, formatWords(code))
	if err := e.write(stub, code); err != nil {
		return Record{}, err
	}

	r, err := buildRecord(e.Memory, d.Name, d.Site, stub, false)
	if err != nil {
		return Record{}, err
	}
	e.log(2, "%s", r)
	if err := e.write(r.Site, []uint32{r.NewWord}); err != nil {
		return Record{}, err
	}
	e.hooked[r.Site] = r
	e.records = append(e.records, r)
	return r, nil
}

// DetourCall applies a single Detour.
func (e *Executor) DetourCall(name string, site, hookAddr osdmem.Address) (Record, error) {
	records, err := e.Apply(Detour{Name: name, Site: site, Hook: hookAddr})
	if err != nil {
		return Record{}, err
	}
	return records[0], nil
}

func formatWords(words []uint32) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%08x", w)
	}
	return strings.Join(parts, " ")
}
