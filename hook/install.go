package hook

import (
	"errors"
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/mips"
	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

var (
	ErrorAlreadyHooked = errors.New("Site already hooked in this session")
	ErrorUnsafeRegion  = errors.New("Write target is not mapped")
)

// ICache is told about every modified range so stale instructions are never
// executed.
type ICache interface {
	Invalidate(addr osdmem.Address, length int)
}

type ICacheFunc func(addr osdmem.Address, length int)

func (f ICacheFunc) Invalidate(addr osdmem.Address, length int) {
	f(addr, length)
}

type nopCache struct{}

func (nopCache) Invalidate(osdmem.Address, int) {}

func encodeHook(site, replacement osdmem.Address, jump bool) (uint32, error) {
	if jump {
		return mips.EncodeJ(replacement, site)
	}
	return mips.EncodeJAL(replacement, site)
}

func buildRecord(mem osdmem.MemoryRegion, name string, site, replacement osdmem.Address, jump bool) (Record, error) {
	orig, err := osdmem.ReadWord(mem, site)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrorUnsafeRegion, site, err)
	}

	w, err := encodeHook(site, replacement, jump)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		Name:         name,
		Site:         site,
		Replacement:  replacement,
		OriginalWord: orig,
		NewWord:      w,
	}
	if mips.IsJAL(orig) || mips.IsJ(orig) {
		r.Original = mips.DecodeTarget(orig, site)
	}
	return r, nil
}

// Install replaces the call at site with "jal replacement". The returned
// record holds the previous destination so the replacement can chain to it.
func Install(mem osdmem.MemoryRegion, icache ICache, site, replacement osdmem.Address) (Record, error) {
	r, err := buildRecord(mem, "hook", site, replacement, false)
	if err != nil {
		return Record{}, err
	}

	if err := osdmem.WriteWord(mem, site, r.NewWord); err != nil {
		return Record{}, err
	}
	if icache != nil {
		icache.Invalidate(site, 4)
	}
	return r, nil
}
