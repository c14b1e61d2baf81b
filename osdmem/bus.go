package osdmem

import (
	"sort"
	"strings"
)

// Bus dispatches absolute addresses to the regions mapped on it. It is the
// view the patcher has of the console's address space.
type Bus struct {
	regions []MemoryRegion
}

func NewBus(regions ...MemoryRegion) (*Bus, error) {
	b := &Bus{}
	for _, m := range regions {
		if err := b.Map(m); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Bus) Map(region MemoryRegion) error {
	for _, m := range b.regions {
		if region.GetBase() < RegionEnd(m) && m.GetBase() < RegionEnd(region) {
			return ErrorOverlap
		}
	}

	b.regions = append(b.regions, region)
	sort.Slice(b.regions, func(i, j int) bool {
		return b.regions[i].GetBase() < b.regions[j].GetBase()
	})
	return nil
}

func (b *Bus) RegionList() []RegionNameType {
	var list []RegionNameType
	for _, m := range b.regions {
		list = append(list, m.GetName())
	}
	return list
}

func (b *Bus) RegionGet(name RegionNameType) MemoryRegion {
	t := RegionNameType(strings.ToUpper(string(name)))
	for _, m := range b.regions {
		if m.GetName() == t {
			return m
		}
	}
	return nil
}

func (b *Bus) regionAt(addr Address) MemoryRegion {
	for _, m := range b.regions {
		if addr >= m.GetBase() && addr < RegionEnd(m) {
			return m
		}
	}
	return nil
}

func (b *Bus) GetName() RegionNameType {
	return RegionBus
}

func (b *Bus) GetBase() Address {
	if len(b.regions) == 0 {
		return 0
	}
	return b.regions[0].GetBase()
}

func (b *Bus) GetLength() int {
	if len(b.regions) == 0 {
		return 0
	}
	return int(RegionEnd(b.regions[len(b.regions)-1]) - b.GetBase())
}

func (b *Bus) GetParent() MemoryRegion {
	return nil
}

// Access may not span two regions, menu structures never do.
func (b *Bus) Access(write bool, addr Address, buf []byte) (int, error) {
	region := b.regionAt(addr)
	if region == nil {
		return 0, ErrorUnmapped
	}

	return region.Access(write, addr, buf)
}

// Mapped reports whether [addr, addr+length) lies inside a single region.
func (b *Bus) Mapped(addr Address, length int) bool {
	region := b.regionAt(addr)
	return region != nil && RegionContains(region, addr, length)
}
