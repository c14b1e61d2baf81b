package osdmem

import (
	"debug/elf"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/sigurn/crc16"
)

// Image is the menu program as it sits in memory after loading.
type Image struct {
	MemoryRegion

	data  []byte
	Entry Address
	GP    Address
}

func NewImage(base Address, data []byte) *Image {
	return &Image{
		MemoryRegion: NewRegion(RegionImage, base, data),
		data:         data,
		Entry:        base,
	}
}

// LoadRaw reads a memory dump that starts at base.
func LoadRaw(r io.Reader, base Address) (*Image, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorImageLoad, err)
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: dump size %d is not a whole number of words", ErrorImageLoad, len(data))
	}
	if base < MinLoadAddress || !base.Aligned() {
		return nil, fmt.Errorf("%w: base %s is not a valid load address", ErrorImageLoad, base)
	}

	return NewImage(base, data), nil
}

// LoadELF places all loadable segments the way the console loader does and
// zero fills the gaps and bss.
func LoadELF(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorImageLoad, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("%w: not a 32 bit MIPS executable", ErrorImageLoad)
	}

	var low, high uint64
	first := true
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		if first || p.Vaddr < low {
			low = p.Vaddr
		}
		if first || p.Vaddr+p.Memsz > high {
			high = p.Vaddr + p.Memsz
		}
		first = false
	}
	if first {
		return nil, fmt.Errorf("%w: no loadable segments", ErrorImageLoad)
	}

	base := Address(low)
	if base < MinLoadAddress || Address(high) > MaxLoadAddress {
		return nil, fmt.Errorf("%w: segments %s-%s outside of main memory", ErrorImageLoad, base, Address(high))
	}

	data := make([]byte, (high-low+3)&^3)
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		offset := p.Vaddr - low
		if _, err := io.ReadFull(p.Open(), data[offset:offset+p.Filesz]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrorImageLoad, err)
		}
	}

	img := NewImage(base, data)
	img.Entry = Address(f.Entry)

	/* Stripped images have no symbols, the caller can still pass gp by hand */
	if syms, err := f.Symbols(); err == nil {
		for _, m := range syms {
			if m.Name == "_gp" {
				img.GP = Address(m.Value)
				break
			}
		}
	}

	return img, nil
}

// Bytes returns the backing memory, including any patches applied so far.
func (i *Image) Bytes() []byte {
	return i.data
}

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Fingerprint identifies a menu revision. It is computed over the region
// contents, so patched and unpatched images differ.
func Fingerprint(r MemoryRegion) (uint16, error) {
	buf := make([]byte, r.GetLength())
	if _, err := r.Access(false, r.GetBase(), buf); err != nil {
		return 0, err
	}
	return crc16.Update(0, buf, crcTable), nil
}
