package osdmem

import (
	"encoding/binary"
)

type RegionNameType string

const (
	RegionImage    RegionNameType = "IMAGE"
	RegionResident RegionNameType = "RESIDENT"
	RegionUnpacker RegionNameType = "UNPACKER"
	RegionBus      RegionNameType = "BUS"
)

// MemoryRegion is a window of absolute addresses. Access never touches bytes
// outside [GetBase(), GetBase()+GetLength()).
type MemoryRegion interface {
	GetName() RegionNameType
	GetBase() Address
	GetLength() int
	Access(write bool, addr Address, buf []byte) (int, error)
	GetParent() MemoryRegion
}

func RegionEnd(r MemoryRegion) Address {
	return r.GetBase().Add(r.GetLength())
}

func RegionContains(r MemoryRegion, addr Address, length int) bool {
	if addr < r.GetBase() {
		return false
	}
	return int64(addr)+int64(length) <= int64(RegionEnd(r))
}

type regionMemory struct {
	name     RegionNameType
	base     Address
	data     []byte
	readOnly bool
}

// NewRegion maps data at base. The slice is used directly, writes through
// the region are visible to the caller.
func NewRegion(name RegionNameType, base Address, data []byte) MemoryRegion {
	return &regionMemory{
		name: name,
		base: base,
		data: data,
	}
}

func NewReadOnlyRegion(name RegionNameType, base Address, data []byte) MemoryRegion {
	return &regionMemory{
		name:     name,
		base:     base,
		data:     data,
		readOnly: true,
	}
}

func (m *regionMemory) GetName() RegionNameType {
	return m.name
}

func (m *regionMemory) GetBase() Address {
	return m.base
}

func (m *regionMemory) GetLength() int {
	return len(m.data)
}

func (m *regionMemory) GetParent() MemoryRegion {
	return nil
}

func (m *regionMemory) Access(write bool, addr Address, buf []byte) (int, error) {
	if !RegionContains(m, addr, len(buf)) {
		return 0, ErrorOutOfBounds
	}
	if write && m.readOnly {
		return 0, ErrorWriteNotAllowed
	}

	offset := int(addr - m.base)
	if write {
		return copy(m.data[offset:], buf), nil
	}
	return copy(buf, m.data[offset:]), nil
}

type regionPartial struct {
	parent MemoryRegion
	base   Address
	length int
	name   RegionNameType
}

// Window restricts a region to [base, base+length), clamped to the parent.
// Scoped searches anchored at a previously found address use this.
func Window(parent MemoryRegion, base Address, length int) MemoryRegion {
	if base < parent.GetBase() {
		length -= int(parent.GetBase() - base)
		base = parent.GetBase()
	}
	if end := RegionEnd(parent); int64(base)+int64(length) > int64(end) {
		length = int(int64(end) - int64(base))
	}
	if length < 0 {
		length = 0
	}

	return regionPartial{
		parent: parent,
		base:   base,
		length: length,
		name:   parent.GetName(),
	}
}

func (h regionPartial) GetName() RegionNameType {
	return h.name
}

func (h regionPartial) GetBase() Address {
	return h.base
}

func (h regionPartial) GetLength() int {
	return h.length
}

func (h regionPartial) GetParent() MemoryRegion {
	return h.parent
}

func (h regionPartial) Access(write bool, addr Address, buf []byte) (int, error) {
	if !RegionContains(h, addr, len(buf)) {
		return 0, ErrorOutOfBounds
	}

	return h.parent.Access(write, addr, buf)
}

func RecursiveGetRoot(region MemoryRegion) MemoryRegion {
	for {
		parent := region.GetParent()
		if parent == nil {
			return region
		}
		region = parent
	}
}

func ReadByte(m MemoryRegion, addr Address) (byte, error) {
	var buf [1]byte
	_, err := m.Access(false, addr, buf[:])
	return buf[0], err
}

func WriteByte(m MemoryRegion, addr Address, value byte) error {
	_, err := m.Access(true, addr, []byte{value})
	return err
}

func ReadWord(m MemoryRegion, addr Address) (uint32, error) {
	if !addr.Aligned() {
		return 0, ErrorAlignment
	}

	var buf [4]byte
	if _, err := m.Access(false, addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteWord(m MemoryRegion, addr Address, value uint32) error {
	if !addr.Aligned() {
		return ErrorAlignment
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, err := m.Access(true, addr, buf[:])
	return err
}

func ReadWords(m MemoryRegion, addr Address, count int) ([]uint32, error) {
	if !addr.Aligned() {
		return nil, ErrorAlignment
	}

	buf := make([]byte, 4*count)
	if _, err := m.Access(false, addr, buf); err != nil {
		return nil, err
	}

	result := make([]uint32, count)
	for i := range result {
		result[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return result, nil
}

func WriteWords(m MemoryRegion, addr Address, words []uint32) error {
	if !addr.Aligned() {
		return ErrorAlignment
	}

	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	_, err := m.Access(true, addr, buf)
	return err
}

func ReadHalf(m MemoryRegion, addr Address) (uint16, error) {
	var buf [2]byte
	if _, err := m.Access(false, addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func WriteHalf(m MemoryRegion, addr Address, value uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	_, err := m.Access(true, addr, buf[:])
	return err
}

func ReadDouble(m MemoryRegion, addr Address) (uint64, error) {
	var buf [8]byte
	if _, err := m.Access(false, addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadString reads a NUL terminated string of at most maxLength bytes.
func ReadString(m MemoryRegion, addr Address, maxLength int) (string, error) {
	var result []byte
	for i := 0; i < maxLength; i++ {
		b, err := ReadByte(m, addr.Add(i))
		if err != nil {
			return string(result), err
		}
		if b == 0 {
			break
		}
		result = append(result, b)
	}
	return string(result), nil
}

// WriteString stores s NUL terminated in a buffer of size bytes, truncating
// it when needed.
func WriteString(m MemoryRegion, addr Address, s string, size int) error {
	if size <= 0 {
		return nil
	}
	if len(s) > size-1 {
		s = s[:size-1]
	}

	buf := make([]byte, len(s)+1)
	copy(buf, s)
	_, err := m.Access(true, addr, buf)
	return err
}
