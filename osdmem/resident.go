package osdmem

// Resident hands out memory in the region that belongs to the patcher itself.
// Nothing is ever freed, the whole region is discarded with the image.
type Resident struct {
	MemoryRegion

	allocAddr Address
	LogFunc   LogFunc
}

func NewResident(base Address, size int, logFunc LogFunc) *Resident {
	return &Resident{
		MemoryRegion: NewRegion(RegionResident, base, make([]byte, size)),
		allocAddr:    base,
		LogFunc:      logFunc,
	}
}

func (h *Resident) Alloc(length int) (Address, error) {
	length = (length + 3) &^ 3

	addr := h.allocAddr
	if !RegionContains(h, addr, length) {
		return 0, ErrorResidentFull
	}
	h.allocAddr = addr.Add(length)

	if h.LogFunc != nil {
		h.LogFunc(3, "Allocated %d resident bytes at %s", length, addr)
	}
	return addr, nil
}

func (h *Resident) AllocWords(words ...uint32) (Address, error) {
	addr, err := h.Alloc(4 * len(words))
	if err != nil {
		return 0, err
	}
	return addr, WriteWords(h, addr, words)
}

// AllocString stores s with its terminator and returns its address.
func (h *Resident) AllocString(s string) (Address, error) {
	addr, err := h.Alloc(len(s) + 1)
	if err != nil {
		return 0, err
	}
	return addr, WriteString(h, addr, s, len(s)+1)
}

func (h *Resident) Used() int {
	return int(h.allocAddr - h.GetBase())
}

// Bytes returns a copy of the allocated part of the region.
func (h *Resident) Bytes() []byte {
	buf := make([]byte, h.Used())
	h.Access(false, h.GetBase(), buf)
	return buf
}
