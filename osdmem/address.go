package osdmem

import "fmt"

// Address is an absolute address in the console's main memory.
type Address uint32

const (
	/* Everything below this belongs to the loader, the menu is never placed there */
	MinLoadAddress Address = 0x00100000
	/* End of the 32MB of main RAM */
	MaxLoadAddress Address = 0x02000000

	ResidentBase Address = 0x000C0000
	ResidentSize         = 0x40000

	UnpackerBase Address = 0x00100000
)

type LogFunc func(level int, format string, param ...interface{})

func (a Address) String() string {
	return fmt.Sprintf("0x%08x", uint32(a))
}

func (a Address) Add(offset int) Address {
	return Address(int64(a) + int64(offset))
}

func (a Address) Aligned() bool {
	return a&3 == 0
}

// InLoadWindow reports whether the address could point into a loaded menu
// image. The bounds are exclusive on both ends.
func (a Address) InLoadWindow() bool {
	return a > MinLoadAddress && a < MaxLoadAddress
}
