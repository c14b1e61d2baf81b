// Package mips encodes and decodes the handful of R5900 instructions the
// patcher rewrites or reads addresses from.
package mips

import (
	"errors"
	"fmt"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
)

var (
	ErrorNotAligned       = errors.New("Jump target is not word aligned")
	ErrorSegment          = errors.New("Jump target is outside the 256MB segment of the site")
	ErrAddressOutOfRange  = errors.New("Reconstructed address is outside the load window")
	ErrorNotJump          = errors.New("Instruction is not a j or jal")
	ErrorBranchOutOfRange = errors.New("Branch offset does not fit in 16 bits")
)

const (
	OpJ   uint32 = 0x08000000
	OpJAL uint32 = 0x0c000000

	opMask     uint32 = 0xfc000000
	targetMask uint32 = 0x03ffffff

	/* sll zero, zero, 0 */
	Nop uint32 = 0x00000000

	/* jr ra */
	JrRA uint32 = 0x03e00008
)

// Registers used by the generated words.
const (
	RegZero = 0
	RegV0   = 2
	RegV1   = 3
	RegA0   = 4
	RegRA   = 31
)

func encodeJump(op uint32, target, site osdmem.Address) (uint32, error) {
	if target&3 != 0 {
		return 0, fmt.Errorf("%w: %s", ErrorNotAligned, target)
	}
	if (site+4)&0xf0000000 != target&0xf0000000 {
		return 0, fmt.Errorf("%w: %s from %s", ErrorSegment, target, site)
	}
	return op | (uint32(target)&0x0ffffffc)>>2, nil
}

// EncodeJAL returns "jal target" for an instruction placed at site.
func EncodeJAL(target, site osdmem.Address) (uint32, error) {
	return encodeJump(OpJAL, target, site)
}

func EncodeJ(target, site osdmem.Address) (uint32, error) {
	return encodeJump(OpJ, target, site)
}

func IsJAL(w uint32) bool {
	return w&opMask == OpJAL
}

func IsJ(w uint32) bool {
	return w&opMask == OpJ
}

// DecodeTarget returns the destination of a j or jal found at site.
func DecodeTarget(w uint32, site osdmem.Address) osdmem.Address {
	return osdmem.Address((uint32(site)+4)&0xf0000000 | (w&targetMask)<<2)
}

// DecodeJump is DecodeTarget for words that must be jumps.
func DecodeJump(w uint32, site osdmem.Address) (osdmem.Address, error) {
	if !IsJ(w) && !IsJAL(w) {
		return 0, fmt.Errorf("%w: %08x at %s", ErrorNotJump, w, site)
	}
	return DecodeTarget(w, site), nil
}

// Immediate returns the 16 bit immediate field of an I-type instruction.
func Immediate(w uint32) uint16 {
	return uint16(w & 0xffff)
}

// SplitAddress rebuilds an address loaded with lui/ori.
func SplitAddress(hi, lo uint32) osdmem.Address {
	return osdmem.Address(uint32(Immediate(hi))<<16 | uint32(Immediate(lo)))
}

// SplitAddressSigned rebuilds an address loaded with lui/addiu, where the
// low half is sign extended.
func SplitAddressSigned(hi, lo uint32) osdmem.Address {
	return osdmem.Address(int32(uint32(Immediate(hi))<<16) + int32(int16(Immediate(lo))))
}

// ValidateLoadAddress rejects addresses outside (MinLoadAddress, MaxLoadAddress).
func ValidateLoadAddress(addr osdmem.Address) error {
	if !addr.InLoadWindow() {
		return fmt.Errorf("%w: %s", ErrAddressOutOfRange, addr)
	}
	return nil
}

// BranchAlways is "beq zero, zero, offset" with offset counted in words from
// the delay slot.
func BranchAlways(offsetWords int) (uint32, error) {
	if offsetWords < -0x8000 || offsetWords > 0x7fff {
		return 0, fmt.Errorf("%w: %d", ErrorBranchOutOfRange, offsetWords)
	}
	return 0x10000000 | uint32(uint16(int16(offsetWords))), nil
}

// BranchOffset computes the offset BranchAlways needs to go from site to target.
func BranchOffset(site, target osdmem.Address) int {
	return (int(target) - int(site+4)) >> 2
}

// LoadImmediate is "addiu reg, zero, v".
func LoadImmediate(reg int, v int16) uint32 {
	return 0x24000000 | uint32(reg&31)<<16 | uint32(uint16(v))
}

// MoveZero is "daddu reg, zero, zero".
func MoveZero(reg int) uint32 {
	return uint32(reg&31)<<11 | 0x2d
}

// Lui is "lui reg, v".
func Lui(reg int, v uint16) uint32 {
	return 0x3c000000 | uint32(reg&31)<<16 | uint32(v)
}

// Ori is "ori rt, rs, v".
func Ori(rt, rs int, v uint16) uint32 {
	return 0x34000000 | uint32(rs&31)<<21 | uint32(rt&31)<<16 | uint32(v)
}
