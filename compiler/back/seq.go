package back

import (
	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/ir"
)

// Immediates are 16 bit. Negative values are taken as two's complement.
const (
	minImm = -0x8000
	maxImm = 0xffff
)

// loadImm leaves n in dst using only 9-bit immediate instructions
// and returns the number of bytes emitted: 2, 4, 6 or 8.
func (b *Buffer) loadImm(dst henlo.Reg, n uint16) (size int) {
	hi, lo := int(n>>8), int(n&0xff)

	size += b.R3(henlo.XOR, dst, dst, dst)

	if hi != 0 {
		size += b.RI(henlo.ADDI, dst, hi)
		size += b.RI(henlo.MULI, dst, 256)
	}

	if lo != 0 {
		size += b.RI(henlo.ADDI, dst, lo)
	}

	return size
}

// LoadImm is the Sequencer entry point.
func (b *Buffer) LoadImm(dst henlo.Reg, n int64) (int, error) {
	v, err := imm16(0, "immediate", n)
	if err != nil {
		return 0, err
	}

	return b.loadImm(dst, v), nil
}

// reserve emits a zero filled placeholder for a wide load and returns its offset.
func (b *Buffer) reserve() int {
	off := b.Len()

	var z [henlo.WideLoadLen]byte
	b.Append(z[:]...)

	return off
}

func imm16(op ir.Op, what string, n int64) (uint16, error) {
	if n < minImm || n > maxImm {
		return 0, overflow(op, what, n, 16)
	}

	return uint16(n), nil
}

// FitsImm reports whether n fits a signed immediate field of the given width.
// The allocator uses it for slots marked with Imm.
func FitsImm(bits int, n int64) bool {
	switch {
	case bits <= 0:
		return false
	case bits >= 64:
		return true
	}

	max := int64(1)<<(bits-1) - 1

	return n <= max && n+1 >= -max
}
