package back

import (
	"github.com/slowlang/henlo/compiler/asm/henlo"
)

type (
	// Buffer is the growable code store of the function being compiled.
	Buffer struct {
		b []byte
	}
)

func (b *Buffer) Append(p ...byte) { b.b = append(b.b, p...) }

// Overwrite replaces already emitted bytes at off.
func (b *Buffer) Overwrite(off int, p []byte) error {
	if off < 0 || off+len(p) > len(b.b) {
		return &LedgerError{Label: -1, Offset: off, Reason: "overwrite past the end of code"}
	}

	copy(b.b[off:], p)

	return nil
}

func (b *Buffer) Len() int { return len(b.b) }

// Bytes returns the buffer contents without transferring them.
func (b *Buffer) Bytes() []byte { return b.b }

// Take transfers the contents to the caller and leaves the buffer empty.
func (b *Buffer) Take() []byte {
	r := b.b
	b.b = nil

	return r
}

func (b *Buffer) truncate(n int) { b.b = b.b[:n] }

// Encoder emitters. Each writes one instruction word and returns its size.

func (b *Buffer) R3(op henlo.Opcode, r1, r2, r3 henlo.Reg) int {
	return b.word(henlo.EncodeR3(op, r1, r2, r3))
}

func (b *Buffer) RI(op henlo.Opcode, r1 henlo.Reg, imm int) int {
	return b.word(henlo.EncodeRI(op, r1, imm))
}

func (b *Buffer) R2F(op henlo.Opcode, r1, r2 henlo.Reg, flag bool) int {
	return b.word(henlo.EncodeR2F(op, r1, r2, flag))
}

func (b *Buffer) R3F(op henlo.Opcode, r1, r2, r3 henlo.Reg, flags uint8) int {
	return b.word(henlo.EncodeR3F(op, r1, r2, r3, flags))
}

func (b *Buffer) word(w uint16) int {
	b.b = henlo.AppendWord(b.b, w)

	return henlo.WordSize
}
