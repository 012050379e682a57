package henlo

import (
	"github.com/nikandfor/hacked/hfmt"
)

func (i Inst) String() string {
	return string(i.AppendText(nil))
}

// AppendText appends assembly text for i.
func (i Inst) AppendText(b []byte) []byte {
	b = hfmt.Appendf(b, "%-5v", i.Op)

	switch i.Op {
	case ADD:
		b = hfmt.Appendf(b, "%v, %v, %v", i.R1, i.R2, i.R3)

		if i.Flags&FlagCapture != 0 {
			b = append(b, ", c"...)
		}

		if i.Flags&FlagSigned != 0 {
			b = append(b, ", s"...)
		}
	case MUL, AND, OR, XOR:
		b = hfmt.Appendf(b, "%v, %v, %v", i.R1, i.R2, i.R3)
	case ADDI, MULI:
		b = hfmt.Appendf(b, "%v, %d", i.R1, i.Imm)
	case LD:
		b = hfmt.Appendf(b, "%v, [%v]", i.R1, i.R2)
	case ST:
		b = hfmt.Appendf(b, "[%v], %v", i.R2, i.R1)
	case NEG, MOV:
		b = hfmt.Appendf(b, "%v, %v", i.R1, i.R2)
	case BR:
		cond := "z"
		if i.Flags&FlagNonZero != 0 {
			cond = "nz"
		}

		b = hfmt.Appendf(b, "%v, %v, %s", i.R1, i.R2, cond)
	case JMP:
		b = hfmt.Appendf(b, "%v", i.R1)

		if i.Flags&FlagAbsolute != 0 {
			b = append(b, ", abs"...)
		}
	case SOV:
		b = hfmt.Appendf(b, "%v", i.R1)
	}

	if (i.Op == LD || i.Op == ST) && i.Flags&FlagByte != 0 {
		b = append(b, ", b"...)
	}

	return b
}

// Disasm appends one line per instruction word.
// Addresses are printed relative to base.
func Disasm(b, code []byte, base int) []byte {
	for off := 0; off+WordSize <= len(code); off += WordSize {
		w := uint16(code[off])<<8 | uint16(code[off+1])

		b = hfmt.Appendf(b, "%04x:  %04x  ", base+off, w)

		i, err := Decode(w)
		if err != nil {
			b = append(b, ".word\n"...)
			continue
		}

		b = i.AppendText(b)
		b = append(b, '\n')
	}

	if len(code)%WordSize != 0 {
		b = hfmt.Appendf(b, "%04x:  %02x    .byte\n", base+len(code)-1, code[len(code)-1])
	}

	return b
}
