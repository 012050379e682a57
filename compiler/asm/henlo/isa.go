package henlo

type (
	Reg     uint8
	RegMask uint16
	Opcode  uint8
	Format  uint8

	// Inst is a decoded instruction word.
	Inst struct {
		Op         Opcode
		R1, R2, R3 Reg
		Imm        int
		Flags      uint8
	}
)

const (
	R0 Reg = iota
	R1
	R2
	CMP // comparison result and call scratch
	FP
	ACC // accumulator
	SP
	PC

	NumRegs = 8
)

const (
	// TmpRegs is the allocator pool.
	TmpRegs RegMask = 1<<R0 | 1<<R1 | 1<<R2

	// SaveRegs may be preserved by a function prologue.
	SaveRegs RegMask = 1<<R1 | 1<<R2

	RetReg = R0
)

const (
	WordSize = 2

	// WideLoadLen is the size of a fixed-width 16-bit constant load.
	WideLoadLen = 4 * WordSize
)

const (
	ADD Opcode = iota
	ADDI
	MUL
	MULI
	LD
	ST
	AND
	OR
	XOR
	NEG
	MOV
	BR
	JMP
	SOV

	NumOpcodes
)

const (
	FormatR3  Format = iota // op r1 r2 r3
	FormatRI                // op r1 imm9
	FormatR2F               // op r1 r2 flag
	FormatR3F               // op r1 r2 r3 flags3
)

// ADD flags.
const (
	FlagCapture = 1 << iota // update the indicator
	FlagSigned              // indicator is sign of the exact sum instead of carry
)

// Single flag bit meaning per opcode.
const (
	FlagByte     = 1 // LD, ST
	FlagNonZero  = 1 // BR: branch if r1 != 0
	FlagAbsolute = 1 // JMP: target is r1 itself
)

var formats = [NumOpcodes]Format{
	ADD:  FormatR3F,
	ADDI: FormatRI,
	MUL:  FormatR3,
	MULI: FormatRI,
	LD:   FormatR2F,
	ST:   FormatR2F,
	AND:  FormatR3,
	OR:   FormatR3,
	XOR:  FormatR3,
	NEG:  FormatR2F,
	MOV:  FormatR2F,
	BR:   FormatR2F,
	JMP:  FormatR2F,
	SOV:  FormatR2F,
}

var opNames = [NumOpcodes]string{"add", "addi", "mul", "muli", "ld", "st", "and", "or", "xor", "neg", "mov", "br", "jmp", "sov"}

var regNames = [NumRegs]string{"r0", "r1", "r2", "cmp", "fp", "acc", "sp", "pc"}

func (op Opcode) Format() Format {
	if !op.Valid() {
		return FormatR3
	}

	return formats[op]
}

func (op Opcode) Valid() bool { return op < NumOpcodes }

func (op Opcode) String() string {
	if !op.Valid() {
		return "op?"
	}

	return opNames[op]
}

func (r Reg) String() string {
	return regNames[r&7]
}

func (m RegMask) Has(r Reg) bool { return r < NumRegs && m&(1<<r) != 0 }

// Regs lists the members of m in ascending order.
func (m RegMask) Regs() []Reg {
	var r []Reg

	for i := Reg(0); i < NumRegs; i++ {
		if m.Has(i) {
			r = append(r, i)
		}
	}

	return r
}

func ParseReg(s string) (Reg, bool) {
	for i, n := range regNames {
		if n == s {
			return Reg(i), true
		}
	}

	return 0, false
}
