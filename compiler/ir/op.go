package ir

import (
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Op is an architecture-neutral operation.
	//
	//	bits  0..3   sub-operation within the class (or comparison condition)
	//	bits  4..7   class
	//	bits  8..11  operand kind, at most one bit set
	//	bits 16..23  type tag
	Op uint32

	Class uint8
	Kind  uint32
	Type  uint8
	Cond  uint8
)

const (
	subMask   = 0x0000000f
	classMask = 0x000000f0
	kindMask  = 0x00000f00
	typeMask  = 0x00ff0000

	classShift = 4
	typeShift  = 16
)

const (
	ClassInvalid Class = iota
	ClassAdd           // add sub and or xor
	ClassShift         // shl shr
	ClassMul           // mul div mod
	ClassCmp           // set register to comparison result
	ClassUnary         // neg not lnot
	ClassMov
	ClassLoad
	ClassStore
	ClassMem // mset mcpy
	ClassCall
	ClassRet
	ClassJmp
	ClassJZ  // jz jnz
	ClassJCC // conditional jump on comparison

	NumClasses
)

// Operand kinds. Reg is the absence of the other bits.
const (
	Reg Kind = 0
	Num Kind = 0x100
	Loc Kind = 0x200
	Sym Kind = 0x400
)

const (
	TSize   Type = 0x0f
	TSigned Type = 0x10

	U8  = Type(1)
	I8  = Type(1) | TSigned
	U16 = Type(2)
	I16 = Type(2) | TSigned
)

const (
	LT Cond = iota
	GE
	EQ
	NE
	LE
	GT

	numConds
)

const (
	ADD = Op(ClassAdd)<<classShift | iota
	SUB
	AND
	OR
	XOR
)

const (
	SHL = Op(ClassShift)<<classShift | iota
	SHR
)

const (
	MUL = Op(ClassMul)<<classShift | iota
	DIV
	MOD
)

const (
	NEG = Op(ClassUnary)<<classShift | iota
	NOT
	LNOT
)

const (
	MSET = Op(ClassMem)<<classShift | iota
	MCPY
)

const (
	JZ = Op(ClassJZ)<<classShift | iota
	JNZ
)

const (
	CMP  = Op(ClassCmp) << classShift
	MOV  = Op(ClassMov) << classShift
	LD   = Op(ClassLoad) << classShift
	ST   = Op(ClassStore) << classShift
	CALL = Op(ClassCall) << classShift
	RET  = Op(ClassRet) << classShift
	JMP  = Op(ClassJmp) << classShift
	JCC  = Op(ClassJCC) << classShift
)

var subCount = [NumClasses]int{
	ClassAdd:   5,
	ClassShift: 2,
	ClassMul:   3,
	ClassCmp:   int(numConds),
	ClassUnary: 3,
	ClassMov:   1,
	ClassLoad:  1,
	ClassStore: 1,
	ClassMem:   2,
	ClassCall:  1,
	ClassRet:   1,
	ClassJmp:   1,
	ClassJZ:    2,
	ClassJCC:   int(numConds),
}

var names = map[Op]string{
	ADD: "add", SUB: "sub", AND: "and", OR: "or", XOR: "xor",
	SHL: "shl", SHR: "shr",
	MUL: "mul", DIV: "div", MOD: "mod",
	NEG: "neg", NOT: "not", LNOT: "lnot",
	MOV: "mov", LD: "ld", ST: "st",
	MSET: "mset", MCPY: "mcpy",
	CALL: "call", RET: "ret", JMP: "jmp",
	JZ: "jz", JNZ: "jnz",
}

var condNames = [numConds]string{"lt", "ge", "eq", "ne", "le", "gt"}

var classNames = [NumClasses]string{"invalid", "add", "shift", "mul", "cmp", "unary", "mov", "load", "store", "mem", "call", "ret", "jmp", "jz", "jcc"}

func Set(c Cond) Op  { return CMP | Op(c) }
func Jump(c Cond) Op { return JCC | Op(c) }

func (op Op) Class() Class { return Class(op & classMask >> classShift) }
func (op Op) Sub() int     { return int(op & subMask) }
func (op Op) Kind() Kind   { return Kind(op & kindMask) }
func (op Op) Type() Type   { return Type(op & typeMask >> typeShift) }

// Base strips the operand kind and the type tag.
func (op Op) Base() Op { return op &^ (kindMask | typeMask) }

func (op Op) With(k Kind) Op  { return op&^kindMask | Op(k)&kindMask }
func (op Op) Typed(t Type) Op { return op&^typeMask | Op(t)<<typeShift }

// Cond is meaningful for ClassCmp and ClassJCC ops only.
func (op Op) Cond() Cond { return Cond(op.Sub()) }

func (op Op) IsJump() bool {
	switch op.Class() {
	case ClassJmp, ClassJZ, ClassJCC:
		return true
	}

	return false
}

// Check reports whether op is a well-formed encoding.
func (op Op) Check() error {
	c := op.Class()
	if c == ClassInvalid || c >= NumClasses {
		return errors.New("bad op class: %#x", uint32(op))
	}

	if op.Sub() >= subCount[c] {
		return errors.New("bad %v sub-op: %d", c, op.Sub())
	}

	switch op.Kind() {
	case Reg, Num, Loc, Sym:
	default:
		return errors.New("ambiguous operand kind: %#x", uint32(op.Kind()))
	}

	if op&^(subMask|classMask|kindMask|typeMask) != 0 {
		return errors.New("reserved op bits set: %#x", uint32(op))
	}

	return nil
}

func (op Op) String() string {
	var b strings.Builder

	switch c := op.Class(); c {
	case ClassCmp:
		b.WriteString(op.Cond().String())
	case ClassJCC:
		b.WriteString("j" + op.Cond().String())
	default:
		n, ok := names[op.Base()]
		if !ok {
			n = c.String() + "?"
		}

		b.WriteString(n)
	}

	if k := op.Kind(); k != Reg {
		b.WriteString("." + k.String())
	}

	if t := op.Type(); t != 0 {
		b.WriteString(":" + t.String())
	}

	return b.String()
}

func (op Op) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, op.String())
}

// ParseOp parses the form printed by Op.String: name[.kind][:type].
// The type defaults to I16.
func ParseOp(s string) (op Op, err error) {
	name, typ, hasType := strings.Cut(s, ":")
	name, kind, hasKind := strings.Cut(name, ".")

	op, err = parseName(name)
	if err != nil {
		return 0, err
	}

	if hasKind {
		k, err := ParseKind(kind)
		if err != nil {
			return 0, errors.Wrap(err, "op %q", s)
		}

		op = op.With(k)
	}

	t := I16

	if hasType {
		t, err = ParseType(typ)
		if err != nil {
			return 0, errors.Wrap(err, "op %q", s)
		}
	}

	return op.Typed(t), nil
}

func parseName(name string) (Op, error) {
	for op, n := range names {
		if n == name {
			return op, nil
		}
	}

	for c, n := range condNames {
		if n == name {
			return Set(Cond(c)), nil
		}

		if "j"+n == name {
			return Jump(Cond(c)), nil
		}
	}

	return 0, errors.New("unknown op: %q", name)
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "reg", "":
		return Reg, nil
	case "num":
		return Num, nil
	case "loc":
		return Loc, nil
	case "sym":
		return Sym, nil
	}

	return 0, errors.New("unknown operand kind: %q", s)
}

func ParseType(s string) (Type, error) {
	switch s {
	case "i8":
		return I8, nil
	case "u8":
		return U8, nil
	case "i16":
		return I16, nil
	case "u16":
		return U16, nil
	}

	return 0, errors.New("unknown type: %q", s)
}

func (c Class) String() string {
	if c >= NumClasses {
		return "class?"
	}

	return classNames[c]
}

func (k Kind) String() string {
	switch k {
	case Reg:
		return "reg"
	case Num:
		return "num"
	case Loc:
		return "loc"
	case Sym:
		return "sym"
	}

	return "kind?"
}

// Size is the operand width in bytes. Zero means a machine word.
func (t Type) Size() int     { return int(t & TSize) }
func (t Type) Signed() bool  { return t&TSigned != 0 }
func (t Type) Byte() bool    { return t.Size() == 1 }
func (t Type) String() string {
	s := "u"
	if t.Signed() {
		s = "i"
	}

	switch t.Size() {
	case 1:
		return s + "8"
	case 2, 0:
		return s + "16"
	}

	return s + "?"
}

func (c Cond) String() string {
	if c >= numConds {
		return "cond?"
	}

	return condNames[c]
}

// Relational conditions order their operands; EQ and NE do not.
func (c Cond) Relational() bool {
	return c != EQ && c != NE
}

// Ops enumerates every well-formed op for the given type tag:
// each class, sub-operation and operand kind.
func Ops(t Type) []Op {
	var r []Op

	for c := ClassAdd; c < NumClasses; c++ {
		for sub := 0; sub < subCount[c]; sub++ {
			for _, k := range []Kind{Reg, Num, Loc, Sym} {
				op := Op(c)<<classShift | Op(sub)
				r = append(r, op.With(k).Typed(t))
			}
		}
	}

	return r
}
