// Package emu interprets Henlo machine code.
package emu

import (
	"encoding/binary"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
)

type (
	Machine struct {
		Regs [henlo.NumRegs]uint16

		// Ind is the indicator set by capturing adds.
		Ind bool

		Mem []byte

		Steps int
	}
)

var ErrStepLimit = errors.New("step limit exceeded")

func New(memSize int) *Machine {
	return &Machine{
		Mem: make([]byte, memSize),
	}
}

func (m *Machine) PC() uint16 { return m.Regs[henlo.PC] }

func (m *Machine) Load(addr int, code []byte) error {
	if addr < 0 || addr+len(code) > len(m.Mem) {
		return errors.New("load %d bytes at %#x: out of memory", len(code), addr)
	}

	copy(m.Mem[addr:], code)

	return nil
}

// Push stores v on the stack like the Henlo push sequence does.
func (m *Machine) Push(v uint16) error {
	m.Regs[henlo.SP] -= henlo.WordSize

	return m.store(m.Regs[henlo.SP], v, false)
}

// Run executes until PC reaches stop or limit instructions have run.
func (m *Machine) Run(stop uint16, limit int) error {
	for m.PC() != stop {
		if limit >= 0 && m.Steps >= limit {
			return errors.Wrap(ErrStepLimit, "pc %#x", m.PC())
		}

		if err := m.Step(); err != nil {
			return err
		}
	}

	return nil
}

func (m *Machine) Step() (err error) {
	pc := m.PC()

	w, err := m.load(pc, false)
	if err != nil {
		return errors.Wrap(err, "fetch")
	}

	i, err := henlo.Decode(w)
	if err != nil {
		return errors.Wrap(err, "pc %#x", pc)
	}

	if tlog.If("emu_trace") {
		tlog.Printw("step", "pc", pc, "inst", i.String(), "regs", m.Regs[:], "ind", m.Ind)
	}

	next := pc + henlo.WordSize
	m.Steps++

	r := func(x henlo.Reg) uint16 {
		return m.Regs[x]
	}

	set := func(x henlo.Reg, v uint16) {
		if x == henlo.PC {
			next = v
			return
		}

		m.Regs[x] = v
	}

	switch i.Op {
	case henlo.ADD:
		a, b := r(i.R2), r(i.R3)

		if i.Flags&henlo.FlagCapture != 0 {
			if i.Flags&henlo.FlagSigned != 0 {
				m.Ind = int32(int16(a))+int32(int16(b)) < 0
			} else {
				m.Ind = uint32(a)+uint32(b) > 0xffff
			}
		}

		set(i.R1, a+b)
	case henlo.ADDI:
		set(i.R1, r(i.R1)+uint16(i.Imm))
	case henlo.MUL:
		set(i.R1, r(i.R2)*r(i.R3))
	case henlo.MULI:
		set(i.R1, r(i.R1)*uint16(i.Imm))
	case henlo.AND:
		set(i.R1, r(i.R2)&r(i.R3))
	case henlo.OR:
		set(i.R1, r(i.R2)|r(i.R3))
	case henlo.XOR:
		set(i.R1, r(i.R2)^r(i.R3))
	case henlo.NEG:
		set(i.R1, -r(i.R2))
	case henlo.MOV:
		set(i.R1, r(i.R2))
	case henlo.LD:
		v, err := m.load(r(i.R2), i.Flags&henlo.FlagByte != 0)
		if err != nil {
			return errors.Wrap(err, "pc %#x", pc)
		}

		set(i.R1, v)
	case henlo.ST:
		err = m.store(r(i.R2), r(i.R1), i.Flags&henlo.FlagByte != 0)
		if err != nil {
			return errors.Wrap(err, "pc %#x", pc)
		}
	case henlo.BR:
		if (r(i.R1) != 0) == (i.Flags&henlo.FlagNonZero != 0) {
			next = pc + r(i.R2)*henlo.WordSize
		}
	case henlo.JMP:
		if i.Flags&henlo.FlagAbsolute != 0 {
			next = r(i.R1)
		} else {
			next = pc + r(i.R1)*henlo.WordSize
		}
	case henlo.SOV:
		var v uint16
		if m.Ind {
			v = 1
		}

		set(i.R1, v)
	default:
		return errors.New("pc %#x: unhandled opcode %v", pc, i.Op)
	}

	m.Regs[henlo.PC] = next

	return nil
}

func (m *Machine) load(addr uint16, byt bool) (uint16, error) {
	a := int(addr)

	if byt {
		if a >= len(m.Mem) {
			return 0, errors.New("load byte at %#x: out of memory", a)
		}

		return uint16(m.Mem[a]), nil
	}

	if a+henlo.WordSize > len(m.Mem) {
		return 0, errors.New("load word at %#x: out of memory", a)
	}

	return binary.BigEndian.Uint16(m.Mem[a:]), nil
}

func (m *Machine) store(addr, v uint16, byt bool) error {
	a := int(addr)

	if byt {
		if a >= len(m.Mem) {
			return errors.New("store byte at %#x: out of memory", a)
		}

		m.Mem[a] = byte(v)

		return nil
	}

	if a+henlo.WordSize > len(m.Mem) {
		return errors.New("store word at %#x: out of memory", a)
	}

	binary.BigEndian.PutUint16(m.Mem[a:], v)

	return nil
}
