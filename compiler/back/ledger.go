package back

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/henlo/compiler/ir"
)

type (
	// Ledger records every code offset of the function being compiled:
	// label positions, pending jump placeholders and relocations.
	// All offsets are moved together by Rebase.
	Ledger struct {
		labels []int
		jumps  []Jump
		relocs []Reloc
	}

	Jump struct {
		Off   int // placeholder offset
		Label int
		Op    ir.Op
	}

	Reloc struct {
		Sym   int64
		Flags RelocFlags
		Off   int
	}

	RelocFlags uint32

	ledgerMark struct {
		jumps, relocs int
	}
)

const (
	RelocCode     RelocFlags = 1 << iota // reference lives in the code section
	RelocRelative                        // pc-relative reference
)

// ExitLabel is where the epilogue begins. Front end labels are shifted by one.
const ExitLabel = 0

const noLabel = -1

func (l *Ledger) SetLabel(id, off int) {
	l.labels = sliceSet(l.labels, id, off, noLabel)

	tlog.V("ledger").Printw("label", "id", id, "off", off, "from", loc.Caller(1))
}

func (l *Ledger) Label(id int) (off int, ok bool) {
	if id < 0 || id >= len(l.labels) || l.labels[id] == noLabel {
		return 0, false
	}

	return l.labels[id], true
}

func (l *Ledger) AddJump(j Jump) {
	l.jumps = append(l.jumps, j)

	tlog.V("ledger").Printw("jump", "off", j.Off, "label", j.Label, "op", j.Op, "from", loc.Caller(1))
}

func (l *Ledger) AddReloc(r Reloc) {
	l.relocs = append(l.relocs, r)

	tlog.V("ledger").Printw("reloc", "sym", r.Sym, "flags", r.Flags, "off", r.Off, "from", loc.Caller(1))
}

func (l *Ledger) Jumps() []Jump   { return l.jumps }
func (l *Ledger) Relocs() []Reloc { return l.relocs }

// Labels returns the recorded label offsets indexed by id, -1 for undeclared ids.
func (l *Ledger) Labels() []int { return l.labels }

// Rebase moves every recorded offset by delta.
func (l *Ledger) Rebase(delta int) {
	for i, off := range l.labels {
		if off != noLabel {
			l.labels[i] = off + delta
		}
	}

	for i := range l.jumps {
		l.jumps[i].Off += delta
	}

	for i := range l.relocs {
		l.relocs[i].Off += delta
	}
}

// TakeRelocs transfers the relocation table and leaves it empty.
func (l *Ledger) TakeRelocs() []Reloc {
	r := l.relocs
	l.relocs = nil

	return r
}

func (l *Ledger) Reset() {
	l.labels = l.labels[:0]
	l.jumps = l.jumps[:0]
	l.relocs = nil
}

func (l *Ledger) mark() ledgerMark {
	return ledgerMark{jumps: len(l.jumps), relocs: len(l.relocs)}
}

func (l *Ledger) rollback(m ledgerMark) {
	l.jumps = l.jumps[:m.jumps]
	l.relocs = l.relocs[:m.relocs]
}

func (j Jump) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKeyInt(b, "off", j.Off)
	b = e.AppendKeyInt(b, "label", j.Label)
	b = e.AppendKey(b, "op")
	b = e.AppendString(b, j.Op.String())

	return b
}

func (r Reloc) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKeyInt64(b, "sym", r.Sym)
	b = e.AppendKeyInt(b, "flags", int(r.Flags))
	b = e.AppendKeyInt(b, "off", r.Off)

	return b
}
