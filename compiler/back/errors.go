package back

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/henlo/compiler/ir"
)

type (
	// UnsupportedError is an op, operand kind and type combination
	// with no lowering.
	UnsupportedError struct {
		Op     ir.Op
		Reason string
	}

	// OverflowError is a value not fitting the field it is encoded into.
	OverflowError struct {
		Op    ir.Op
		What  string
		Value int64
		Bits  int
	}

	// LedgerError is an inconsistency between labels, jumps and the code buffer.
	LedgerError struct {
		Label  int
		Offset int
		Reason string
	}
)

var (
	ErrUnsupported = errors.New("unsupported construct")
	ErrOverflow    = errors.New("encoding overflow")
	ErrLedger      = errors.New("ledger inconsistency")
)

func unsupported(op ir.Op, reason string) error {
	return &UnsupportedError{Op: op, Reason: reason}
}

func overflow(op ir.Op, what string, v int64, bits int) error {
	return &OverflowError{Op: op, What: what, Value: v, Bits: bits}
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%v: %v: %s (class %v, operand %v, type %v)", ErrUnsupported, e.Op, e.Reason, e.Op.Class(), e.Op.Kind(), e.Op.Type())
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

func (e *OverflowError) Error() string {
	if e.Op == 0 {
		return fmt.Sprintf("%v: %s %d does not fit %d bits", ErrOverflow, e.What, e.Value, e.Bits)
	}

	return fmt.Sprintf("%v: %v: %s %d does not fit %d bits (class %v, operand %v)", ErrOverflow, e.Op, e.What, e.Value, e.Bits, e.Op.Class(), e.Op.Kind())
}

func (e *OverflowError) Is(target error) bool { return target == ErrOverflow }

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%v: %s (label %d, offset %#x)", ErrLedger, e.Reason, e.Label, e.Offset)
}

func (e *LedgerError) Is(target error) bool { return target == ErrLedger }
