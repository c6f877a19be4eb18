package types

import "fmt"

// FormatError is returned when a byte stream does not parse as a valid
// binary script: an unknown opcode, a value outside a parameter's range,
// or an unresolved label at write time.
type FormatError struct {
	Offset int64
	Msg    string
	Val    interface{}
}

func (e *FormatError) Error() string {
	msg := e.Msg
	if e.Val != nil {
		msg += fmt.Sprintf(" %v", e.Val)
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at byte %#x", e.Offset)
	}
	return msg
}

// InvalidInputError is returned when a caller supplies a null/empty name,
// an out-of-range value, an unknown format keyword, or a missing file.
type InvalidInputError struct {
	Field string
	Msg   string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// InconsistencyError is returned when previously-trusted state turns out
// to be self-contradictory: an index entry claims compressed data that
// won't decompress, a patch archive has no matching base command, two
// index entries share an offset.
type InconsistencyError struct {
	Msg string
}

func (e *InconsistencyError) Error() string {
	return e.Msg
}

// IOError has no dedicated type: underlying os/io failures are returned
// and wrapped as-is with fmt.Errorf("...: %w", err), the way the teacher
// wraps os/io failures without inventing a parallel error hierarchy.
