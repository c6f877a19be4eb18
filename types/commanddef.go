package types

import "strings"

// CommandDefinition is a named template identifying one command: a base
// byte sequence and an equal-length mask, matched byte-for-byte as
// (input[i] & Mask[i]) == Base[i].
type CommandDefinition struct {
	Name string
	Base []byte
	Mask []byte

	// EndType says whether a command built from this definition
	// terminates the script it appears in.
	EndType EndType

	// Prints marks a glyph-producing command that belongs inside a text
	// box (as opposed to a structural/control command).
	Prints bool

	// MugshotParameterName names a scalar parameter whose value selects
	// the active portrait. Empty means "hides mugshot".
	MugshotParameterName string

	// RewindCount is how many bytes to back up the stream after emitting
	// this command, letting it overlap the next command's base bytes.
	RewindCount int

	// PriorityLength is carried for round-trip fidelity only; no
	// matching logic consults it (see DESIGN.md's Open Question note).
	PriorityLength int

	Elements []CommandElementDefinition
}

// MinimumLength is the number of bytes this definition's fixed base
// occupies.
func (d *CommandDefinition) MinimumLength() int {
	return len(d.Base)
}

// MatchesPrefix reports whether the bytes seen so far are still
// consistent with this definition: every byte already read agrees with
// Base under Mask, and the sequence hasn't yet outgrown the definition's
// fixed part.
func (d *CommandDefinition) MatchesPrefix(seq []byte) bool {
	if len(seq) > d.MinimumLength() {
		return false
	}
	for i, b := range seq {
		if (b & d.Mask[i]) != d.Base[i] {
			return false
		}
	}
	return true
}

// FindElement returns the element definition with the given name
// (case-insensitive), or nil.
func (d *CommandDefinition) FindElement(name string) *CommandElementDefinition {
	for i := range d.Elements {
		if strings.EqualFold(d.Elements[i].Name, name) {
			return &d.Elements[i]
		}
	}
	return nil
}

// MugshotParameter resolves MugshotParameterName to the scalar parameter
// definition it names, per the invariant that it must live in some
// element without multiple data entries. Returns nil if
// MugshotParameterName is empty or unresolved.
func (d *CommandDefinition) MugshotParameter() *ParameterDefinition {
	if d.MugshotParameterName == "" {
		return nil
	}
	for i := range d.Elements {
		el := &d.Elements[i]
		if el.HasMultipleDataEntries() {
			continue
		}
		for j := range el.ScalarParams {
			if strings.EqualFold(el.ScalarParams[j].Name, d.MugshotParameterName) {
				return &el.ScalarParams[j]
			}
		}
	}
	return nil
}
