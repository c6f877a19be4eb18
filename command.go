package romscript

import "github.com/zedseven/romscript/types"

// Parameter is a decoded parameter instance: the definition it came
// from, its integer value (already bias-adjusted), the raw bytes its
// bit window occupied, and (when the definition names a value-encoding
// table that was available) the text that table decodes it to.
type Parameter struct {
	Def   *types.ParameterDefinition
	Value int64
	Bytes []byte
	Text  string
}

// ParameterEntry is one row of named parameters: a single-row map for a
// scalar element, or one of N rows for a data-entry element.
type ParameterEntry map[string]*Parameter

// ElementInstance is one decoded element of a command: its definition
// plus one entry (scalar elements) or N entries (data-entry elements).
type ElementInstance struct {
	Def     *types.CommandElementDefinition
	Entries []ParameterEntry
}

// Find returns the named parameter from this element's first entry, or
// nil. For data-entry elements, use Entries directly.
func (e *ElementInstance) Find(name string) *Parameter {
	if len(e.Entries) == 0 {
		return nil
	}
	return e.Entries[0][name]
}

// Command is a decoded command instance: the definition it was matched
// against plus its decoded elements, in the definition's declared
// order.
type Command struct {
	Def      *types.CommandDefinition
	Elements []ElementInstance
}

// Element returns the named element instance, or nil.
func (c *Command) Element(name string) *ElementInstance {
	for i := range c.Elements {
		if c.Elements[i].Def != nil && c.Elements[i].Def.Name == name {
			return &c.Elements[i]
		}
	}
	return nil
}

// EndsScript reports whether this command instance terminates its
// script. EndNever never does, EndAlways always does. EndDefault
// terminates unless the command carries an in-range IsJump parameter
// (a branch out of the current script is not a fall-off-the-end, it's a
// redirect, so the script logically continues at the jump target rather
// than ending here).
func (c *Command) EndsScript() bool {
	switch c.Def.EndType {
	case types.EndNever:
		return false
	case types.EndAlways:
		return true
	default: // EndDefault
		for _, el := range c.Elements {
			for _, entry := range el.Entries {
				for _, p := range entry {
					if p.Def.IsJump && p.Def.InRange(p.Value) {
						return false
					}
				}
			}
		}
		return true
	}
}

// copy returns a deep-enough copy of c suitable for MakeValidCommand's
// augmentation: element and entry slices are fresh, parameter pointers
// are shared (parameters are never mutated in place).
func (c *Command) copy() *Command {
	out := &Command{Def: c.Def, Elements: make([]ElementInstance, len(c.Elements))}
	for i, el := range c.Elements {
		entries := make([]ParameterEntry, len(el.Entries))
		for j, entry := range el.Entries {
			ne := make(ParameterEntry, len(entry))
			for k, v := range entry {
				ne[k] = v
			}
			entries[j] = ne
		}
		out.Elements[i] = ElementInstance{Def: el.Def, Entries: entries}
	}
	return out
}
