package types

// CommandElementDefinition is a named grouping of parameter definitions
// inside a command. An element either carries a fixed set of scalar
// parameters, or a repeated "data entry" (optionally split across
// several data groups) counted by LengthParam, or both.
type CommandElementDefinition struct {
	Name string

	// ScalarParams are read/written once per command, in declaration
	// order, independent of any data entries.
	ScalarParams []ParameterDefinition

	// LengthParam, when non-nil, is the parameter that stores how many
	// data entries follow. Its presence is what makes HasMultipleDataEntries
	// true.
	LengthParam *ParameterDefinition

	// DataGroups is the ordered list of parameter-definition groups that
	// make up one data entry's record. Most elements have exactly one
	// group; a split record (e.g. a table whose rows are interleaved
	// with another table) has more than one.
	DataGroups [][]ParameterDefinition
}

// HasMultipleDataEntries reports whether this element is a counted,
// repeated data-entry element rather than a fixed scalar grouping.
func (e *CommandElementDefinition) HasMultipleDataEntries() bool {
	return e.LengthParam != nil && len(e.DataGroups) > 0
}

// FindParam looks up a parameter definition by name anywhere in this
// element: its scalar params, its length param, or any of its data
// groups. Returns nil if not found.
func (e *CommandElementDefinition) FindParam(name string) *ParameterDefinition {
	for i := range e.ScalarParams {
		if e.ScalarParams[i].Name == name {
			return &e.ScalarParams[i]
		}
	}
	if e.LengthParam != nil && e.LengthParam.Name == name {
		return e.LengthParam
	}
	for gi := range e.DataGroups {
		group := e.DataGroups[gi]
		for pi := range group {
			if group[pi].Name == name {
				return &group[pi]
			}
		}
	}
	return nil
}
