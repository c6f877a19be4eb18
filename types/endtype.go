package types

// EndType says whether executing a command terminates the script it
// belongs to.
type EndType int

const (
	// EndNever means the command can never end a script by itself.
	EndNever EndType = iota
	// EndDefault means the command ends the script unless one of its
	// parameters overrides that (see Command.EndsScript).
	EndDefault
	// EndAlways means the command unconditionally ends the script it
	// appears in; the binary script reader stops after consuming one.
	EndAlways
)

func (e EndType) String() string {
	switch e {
	case EndNever:
		return "Never"
	case EndDefault:
		return "Default"
	case EndAlways:
		return "Always"
	default:
		return "Unknown"
	}
}
