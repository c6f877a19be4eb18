package romscript

import "github.com/zedseven/romscript/types"

// ScriptElement is the sum type of everything that can appear in a
// Script: *Command, *TextElement, *ByteElement, *DirectiveElement.
// Per the teacher's sum-typed Load interface (cmds.go's Load/LoadBytes
// pair), behaviour is computed by type switch (IsPrinted, EndsTextBox,
// SplitsTextBox below) rather than by virtual dispatch, so a new element
// kind is a type plus three one-line cases, not a new interface method
// implemented everywhere.
type ScriptElement interface{}

// TextElement is a run of decoded prose, produced by the lookup-table
// encoding between commands.
type TextElement struct {
	Text string
}

// ByteElement is a single raw byte the command database couldn't match
// against any definition and the lookup-table encoding (if any) couldn't
// decode either.
type ByteElement struct {
	Byte byte
}

// DirectiveElement carries one of the closed set of directive kinds:
// TextArchive, Script, TextBoxSeparator, TextBoxSplit.
type DirectiveElement struct {
	Kind    types.DirectiveKind
	Payload string
}

// IsPrinted reports whether e belongs inside a text box: text, raw
// bytes, or a command whose definition prints glyphs.
func IsPrinted(e ScriptElement) bool {
	switch v := e.(type) {
	case *Command:
		return v.Def.Prints
	case *TextElement:
		return true
	case *ByteElement:
		return true
	default:
		return false
	}
}

// EndsTextBox reports whether e closes a text box: a non-printing
// command, or a separator/script/archive-boundary directive.
func EndsTextBox(e ScriptElement) bool {
	switch v := e.(type) {
	case *Command:
		return !v.Def.Prints
	case *DirectiveElement:
		switch v.Kind {
		case types.DirectiveTextBoxSeparator, types.DirectiveScript, types.DirectiveTextArchive:
			return true
		}
		return false
	default:
		return false
	}
}

// SplitsTextBox reports whether e is a TextBoxSplit directive: the
// engine will render what follows as a second box.
func SplitsTextBox(e ScriptElement) bool {
	d, ok := e.(*DirectiveElement)
	return ok && d.Kind == types.DirectiveTextBoxSplit
}

// Script is an ordered sequence of elements, logically terminated by a
// command whose definition has EndType == Always.
type Script struct {
	Elements     []ScriptElement
	DatabaseName string
}

// TextArchive is an ordered sequence of scripts plus an identifier (a
// hex offset, or a file-stem string for standalone files).
type TextArchive struct {
	Scripts    []*Script
	Identifier string
}
