package romscript

import (
	"fmt"
	"strings"

	"github.com/zedseven/romscript/types"
)

// Patcher splices a translated/edited patch script's text boxes into a
// base script's structure, keeping the base's commands (mugshots, jumps,
// control flow) and replacing only its prose.
type Patcher struct {
	DB *CommandDatabase
}

// textBox is a run of consecutive elements ending with an element for
// which EndsTextBox is true (or, for a script's final box, the
// remaining tail with no terminator at all).
type textBox []ScriptElement

func splitBoxes(elements []ScriptElement) []textBox {
	var boxes []textBox
	var cur textBox
	for _, el := range elements {
		cur = append(cur, el)
		if EndsTextBox(el) {
			boxes = append(boxes, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		boxes = append(boxes, cur)
	}
	return boxes
}

func printedElements(b textBox) []ScriptElement {
	var out []ScriptElement
	for _, el := range b {
		if IsPrinted(el) {
			out = append(out, el)
		}
	}
	return out
}

// commandsOf extracts b's *Command elements in order, dropping text,
// byte and directive elements - the "base text box's commands" the
// placeholder-resolution pool is built from.
func commandsOf(b textBox) []ScriptElement {
	var out []ScriptElement
	for _, el := range b {
		if _, ok := el.(*Command); ok {
			out = append(out, el)
		}
	}
	return out
}

func isEmptyBox(b textBox) bool {
	return len(printedElements(b)) == 0
}

func boxHasSplit(b textBox) bool {
	for _, el := range b {
		if SplitsTextBox(el) {
			return true
		}
	}
	return false
}

// isPlaceholder reports whether cmd is a patch-authored stand-in for a
// base command rather than a fully decoded instance: a placeholder
// carries a name but no base bytes, since a real CommandDefinition
// always has a non-empty Base.
func isPlaceholder(cmd *Command) bool {
	return cmd.Def != nil && len(cmd.Def.Base) == 0
}

// findPoolIndex returns the index of the first command in pool whose
// name matches name case-insensitively, or -1.
func findPoolIndex(pool []ScriptElement, name string) int {
	for i, el := range pool {
		if c, ok := el.(*Command); ok && strings.EqualFold(c.Def.Name, name) {
			return i
		}
	}
	return -1
}

// Patch produces a new script combining base's structure with patch's
// prose. archiveID names the text archive being patched, purely so
// error messages can point back to it.
//
// Each of patch's text boxes corresponds to one of base's, in order.
// An empty patch box (no printed content) merges its base box into the
// next one by dropping the separator directive between them, letting a
// translation use fewer boxes than the original. If a patch box
// contains a text-box-split directive that its corresponding base box
// doesn't have, the database's TextBoxSplitSnippet is spliced in at the
// split point so the base's single ending command still terminates both
// halves. A placeholder command (one with no base bytes, referencing a
// base command by name) is resolved against the base box's own commands
// so parameter values that must come from the ROM context - a jump
// target, a portrait ID - survive untouched. Every structural command in
// the base box must be claimed by exactly one placeholder; a patch box
// that drops one is a hard error, not a silent carry-over.
func (p *Patcher) Patch(base, patch *Script, archiveID string) (*Script, error) {
	if base == nil || patch == nil {
		return nil, &types.InvalidInputError{Field: archiveID, Msg: "patch requires both a base and a patch script"}
	}

	baseBoxes := splitBoxes(base.Elements)
	patchBoxes := splitBoxes(patch.Elements)
	if len(patchBoxes) > len(baseBoxes) {
		return nil, &types.InvalidInputError{Field: archiveID, Msg: "patch has more text boxes than the base script"}
	}

	var out []ScriptElement
	bi := 0
	for _, pbox := range patchBoxes {
		if bi >= len(baseBoxes) {
			return nil, &types.InconsistencyError{Msg: fmt.Sprintf("%s: ran out of base text boxes while applying patch", archiveID)}
		}
		if isEmptyBox(pbox) {
			for _, el := range baseBoxes[bi] {
				if d, ok := el.(*DirectiveElement); ok && d.Kind == types.DirectiveTextBoxSeparator {
					continue
				}
				out = append(out, el)
			}
			bi++
			continue
		}
		merged, err := p.mergeBox(baseBoxes[bi], pbox, archiveID)
		if err != nil {
			return nil, err
		}
		out = append(out, merged...)
		bi++
	}
	for ; bi < len(baseBoxes); bi++ {
		out = append(out, baseBoxes[bi]...)
	}

	return &Script{Elements: out, DatabaseName: base.DatabaseName}, nil
}

func (p *Patcher) mergeBox(bbox, pbox textBox, archiveID string) ([]ScriptElement, error) {
	resolved, err := p.resolvePlaceholders(pbox, bbox, archiveID)
	if err != nil {
		return nil, err
	}

	if boxHasSplit(pbox) && !boxHasSplit(bbox) {
		if p.DB.TextBoxSplitSnippet == nil {
			return nil, &types.InvalidInputError{Field: archiveID, Msg: "patch needs a text-box split but no split snippet is configured"}
		}
		var out []ScriptElement
		for _, el := range resolved {
			if SplitsTextBox(el) {
				out = append(out, p.DB.TextBoxSplitSnippet.Elements...)
				continue
			}
			out = append(out, el)
		}
		return out, nil
	}

	var out []ScriptElement
	for _, el := range resolved {
		if !SplitsTextBox(el) {
			out = append(out, el)
		}
	}
	return out, nil
}

// resolvePlaceholders walks pbox in order. Every element that isn't a
// placeholder command passes through unchanged; every placeholder is
// replaced by the first surviving structural command of the same name
// (case-insensitive) in bbox, which is then removed from the pool so a
// second placeholder of the same name claims a different instance. Once
// the walk finishes, the pool must be empty - any base structural
// command the patch never placed is a hard error rather than something
// silently carried over.
func (p *Patcher) resolvePlaceholders(pbox, bbox textBox, archiveID string) ([]ScriptElement, error) {
	pool := commandsOf(bbox)
	out := make([]ScriptElement, 0, len(pbox))
	for _, el := range pbox {
		cmd, ok := el.(*Command)
		if !ok || !isPlaceholder(cmd) {
			out = append(out, el)
			continue
		}
		idx := findPoolIndex(pool, cmd.Def.Name)
		if idx == -1 {
			return nil, &types.InconsistencyError{Msg: fmt.Sprintf("%s: patch references command %q not present in the base text box", archiveID, cmd.Def.Name)}
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	if len(pool) > 0 {
		names := make([]string, 0, len(pool))
		for _, el := range pool {
			if c, ok := el.(*Command); ok {
				names = append(names, c.Def.Name)
			}
		}
		return nil, &types.InconsistencyError{Msg: fmt.Sprintf("%s: patch leaves base structural commands unplaced: %s", archiveID, strings.Join(names, ", "))}
	}
	return out, nil
}
