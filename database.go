package romscript

import (
	"bytes"
	"strings"

	"github.com/zedseven/romscript/types"
)

// CommandDatabase holds every command definition for one game/format
// plus the snippet used by the text-box patcher to split a box in two.
// Neither CommandDatabase nor its single-entry match cache is protected
// by a mutex: concurrent use across goroutines requires external
// locking, the same discipline the teacher's macho.File leaves to its
// callers.
type CommandDatabase struct {
	Name string

	defs   []*types.CommandDefinition
	byName map[string][]*types.CommandDefinition

	cacheSeq        []byte
	cacheCandidates []*types.CommandDefinition
	cacheValid      bool

	// TextBoxSplitSnippet is the pre-parsed script spliced in by the
	// text-box patcher wherever a patch script's box boundary falls
	// inside the middle of a base script's text box.
	TextBoxSplitSnippet *Script
}

// NewCommandDatabase returns an empty, named database.
func NewCommandDatabase(name string) *CommandDatabase {
	return &CommandDatabase{
		Name:   name,
		byName: make(map[string][]*types.CommandDefinition),
	}
}

// Add registers a definition. Order of addition is preserved and
// determines tie-breaking in Match and the search order in Find.
func (db *CommandDatabase) Add(def *types.CommandDefinition) {
	db.defs = append(db.defs, def)
	key := strings.ToUpper(def.Name)
	db.byName[key] = append(db.byName[key], def)
	db.cacheValid = false
}

// Find returns every definition registered under name, case-insensitive,
// in insertion order.
func (db *CommandDatabase) Find(name string) []*types.CommandDefinition {
	return db.byName[strings.ToUpper(name)]
}

// Match returns every definition still consistent with seq: every byte
// already present agrees with that definition's Base under its Mask,
// and seq hasn't outgrown the definition's fixed length. It maintains a
// one-entry cache of the last sequence matched so that extending a
// sequence byte by byte (the reader's normal access pattern) doesn't
// re-scan the whole database on every byte.
func (db *CommandDatabase) Match(seq []byte) []*types.CommandDefinition {
	var start []*types.CommandDefinition
	if db.cacheValid && isPrefixOf(db.cacheSeq, seq) {
		start = db.cacheCandidates
	} else if len(seq) > 0 {
		start = db.matchingFirstByte(seq[0])
	} else {
		start = db.defs
	}

	result := make([]*types.CommandDefinition, 0, len(start))
	for _, d := range start {
		if d.MatchesPrefix(seq) {
			result = append(result, d)
		}
	}

	db.cacheSeq = append([]byte(nil), seq...)
	db.cacheCandidates = result
	db.cacheValid = true

	out := make([]*types.CommandDefinition, len(result))
	copy(out, result)
	return out
}

func (db *CommandDatabase) matchingFirstByte(b byte) []*types.CommandDefinition {
	var result []*types.CommandDefinition
	for _, d := range db.defs {
		if len(d.Mask) == 0 || len(d.Base) == 0 {
			continue
		}
		if (b & d.Mask[0]) == d.Base[0] {
			result = append(result, d)
		}
	}
	return result
}

func isPrefixOf(short, long []byte) bool {
	if len(short) == 0 || len(short) > len(long) {
		return false
	}
	return bytes.Equal(short, long[:len(short)])
}

// shortestOf returns the definition with the smallest MinimumLength in
// candidates, first occurrence winning ties. Used when the reader runs
// out of stream before narrowing to a single candidate: per the
// database's tie-break policy, priority_length plays no part in
// selection.
func shortestOf(candidates []*types.CommandDefinition) *types.CommandDefinition {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, d := range candidates[1:] {
		if d.MinimumLength() < best.MinimumLength() {
			best = d
		}
	}
	return best
}

// MakeValidCommand looks for a definition registered under cmd's own
// definition name such that every element and parameter already present
// on cmd also exists on the candidate definition with the value in
// range, returning a new Command built against that definition. This is
// the patcher's and driver's escape hatch when a base ROM's command
// table doesn't carry the specific variant the caller assembled by hand
// (e.g. a jump target parameter widened for a longer relocated script).
func (db *CommandDatabase) MakeValidCommand(cmd *Command) (*Command, bool) {
	for _, def := range db.Find(cmd.Def.Name) {
		if isSuitable(cmd, def) {
			return retarget(cmd, def), true
		}
	}
	return nil, false
}

func isSuitable(cmd *Command, def *types.CommandDefinition) bool {
	for _, el := range cmd.Elements {
		if el.Def == nil {
			continue
		}
		targetEl := def.FindElement(el.Def.Name)
		if targetEl == nil {
			return false
		}
		for _, entry := range el.Entries {
			for name, p := range entry {
				pd := targetEl.FindParam(name)
				if pd == nil {
					return false
				}
				if !pd.InRange(p.Value) {
					return false
				}
			}
		}
	}
	return true
}

func retarget(cmd *Command, def *types.CommandDefinition) *Command {
	out := cmd.copy()
	out.Def = def
	for i, el := range out.Elements {
		if el.Def == nil {
			continue
		}
		targetEl := def.FindElement(el.Def.Name)
		out.Elements[i].Def = targetEl
		for _, entry := range el.Entries {
			for name, p := range entry {
				pd := targetEl.FindParam(name)
				entry[name] = &Parameter{Def: pd, Value: p.Value, Bytes: nil, Text: p.Text}
			}
		}
	}
	return out
}
