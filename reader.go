package romscript

import (
	"fmt"

	"github.com/zedseven/romscript/types"
)

// Reader decodes a byte slice into a Script against one CommandDatabase.
// Like the teacher's macho.File, it operates over an already-loaded
// in-memory buffer rather than a streaming io.Reader: every script this
// package reads has already been lifted out of its ROM or file in full.
type Reader struct {
	DB *CommandDatabase

	// Encoding, if set, is consulted in text mode: whenever the database
	// can't match any definition at the current position, the reader
	// tries to decode prose through this table before falling back to a
	// raw ByteElement.
	Encoding types.Encoding

	// ValueEncodings maps a parameter definition's ValueEncoding name to
	// the table used to render that parameter's raw bytes as text. It is
	// a convenience only: Parameter.Value is always the packed integer,
	// regardless of whether a matching table was supplied.
	ValueEncodings map[string]types.Encoding

	// MaxBytes caps how many bytes ReadScript will read from data
	// starting at its given offset. Zero means no cap (read until a
	// terminating command or the end of data).
	MaxBytes int
}

// ReadScript decodes one script from data starting at start, stopping
// at a command that terminates the script or at the read boundary. It
// returns the script and the offset of the first unconsumed byte.
func (r *Reader) ReadScript(data []byte, start int) (*Script, int, error) {
	limit := len(data)
	if r.MaxBytes > 0 && start+r.MaxBytes < limit {
		limit = start + r.MaxBytes
	}
	script := &Script{DatabaseName: r.DB.Name}
	pos := start
	for pos < limit {
		el, next, err := r.readElement(data, pos, limit)
		if err != nil {
			return script, pos, err
		}
		script.Elements = append(script.Elements, el)
		pos = next
		if cmd, ok := el.(*Command); ok && cmd.EndsScript() {
			break
		}
	}
	return script, pos, nil
}

// readElement decodes exactly one element starting at pos, returning the
// offset of the next unconsumed byte.
func (r *Reader) readElement(data []byte, pos, limit int) (ScriptElement, int, error) {
	if pos >= limit {
		return nil, pos, &types.FormatError{Offset: int64(pos), Msg: "unexpected end of script"}
	}

	seq := []byte{data[pos]}
	candidates := r.DB.Match(seq)
	cur := pos + 1
	for len(candidates) > 1 && cur < limit {
		seq = append(seq, data[cur])
		candidates = r.DB.Match(seq)
		cur++
	}

	if len(candidates) == 0 {
		if r.Encoding != nil {
			if text, consumed, ok := r.Encoding.DecodeNext(data[pos:limit]); ok && consumed > 0 {
				return &TextElement{Text: text}, pos + consumed, nil
			}
		}
		return &ByteElement{Byte: data[pos]}, pos + 1, nil
	}

	var def *types.CommandDefinition
	if len(candidates) == 1 {
		def = candidates[0]
	} else {
		def = shortestOf(candidates)
	}

	minEnd := pos + def.MinimumLength()
	if minEnd > limit {
		return nil, pos, &types.FormatError{Offset: int64(pos), Msg: "truncated command", Val: def.Name}
	}

	cursor := minEnd
	labels := map[string]int{}
	cmd, err := r.decodeCommandBody(data, pos, def, &cursor, limit, labels)
	if err != nil {
		return nil, pos, err
	}

	final := cursor - def.RewindCount
	if final < pos {
		final = pos
	}
	return cmd, final, nil
}

// decodeCommandBody extracts every element's parameters for def,
// advancing *cursor past every byte consumed. pos is the command's
// start; parameter offsets for scalar and length parameters are
// relative to pos, while a data group's own parameter offsets are
// relative to each entry's own row inside that group's contiguous
// block (see writeDataGroup in writer.go, which this mirrors).
func (r *Reader) decodeCommandBody(data []byte, pos int, def *types.CommandDefinition, cursor *int, limit int, labels map[string]int) (*Command, error) {
	cmd := &Command{Def: def, Elements: make([]ElementInstance, len(def.Elements))}
	for i := range def.Elements {
		elDef := &def.Elements[i]
		inst := ElementInstance{Def: elDef}

		row := ParameterEntry{}
		for pi := range elDef.ScalarParams {
			p, err := r.readParamAt(data, pos, &elDef.ScalarParams[pi], cursor, limit, labels)
			if err != nil {
				return nil, err
			}
			row[elDef.ScalarParams[pi].Name] = p
		}

		if elDef.HasMultipleDataEntries() {
			lenParam, err := r.readParamAt(data, pos, elDef.LengthParam, cursor, limit, labels)
			if err != nil {
				return nil, err
			}
			row[elDef.LengthParam.Name] = lenParam
			n := int(lenParam.Value)

			entries := make([]ParameterEntry, n)
			for e := range entries {
				entries[e] = ParameterEntry{}
			}
			for _, group := range elDef.DataGroups {
				stride := dataGroupStride(group)
				groupBase := *cursor
				for e := 0; e < n; e++ {
					entryBase := groupBase + e*stride
					for gi := range group {
						pd := &group[gi]
						start := entryBase + pd.Offset
						end := start + pd.MinimumByteCount()
						if end > limit {
							return nil, &types.FormatError{Offset: int64(start), Msg: "truncated data entry", Val: pd.Name}
						}
						raw, rerr := readBitsLE(data[start:end], pd.Shift, pd.Bits)
						if rerr != nil {
							return nil, &types.FormatError{Offset: int64(start), Msg: rerr.Error()}
						}
						entries[e][pd.Name] = r.makeParam(pd, raw+pd.Add, data[start:end])
					}
				}
				*cursor = groupBase + n*stride
			}
			inst.Entries = entries
			if len(row) > 0 {
				// Scalar params (if any) alongside the data table live in
				// the first entry for lookup convenience; row is also kept
				// reachable via the length parameter above.
				if len(inst.Entries) == 0 {
					inst.Entries = []ParameterEntry{row}
				} else {
					for k, v := range row {
						inst.Entries[0][k] = v
					}
				}
			}
		} else {
			inst.Entries = []ParameterEntry{row}
		}

		cmd.Elements[i] = inst
	}
	return cmd, nil
}

func dataGroupStride(group []types.ParameterDefinition) int {
	max := 0
	for _, pd := range group {
		end := pd.Offset + pd.MinimumByteCount()
		if end > max {
			max = end
		}
	}
	return max
}

// paramBase resolves the byte offset pd.Offset is counted from, per its
// OffsetKind: the command's own start, the buffer's current extent (for
// a field that trails whatever came before it), or a position an
// earlier parameter in this same command recorded under LabelName.
func paramBase(pos int, pd *types.ParameterDefinition, cursor int, labels map[string]int) (int, error) {
	switch pd.Kind {
	case types.OffsetEnd:
		return cursor, nil
	case types.OffsetLabel:
		base, ok := labels[pd.LabelName]
		if !ok {
			return 0, fmt.Errorf("unresolved label %q", pd.LabelName)
		}
		return base, nil
	default:
		return pos, nil
	}
}

func (r *Reader) readParamAt(data []byte, pos int, pd *types.ParameterDefinition, cursor *int, limit int, labels map[string]int) (*Parameter, error) {
	base, err := paramBase(pos, pd, *cursor, labels)
	if err != nil {
		return nil, &types.FormatError{Offset: int64(pos), Msg: err.Error(), Val: pd.Name}
	}
	start := base + pd.Offset
	end := start + pd.MinimumByteCount()
	if end > limit {
		return nil, &types.FormatError{Offset: int64(start), Msg: "truncated parameter", Val: pd.Name}
	}
	if end > *cursor {
		*cursor = end
	}
	raw, rerr := readBitsLE(data[start:end], pd.Shift, pd.Bits)
	if rerr != nil {
		return nil, &types.FormatError{Offset: int64(start), Msg: rerr.Error()}
	}
	if labels != nil && pd.Name != "" {
		labels[pd.Name] = start
	}
	return r.makeParam(pd, raw+pd.Add, data[start:end]), nil
}

func (r *Reader) makeParam(pd *types.ParameterDefinition, value int64, window []byte) *Parameter {
	p := &Parameter{Def: pd, Value: value, Bytes: append([]byte(nil), window...)}
	if pd.ValueEncoding != "" && r.ValueEncodings != nil {
		if table, ok := r.ValueEncodings[pd.ValueEncoding]; ok {
			if text, _, ok := table.DecodeNext(p.Bytes); ok {
				p.Text = text
			}
		}
	}
	return p
}
