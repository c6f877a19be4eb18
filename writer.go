package romscript

import "github.com/zedseven/romscript/types"

// Writer serialises a Script back into bytes against the same command
// database a Reader would use to parse them, growing its output buffer
// on demand the way the teacher's Load.Put(buffer []byte, order
// binary.ByteOrder) int grows its caller-supplied buffer.
//
// Writer has no notion of absolute ROM offsets; every parameter's
// OffsetKind and LabelName are resolved purely within the command
// currently being written, against that command's own start position
// and the positions of its own already-written parameters (see
// writeParamAt). A jump parameter's Value itself is still whatever the
// caller already computed - Writer only packs it into its declared bit
// window.
type Writer struct {
	Encoding types.Encoding
}

// WriteScript serialises every element of script in order and returns
// the bytes produced.
func (w *Writer) WriteScript(script *Script) ([]byte, error) {
	var buf []byte
	for _, el := range script.Elements {
		switch v := el.(type) {
		case *Command:
			if err := w.writeCommand(&buf, v); err != nil {
				return nil, err
			}
		case *TextElement:
			if err := w.writeText(&buf, v); err != nil {
				return nil, err
			}
		case *ByteElement:
			buf = append(buf, v.Byte)
		case *DirectiveElement:
			// Directives are structural bookkeeping for the patcher; they
			// have no byte representation of their own.
		default:
			return nil, &types.FormatError{Offset: int64(len(buf)), Msg: "unknown script element type"}
		}
	}
	return buf, nil
}

func ensureLen(buf *[]byte, n int) {
	if len(*buf) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, *buf)
	*buf = grown
}

func (w *Writer) writeText(buf *[]byte, el *TextElement) error {
	if w.Encoding == nil {
		return &types.FormatError{Offset: int64(len(*buf)), Msg: "no encoding configured to write text element"}
	}
	remaining := el.Text
	for len(remaining) > 0 {
		data, consumed, ok := w.Encoding.EncodeNext(remaining)
		if !ok || consumed == 0 {
			return &types.FormatError{Offset: int64(len(*buf)), Msg: "unencodable text", Val: remaining}
		}
		*buf = append(*buf, data...)
		remaining = remaining[consumed:]
	}
	return nil
}

// writeCommand emits cmd.Def.Base, then every element's parameters, in
// declaration order. Data groups are written group-major: every entry's
// slice of group 0 first, then every entry's slice of group 1, mirroring
// the reader's dataGroupStride layout so the two are exact inverses.
// Once every parameter is written, the command's byte window is
// truncated by def.RewindCount bytes from the tail, mirroring the
// reader's own RewindCount handling in readElement so the next
// command's base bytes can deliberately overlap the rewound bytes.
func (w *Writer) writeCommand(buf *[]byte, cmd *Command) error {
	pos := len(*buf)
	def := cmd.Def
	ensureLen(buf, pos+len(def.Base))
	copy((*buf)[pos:], def.Base)

	cursor := pos + len(def.Base)
	labels := map[string]int{}
	for i := range def.Elements {
		elDef := &def.Elements[i]
		inst := cmd.Element(elDef.Name)
		var row ParameterEntry
		if inst != nil && len(inst.Entries) > 0 {
			row = inst.Entries[0]
		} else {
			row = ParameterEntry{}
		}

		for pi := range elDef.ScalarParams {
			pd := &elDef.ScalarParams[pi]
			p, ok := row[pd.Name]
			if !ok {
				continue
			}
			if err := writeParamAt(buf, pos, pd, p.Value, &cursor, labels); err != nil {
				return err
			}
		}

		if !elDef.HasMultipleDataEntries() {
			continue
		}

		n := 0
		if inst != nil {
			n = len(inst.Entries)
		}
		lenVal := int64(n)
		if p, ok := row[elDef.LengthParam.Name]; ok {
			lenVal = p.Value
		}
		if err := writeParamAt(buf, pos, elDef.LengthParam, lenVal, &cursor, labels); err != nil {
			return err
		}

		for _, group := range elDef.DataGroups {
			stride := dataGroupStride(group)
			groupBase := cursor
			ensureLen(buf, groupBase+n*stride)
			for e := 0; e < n; e++ {
				if inst == nil || e >= len(inst.Entries) {
					return &types.FormatError{Offset: int64(groupBase), Msg: "missing data entry", Val: elDef.Name}
				}
				entry := inst.Entries[e]
				entryBase := groupBase + e*stride
				for gi := range group {
					pd := &group[gi]
					p, ok := entry[pd.Name]
					if !ok {
						return &types.FormatError{Offset: int64(entryBase), Msg: "missing data parameter", Val: pd.Name}
					}
					start := entryBase + pd.Offset
					end := start + pd.MinimumByteCount()
					ensureLen(buf, end)
					if err := writeBitsLE((*buf)[start:end], pd.Shift, pd.Bits, p.Value-pd.Add); err != nil {
						return &types.FormatError{Offset: int64(start), Msg: err.Error()}
					}
				}
			}
			cursor = groupBase + n*stride
		}
	}
	if cursor > len(*buf) {
		ensureLen(buf, cursor)
	}
	end := cursor - def.RewindCount
	if end < pos {
		end = pos
	}
	*buf = (*buf)[:end]
	return nil
}

func writeParamAt(buf *[]byte, pos int, pd *types.ParameterDefinition, value int64, cursor *int, labels map[string]int) error {
	base := pos
	switch pd.Kind {
	case types.OffsetEnd:
		base = *cursor
	case types.OffsetLabel:
		resolved, ok := labels[pd.LabelName]
		if !ok {
			return &types.FormatError{Offset: int64(pos), Msg: "unresolved label", Val: pd.LabelName}
		}
		base = resolved
	}
	start := base + pd.Offset
	end := start + pd.MinimumByteCount()
	ensureLen(buf, end)
	if end > *cursor {
		*cursor = end
	}
	if err := writeBitsLE((*buf)[start:end], pd.Shift, pd.Bits, value-pd.Add); err != nil {
		return &types.FormatError{Offset: int64(start), Msg: err.Error()}
	}
	if labels != nil && pd.Name != "" {
		labels[pd.Name] = start
	}
	return nil
}
