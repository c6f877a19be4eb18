package romscript

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/zedseven/romscript/types"
)

// EntryIndex is the persisted map of every text archive the scanner has
// found in one ROM or file, keyed by its offset. Like CommandDatabase,
// it isn't protected by a mutex.
type EntryIndex struct {
	byOffset map[int64]*types.Entry
}

// NewEntryIndex returns an empty index.
func NewEntryIndex() *EntryIndex {
	return &EntryIndex{byOffset: make(map[int64]*types.Entry)}
}

// Add inserts or overwrites the entry at e.Offset.
func (idx *EntryIndex) Add(e *types.Entry) {
	idx.byOffset[e.Offset] = e
}

// Get returns the entry at offset, or nil.
func (idx *EntryIndex) Get(offset int64) *types.Entry {
	return idx.byOffset[offset]
}

// Entries returns every entry, sorted by offset.
func (idx *EntryIndex) Entries() []*types.Entry {
	out := make([]*types.Entry, 0, len(idx.byOffset))
	for _, e := range idx.byOffset {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// ReadFrom parses the plain-text index format: one entry per line,
//
//	<offset_hex> <size_hex> <flags> [pointer_hex ...]
//
// flags is a contiguous run of 'C' (compressed) and 'H' (has a 4-byte
// size header), in either order, or '-' for neither. Blank lines and
// lines starting with '#' are ignored.
func (idx *EntryIndex) ReadFrom(r io.Reader) (int64, error) {
	scanner := bufio.NewScanner(r)
	var n int64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return n, &types.FormatError{Offset: -1, Msg: fmt.Sprintf("line %d: malformed entry-index line", lineNo)}
		}
		offset, err := strconv.ParseInt(fields[0], 16, 64)
		if err != nil {
			return n, &types.FormatError{Offset: -1, Msg: fmt.Sprintf("line %d: bad offset", lineNo), Val: fields[0]}
		}
		size, err := strconv.ParseInt(fields[1], 16, 64)
		if err != nil {
			return n, &types.FormatError{Offset: -1, Msg: fmt.Sprintf("line %d: bad size", lineNo), Val: fields[1]}
		}
		e := &types.Entry{
			Offset:     offset,
			Size:       size,
			Compressed: strings.ContainsRune(fields[2], 'C'),
			SizeHeader: strings.ContainsRune(fields[2], 'H'),
		}
		for _, p := range fields[3:] {
			ptr, err := strconv.ParseInt(p, 16, 64)
			if err != nil {
				return n, &types.FormatError{Offset: -1, Msg: fmt.Sprintf("line %d: bad pointer", lineNo), Val: p}
			}
			e.Pointers = append(e.Pointers, ptr)
		}
		idx.Add(e)
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, err
	}
	return n, nil
}

// WriteTo serialises the index in offset order, one line per entry, and
// adds comment lines (never parsed back by ReadFrom) flagging the
// conditions a hand-maintained index most often gets wrong: entries
// that overlap, a gap between consecutive entries worth double-checking,
// and an entry nobody points at.
func (idx *EntryIndex) WriteTo(w io.Writer) (int64, error) {
	entries := idx.Entries()
	var written int64
	bw := bufio.NewWriter(w)
	var prev *types.Entry
	for _, e := range entries {
		if prev != nil {
			switch {
			case e.Offset < prev.End():
				fmt.Fprintf(bw, "# overlap: %#x starts before %#x ends at %#x\n", e.Offset, prev.Offset, prev.End())
			case e.Offset > prev.End():
				fmt.Fprintf(bw, "# gap: %#x bytes unaccounted for between %#x and %#x\n", e.Offset-prev.End(), prev.End(), e.Offset)
			}
		}
		if len(e.Pointers) == 0 {
			fmt.Fprintf(bw, "# no known pointer to %#x\n", e.Offset)
		}
		flags := entryFlags(e)
		n, err := fmt.Fprintf(bw, "%x %x %s", e.Offset, e.Size, flags)
		if err != nil {
			return written, err
		}
		written += int64(n)
		for _, p := range e.Pointers {
			n, err := fmt.Fprintf(bw, " %x", p)
			if err != nil {
				return written, err
			}
			written += int64(n)
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return written, err
		}
		written++
		prev = e
	}
	return written, bw.Flush()
}

func entryFlags(e *types.Entry) string {
	flags := ""
	if e.Compressed {
		flags += "C"
	}
	if e.SizeHeader {
		flags += "H"
	}
	if flags == "" {
		flags = "-"
	}
	return flags
}
