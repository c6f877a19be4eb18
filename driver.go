package romscript

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/zedseven/romscript/pkg/lz77"
	"github.com/zedseven/romscript/types"
)

// Driver ties the database, reader, writer, scanner, entry index and
// patcher together into the handful of whole-ROM operations a command
// line tool or higher-level caller actually wants: read everything
// known, write a script back, verify a round trip, find somewhere to
// put something bigger.
type Driver struct {
	DB    *CommandDatabase
	Index *EntryIndex

	Reader *Reader
	Writer *Writer
}

// NewDriver wires a Reader and Writer against db sharing the same
// text-mode encoding, the common case for a single game's command set.
func NewDriver(db *CommandDatabase, encoding types.Encoding, valueEncodings map[string]types.Encoding) *Driver {
	return &Driver{
		DB:     db,
		Index:  NewEntryIndex(),
		Reader: &Reader{DB: db, Encoding: encoding, ValueEncodings: valueEncodings},
		Writer: &Writer{Encoding: encoding},
	}
}

// ReadArchive reads every script of a known entry, stopping each script
// read at the entry's declared size.
func (d *Driver) ReadArchive(data []byte, e *types.Entry, identifier string) (*TextArchive, error) {
	payload := data
	start := int(e.Offset)
	if e.Compressed {
		out, _, ok := lz77.Decompress(data[start:], 0)
		if !ok {
			return nil, &types.InconsistencyError{Msg: fmt.Sprintf("%s: entry at %#x claims LZ77 compression but won't decompress", identifier, e.Offset)}
		}
		payload, start = out, 0
	}
	end := len(payload)
	if !e.Compressed {
		end = start + int(e.Size)
	}
	if e.SizeHeader {
		start += 4
	}
	if !e.Compressed {
		if end > len(payload) {
			end = len(payload)
		}
	}

	archive := &TextArchive{Identifier: identifier}
	pos := start
	for pos < end {
		script, next, err := d.Reader.ReadScript(payload[:end], pos)
		if err != nil {
			return archive, err
		}
		archive.Scripts = append(archive.Scripts, script)
		if next <= pos {
			break
		}
		pos = next
	}
	return archive, nil
}

// WriteArchive serialises every script of archive back to back. It does
// not compress the result; callers that need a compressed entry re-run
// it through lz77.Compress and decide for themselves whether the result
// is smaller than the space available.
func (d *Driver) WriteArchive(archive *TextArchive) ([]byte, error) {
	var out []byte
	for _, script := range archive.Scripts {
		b, err := d.Writer.WriteScript(script)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", archive.Identifier, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// TestRoundTrip decodes data at entry e, re-encodes the result, and
// reports whether the two decoded forms are structurally identical -
// not whether the bytes match, since RewindCount and data-group padding
// mean two different byte strings can legitimately decode to the same
// script. It uses go-cmp rather than reflect.DeepEqual so a mismatch
// names the exact field and path that differ instead of just failing.
func (d *Driver) TestRoundTrip(data []byte, e *types.Entry, identifier string) (bool, string, error) {
	before, err := d.ReadArchive(data, e, identifier)
	if err != nil {
		return false, "", err
	}
	encoded, err := d.WriteArchive(before)
	if err != nil {
		return false, "", err
	}

	reEntry := *e
	reEntry.Offset = 0
	reEntry.SizeHeader = false
	reEntry.Compressed = false
	reEntry.Size = int64(len(encoded))
	after, err := d.ReadArchive(encoded, &reEntry, identifier)
	if err != nil {
		return false, "", err
	}

	diff := cmp.Diff(before, after, cmpopts.IgnoreFields(TextArchive{}, "Identifier"))
	if diff != "" {
		return false, diff, nil
	}
	return true, "", nil
}

// FindFreeSpace scans data for the first run of at least n consecutive
// bytes equal to fill, outside of every entry idx already knows about,
// starting no earlier than from. It returns -1 if no run is long enough.
// This is the same problem as finding unused padding in a ROM bank: a
// long run of the pad byte that doesn't already belong to a known
// archive is presumed free.
func (d *Driver) FindFreeSpace(data []byte, from int64, n int, fill byte) int64 {
	occupied := make([]types.Entry, 0, len(d.Index.byOffset))
	for _, e := range d.Index.Entries() {
		occupied = append(occupied, *e)
	}

	pos := from
	for pos+int64(n) <= int64(len(data)) {
		if overlapsAny(pos, int64(n), occupied) {
			pos = nextBoundary(pos, occupied)
			continue
		}
		if isRunOf(data, int(pos), n, fill) {
			return pos
		}
		pos++
	}
	return -1
}

func overlapsAny(offset, length int64, entries []types.Entry) bool {
	end := offset + length
	for _, e := range entries {
		if offset < e.End() && end > e.Offset {
			return true
		}
	}
	return false
}

func nextBoundary(pos int64, entries []types.Entry) int64 {
	best := int64(-1)
	for _, e := range entries {
		if e.End() > pos && (best == -1 || e.End() < best) {
			best = e.End()
		}
	}
	if best == -1 {
		return pos + 1
	}
	return best
}

func isRunOf(data []byte, start, n int, fill byte) bool {
	if start+n > len(data) {
		return false
	}
	for i := 0; i < n; i++ {
		if data[start+i] != fill {
			return false
		}
	}
	return true
}

