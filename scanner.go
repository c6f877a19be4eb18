package romscript

import (
	"encoding/binary"

	"github.com/zedseven/romscript/pkg/lz77"
	"github.com/zedseven/romscript/types"
)

// Scanner searches a ROM or file image for text archives by trial
// decompression and trial parsing, the same "try it and see if it's
// plausible" approach the teacher's file.go uses when it falls back to
// logging an unrecognised load command rather than refusing the whole
// file.
type Scanner struct {
	DB       *CommandDatabase
	Reader   *Reader
	Strict   bool
	MaxGuess int // upper bound on output size trial decompression will produce; 0 = unbounded
}

// ScanResult is one candidate text archive the scanner accepted.
type ScanResult struct {
	Entry    types.Entry
	Archive  *TextArchive
	Decoded  []byte // the bytes actually parsed (post-decompression if compressed)
	Overlaps bool
}

// ScanOffset tries to read a text archive at offset within data,
// attempting, in order: LZ77 data whose decompressed form starts with a
// 4-byte size header, uncompressed data starting with a size header,
// bare LZ77 data, and finally bare uncompressed data. The first staging that both decodes
// cleanly and parses into at least one script is accepted.
//
// In strict mode a parse is only accepted if it consumed every
// decompressed/sized byte and passes three plausibility gates: at least
// one command in the archive ends its script unconditionally, no
// script runs more than a small tolerance past its first script-ending
// element, and no jump parameter names an out-of-range script index.
// Outside strict mode none of this is checked, which is what lets a
// "deep scan" walk through a whole bank without stopping at every
// coincidental byte run that merely looks like the start of a command.
func (s *Scanner) ScanOffset(data []byte, offset int64) (*ScanResult, bool) {
	for _, sizeHeader := range []bool{true, false} {
		for _, compressed := range []bool{true, false} {
			if res, ok := s.tryStaging(data, offset, compressed, sizeHeader); ok {
				return res, true
			}
		}
	}
	return nil, false
}

// parseSizeHeader checks whether buf begins with the "00 LL LL LL" size
// header: a zero lead byte followed by a 24-bit little-endian length
// naming either buf's own length or the length of what follows the
// header. It returns buf with the header stripped off.
func parseSizeHeader(buf []byte) ([]byte, bool) {
	if len(buf) < 4 || buf[0] != 0x00 {
		return nil, false
	}
	ll := int(buf[1]) | int(buf[2])<<8 | int(buf[3])<<16
	body := buf[4:]
	if ll == len(buf) || ll == len(body) {
		return body, true
	}
	return nil, false
}

func (s *Scanner) tryStaging(data []byte, offset int64, compressed, sizeHeader bool) (*ScanResult, bool) {
	pos := int(offset)
	if pos < 0 || pos >= len(data) {
		return nil, false
	}

	var buf []byte
	var rawConsumed int
	if compressed {
		out, n, ok := lz77.Decompress(data[pos:], s.MaxGuess)
		if !ok {
			return nil, false
		}
		buf, rawConsumed = out, n
	} else {
		buf, rawConsumed = data[pos:], len(data)-pos
	}

	payload := buf
	headerLen := 0
	if sizeHeader {
		body, ok := parseSizeHeader(buf)
		if !ok {
			return nil, false
		}
		payload = body
		headerLen = len(buf) - len(body)
	}
	if len(payload) == 0 {
		return nil, false
	}

	archive, parsedLen, ok := s.tryParse(payload)
	if !ok {
		return nil, false
	}

	if s.Strict {
		if parsedLen != len(payload) {
			return nil, false
		}
		if !strictPlausible(archive) {
			return nil, false
		}
	}

	size := int64(headerLen + parsedLen)
	if compressed {
		size = int64(rawConsumed)
	}
	entry := types.Entry{
		Offset:     offset,
		Size:       size,
		Compressed: compressed,
		SizeHeader: sizeHeader,
	}
	return &ScanResult{Entry: entry, Archive: archive, Decoded: payload}, true
}

// tryParse reads scripts from payload until it's exhausted or a script
// fails to parse, returning what it managed plus how many bytes were
// consumed.
func (s *Scanner) tryParse(payload []byte) (*TextArchive, int, bool) {
	archive := &TextArchive{}
	pos := 0
	for pos < len(payload) {
		script, next, err := s.Reader.ReadScript(payload, pos)
		if err != nil || next == pos {
			break
		}
		archive.Scripts = append(archive.Scripts, script)
		pos = next
	}
	if len(archive.Scripts) == 0 {
		return nil, 0, false
	}
	return archive, pos, true
}

// strictPlausible applies strict mode's three plausibility gates to a
// fully-parsed archive: at least one command anywhere ends its script
// unconditionally, every script has at most a small overflow of
// elements past its first script-ending element, and every jump
// parameter either carries the 0xFF "no jump" sentinel or names an
// in-range script index.
func strictPlausible(archive *TextArchive) bool {
	scriptCount := int64(len(archive.Scripts))
	sawEndAlways := false
	for _, script := range archive.Scripts {
		endIdx := -1
		for i, el := range script.Elements {
			cmd, ok := el.(*Command)
			if !ok {
				continue
			}
			if cmd.Def.EndType == types.EndAlways {
				sawEndAlways = true
			}
			if endIdx == -1 && cmd.EndsScript() {
				endIdx = i
			}
		}
		if endIdx != -1 && len(script.Elements)-1-endIdx > 3 {
			return false
		}
		if !jumpsInRange(script, scriptCount) {
			return false
		}
	}
	return sawEndAlways
}

// jumpsInRange reports whether every jump parameter in script is either
// the 0xFF "no jump" sentinel or an index within [0, scriptCount).
func jumpsInRange(script *Script, scriptCount int64) bool {
	for _, el := range script.Elements {
		cmd, ok := el.(*Command)
		if !ok {
			continue
		}
		for _, inst := range cmd.Elements {
			for _, entry := range inst.Entries {
				for _, p := range entry {
					if !p.Def.IsJump {
						continue
					}
					if p.Value != 0xFF && (p.Value < 0 || p.Value >= scriptCount) {
						return false
					}
				}
			}
		}
	}
	return true
}

// ScanPointers sweeps data for little-endian 32-bit values whose low 24
// bits, interpreted as a ROM-mapped offset, land inside [0, len(data))
// and equal a known entry's offset. It records every match against idx
// and returns how many pointers it found, the handheld low-level
// equivalent of the teacher's relocation-table walk.
func ScanPointers(data []byte, idx *EntryIndex, romBase uint32) int {
	found := 0
	for pos := 0; pos+4 <= len(data); pos++ {
		raw := binary.LittleEndian.Uint32(data[pos : pos+4])
		candidate := int64(raw&0x00FFFFFF) - int64(romBase&0x00FFFFFF)
		if candidate < 0 || candidate >= int64(len(data)) {
			continue
		}
		if e := idx.Get(candidate); e != nil {
			e.Pointers = append(e.Pointers, int64(pos))
			found++
		}
	}
	return found
}

// DeepScan walks every offset in [start, end) with ScanOffset, trimming
// a match's declared size against the next already-known entry's start
// so overlapping guesses don't both get recorded, and advancing past
// whatever each accepted match consumed so a single archive isn't
// rediscovered byte by byte.
func (s *Scanner) DeepScan(data []byte, start, end int64, idx *EntryIndex) []*ScanResult {
	var results []*ScanResult
	pos := start
	for pos < end {
		res, ok := s.ScanOffset(data, pos)
		if !ok {
			pos++
			continue
		}
		if next := idx.nextEntryAfter(res.Entry.Offset); next != nil && res.Entry.End() > next.Offset {
			res.Entry.Size = next.Offset - res.Entry.Offset
			res.Overlaps = true
		}
		idx.Add(&res.Entry)
		results = append(results, res)
		pos = res.Entry.End()
		if pos <= res.Entry.Offset {
			pos = res.Entry.Offset + 1
		}
	}
	return results
}

func (idx *EntryIndex) nextEntryAfter(offset int64) *types.Entry {
	var best *types.Entry
	for _, e := range idx.byOffset {
		if e.Offset <= offset {
			continue
		}
		if best == nil || e.Offset < best.Offset {
			best = e
		}
	}
	return best
}
