// Package lookup implements a prefix-tree based mapping between byte
// sequences and text, the form most handheld-console text-archive
// formats use for their character tables: some glyphs are a single
// byte, others (accented letters, control codes rendered as
// placeholders) are multi-byte sequences, and decoding has to always
// prefer the longest sequence that still matches.
//
// The traversal style is adapted from the teacher's export trie walker
// (pkg/trie's ParseTrie/WalkTrie): an explicit node stack instead of
// recursion, and a byte-at-a-time descent rather than map lookups keyed
// on whole strings. The wire format differs completely (ULEB128-encoded
// node sizes have no equivalent here, since a table built from Add calls
// never needs to be serialized), so only the traversal shape is carried
// over.
package lookup

import "sort"

type node struct {
	children map[byte]*node
	text     string
	terminal bool
}

func newNode() *node {
	return &node{children: make(map[byte]*node)}
}

// ByteTable decodes the longest byte sequence recognised at the current
// position into text.
type ByteTable struct {
	root *node
}

// NewByteTable returns an empty table.
func NewByteTable() *ByteTable {
	return &ByteTable{root: newNode()}
}

// Add registers seq -> text. A later Add for the same seq overwrites the
// earlier mapping.
func (t *ByteTable) Add(seq []byte, text string) {
	n := t.root
	for _, b := range seq {
		child, ok := n.children[b]
		if !ok {
			child = newNode()
			n.children[b] = child
		}
		n = child
	}
	n.terminal = true
	n.text = text
}

// DecodeNext finds the longest prefix of data with a registered mapping
// and returns its text and length. Per the longest-match rule, a
// shorter terminal node found along the way is remembered and only
// returned if no longer match is found deeper in the tree.
func (t *ByteTable) DecodeNext(data []byte) (text string, consumed int, ok bool) {
	n := t.root
	bestText, bestLen, bestOK := "", 0, false
	stack := []struct {
		n   *node
		pos int
	}{{n, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.n.terminal && top.pos > bestLen {
			bestText, bestLen, bestOK = top.n.text, top.pos, true
		}
		if top.pos >= len(data) {
			continue
		}
		if child, has := top.n.children[data[top.pos]]; has {
			stack = append(stack, struct {
				n   *node
				pos int
			}{child, top.pos + 1})
		}
	}
	return bestText, bestLen, bestOK
}

// RuneTable encodes the longest prefix of a string recognised by the
// table into bytes, the EncodeNext counterpart to ByteTable.DecodeNext.
type RuneTable struct {
	entries []runeEntry
}

type runeEntry struct {
	text string
	data []byte
}

// NewRuneTable builds an encode-direction table from the same mappings
// used to build a ByteTable, so callers typically construct both from
// one source list.
func NewRuneTable(entries map[string][]byte) *RuneTable {
	t := &RuneTable{}
	for text, data := range entries {
		t.entries = append(t.entries, runeEntry{text: text, data: data})
	}
	sort.Slice(t.entries, func(i, j int) bool {
		return len(t.entries[i].text) > len(t.entries[j].text)
	})
	return t
}

// EncodeNext returns the bytes for the longest prefix of text with a
// registered mapping.
func (t *RuneTable) EncodeNext(text string) (data []byte, consumed int, ok bool) {
	for _, e := range t.entries {
		if len(e.text) <= len(text) && text[:len(e.text)] == e.text {
			return e.data, len(e.text), true
		}
	}
	return nil, 0, false
}

// Table implements types.Encoding by pairing a ByteTable for decoding
// with a RuneTable for encoding.
type Table struct {
	Bytes *ByteTable
	Runes *RuneTable
}

// NewTable builds a Table from a flat list of byte-sequence/text pairs.
func NewTable(pairs map[string][]byte) *Table {
	bt := NewByteTable()
	for text, data := range pairs {
		bt.Add(data, text)
	}
	return &Table{Bytes: bt, Runes: NewRuneTable(pairs)}
}

func (t *Table) DecodeNext(data []byte) (text string, consumed int, ok bool) {
	return t.Bytes.DecodeNext(data)
}

func (t *Table) EncodeNext(text string) (data []byte, consumed int, ok bool) {
	return t.Runes.EncodeNext(text)
}
