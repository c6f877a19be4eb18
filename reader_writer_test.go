package romscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedseven/romscript/types"
)

func TestReaderSingleCommandNoParams(t *testing.T) {
	db := NewCommandDatabase("test")
	db.Add(&types.CommandDefinition{Name: "End", Base: []byte{0xFF}, Mask: []byte{0xFF}, EndType: types.EndAlways})
	r := &Reader{DB: db}

	script, next, err := r.ReadScript([]byte{0xFF}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	require.Len(t, script.Elements, 1)
	cmd, ok := script.Elements[0].(*Command)
	require.True(t, ok)
	assert.Equal(t, "End", cmd.Def.Name)
}

func TestReaderBitPackedParameter(t *testing.T) {
	db := NewCommandDatabase("test")
	def := &types.CommandDefinition{
		Name: "SetFlag", Base: []byte{0x10}, Mask: []byte{0xF0}, EndType: types.EndNever,
		Elements: []types.CommandElementDefinition{
			{Name: "Args", ScalarParams: []types.ParameterDefinition{{Name: "Value", Offset: 0, Shift: 0, Bits: 4}}},
		},
	}
	db.Add(def)
	db.Add(&types.CommandDefinition{Name: "End", Base: []byte{0xFF}, Mask: []byte{0xFF}, EndType: types.EndAlways})
	r := &Reader{DB: db}

	script, _, err := r.ReadScript([]byte{0x17, 0xFF}, 0)
	require.NoError(t, err)
	require.Len(t, script.Elements, 2)
	cmd := script.Elements[0].(*Command)
	p := cmd.Element("Args").Find("Value")
	require.NotNil(t, p)
	assert.Equal(t, int64(7), p.Value)
}

func TestReaderDataEntries(t *testing.T) {
	db := NewCommandDatabase("test")
	def := &types.CommandDefinition{
		Name: "Table", Base: []byte{0x80}, Mask: []byte{0xFF}, EndType: types.EndAlways,
		Elements: []types.CommandElementDefinition{
			{
				Name:        "Rows",
				LengthParam: &types.ParameterDefinition{Name: "Count", Offset: 1, Shift: 0, Bits: 8},
				DataGroups: [][]types.ParameterDefinition{{
					{Name: "A", Offset: 0, Shift: 0, Bits: 8},
					{Name: "B", Offset: 1, Shift: 0, Bits: 8},
					{Name: "C", Offset: 2, Shift: 0, Bits: 8},
				}},
			},
		},
	}
	db.Add(def)

	data := []byte{0x80, 0x02, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	r := &Reader{DB: db}
	script, next, err := r.ReadScript(data, 0)
	require.NoError(t, err)
	assert.Equal(t, len(data), next)
	require.Len(t, script.Elements, 1)
	cmd := script.Elements[0].(*Command)
	rows := cmd.Element("Rows")
	require.Len(t, rows.Entries, 2)
	assert.Equal(t, int64(0xAA), rows.Entries[0]["A"].Value)
	assert.Equal(t, int64(0xBB), rows.Entries[0]["B"].Value)
	assert.Equal(t, int64(0xCC), rows.Entries[0]["C"].Value)
	assert.Equal(t, int64(0xDD), rows.Entries[1]["A"].Value)
	assert.Equal(t, int64(0xEE), rows.Entries[1]["B"].Value)
	assert.Equal(t, int64(0xFF), rows.Entries[1]["C"].Value)
}

func TestWriterRoundTripsDataEntries(t *testing.T) {
	db := NewCommandDatabase("test")
	def := &types.CommandDefinition{
		Name: "Table", Base: []byte{0x80}, Mask: []byte{0xFF}, EndType: types.EndAlways,
		Elements: []types.CommandElementDefinition{
			{
				Name:        "Rows",
				LengthParam: &types.ParameterDefinition{Name: "Count", Offset: 1, Shift: 0, Bits: 8},
				DataGroups: [][]types.ParameterDefinition{{
					{Name: "A", Offset: 0, Shift: 0, Bits: 8},
					{Name: "B", Offset: 1, Shift: 0, Bits: 8},
					{Name: "C", Offset: 2, Shift: 0, Bits: 8},
				}},
			},
		},
	}
	db.Add(def)

	original := []byte{0x80, 0x02, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	r := &Reader{DB: db}
	script, _, err := r.ReadScript(original, 0)
	require.NoError(t, err)

	w := &Writer{}
	out, err := w.WriteScript(script)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestWriterRoundTripsBitPackedParameter(t *testing.T) {
	db := NewCommandDatabase("test")
	def := &types.CommandDefinition{
		Name: "SetFlag", Base: []byte{0x10}, Mask: []byte{0xF0},
		Elements: []types.CommandElementDefinition{
			{Name: "Args", ScalarParams: []types.ParameterDefinition{{Name: "Value", Shift: 0, Bits: 4}}},
		},
	}
	db.Add(def)
	db.Add(&types.CommandDefinition{Name: "End", Base: []byte{0xFF}, Mask: []byte{0xFF}, EndType: types.EndAlways})

	original := []byte{0x17, 0xFF}
	r := &Reader{DB: db}
	script, _, err := r.ReadScript(original, 0)
	require.NoError(t, err)

	w := &Writer{}
	out, err := w.WriteScript(script)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestWriterTruncatesRewindCount(t *testing.T) {
	db := NewCommandDatabase("test")
	db.Add(&types.CommandDefinition{
		Name: "Overlap", Base: []byte{0x50}, Mask: []byte{0xF0}, EndType: types.EndNever, RewindCount: 1,
		Elements: []types.CommandElementDefinition{
			{Name: "Args", ScalarParams: []types.ParameterDefinition{{Name: "Value", Offset: 1, Shift: 0, Bits: 8}}},
		},
	})
	db.Add(&types.CommandDefinition{Name: "End", Base: []byte{0x60}, Mask: []byte{0xF0}, EndType: types.EndAlways})

	// Overlap reads its Value parameter from the byte that End's base
	// also occupies; the reader rewinds one byte so End gets a turn at
	// the same position. The writer must do the same or the round trip
	// would grow an extra byte.
	original := []byte{0x50, 0x60}
	r := &Reader{DB: db}
	script, next, err := r.ReadScript(original, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	require.Len(t, script.Elements, 2)

	w := &Writer{}
	out, err := w.WriteScript(script)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestReaderTextModeFallsBackToByteElement(t *testing.T) {
	db := NewCommandDatabase("test")
	db.Add(&types.CommandDefinition{Name: "End", Base: []byte{0xFF}, Mask: []byte{0xFF}, EndType: types.EndAlways})
	r := &Reader{DB: db} // no encoding configured

	script, next, err := r.ReadScript([]byte{0x41, 0xFF}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	require.Len(t, script.Elements, 2)
	b, ok := script.Elements[0].(*ByteElement)
	require.True(t, ok)
	assert.Equal(t, byte(0x41), b.Byte)
}

type stubEncoding struct{ table map[byte]string }

func (s stubEncoding) DecodeNext(data []byte) (string, int, bool) {
	if len(data) == 0 {
		return "", 0, false
	}
	if text, ok := s.table[data[0]]; ok {
		return text, 1, true
	}
	return "", 0, false
}

func (s stubEncoding) EncodeNext(text string) ([]byte, int, bool) {
	for b, t := range s.table {
		if len(text) >= len(t) && text[:len(t)] == t {
			return []byte{b}, len(t), true
		}
	}
	return nil, 0, false
}

func TestReaderTextModeDecodesViaEncoding(t *testing.T) {
	db := NewCommandDatabase("test")
	db.Add(&types.CommandDefinition{Name: "End", Base: []byte{0xFF}, Mask: []byte{0xFF}, EndType: types.EndAlways})
	enc := stubEncoding{table: map[byte]string{0x41: "A", 0x42: "B"}}
	r := &Reader{DB: db, Encoding: enc}

	script, next, err := r.ReadScript([]byte{0x41, 0x42, 0xFF}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	require.Len(t, script.Elements, 3)
	txt1 := script.Elements[0].(*TextElement)
	txt2 := script.Elements[1].(*TextElement)
	assert.Equal(t, "A", txt1.Text)
	assert.Equal(t, "B", txt2.Text)
}
