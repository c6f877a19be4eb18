package types

import "testing"

func TestCommandDefinitionMatchesPrefix(t *testing.T) {
	def := &CommandDefinition{
		Name: "SetFlag",
		Base: []byte{0x10, 0x00},
		Mask: []byte{0xF0, 0xFF},
	}
	if !def.MatchesPrefix([]byte{0x17}) {
		t.Error("0x17 should match the first byte under mask 0xF0")
	}
	if def.MatchesPrefix([]byte{0x27}) {
		t.Error("0x27 should not match base 0x10 under mask 0xF0")
	}
	if !def.MatchesPrefix([]byte{0x17, 0x00}) {
		t.Error("0x17 0x00 should fully match")
	}
	if def.MatchesPrefix([]byte{0x17, 0x01}) {
		t.Error("0x17 0x01 should fail the second byte's mask")
	}
	if def.MatchesPrefix([]byte{0x17, 0x00, 0x00}) {
		t.Error("a sequence longer than MinimumLength should never match")
	}
}

func TestCommandDefinitionFindElement(t *testing.T) {
	def := &CommandDefinition{Elements: []CommandElementDefinition{{Name: "Args"}}}
	if def.FindElement("args") == nil {
		t.Error("FindElement should be case-insensitive")
	}
	if def.FindElement("missing") != nil {
		t.Error("FindElement should return nil for an unknown name")
	}
}

func TestCommandDefinitionMugshotParameter(t *testing.T) {
	mug := ParameterDefinition{Name: "Portrait", Bits: 8}
	def := &CommandDefinition{
		MugshotParameterName: "portrait",
		Elements: []CommandElementDefinition{
			{Name: "Args", ScalarParams: []ParameterDefinition{mug}},
		},
	}
	p := def.MugshotParameter()
	if p == nil || p.Name != "Portrait" {
		t.Fatalf("expected to resolve the mugshot parameter, got %v", p)
	}

	none := &CommandDefinition{}
	if none.MugshotParameter() != nil {
		t.Error("a definition with no mugshot parameter name should resolve to nil")
	}
}
