package romscript

import "testing"

func TestReadWriteBitsLERoundTrip(t *testing.T) {
	cases := []struct {
		name        string
		shift, bits int
		value       int64
	}{
		{"low nibble", 0, 4, 0x7},
		{"high nibble", 4, 4, 0xA},
		{"spans two bytes", 6, 6, 0x3F},
		{"full byte", 0, 8, 0xAB},
		{"sixteen bits", 0, 16, 0xBEEF},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			window := make([]byte, 4)
			if err := writeBitsLE(window, c.shift, c.bits, c.value); err != nil {
				t.Fatalf("writeBitsLE: %v", err)
			}
			got, err := readBitsLE(window, c.shift, c.bits)
			if err != nil {
				t.Fatalf("readBitsLE: %v", err)
			}
			if got != c.value {
				t.Errorf("got %#x, want %#x (window=%x)", got, c.value, window)
			}
		})
	}
}

func TestWriteBitsLEPreservesSurroundingBits(t *testing.T) {
	window := []byte{0xFF}
	if err := writeBitsLE(window, 0, 4, 0x0); err != nil {
		t.Fatal(err)
	}
	if window[0] != 0xF0 {
		t.Errorf("expected the high nibble untouched, got %#x", window[0])
	}
}

func TestReadBitsLEMatchesSeedScenario(t *testing.T) {
	// base=[0x10] mask=[0xF0], one 4-bit parameter at shift 0.
	// Input byte 0x17 decodes to 7.
	got, err := readBitsLE([]byte{0x17}, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

func TestWriteBitsLETooSmallWindow(t *testing.T) {
	if err := writeBitsLE([]byte{0}, 0, 16, 1); err == nil {
		t.Error("expected an error writing a 16-bit field into a 1-byte window")
	}
}
