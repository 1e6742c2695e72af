package cff

import (
	"bytes"
	"testing"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/test"
)

func TestDICTIntegerEncoding(t *testing.T) {
	tests := []struct {
		i int
		b []byte
	}{
		{0, []byte{0x8B}},
		{100, []byte{0xEF}},
		{-100, []byte{0x27}},
		{107, []byte{0xF6}},
		{-107, []byte{0x20}},
		{108, []byte{0xF7, 0x00}},
		{-108, []byte{0xFB, 0x00}},
		{1000, []byte{0xFA, 0x7C}},
		{-1000, []byte{0xFE, 0x7C}},
		{1131, []byte{0xFA, 0xFF}},
		{-1131, []byte{0xFE, 0xFF}},
		{1132, []byte{28, 0x04, 0x6C}},
		{32767, []byte{28, 0x7F, 0xFF}},
		{-32768, []byte{28, 0x80, 0x00}},
		{100000, []byte{29, 0x00, 0x01, 0x86, 0xA0}},
		{-100000, []byte{29, 0xFF, 0xFE, 0x79, 0x60}},
	}
	for _, tt := range tests {
		w := parse.NewBinaryWriter([]byte{})
		writeDICTNumber(w, intOperand(tt.i))
		test.T(t, w.Bytes(), tt.b, tt.i)

		r := parse.NewBinaryReader(tt.b)
		v, err := parseDICTNumber(int(r.ReadUint8()), r)
		test.Error(t, err)
		test.T(t, v.Int, tt.i)
		test.T(t, v.IsReal, false)
	}
}

func TestDICTRealEncoding(t *testing.T) {
	tests := []struct {
		f float64
		b []byte
	}{
		{-2.25, []byte{30, 0xE2, 0xA2, 0x5F}},
		{0.5, []byte{30, 0x0A, 0x5F}},
		{0.00001, []byte{30, 0x1C, 0x05, 0xFF}}, // 1E-05
	}
	for _, tt := range tests {
		w := parse.NewBinaryWriter([]byte{})
		writeDICTReal(w, tt.f)
		test.T(t, w.Bytes(), tt.b, tt.f)
	}

	for _, f := range []float64{-2.25, 0.5, 0.000140541, 123.456, -0.00001, 1234.5678} {
		w := parse.NewBinaryWriter([]byte{})
		writeDICTReal(w, f)
		b := w.Bytes()

		r := parse.NewBinaryReader(b)
		v, err := parseDICTNumber(int(r.ReadUint8()), r)
		test.Error(t, err)
		test.T(t, v.Real, f)
		test.T(t, v.IsReal, true)
	}
}

func TestDICTEntries(t *testing.T) {
	entries, err := parseDICTEntries([]byte{0x8B, 0})
	test.Error(t, err)
	test.T(t, len(entries), 1)
	test.T(t, entries[0].op, opVersion)
	test.T(t, entries[0].operands[0].Int, 0)

	// two-byte operator with the 12 escape
	entries, err = parseDICTEntries([]byte{0x8B, 12, 2})
	test.Error(t, err)
	test.T(t, len(entries), 1)
	test.T(t, entries[0].op, opItalicAngle)

	// reserved bytes are skipped, the operand stack survives
	entries, err = parseDICTEntries([]byte{22, 0x8B, 0})
	test.Error(t, err)
	test.T(t, len(entries), 1)
	test.T(t, entries[0].op, opVersion)
	test.T(t, entries[0].operands[0].Int, 0)

	// unrecognized operators pass through with their operands
	entries, err = parseDICTEntries([]byte{0x8C, 0x8D, 21})
	test.Error(t, err)
	test.T(t, len(entries), 1)
	test.T(t, entries[0].op, 21)
	test.T(t, entries[0].ints(), []int{1, 2})

	w := parse.NewBinaryWriter([]byte{})
	test.Error(t, writeDICTEntry(w, entries[0].op, entries[0].operands...))
	test.T(t, w.Bytes(), []byte{0x8C, 0x8D, 21})
}

func TestDICTEntriesMalformed(t *testing.T) {
	tests := [][]byte{
		{0xFA},              // truncated two-byte integer
		{28, 0x01},          // truncated int16
		{29, 0x01, 0x02},    // truncated int32
		{30, 0x12},          // real without end nibble
		{12},                // truncated escape operator
		{0x8B, 5},           // FontBBox takes four operands
		{0x8B, 18},          // Private takes offset and length
		append(bytes.Repeat([]byte{0x8B}, 49), 0), // operand stack overflow
	}
	for _, b := range tests {
		_, err := parseDICTEntries(b)
		test.T(t, err, ErrMalformedDictOperand, b)
	}
}

func TestTopDICTDuplicateOps(t *testing.T) {
	strings := &INDEX{}
	strings.Add([]byte("first"))
	strings.Add([]byte("second"))

	// Version appears twice, the last occurrence wins
	b := []byte{0xF8, 0x1B, 0, 0xF8, 0x1C, 0}
	dict, err := parseTopDICT(b, strings)
	test.Error(t, err)
	test.T(t, dict.Version, "second")

	b2, err := dict.write(strings.clone(), false)
	test.Error(t, err)
	entries, err := parseDICTEntries(b2)
	test.Error(t, err)
	test.T(t, len(entries), 1)
	test.T(t, entries[0].op, opVersion)
	test.T(t, entries[0].operands[0].Int, 392)
}

func TestTopDICTPassThrough(t *testing.T) {
	// operator 21 is not recognized but must survive a parse/write cycle
	b := []byte{0x90, 21, 0xEF, 12, 2}
	dict, err := parseTopDICT(b, &INDEX{})
	test.Error(t, err)
	test.T(t, dict.ItalicAngle, 100.0)

	b2, err := dict.write(&INDEX{}, false)
	test.Error(t, err)
	test.T(t, b2, b)
}

func TestTopDICTDefaults(t *testing.T) {
	dict, err := parseTopDICT([]byte{}, &INDEX{})
	test.Error(t, err)
	test.T(t, dict.UnderlinePosition, -100.0)
	test.T(t, dict.UnderlineThickness, 50.0)
	test.T(t, dict.CharstringType, 2)
	test.T(t, dict.FontMatrix, [6]float64{0.001, 0.0, 0.0, 0.001, 0.0, 0.0})

	// defaulted values write no entries at all
	b, err := dict.write(&INDEX{}, false)
	test.Error(t, err)
	test.T(t, b, []byte{})
}
