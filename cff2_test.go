package cff

import (
	"testing"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/test"
)

func buildCFF2Table() []byte {
	topDICT := []byte{
		0x9B, 24, // VStore 16
		0xEF, 17, // CharStrings 100
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint8(2) // major
	w.WriteUint8(0) // minor
	w.WriteUint8(5) // headerSize
	w.WriteUint16(uint16(len(topDICT)))
	w.WriteBytes(topDICT)
	w.WriteBytes([]byte{0, 0, 0, 0}) // empty Global Subrs INDEX
	return w.Bytes()
}

func TestCFF2Parse(t *testing.T) {
	cff, err := ParseCFF2(buildCFF2Table())
	test.Error(t, err)
	test.T(t, cff.TopDICT.VStore, 16)
	test.T(t, cff.TopDICT.CharStrings, 100)
	test.T(t, cff.TopDICT.CharstringType, 2)
	test.T(t, cff.TopDICT.FontMatrix, [6]float64{0.001, 0.0, 0.0, 0.001, 0.0, 0.0})

	// CFF2 has no String INDEX and no string-valued defaults
	test.T(t, cff.TopDICT.Version, "")
	test.T(t, cff.TopDICT.UnderlinePosition, 0.0)
}

func TestCFF2RoundTrip(t *testing.T) {
	b := buildCFF2Table()
	cff, err := ParseCFF2(b)
	test.Error(t, err)

	b2, err := cff.Write()
	test.Error(t, err)
	test.T(t, b2, b)
}

func TestCFF2HeaderExtra(t *testing.T) {
	// reserved bytes between the fixed header and the Top DICT survive
	topDICT := []byte{0xEF, 17}
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint8(2)
	w.WriteUint8(0)
	w.WriteUint8(7) // headerSize, two reserved bytes
	w.WriteUint16(uint16(len(topDICT)))
	w.WriteBytes([]byte{0xDE, 0xAD})
	w.WriteBytes(topDICT)
	w.WriteBytes([]byte{0, 0, 0, 0})
	b := w.Bytes()

	cff, err := ParseCFF2(b)
	test.Error(t, err)
	test.T(t, cff.TopDICT.CharStrings, 100)

	b2, err := cff.Write()
	test.Error(t, err)
	test.T(t, b2, b)
}

func TestCFF2Mutate(t *testing.T) {
	cff, err := ParseCFF2(buildCFF2Table())
	test.Error(t, err)

	cff.TopDICT.VStore = 32
	cff.TopDICT.FDArray = 200
	b, err := cff.Write()
	test.Error(t, err)

	cff2, err := ParseCFF2(b)
	test.Error(t, err)
	test.T(t, cff2.TopDICT.VStore, 32)
	test.T(t, cff2.TopDICT.FDArray, 200)
	test.T(t, cff2.TopDICT.CharStrings, 100)
}

func TestCFF2ParseErrors(t *testing.T) {
	_, err := ParseCFF2([]byte{2, 0})
	test.T(t, err, ErrInvalidFontData)

	_, err = ParseCFF2([]byte{1, 0, 5, 0, 0})
	test.T(t, err.Error(), "CFF2: bad version")

	_, err = ParseCFF2([]byte{2, 0, 4, 0, 0})
	test.T(t, err.Error(), "CFF2: bad headerSize")

	// declared Top DICT length exceeds the data
	_, err = ParseCFF2([]byte{2, 0, 5, 0, 9, 0xEF, 17})
	test.T(t, err, ErrInvalidFontData)
}
