// Package cff reads and writes the CFF (Compact Font Format) table embedded
// in OpenType fonts: the header, the Name/Top DICT/String/Global Subr INDEX
// structures and the structured Top DICT view, with re-serialization back to
// the INDEX-based binary format.
package cff

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// ErrInvalidFontData is returned if the font is malformed.
var ErrInvalidFontData = fmt.Errorf("invalid font data")

// ErrExceedsMemory is returned if the font requires too much memory.
var ErrExceedsMemory = fmt.Errorf("memory limit exceded")

var (
	ErrTruncatedIndex       = fmt.Errorf("unexpected end of INDEX data")
	ErrInvalidOffsetSize    = fmt.Errorf("offset size must be in 1..4")
	ErrMalformedOffsets     = fmt.Errorf("INDEX offsets must be one-based and non-decreasing")
	ErrIndexOutOfBounds     = fmt.Errorf("INDEX element out of bounds")
	ErrMalformedDictOperand = fmt.Errorf("bad DICT operand")
	ErrInvalidStringID      = fmt.Errorf("invalid string ID")
	ErrUnknownStringID      = fmt.Errorf("string ID not in String INDEX")
	ErrNoTopDict            = fmt.Errorf("Top DICT INDEX is empty")
)

// MaxMemory is the maximum memory that can be allocated by a font.
var MaxMemory uint32 = 30 * 1024 * 1024

// CFF is a parsed CFF table. TopDICT is the structured view of the first
// font's Top DICT; its string fields may be modified before calling Write.
// CFF tables with multiple fonts keep their further Top DICTs as raw INDEX
// elements.
type CFF struct {
	major, minor uint8
	hdrOffSize   uint8
	headerExtra  []byte // reserved header bytes beyond the first four

	names       *INDEX
	topDicts    *INDEX
	strings     *INDEX
	globalSubrs *INDEX

	TopDICT *TopDICT
}

// Parse parses the contents of a CFF table.
func Parse(b []byte) (*CFF, error) {
	if len(b) < 4 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	major := r.ReadUint8()
	minor := r.ReadUint8()
	if major != 1 {
		return nil, fmt.Errorf("CFF: bad version")
	}
	hdrSize := r.ReadUint8()
	if hdrSize < 4 || uint32(len(b)) < uint32(hdrSize) {
		return nil, fmt.Errorf("CFF: bad hdrSize")
	}
	offSize := r.ReadUint8()
	if offSize == 0 || 4 < offSize {
		return nil, fmt.Errorf("CFF: %w", ErrInvalidOffsetSize)
	}
	headerExtra := r.ReadBytes(uint32(hdrSize) - 4)

	nameINDEX, err := parseINDEX(r, false)
	if err != nil {
		return nil, fmt.Errorf("CFF: Name INDEX: %w", err)
	}

	topINDEX, err := parseINDEX(r, false)
	if err != nil {
		return nil, fmt.Errorf("CFF: Top DICT INDEX: %w", err)
	} else if topINDEX.Len() == 0 {
		return nil, fmt.Errorf("CFF: Top DICT INDEX: %w", ErrNoTopDict)
	} else if topINDEX.Len() != nameINDEX.Len() {
		return nil, fmt.Errorf("CFF: Top DICT INDEX: bad count")
	}

	stringINDEX, err := parseINDEX(r, false)
	if err != nil {
		return nil, fmt.Errorf("CFF: String INDEX: %w", err)
	}

	globalSubrsINDEX, err := parseINDEX(r, false)
	if err != nil {
		return nil, fmt.Errorf("CFF: Global Subrs INDEX: %w", err)
	}

	topDICT, err := parseTopDICT(topINDEX.Get(0), stringINDEX)
	if err != nil {
		return nil, fmt.Errorf("CFF: Top DICT: %w", err)
	}

	return &CFF{
		major:       major,
		minor:       minor,
		hdrOffSize:  offSize,
		headerExtra: headerExtra,
		names:       nameINDEX,
		topDicts:    topINDEX,
		strings:     stringINDEX,
		globalSubrs: globalSubrsINDEX,
		TopDICT:     topDICT,
	}, nil
}

// Name returns the PostScript name of the first font.
func (cff *CFF) Name() string {
	return string(cff.names.Get(0))
}

// NumFonts returns the number of fonts in the table's FontSet.
func (cff *CFF) NumFonts() int {
	return cff.topDicts.Len()
}

// TopDictBytes returns the raw Top DICT bytes of font i.
func (cff *CFF) TopDictBytes(i int) ([]byte, error) {
	return cff.topDicts.GetChecked(i)
}

// StringBytes returns custom string i of the String INDEX.
func (cff *CFF) StringBytes(i int) ([]byte, error) {
	return cff.strings.GetChecked(i)
}

// GetString resolves a SID against the standard strings and the String INDEX.
func (cff *CFF) GetString(sid int) (string, error) {
	return cff.strings.SIDString(sid)
}

// Write serializes the CFF table. Strings that were modified in TopDICT are
// re-linked: existing standard or custom strings are reused and new ones are
// appended to the String INDEX, so repeated load/save cycles do not grow the
// table. Untouched INDEX structures reproduce their original layout.
func (cff *CFF) Write() ([]byte, error) {
	strings := cff.strings.clone()
	topBytes, err := cff.TopDICT.write(strings, false)
	if err != nil {
		return nil, fmt.Errorf("CFF: Top DICT: %w", err)
	}

	topDicts := &INDEX{}
	topDicts.Add(topBytes)
	for i := 1; i < cff.topDicts.Len(); i++ {
		topDicts.Add(cff.topDicts.Get(i))
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint8(cff.major)
	w.WriteUint8(cff.minor)
	w.WriteUint8(uint8(4 + len(cff.headerExtra)))
	w.WriteUint8(cff.hdrOffSize)
	w.WriteBytes(cff.headerExtra)

	for _, t := range []struct {
		name  string
		index *INDEX
	}{
		{"Name INDEX", cff.names},
		{"Top DICT INDEX", topDicts},
		{"String INDEX", strings},
		{"Global Subrs INDEX", cff.globalSubrs},
	} {
		b, err := t.index.Write()
		if err != nil {
			return nil, fmt.Errorf("CFF: %s: %w", t.name, err)
		}
		w.WriteBytes(b)
	}
	return w.Bytes(), nil
}
