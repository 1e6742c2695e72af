package cff

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// CFF2 is a parsed CFF2 table. CFF2 has no Name or String INDEX; the Top
// DICT is embedded directly after the header and holds no SIDs.
type CFF2 struct {
	major, minor uint8
	headerExtra  []byte // reserved header bytes beyond the first five

	TopDICT     *TopDICT
	globalSubrs *INDEX
}

// ParseCFF2 parses the contents of a CFF2 table.
func ParseCFF2(b []byte) (*CFF2, error) {
	if len(b) < 5 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	major := r.ReadUint8()
	minor := r.ReadUint8()
	if major != 2 {
		return nil, fmt.Errorf("CFF2: bad version")
	}
	hdrSize := r.ReadUint8()
	if hdrSize < 5 || uint32(len(b)) < uint32(hdrSize) {
		return nil, fmt.Errorf("CFF2: bad headerSize")
	}
	topDictLength := r.ReadUint16()
	headerExtra := r.ReadBytes(uint32(hdrSize) - 5)
	if r.Len() < uint32(topDictLength) {
		return nil, ErrInvalidFontData
	}

	topDICT, err := parseTopDICT2(r.ReadBytes(uint32(topDictLength)))
	if err != nil {
		return nil, fmt.Errorf("CFF2: Top DICT: %w", err)
	}

	globalSubrsINDEX, err := parseINDEX(r, true)
	if err != nil {
		return nil, fmt.Errorf("CFF2: Global Subrs INDEX: %w", err)
	}

	return &CFF2{
		major:       major,
		minor:       minor,
		headerExtra: headerExtra,
		TopDICT:     topDICT,
		globalSubrs: globalSubrsINDEX,
	}, nil
}

func parseTopDICT2(b []byte) (*TopDICT, error) {
	entries, err := parseDICTEntries(b)
	if err != nil {
		return nil, err
	}
	dict := &TopDICT{
		CharstringType: 2,
		FontMatrix:     [6]float64{0.001, 0.0, 0.0, 0.001, 0.0, 0.0},
	}
	dict.entries = entries
	for _, e := range entries {
		if err := dict.apply(e, nil); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

// Write serializes the CFF2 table.
func (cff *CFF2) Write() ([]byte, error) {
	topBytes, err := cff.TopDICT.write(nil, true)
	if err != nil {
		return nil, fmt.Errorf("CFF2: Top DICT: %w", err)
	} else if 0xFFFF < len(topBytes) {
		return nil, fmt.Errorf("CFF2: Top DICT: too long")
	}
	globalSubrs := cff.globalSubrs
	if globalSubrs == nil {
		globalSubrs = &INDEX{}
	}
	subrs, err := globalSubrs.write(true)
	if err != nil {
		return nil, fmt.Errorf("CFF2: Global Subrs INDEX: %w", err)
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint8(cff.major)
	w.WriteUint8(cff.minor)
	w.WriteUint8(uint8(5 + len(cff.headerExtra)))
	w.WriteUint16(uint16(len(topBytes)))
	w.WriteBytes(cff.headerExtra)
	w.WriteBytes(topBytes)
	w.WriteBytes(subrs)
	return w.Bytes(), nil
}
