package cff

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// Table tags under which CFF data is stored in an OpenType font.
const (
	TagCFF  = "CFF "
	TagCFF2 = "CFF2"
)

func calcChecksum(b []byte) uint32 {
	if len(b)%4 != 0 {
		panic("data not multiple of four bytes")
	}
	var sum uint32
	for i := 0; i < len(b); i += 4 {
		sum += binary.BigEndian.Uint32(b[i : i+4])
	}
	return sum
}

func parseTableDirectory(b []byte) (string, map[string][]byte, error) {
	if len(b) < 12 || uint(math.MaxUint32) < uint(len(b)) {
		return "", nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	sfntVersion := r.ReadString(4)
	if sfntVersion != "OTTO" && sfntVersion != "true" && binary.BigEndian.Uint32([]byte(sfntVersion)) != 0x00010000 {
		return "", nil, fmt.Errorf("bad SFNT version")
	}
	numTables := r.ReadUint16()
	_ = r.ReadUint16() // searchRange
	_ = r.ReadUint16() // entrySelector
	_ = r.ReadUint16() // rangeShift
	if r.Len() < 16*uint32(numTables) {
		return "", nil, ErrInvalidFontData
	}

	tables := make(map[string][]byte, numTables)
	for i := 0; i < int(numTables); i++ {
		tag := r.ReadString(4)
		_ = r.ReadUint32() // checksum
		offset := r.ReadUint32()
		length := r.ReadUint32()

		padding := (4 - length&3) & 3
		if uint32(len(b)) <= offset || uint32(len(b))-offset < length || uint32(len(b))-offset-length < padding {
			return "", nil, ErrInvalidFontData
		}
		tables[tag] = b[offset : offset+length : offset+length]
	}
	return sfntVersion, tables, nil
}

// ExtractTable returns the raw bytes of the table stored under tag in an
// SFNT (OTF/TTF) font file.
func ExtractTable(b []byte, tag string) ([]byte, error) {
	_, tables, err := parseTableDirectory(b)
	if err != nil {
		return nil, err
	}
	table, ok := tables[tag]
	if !ok {
		return nil, fmt.Errorf("%s: missing table", tag)
	}
	return table, nil
}

// ReplaceTable installs table under tag in an SFNT font file, adding it when
// absent, and returns a new font file with recalculated table checksums and
// checkSumAdjustment.
func ReplaceTable(b []byte, tag string, table []byte) ([]byte, error) {
	sfntVersion, tables, err := parseTableDirectory(b)
	if err != nil {
		return nil, err
	}
	tables[tag] = table
	return writeSFNT(sfntVersion, tables)
}

// writeSFNT assembles a font file from its tables, recalculating per-table
// checksums and the head table's checkSumAdjustment.
func writeSFNT(sfntVersion string, tables map[string][]byte) ([]byte, error) {
	tags := make([]string, 0, len(tables))
	for t := range tables {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	w := parse.NewBinaryWriter([]byte{})
	w.WriteString(sfntVersion)
	numTables := uint16(len(tags))
	entrySelector := uint16(math.Log2(float64(numTables)))
	searchRange := uint16(1 << (entrySelector + 4))
	w.WriteUint16(numTables)
	w.WriteUint16(searchRange)
	w.WriteUint16(entrySelector)
	w.WriteUint16(numTables<<4 - searchRange)

	// table records are filled in at the end
	w.WriteBytes(make([]byte, numTables<<4))

	var checksumAdjustmentPos uint32
	offsets, lengths := make([]uint32, numTables), make([]uint32, numTables)
	for i, t := range tags {
		offsets[i] = w.Len()
		if t == "head" {
			if len(tables[t]) < 12 {
				return nil, ErrInvalidFontData
			}
			checksumAdjustmentPos = w.Len() + 8
		}
		w.WriteBytes(tables[t])
		lengths[i] = w.Len() - offsets[i]

		padding := (4 - lengths[i]&3) & 3
		for j := 0; j < int(padding); j++ {
			w.WriteByte(0)
		}
	}

	buf := w.Bytes()
	if checksumAdjustmentPos != 0 {
		binary.BigEndian.PutUint32(buf[checksumAdjustmentPos:], 0x00000000)
	}
	for i, t := range tags {
		pos := 12 + i<<4
		copy(buf[pos:], []byte(t))
		padding := (4 - lengths[i]&3) & 3
		checksum := calcChecksum(buf[offsets[i] : offsets[i]+lengths[i]+padding])
		binary.BigEndian.PutUint32(buf[pos+4:], checksum)
		binary.BigEndian.PutUint32(buf[pos+8:], offsets[i])
		binary.BigEndian.PutUint32(buf[pos+12:], lengths[i])
	}
	if checksumAdjustmentPos != 0 {
		binary.BigEndian.PutUint32(buf[checksumAdjustmentPos:], 0xB1B0AFBA-calcChecksum(buf))
	}
	return buf, nil
}
