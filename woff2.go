package cff

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/andybalholm/brotli"
	"github.com/tdewolff/parse/v2"
)

// See https://www.w3.org/TR/WOFF2/

var woff2TableTags = []string{
	"cmap", "head", "hhea", "hmtx",
	"maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca",
	"prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern",
	"LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS",
	"GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar",
	"fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar",
	"mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat",
	"Gloc", "Feat", "Sill",
}

type woff2Table struct {
	tag        string
	origLength uint32
	data       []byte
}

// ParseWOFF2 parses a WOFF2 file and returns its contained SFNT font file.
// Only null-transformed tables are supported; CFF-flavored fonts are never
// transform-encoded, but TrueType fonts with transformed glyf/loca or hmtx
// tables are rejected.
func ParseWOFF2(b []byte) ([]byte, error) {
	if len(b) < 48 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReader(b)
	signature := r.ReadString(4)
	if signature != "wOF2" {
		return nil, fmt.Errorf("WOFF2: bad signature")
	}
	flavor := r.ReadString(4)
	if flavor == "ttcf" {
		return nil, fmt.Errorf("WOFF2: collections are unsupported")
	}
	length := r.ReadUint32()
	numTables := r.ReadUint16()
	reserved := r.ReadUint16()
	totalSfntSize := r.ReadUint32()
	totalCompressedSize := r.ReadUint32()
	_ = r.ReadUint16() // majorVersion
	_ = r.ReadUint16() // minorVersion
	_ = r.ReadUint32() // metaOffset
	_ = r.ReadUint32() // metaLength
	_ = r.ReadUint32() // metaOrigLength
	_ = r.ReadUint32() // privOffset
	_ = r.ReadUint32() // privLength
	if r.EOF() {
		return nil, ErrInvalidFontData
	} else if length != uint32(len(b)) {
		return nil, fmt.Errorf("WOFF2: length in header must match file size")
	} else if numTables == 0 {
		return nil, fmt.Errorf("WOFF2: numTables in header must not be zero")
	} else if reserved != 0 {
		return nil, fmt.Errorf("WOFF2: reserved in header must be zero")
	}

	tables := []woff2Table{}
	seen := map[string]bool{}
	var uncompressedSize uint32
	for i := 0; i < int(numTables); i++ {
		flags := r.ReadByte()
		tagIndex := int(flags & 0x3F)
		transformVersion := int((flags & 0xC0) >> 6)

		var tag string
		if tagIndex == 63 {
			tag = r.ReadString(4)
		} else {
			tag = woff2TableTags[tagIndex]
		}
		if seen[tag] {
			return nil, fmt.Errorf("WOFF2: %s: table defined more than once", tag)
		}
		seen[tag] = true

		origLength, err := readUintBase128(r)
		if err != nil {
			return nil, fmt.Errorf("WOFF2: %s: %w", tag, err)
		}

		nullTransform := transformVersion == 0
		if tag == "glyf" || tag == "loca" {
			nullTransform = transformVersion == 3
		}
		if !nullTransform {
			return nil, fmt.Errorf("WOFF2: %s: table transforms are unsupported", tag)
		}
		if math.MaxUint32-uncompressedSize < origLength {
			return nil, ErrInvalidFontData
		}
		uncompressedSize += origLength

		tables = append(tables, woff2Table{tag: tag, origLength: origLength})
	}

	compData := r.ReadBytes(totalCompressedSize)
	if r.EOF() {
		return nil, ErrInvalidFontData
	} else if MaxMemory < uncompressedSize || MaxMemory < totalSfntSize {
		return nil, ErrExceedsMemory
	}
	rBrotli := brotli.NewReader(bytes.NewReader(compData))
	dataBuf := bytes.NewBuffer(make([]byte, 0, uncompressedSize))
	if _, err := io.Copy(dataBuf, rBrotli); err != nil {
		return nil, fmt.Errorf("WOFF2: %w", err)
	}
	data := dataBuf.Bytes()
	if uint32(len(data)) != uncompressedSize {
		return nil, fmt.Errorf("WOFF2: sum of table lengths must match decompressed font data size")
	}

	sfntTables := make(map[string][]byte, len(tables))
	var offset uint32
	for i := range tables {
		n := tables[i].origLength
		tables[i].data = data[offset : offset+n : offset+n]
		offset += n
		sfntTables[tables[i].tag] = tables[i].data
	}

	return writeSFNT(flavor, sfntTables)
}

func readUintBase128(r *parse.BinaryReader) (uint32, error) {
	var accum uint32
	for i := 0; i < 5; i++ {
		dataByte := r.ReadByte()
		if r.EOF() {
			return 0, ErrInvalidFontData
		}
		if i == 0 && dataByte == 0x80 {
			return 0, fmt.Errorf("readUintBase128: must not start with leading zeros")
		}
		if accum&0xFE000000 != 0 {
			return 0, fmt.Errorf("readUintBase128: overflow")
		}
		accum = accum<<7 | uint32(dataByte&0x7F)
		if dataByte&0x80 == 0 {
			return accum, nil
		}
	}
	return 0, fmt.Errorf("readUintBase128: exceeds 5 bytes")
}
