package cff

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// ParseEOT parses the EOT font format and returns its contained SFNT font
// file. See https://www.w3.org/Submission/EOT/
func ParseEOT(b []byte) ([]byte, error) {
	if len(b) < 82 {
		return nil, ErrInvalidFontData
	}

	r := parse.NewBinaryReaderLE(b)
	_ = r.ReadUint32()             // EOTSize
	fontDataSize := r.ReadUint32() // FontDataSize
	version := r.ReadUint32()
	if version != 0x00010000 && version != 0x00020001 && version != 0x00020002 {
		return nil, fmt.Errorf("EOT: unsupported version")
	}
	flags := r.ReadUint32()
	_ = r.ReadBytes(10) // FontPANOSE
	_ = r.ReadByte()    // Charset
	_ = r.ReadByte()    // Italic
	_ = r.ReadUint32()  // Weight
	_ = r.ReadUint16()  // fsType
	if magicNumber := r.ReadUint16(); magicNumber != 0x504C {
		return nil, fmt.Errorf("EOT: invalid magic number")
	}
	_ = r.ReadBytes(24) // Unicode and CodePage ranges
	_ = r.ReadUint32()  // CheckSumAdjustment
	_ = r.ReadBytes(16) // Reserved
	_ = r.ReadUint16()  // Padding1

	// skip the variable-length name strings
	for i := 0; i < 4; i++ {
		size := r.ReadUint16()
		_ = r.ReadBytes(uint32(size))
		if i < 3 {
			_ = r.ReadUint16() // padding
		}
	}
	if version == 0x00020001 || version == 0x00020002 {
		_ = r.ReadUint16()
		rootStringSize := r.ReadUint16()
		_ = r.ReadBytes(uint32(rootStringSize))
	}
	if version == 0x00020002 {
		_ = r.ReadUint32() // RootStringCheckSum
		_ = r.ReadUint32() // EUDCCodePage
		_ = r.ReadUint16() // Padding6
		signatureSize := r.ReadUint16()
		_ = r.ReadBytes(uint32(signatureSize))
		_ = r.ReadUint32() // EUDCFlags
		eudcFontSize := r.ReadUint32()
		_ = r.ReadBytes(eudcFontSize)
	}

	fontData := r.ReadBytes(fontDataSize)
	if r.EOF() {
		return nil, ErrInvalidFontData
	}

	if flags&0x10000000 != 0 { // XOR obfuscated
		for i := 0; i < len(fontData); i++ {
			fontData[i] ^= 0x50
		}
	}
	if flags&0x00000004 != 0 {
		return nil, fmt.Errorf("EOT: compression not supported")
	}
	return fontData, nil
}
