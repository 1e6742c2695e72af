package cff

import (
	"bytes"
	"math"

	"github.com/tdewolff/parse/v2"
)

// readOffset reads a single 1-4 byte big-endian offset as used in INDEX
// offset arrays.
func readOffset(r *parse.BinaryReader, offSize uint8) (uint32, error) {
	switch offSize {
	case 1:
		return uint32(r.ReadUint8()), nil
	case 2:
		return uint32(r.ReadUint16()), nil
	case 3:
		return uint32(r.ReadUint16())<<8 + uint32(r.ReadUint8()), nil
	case 4:
		return r.ReadUint32(), nil
	}
	return 0, ErrInvalidOffsetSize
}

func writeOffset(w *parse.BinaryWriter, v uint32, offSize uint8) error {
	switch offSize {
	case 1:
		w.WriteUint8(uint8(v))
	case 2:
		w.WriteUint16(uint16(v))
	case 3:
		w.WriteUint8(uint8(v >> 16))
		w.WriteUint16(uint16(v))
	case 4:
		w.WriteUint32(v)
	default:
		return ErrInvalidOffsetSize
	}
	return nil
}

// indexOffSize returns the minimum offset size that can represent n.
func indexOffSize(n int) uint8 {
	if n <= math.MaxUint8 {
		return 1
	} else if n <= math.MaxUint16 {
		return 2
	} else if n <= 1<<24-1 {
		return 3
	}
	return 4
}

// INDEX is the generic CFF array of byte strings: a count, an offset array
// and a contiguous data blob sliced by consecutive offset pairs. Offsets
// are kept zero-based in memory; the wire format is one-based.
type INDEX struct {
	offSize uint8 // as declared on the wire, zero for INDEXes built in memory
	offset  []uint32
	data    []byte
}

// Len returns the number of elements.
func (t *INDEX) Len() int {
	if len(t.offset) == 0 {
		return 0
	}
	return len(t.offset) - 1
}

// Get returns element i, or nil when out of bounds.
func (t *INDEX) Get(i int) []byte {
	if 0 <= i && i < t.Len() {
		return t.data[t.offset[i]:t.offset[i+1]]
	}
	return nil
}

// GetChecked is Get with an explicit bounds error.
func (t *INDEX) GetChecked(i int) ([]byte, error) {
	if i < 0 || t.Len() <= i {
		return nil, ErrIndexOutOfBounds
	}
	return t.data[t.offset[i]:t.offset[i+1]], nil
}

// Add appends data as a new element and returns its element index.
func (t *INDEX) Add(data []byte) int {
	if len(t.offset) == 0 {
		t.offset = append(t.offset, 0)
	}
	t.data = append(t.data, data...)
	t.offset = append(t.offset, uint32(len(t.data)))
	return len(t.offset) - 2
}

// AddSID returns the SID for data in a String INDEX, reusing a standard
// string or an existing custom string before appending a new one. Without the
// reuse the string table would grow on every mutate/save cycle.
func (t *INDEX) AddSID(data []byte) int {
	for i, s := range standardStrings {
		if bytes.Equal(data, []byte(s)) {
			return i
		}
	}
	for i := 0; i+1 < len(t.offset); i++ {
		if bytes.Equal(data, t.data[t.offset[i]:t.offset[i+1]]) {
			return i + len(standardStrings)
		}
	}
	return t.Add(data) + len(standardStrings)
}

func (t *INDEX) clone() *INDEX {
	c := &INDEX{offSize: t.offSize}
	c.offset = append(c.offset, t.offset...)
	c.data = append(c.data, t.data...)
	return c
}

func parseINDEX(r *parse.BinaryReader, isCFF2 bool) (*INDEX, error) {
	t := &INDEX{}
	var count uint32
	if !isCFF2 {
		if r.Len() < 2 {
			return nil, ErrTruncatedIndex
		}
		count = uint32(r.ReadUint16())
	} else {
		if r.Len() < 4 {
			return nil, ErrTruncatedIndex
		}
		count = r.ReadUint32()
	}
	if count == 0 {
		// an empty INDEX is just the count field
		return t, nil
	} else if 1e6 < count {
		return nil, ErrInvalidFontData
	}

	if r.Len() < 1 {
		return nil, ErrTruncatedIndex
	}
	t.offSize = r.ReadUint8()
	if t.offSize == 0 || 4 < t.offSize {
		return nil, ErrInvalidOffsetSize
	}
	if r.Len() < uint32(t.offSize)*(count+1) {
		return nil, ErrTruncatedIndex
	}

	t.offset = make([]uint32, count+1)
	for i := uint32(0); i < count+1; i++ {
		offset, _ := readOffset(r, t.offSize)
		if offset == 0 {
			// wire offsets are one-based
			return nil, ErrMalformedOffsets
		}
		t.offset[i] = offset - 1
	}
	if t.offset[0] != 0 {
		return nil, ErrMalformedOffsets
	}
	for i := uint32(0); i < count; i++ {
		if t.offset[i+1] < t.offset[i] {
			return nil, ErrMalformedOffsets
		}
	}
	if r.Len() < t.offset[count] {
		return nil, ErrTruncatedIndex
	}
	t.data = r.ReadBytes(t.offset[count])
	return t, nil
}

// Write serializes the INDEX. A parsed INDEX keeps its declared offset size
// as long as it remains sufficient, so untouched tables reproduce byte-exact;
// INDEXes built or grown in memory get the minimum sufficient size.
func (t *INDEX) Write() ([]byte, error) {
	return t.write(false)
}

func (t *INDEX) write(isCFF2 bool) ([]byte, error) {
	if !isCFF2 && math.MaxUint16 < t.Len() {
		return nil, ErrInvalidFontData
	} else if t.Len() == 0 {
		if isCFF2 {
			return []byte{0, 0, 0, 0}, nil
		}
		return []byte{0, 0}, nil
	} else if t.offset[0] != 0 || int(t.offset[len(t.offset)-1]) != len(t.data) {
		return nil, ErrMalformedOffsets
	}

	offSize := indexOffSize(len(t.data) + 1)
	if offSize < t.offSize && t.offSize <= 4 {
		offSize = t.offSize
	}

	n := 3 + len(t.data) + int(offSize)*len(t.offset)
	w := parse.NewBinaryWriter(make([]byte, 0, n))
	if !isCFF2 {
		w.WriteUint16(uint16(t.Len()))
	} else {
		w.WriteUint32(uint32(t.Len()))
	}
	w.WriteUint8(offSize)
	for _, offset := range t.offset {
		writeOffset(w, offset+1, offSize)
	}
	w.WriteBytes(t.data)
	return w.Bytes(), nil
}
