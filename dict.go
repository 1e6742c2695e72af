package cff

import (
	"math"
	"strconv"

	"github.com/tdewolff/parse/v2"
)

// Top DICT operators. Two-byte operators with the 12 escape are encoded as
// 256 plus their second byte.
const (
	opVersion     = 0
	opNotice      = 1
	opFullName    = 2
	opFamilyName  = 3
	opWeight      = 4
	opFontBBox    = 5
	opUniqueID    = 13
	opXUID        = 14
	opCharset     = 15
	opEncoding    = 16
	opCharStrings = 17
	opPrivate     = 18
	opVStore      = 24 // CFF2

	opCopyright          = 256 + 0
	opIsFixedPitch       = 256 + 1
	opItalicAngle        = 256 + 2
	opUnderlinePosition  = 256 + 3
	opUnderlineThickness = 256 + 4
	opPaintType          = 256 + 5
	opCharstringType     = 256 + 6
	opFontMatrix         = 256 + 7
	opStrokeWidth        = 256 + 8
	opSyntheticBase      = 256 + 20
	opPostScript         = 256 + 21
	opBaseFontName       = 256 + 22
	opBaseFontBlend      = 256 + 23
	opROS                = 256 + 30
	opFDArray            = 256 + 36
	opFDSelect           = 256 + 37
	opFontName           = 256 + 38
)

// dictOpSize is the expected operand count per recognized operator, -1 for
// variable. Unrecognized operators pass through with whatever operands they
// accumulated.
var dictOpSize = map[int]int{
	opVersion:     1,
	opNotice:      1,
	opFullName:    1,
	opFamilyName:  1,
	opWeight:      1,
	opFontBBox:    4,
	opUniqueID:    1,
	opXUID:        -1,
	opCharset:     1,
	opEncoding:    1,
	opCharStrings: 1,
	opPrivate:     2,
	opVStore:      1,

	opCopyright:          1,
	opIsFixedPitch:       1,
	opItalicAngle:        1,
	opUnderlinePosition:  1,
	opUnderlineThickness: 1,
	opPaintType:          1,
	opCharstringType:     1,
	opFontMatrix:         6,
	opStrokeWidth:        1,
	opSyntheticBase:      1,
	opPostScript:         1,
	opBaseFontName:       1,
	opBaseFontBlend:      -1,
	opROS:                3,
	opFDArray:            1,
	opFDSelect:           1,
	opFontName:           1,
}

// dictOperand is a single decoded DICT operand. Int and Real always hold the
// same value in both views; IsReal records whether the operand came from (and
// re-encodes with) the nibble real encoding.
type dictOperand struct {
	Int    int
	Real   float64
	IsReal bool
}

func intOperand(i int) dictOperand {
	return dictOperand{Int: i, Real: float64(i)}
}

func numOperand(f float64) dictOperand {
	return dictOperand{Int: int(math.Round(f)), Real: f, IsReal: f != math.Trunc(f)}
}

func intOperands(is []int) []dictOperand {
	vs := make([]dictOperand, len(is))
	for i, v := range is {
		vs[i] = intOperand(v)
	}
	return vs
}

func realOperands(fs []float64) []dictOperand {
	vs := make([]dictOperand, len(fs))
	for i, f := range fs {
		vs[i] = numOperand(f)
	}
	return vs
}

// dictEntry is one operator with its operands as decoded from a DICT byte
// stream.
type dictEntry struct {
	op       int
	operands []dictOperand
}

func (e *dictEntry) ints() []int {
	is := make([]int, len(e.operands))
	for i, v := range e.operands {
		is[i] = v.Int
	}
	return is
}

func (e *dictEntry) reals() []float64 {
	fs := make([]float64, len(e.operands))
	for i, v := range e.operands {
		fs[i] = v.Real
	}
	return fs
}

// parseDICTEntries tokenizes a DICT byte stream into operator/operand
// entries, preserving unrecognized operators.
func parseDICTEntries(b []byte) ([]dictEntry, error) {
	var entries []dictEntry
	var stack []dictOperand
	r := parse.NewBinaryReader(b)
	for 0 < r.Len() {
		b0 := int(r.ReadUint8())
		if b0 < 22 {
			op := b0
			if op == 12 {
				if r.Len() == 0 {
					return nil, ErrMalformedDictOperand
				}
				op = 256 + int(r.ReadUint8())
			}
			if size, ok := dictOpSize[op]; ok && size != -1 && len(stack) != size {
				return nil, ErrMalformedDictOperand
			}
			entries = append(entries, dictEntry{op: op, operands: stack})
			stack = nil
		} else if 22 <= b0 && b0 < 28 || b0 == 31 || b0 == 255 {
			// reserved
		} else {
			if 48 <= len(stack) {
				return nil, ErrMalformedDictOperand
			}
			v, err := parseDICTNumber(b0, r)
			if err != nil {
				return nil, err
			}
			stack = append(stack, v)
		}
	}
	return entries, nil
}

func parseDICTNumber(b0 int, r *parse.BinaryReader) (dictOperand, error) {
	if b0 == 28 {
		if r.Len() < 2 {
			return dictOperand{}, ErrMalformedDictOperand
		}
		i := int(r.ReadInt16())
		return intOperand(i), nil
	} else if b0 == 29 {
		if r.Len() < 4 {
			return dictOperand{}, ErrMalformedDictOperand
		}
		i := int(r.ReadInt32())
		return intOperand(i), nil
	} else if b0 == 30 {
		num := []byte{}
		for {
			if r.Len() == 0 {
				return dictOperand{}, ErrMalformedDictOperand
			}
			b := r.ReadUint8()
			for i := 0; i < 2; i++ {
				switch b >> 4 {
				case 0x0A:
					num = append(num, '.')
				case 0x0B:
					num = append(num, 'E')
				case 0x0C:
					num = append(num, 'E', '-')
				case 0x0D:
					// reserved
				case 0x0E:
					num = append(num, '-')
				case 0x0F:
					f, err := strconv.ParseFloat(string(num), 64)
					if err != nil {
						return dictOperand{}, ErrMalformedDictOperand
					}
					return dictOperand{Int: int(math.Round(f)), Real: f, IsReal: true}, nil
				default:
					num = append(num, '0'+byte(b>>4))
				}
				b <<= 4
			}
		}
	} else if 32 <= b0 && b0 < 247 {
		return intOperand(b0 - 139), nil
	} else if b0 < 251 {
		if r.Len() < 1 {
			return dictOperand{}, ErrMalformedDictOperand
		}
		b1 := int(r.ReadUint8())
		return intOperand((b0-247)*256 + b1 + 108), nil
	} else if b0 < 255 {
		if r.Len() < 1 {
			return dictOperand{}, ErrMalformedDictOperand
		}
		b1 := int(r.ReadUint8())
		return intOperand(-(b0-251)*256 - b1 - 108), nil
	}
	return dictOperand{}, ErrMalformedDictOperand
}

func writeDICTEntry(w *parse.BinaryWriter, op int, operands ...dictOperand) error {
	if 48 < len(operands) {
		return ErrMalformedDictOperand
	}
	for _, v := range operands {
		writeDICTNumber(w, v)
	}
	if 512 <= op || op < 0 || op == 12 {
		return ErrMalformedDictOperand
	}
	if 256 <= op {
		w.WriteUint8(12)
		op -= 256
	}
	w.WriteUint8(uint8(op))
	return nil
}

// writeDICTNumber encodes an operand in its minimal form. Integer-valued
// reals re-encode as integers, which decodes to the same value.
func writeDICTNumber(w *parse.BinaryWriter, v dictOperand) {
	if v.IsReal && v.Real != math.Trunc(v.Real) {
		writeDICTReal(w, v.Real)
		return
	}
	i := v.Int
	if v.IsReal {
		i = int(v.Real)
	}
	if -107 <= i && i <= 107 {
		w.WriteUint8(uint8(i + 139))
	} else if 108 <= i && i <= 1131 {
		i -= 108
		w.WriteUint8(uint8(i/256 + 247))
		w.WriteUint8(uint8(i % 256))
	} else if -1131 <= i && i <= -108 {
		i = -i - 108
		w.WriteUint8(uint8(i/256 + 251))
		w.WriteUint8(uint8(i % 256))
	} else if -32768 <= i && i <= 32767 {
		w.WriteUint8(28)
		w.WriteUint16(uint16(i))
	} else {
		w.WriteUint8(29)
		w.WriteUint32(uint32(i))
	}
}

func writeDICTReal(w *parse.BinaryWriter, f float64) {
	s := strconv.AppendFloat(nil, f, 'G', -1, 64)
	nibbles := []uint8{}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case '0' <= c && c <= '9':
			nibbles = append(nibbles, c-'0')
		case c == '.':
			nibbles = append(nibbles, 0x0A)
		case c == '-':
			nibbles = append(nibbles, 0x0E)
		case c == 'E':
			if i+1 < len(s) && s[i+1] == '-' {
				nibbles = append(nibbles, 0x0C)
				i++
			} else {
				nibbles = append(nibbles, 0x0B)
				if i+1 < len(s) && s[i+1] == '+' {
					i++
				}
			}
		}
	}
	nibbles = append(nibbles, 0x0F)
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0x0F)
	}
	w.WriteUint8(30)
	for i := 0; i < len(nibbles); i += 2 {
		w.WriteUint8(nibbles[i]<<4 | nibbles[i+1])
	}
}

// TopDICT is the structured view of a Top DICT. String-valued fields are
// resolved from their SIDs at parse time; every parsed entry is retained so
// operators outside this set round-trip by value.
type TopDICT struct {
	Version    string
	Notice     string
	Copyright  string
	FullName   string
	FamilyName string
	Weight     string
	FontName   string

	IsFixedPitch       bool
	ItalicAngle        float64
	UnderlinePosition  float64
	UnderlineThickness float64
	PaintType          int
	CharstringType     int
	FontMatrix         [6]float64
	UniqueID           int
	FontBBox           [4]float64
	StrokeWidth        float64
	XUID               []int

	Charset       int
	Encoding      int
	CharStrings   int
	PrivateOffset int
	PrivateLength int
	FDArray       int
	FDSelect      int
	VStore        int // CFF2

	entries []dictEntry
}

func newTopDICT() *TopDICT {
	return &TopDICT{
		UnderlinePosition:  -100,
		UnderlineThickness: 50,
		CharstringType:     2,
		FontMatrix:         [6]float64{0.001, 0.0, 0.0, 0.001, 0.0, 0.0},
	}
}

func parseTopDICT(b []byte, strings *INDEX) (*TopDICT, error) {
	entries, err := parseDICTEntries(b)
	if err != nil {
		return nil, err
	}
	dict := newTopDICT()
	dict.entries = entries
	for _, e := range entries {
		// duplicate operators: the last occurrence wins
		if err := dict.apply(e, strings); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func (t *TopDICT) sidField(op int) (*string, bool) {
	switch op {
	case opVersion:
		return &t.Version, true
	case opNotice:
		return &t.Notice, true
	case opCopyright:
		return &t.Copyright, true
	case opFullName:
		return &t.FullName, true
	case opFamilyName:
		return &t.FamilyName, true
	case opWeight:
		return &t.Weight, true
	case opFontName:
		return &t.FontName, true
	}
	return nil, false
}

func (t *TopDICT) apply(e dictEntry, strings *INDEX) error {
	if f, ok := t.sidField(e.op); ok {
		if strings == nil {
			// no String INDEX (CFF2), leave as pass-through entry
			return nil
		}
		s, err := strings.SIDString(e.operands[0].Int)
		if err != nil {
			return err
		}
		*f = s
		return nil
	}

	is, fs := e.ints(), e.reals()
	switch e.op {
	case opIsFixedPitch:
		t.IsFixedPitch = is[0] != 0
	case opItalicAngle:
		t.ItalicAngle = fs[0]
	case opUnderlinePosition:
		t.UnderlinePosition = fs[0]
	case opUnderlineThickness:
		t.UnderlineThickness = fs[0]
	case opPaintType:
		t.PaintType = is[0]
	case opCharstringType:
		t.CharstringType = is[0]
	case opFontMatrix:
		copy(t.FontMatrix[:], fs)
	case opUniqueID:
		t.UniqueID = is[0]
	case opFontBBox:
		copy(t.FontBBox[:], fs)
	case opStrokeWidth:
		t.StrokeWidth = fs[0]
	case opXUID:
		t.XUID = is
	case opCharset:
		t.Charset = is[0]
	case opEncoding:
		t.Encoding = is[0]
	case opCharStrings:
		t.CharStrings = is[0]
	case opPrivate:
		t.PrivateLength = is[0]
		t.PrivateOffset = is[1]
	case opFDArray:
		t.FDArray = is[0]
	case opFDSelect:
		t.FDSelect = is[0]
	case opVStore:
		t.VStore = is[0]
	}
	return nil
}

var sidOps = []int{opVersion, opNotice, opCopyright, opFullName, opFamilyName, opWeight, opFontName}

// write re-encodes the Top DICT. Entries keep their original order; string
// fields are re-linked through strings.AddSID, duplicates collapse to their
// last occurrence, and fields set since parse that had no entry are appended.
// CFF2 Top DICTs carry no SIDs and only the operators CFF2 defines.
func (t *TopDICT) write(strings *INDEX, isCFF2 bool) ([]byte, error) {
	w := parse.NewBinaryWriter([]byte{})
	last := map[int]int{}
	for i, e := range t.entries {
		last[e.op] = i
	}

	var werr error
	written := map[int]bool{}
	emit := func(op int, operands ...dictOperand) {
		if err := writeDICTEntry(w, op, operands...); err != nil && werr == nil {
			werr = err
		}
		written[op] = true
	}

	for i, e := range t.entries {
		if last[e.op] != i {
			continue
		}
		if f, ok := t.sidField(e.op); ok && strings != nil {
			if *f != "" {
				emit(e.op, intOperand(strings.AddSID([]byte(*f))))
			} else {
				written[e.op] = true // field cleared, entry removed
			}
			continue
		}
		switch e.op {
		case opIsFixedPitch:
			v := 0
			if t.IsFixedPitch {
				v = 1
			}
			emit(e.op, intOperand(v))
		case opItalicAngle:
			emit(e.op, numOperand(t.ItalicAngle))
		case opUnderlinePosition:
			emit(e.op, numOperand(t.UnderlinePosition))
		case opUnderlineThickness:
			emit(e.op, numOperand(t.UnderlineThickness))
		case opPaintType:
			emit(e.op, intOperand(t.PaintType))
		case opCharstringType:
			emit(e.op, intOperand(t.CharstringType))
		case opFontMatrix:
			emit(e.op, realOperands(t.FontMatrix[:])...)
		case opUniqueID:
			emit(e.op, intOperand(t.UniqueID))
		case opFontBBox:
			emit(e.op, realOperands(t.FontBBox[:])...)
		case opStrokeWidth:
			emit(e.op, numOperand(t.StrokeWidth))
		case opXUID:
			emit(e.op, intOperands(t.XUID)...)
		case opCharset:
			emit(e.op, intOperand(t.Charset))
		case opEncoding:
			emit(e.op, intOperand(t.Encoding))
		case opCharStrings:
			emit(e.op, intOperand(t.CharStrings))
		case opPrivate:
			emit(e.op, intOperand(t.PrivateLength), intOperand(t.PrivateOffset))
		case opFDArray:
			emit(e.op, intOperand(t.FDArray))
		case opFDSelect:
			emit(e.op, intOperand(t.FDSelect))
		case opVStore:
			emit(e.op, intOperand(t.VStore))
		default:
			emit(e.op, e.operands...)
		}
	}

	if !isCFF2 {
		if strings != nil {
			for _, op := range sidOps {
				if f, _ := t.sidField(op); !written[op] && *f != "" {
					emit(op, intOperand(strings.AddSID([]byte(*f))))
				}
			}
		}
		if !written[opIsFixedPitch] && t.IsFixedPitch {
			emit(opIsFixedPitch, intOperand(1))
		}
		if !written[opItalicAngle] && t.ItalicAngle != 0.0 {
			emit(opItalicAngle, numOperand(t.ItalicAngle))
		}
		if !written[opUnderlinePosition] && t.UnderlinePosition != -100.0 {
			emit(opUnderlinePosition, numOperand(t.UnderlinePosition))
		}
		if !written[opUnderlineThickness] && t.UnderlineThickness != 50.0 {
			emit(opUnderlineThickness, numOperand(t.UnderlineThickness))
		}
		if !written[opPaintType] && t.PaintType != 0 {
			emit(opPaintType, intOperand(t.PaintType))
		}
		if !written[opCharstringType] && t.CharstringType != 2 {
			emit(opCharstringType, intOperand(t.CharstringType))
		}
		if !written[opUniqueID] && t.UniqueID != 0 {
			emit(opUniqueID, intOperand(t.UniqueID))
		}
		if !written[opFontBBox] && t.FontBBox != [4]float64{} {
			emit(opFontBBox, realOperands(t.FontBBox[:])...)
		}
		if !written[opStrokeWidth] && t.StrokeWidth != 0.0 {
			emit(opStrokeWidth, numOperand(t.StrokeWidth))
		}
		if !written[opXUID] && 0 < len(t.XUID) {
			emit(opXUID, intOperands(t.XUID)...)
		}
		if !written[opCharset] && t.Charset != 0 {
			emit(opCharset, intOperand(t.Charset))
		}
		if !written[opEncoding] && t.Encoding != 0 {
			emit(opEncoding, intOperand(t.Encoding))
		}
		if !written[opPrivate] && (t.PrivateOffset != 0 || t.PrivateLength != 0) {
			emit(opPrivate, intOperand(t.PrivateLength), intOperand(t.PrivateOffset))
		}
	}
	if !written[opFontMatrix] && t.FontMatrix != [6]float64{0.001, 0, 0, 0.001, 0, 0} {
		emit(opFontMatrix, realOperands(t.FontMatrix[:])...)
	}
	if !written[opCharStrings] && t.CharStrings != 0 {
		emit(opCharStrings, intOperand(t.CharStrings))
	}
	if !written[opFDArray] && t.FDArray != 0 {
		emit(opFDArray, intOperand(t.FDArray))
	}
	if !written[opFDSelect] && t.FDSelect != 0 {
		emit(opFDSelect, intOperand(t.FDSelect))
	}
	if !written[opVStore] && t.VStore != 0 {
		emit(opVStore, intOperand(t.VStore))
	}
	if werr != nil {
		return nil, werr
	}
	return w.Bytes(), nil
}
