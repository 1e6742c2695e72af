package cff

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestStandardStrings(t *testing.T) {
	test.T(t, len(standardStrings), 391)
	test.T(t, standardStrings[0], ".notdef")
	test.T(t, standardStrings[96], "exclamdown")
	test.T(t, standardStrings[229], "exclamsmall")
	test.T(t, standardStrings[379], "001.000")
	test.T(t, standardStrings[390], "Semibold")
}

func TestSIDString(t *testing.T) {
	strings := &INDEX{}
	strings.Add([]byte("2.9"))
	strings.Add([]byte("Noto Serif Display"))

	s, err := strings.SIDString(0)
	test.Error(t, err)
	test.T(t, s, ".notdef")

	s, err = strings.SIDString(390)
	test.Error(t, err)
	test.T(t, s, "Semibold")

	s, err = strings.SIDString(391)
	test.Error(t, err)
	test.T(t, s, "2.9")

	s, err = strings.SIDString(392)
	test.Error(t, err)
	test.T(t, s, "Noto Serif Display")

	_, err = strings.SIDString(393)
	test.T(t, err, ErrUnknownStringID)
	_, err = strings.SIDString(-1)
	test.T(t, err, ErrInvalidStringID)

	test.T(t, strings.GetSID(392), "Noto Serif Display")
	test.T(t, strings.GetSID(393), "")
	test.T(t, strings.GetSID(-1), "")
}

func TestAddSID(t *testing.T) {
	strings := &INDEX{}
	strings.Add([]byte("2.9"))

	// standard strings are never duplicated into the String INDEX
	test.T(t, strings.AddSID([]byte(".notdef")), 0)
	test.T(t, strings.AddSID([]byte("Roman")), 389)
	test.T(t, strings.Len(), 1)

	// existing custom strings are reused
	test.T(t, strings.AddSID([]byte("2.9")), 391)
	test.T(t, strings.Len(), 1)

	// new strings are appended
	test.T(t, strings.AddSID([]byte("1.23")), 392)
	test.T(t, strings.Len(), 2)
	test.T(t, strings.AddSID([]byte("1.23")), 392)
	test.T(t, strings.Len(), 2)
}
