package builtin

import (
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		word   string
		want   Number
		width  int
		parsed bool
	}{
		{"0", Uint(0), 1, true},
		{"255", Uint(255), 1, true},
		{"256", Uint(256), 4, true},
		{"1000", Uint(1000), 4, true},
		{"4294967295", Uint(math.MaxUint32), 4, true},
		{"4294967296", Uint(math.MaxUint32 + 1), 8, true},
		{"18446744073709551615", Uint(math.MaxUint64), 8, true},
		{"-1", Int(-1), 1, true},
		{"-128", Int(-128), 1, true},
		{"-129", Int(-129), 4, true},
		{"-2147483649", Int(math.MinInt32 - 1), 8, true},
		{"-9223372036854775808", Int(math.MinInt64), 8, true},
		{"1.5", Number{}, 0, false},
		{"drop", Number{}, 0, false},
		{"", Number{}, 0, false},
	}

	for _, tc := range tests {
		got, ok := ParseNumber(tc.word)
		if ok != tc.parsed {
			t.Fatalf("ParseNumber(%q) ok=%v, want %v", tc.word, ok, tc.parsed)
		}
		if !ok {
			continue
		}
		if got != tc.want {
			t.Fatalf("ParseNumber(%q)=%+v, want %+v", tc.word, got, tc.want)
		}
		if w := got.Width(); w != tc.width {
			t.Fatalf("ParseNumber(%q).Width()=%d, want %d", tc.word, w, tc.width)
		}
		if s := got.String(); s != tc.word {
			t.Fatalf("String()=%q, want %q", s, tc.word)
		}
	}
}

func TestSignedWidthDoesNotReuseUnsignedRange(t *testing.T) {
	// 200 fits an unsigned byte but not a signed one.
	if w := Uint(200).Width(); w != 1 {
		t.Fatalf("Uint(200).Width()=%d, want 1", w)
	}
	if w := Int(200).Width(); w != 4 {
		t.Fatalf("Int(200).Width()=%d, want 4", w)
	}
	if w := Int(-1).Width(); w != 1 {
		t.Fatalf("Int(-1).Width()=%d, want 1", w)
	}
}

func TestLookup(t *testing.T) {
	for _, o := range Operators {
		op, ok := Lookup(o.Spelling)
		if !ok || op != o.Op {
			t.Fatalf("Lookup(%q)=%v,%v want %v", o.Spelling, op, ok, o.Op)
		}
	}
	if _, ok := Lookup("frobnicate"); ok {
		t.Fatalf("Lookup of unknown word succeeded")
	}
}

func TestEffect(t *testing.T) {
	if in, out := OpAdd.Effect(); in != 2 || out != 1 {
		t.Fatalf("OpAdd.Effect()=%d,%d", in, out)
	}
	if in, out := OpDrop.Effect(); in != 1 || out != 0 {
		t.Fatalf("OpDrop.Effect()=%d,%d", in, out)
	}
	if in, out := OpRot.Effect(); in != 3 || out != 3 {
		t.Fatalf("OpRot.Effect()=%d,%d", in, out)
	}
}
