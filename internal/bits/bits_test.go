package bits

import "testing"

func TestFromUint64Truncates(t *testing.T) {
	b := FromUint64(0xFF, 4)
	if b.Uint64() != 0xF {
		t.Fatalf("expected truncation to 0xF, got %x", b.Uint64())
	}
}

func TestEqualRequiresSameWidth(t *testing.T) {
	a := FromUint64(3, 8)
	b := FromUint64(3, 16)
	if a.Equal(b) {
		t.Fatalf("values of different widths must not be equal")
	}
	if !a.Equal(FromUint64(3, 8)) {
		t.Fatalf("expected equal values to compare equal")
	}
}

func TestSlice(t *testing.T) {
	v := FromUint64(0b1011_0110, 8)
	s := v.Slice(5, 2)
	if s.Width() != 4 {
		t.Fatalf("expected width 4, got %d", s.Width())
	}
	if s.Uint64() != 0b1101 {
		t.Fatalf("expected 0b1101, got %b", s.Uint64())
	}
}

func TestConcat(t *testing.T) {
	hi := FromUint64(0b101, 3)
	lo := FromUint64(0b11, 2)
	c := hi.Concat(lo)
	if c.Width() != 5 {
		t.Fatalf("expected width 5, got %d", c.Width())
	}
	if c.Uint64() != 0b10111 {
		t.Fatalf("expected 0b10111, got %b", c.Uint64())
	}
}

func TestZeroExtend(t *testing.T) {
	v := FromUint64(0b1010, 4)
	e := v.ZeroExtend(8)
	if e.Uint64() != 0b1010 {
		t.Fatalf("expected 0b1010, got %b", e.Uint64())
	}
}

func TestSignExtendNegative(t *testing.T) {
	v := FromUint64(0b1000, 4) // sign bit set
	e := v.SignExtend(8)
	if e.Uint64() != 0xF8 {
		t.Fatalf("expected 0xF8, got %x", e.Uint64())
	}
}

func TestSignExtendPositive(t *testing.T) {
	v := FromUint64(0b0110, 4)
	e := v.SignExtend(8)
	if e.Uint64() != 0x06 {
		t.Fatalf("expected 0x06, got %x", e.Uint64())
	}
}

func TestSliceAcrossWordBoundary(t *testing.T) {
	v := FromUint64(1, 70)
	s := v.Slice(65, 60)
	if s.Width() != 6 {
		t.Fatalf("expected width 6, got %d", s.Width())
	}
	if s.Uint64() != 0 {
		t.Fatalf("expected zero slice, got %v", s)
	}
}
