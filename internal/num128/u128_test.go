package num128

import "testing"

func TestAddOverflow(t *testing.T) {
	r, overflow := Max.Add(FromU64(1))
	if overflow != true {
		t.Fatalf("expected overflow")
	}
	if r != Zero {
		t.Fatalf("expected wraparound to zero, got %+v", r)
	}
}

func TestShiftMaskedModulo128(t *testing.T) {
	a := FromU64(1)
	// Shift by 128 is masked to 0 (shift amounts are masked mod 128).
	if got := a.Shl(128); got != a {
		t.Fatalf("Shl(128) = %+v, want %+v", got, a)
	}
	if got := a.Shl(129); got != a.Shl(1) {
		t.Fatalf("Shl(129) should equal Shl(1)")
	}
}

func TestMask(t *testing.T) {
	a := Max
	got := Mask(a, 8)
	want := FromU64(0xff)
	if got != want {
		t.Fatalf("Mask(max,8) = %+v, want %+v", got, want)
	}
}

func TestLittleEndianRoundTrip(t *testing.T) {
	a := U128{Lo: 0x0102030405060708, Hi: 0x1112131415161718}
	buf := make([]byte, 16)
	a.PutLittleEndian(buf)
	got := FromLittleEndian(buf)
	if got != a {
		t.Fatalf("round trip failed: got %+v want %+v", got, a)
	}
}

func TestToFloat64ZeroAndMax(t *testing.T) {
	if Zero.ToFloat64() != 0 {
		t.Fatalf("Zero.ToFloat64() should be 0")
	}
	if got := Max.ToFloat64(); got != got { // placeholder to avoid NaN accidentally
		t.Fatalf("Max.ToFloat64() should not be NaN")
	}
	if !isInf(Max.ToFloat64()) {
		t.Fatalf("Max.ToFloat64() should be +Inf, got %v", Max.ToFloat64())
	}
}

func isInf(f float64) bool {
	return f > 1.7976931348623157e308 // cheap +Inf check without importing math in the test
}

func TestDivMod(t *testing.T) {
	a := FromU64(17)
	b := FromU64(5)
	q, r := a.DivMod(b)
	if q != FromU64(3) || r != FromU64(2) {
		t.Fatalf("17/5 = %+v rem %+v, want 3 rem 2", q, r)
	}
}

func TestCmp(t *testing.T) {
	if FromU64(1).Cmp(FromU64(2)) != -1 {
		t.Fatalf("expected 1 < 2")
	}
	if FromU64(2).Cmp(FromU64(1)) != 1 {
		t.Fatalf("expected 2 > 1")
	}
	if FromU64(1).Cmp(FromU64(1)) != 0 {
		t.Fatalf("expected 1 == 1")
	}
}
