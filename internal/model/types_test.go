package model

import "testing"

func TestValueEncodeScalar(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Value{Scalar: 0.5}, "0.5"},
		{Value{Scalar: 1}, "1"},
		{Value{Scalar: -2.25}, "-2.25"},
		{Value{Scalar: 1e-9}, "1e-09"},
	}
	for _, tc := range tests {
		if got := tc.value.Encode(); got != tc.want {
			t.Fatalf("unexpected encoding: got=%s want=%s", got, tc.want)
		}
	}
}

func TestValueEncodeMatrix(t *testing.T) {
	value := Value{Matrix: [][]float64{{0, 1.5}, {2, 0}}}
	want := "[[0, 1.5], [2, 0]]"
	if got := value.Encode(); got != want {
		t.Fatalf("unexpected encoding: got=%s want=%s", got, want)
	}
}

func TestValueEncodeCollapsesEquivalentFloats(t *testing.T) {
	// 1 and 1.0 are the same value and must produce the same identity key.
	a, b := (Value{Scalar: 1}).Encode(), (Value{Scalar: 1.0}).Encode()
	if a != b {
		t.Fatalf("equivalent floats encode differently: %s vs %s", a, b)
	}
}

func TestPointScalarFallback(t *testing.T) {
	point := Point{Values: map[string]Value{
		"x": {Scalar: 2.5},
		"m": {Matrix: [][]float64{{1}}},
	}}

	if got := point.Scalar("x", 0); got != 2.5 {
		t.Fatalf("unexpected scalar: got=%g want=2.5", got)
	}
	if got := point.Scalar("missing", 7); got != 7 {
		t.Fatalf("missing variable should fall back: got=%g want=7", got)
	}
	if got := point.Scalar("m", 3); got != 3 {
		t.Fatalf("matrix variable should fall back for scalar access: got=%g", got)
	}

	if _, ok := point.Matrix("m"); !ok {
		t.Fatal("expected matrix access to succeed")
	}
	if _, ok := point.Matrix("x"); ok {
		t.Fatal("scalar variable should not read as a matrix")
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Manifold ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mode != ModeManifold {
		t.Fatalf("unexpected mode: got=%s", mode)
	}

	if _, err := ParseMode("quantum"); err == nil {
		t.Fatal("expected unsupported mode error")
	}
}
