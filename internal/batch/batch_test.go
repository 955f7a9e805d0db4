package batch

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func TestMulDiv_Formulas(t *testing.T) {
	tests := []struct {
		a, b complex128
	}{
		{complex(1, 2), complex(3, 4)},
		{complex(-0.5, 0.25), complex(2, -1)},
		{complex(0, 1), complex(0, 1)},
		{complex(7, 0), complex(0.5, 0.5)},
	}

	for _, tt := range tests {
		a, b := Vector([]complex128{tt.a}), Vector([]complex128{tt.b})

		prod, err := Mul(a, b)
		if err != nil {
			t.Fatalf("Mul error: %v", err)
		}
		if cmplx.Abs(prod.Data[0]-tt.a*tt.b) > 1e-12 {
			t.Errorf("Mul(%v, %v) = %v, want %v", tt.a, tt.b, prod.Data[0], tt.a*tt.b)
		}

		quot, err := Div(a, b)
		if err != nil {
			t.Fatalf("Div error: %v", err)
		}
		if cmplx.Abs(quot.Data[0]-tt.a/tt.b) > 1e-12 {
			t.Errorf("Div(%v, %v) = %v, want %v", tt.a, tt.b, quot.Data[0], tt.a/tt.b)
		}
	}
}

func TestDiv_ZeroDenominator(t *testing.T) {
	out, err := Div(Vector([]complex128{1}), Vector([]complex128{0}))
	if err != nil {
		t.Fatalf("Div error: %v", err)
	}
	v := out.Data[0]
	if !math.IsInf(real(v), 0) && !math.IsNaN(real(v)) {
		t.Errorf("Div by zero = %v, expected non-finite", v)
	}
}

func TestConjAbs(t *testing.T) {
	x := Vector([]complex128{complex(3, 4), complex(-1, -1)})

	c := Conj(x)
	if c.Data[0] != complex(3, -4) || c.Data[1] != complex(-1, 1) {
		t.Errorf("Conj = %v", c.Data)
	}

	m := Abs(x)
	if math.Abs(real(m.Data[0])-5) > 1e-12 || imag(m.Data[0]) != 0 {
		t.Errorf("Abs(3+4i) = %v, want 5", m.Data[0])
	}
	if math.Abs(real(m.Data[1])-math.Sqrt2) > 1e-12 {
		t.Errorf("Abs(-1-1i) = %v, want sqrt(2)", m.Data[1])
	}
}

func TestMul_Broadcast(t *testing.T) {
	// 2x1x3x4 signal times a 1x1x1x4 per-subcarrier response
	x := New(2, 1, 3, 4)
	for i := range x.Data {
		x.Data[i] = complex(float64(i), 1)
	}
	h := Vector([]complex128{1, 1i, -1, -1i})

	y, err := Mul(x, h)
	if err != nil {
		t.Fatalf("Mul error: %v", err)
	}
	if y.Shape != x.Shape {
		t.Fatalf("shape %s, want %s", y.Shape, x.Shape)
	}
	for n := 0; n < 2; n++ {
		for s := 0; s < 3; s++ {
			for k := 0; k < 4; k++ {
				want := x.At(n, 0, s, k) * h.Data[k]
				if cmplx.Abs(y.At(n, 0, s, k)-want) > 1e-12 {
					t.Errorf("y[%d,0,%d,%d] = %v, want %v", n, s, k, y.At(n, 0, s, k), want)
				}
			}
		}
	}
}

func TestMul_BroadcastSymbolAxis(t *testing.T) {
	// pilot-derived 2x1x1x2 estimate against 2x1x3x2 data
	h := New(2, 1, 1, 2)
	h.Data = []complex128{2, 3, 5, 7}
	x := New(2, 1, 3, 2)
	for i := range x.Data {
		x.Data[i] = 1
	}

	y, err := Mul(x, h)
	if err != nil {
		t.Fatalf("Mul error: %v", err)
	}
	for n := 0; n < 2; n++ {
		for s := 0; s < 3; s++ {
			for k := 0; k < 2; k++ {
				if y.At(n, 0, s, k) != h.At(n, 0, 0, k) {
					t.Errorf("y[%d,0,%d,%d] = %v, want %v", n, s, k, y.At(n, 0, s, k), h.At(n, 0, 0, k))
				}
			}
		}
	}
}

func TestBroadcast_Mismatch(t *testing.T) {
	_, err := Mul(New(2, 1, 1, 4), New(3, 1, 1, 4))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		x    []complex128
		pwr  float64
	}{
		{"unit", []complex128{1, 2i, complex(3, -1), -0.5}, 1},
		{"scaled", []complex128{complex(0.1, 0.2), complex(-4, 4)}, 2.5},
		{"tiny", []complex128{1e-6, 1e-6i}, 0.3},
	}

	for _, tt := range tests {
		x := append([]complex128(nil), tt.x...)
		alpha := Normalize(x, tt.pwr)
		if alpha <= 0 {
			t.Errorf("%s: alpha = %v", tt.name, alpha)
		}
		got := MeanPower(x)
		if math.Abs(got-tt.pwr)/tt.pwr > 1e-5 {
			t.Errorf("%s: mean power %v, want %v", tt.name, got, tt.pwr)
		}
	}
}

func TestNormalize_Zero(t *testing.T) {
	x := make([]complex128, 8)
	if alpha := Normalize(x, 1); alpha != 0 {
		t.Errorf("alpha = %v for zero input", alpha)
	}
	for i, v := range x {
		if v != 0 {
			t.Errorf("x[%d] = %v, want 0", i, v)
		}
	}
}

func TestFromData_Size(t *testing.T) {
	if _, err := FromData(Shape{1, 1, 2, 3}, make([]complex128, 5)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	b, err := FromData(Shape{1, 1, 2, 3}, make([]complex128, 6))
	if err != nil {
		t.Fatalf("FromData error: %v", err)
	}
	b.Set(0, 0, 1, 2, 9)
	if b.Row(0, 0, 1)[2] != 9 || b.Link(0, 0)[5] != 9 {
		t.Error("Row/Link views do not alias the batch data")
	}
}
