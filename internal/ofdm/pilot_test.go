package ofdm

import (
	"bytes"
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func TestZadoffChu_CAZAC(t *testing.T) {
	tests := []struct {
		order, length, index int
	}{
		{1, 31, 0},
		{5, 31, 0},
		{3, 61, 2},
		{25, 139, 0},
	}

	for _, tt := range tests {
		z := ZadoffChu(tt.order, tt.length, tt.index)
		for n, v := range z {
			if math.Abs(cmplx.Abs(v)-1) > 1e-12 {
				t.Fatalf("order=%d M=%d: |z[%d]| = %v, want 1", tt.order, tt.length, n, cmplx.Abs(v))
			}
		}

		r := Autocorrelation(z)
		if math.Abs(cmplx.Abs(r[0])-1) > 1e-9 {
			t.Errorf("order=%d M=%d: r[0] = %v, want 1", tt.order, tt.length, r[0])
		}
		for k := 1; k < len(r); k++ {
			if cmplx.Abs(r[k]) > 1e-4 {
				t.Errorf("order=%d M=%d: |r[%d]| = %v, want ~0", tt.order, tt.length, k, cmplx.Abs(r[k]))
			}
		}
	}
}

func TestZadoffChu_EvenLength(t *testing.T) {
	// order 1 is coprime with every length, so even lengths are CAZAC too
	z := ZadoffChu(1, 64, 0)
	r := Autocorrelation(z)
	for k := 1; k < len(r); k++ {
		if cmplx.Abs(r[k]) > 1e-4 {
			t.Errorf("|r[%d]| = %v, want ~0", k, cmplx.Abs(r[k]))
		}
	}
	if z[0] != 1 {
		t.Errorf("z[0] = %v, want 1", z[0])
	}
	want := cmplx.Exp(complex(0, -math.Pi/64))
	if cmplx.Abs(z[1]-want) > 1e-12 {
		t.Errorf("z[1] = %v, want %v", z[1], want)
	}
}

func TestSaveLoadPilot(t *testing.T) {
	pilot := ZadoffChu(1, 16, 0)

	var buf bytes.Buffer
	if err := SavePilot(&buf, pilot); err != nil {
		t.Fatalf("SavePilot error: %v", err)
	}
	data := buf.Bytes()

	got, err := LoadPilot(bytes.NewReader(data), 16)
	if err != nil {
		t.Fatalf("LoadPilot error: %v", err)
	}
	for i := range pilot {
		if got[i] != pilot[i] {
			t.Errorf("pilot[%d] = %v, want %v", i, got[i], pilot[i])
		}
	}

	if _, err := LoadPilot(bytes.NewReader(data), 32); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("LoadPilot with wrong M: %v, want ErrDimensionMismatch", err)
	}
}
