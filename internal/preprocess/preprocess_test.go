package preprocess

import (
	"math/rand"
	"testing"

	"mnist-dnn/internal/dataset"
)

func randomGrid(rng *rand.Rand) (g [dataset.Rows][dataset.Cols]byte) {
	for y := range g {
		for x := range g[y] {
			g[y][x] = byte(rng.Intn(256))
		}
	}
	return g
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		g := randomGrid(rng)
		flat := Flatten(g)
		if len(flat) != 784 {
			t.Fatalf("flatten length %d", len(flat))
		}
		back, err := Unflatten(flat)
		if err != nil {
			t.Fatalf("Unflatten: %v", err)
		}
		if back != g {
			t.Fatal("round trip changed the grid")
		}
	}
}

func TestFlattenRowMajor(t *testing.T) {
	var g [dataset.Rows][dataset.Cols]byte
	g[2][5] = 9
	if Flatten(g)[2*28+5] != 9 {
		t.Fatal("expected row-major layout")
	}
}

func TestUnflattenRejectsWrongLength(t *testing.T) {
	if _, err := Unflatten(make([]byte, 783)); err == nil {
		t.Fatal("expected error for 783 values")
	}
}

func TestNormalize(t *testing.T) {
	pixels := make([]byte, 256)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	out := Normalize(pixels)
	for i, v := range out {
		if v < 0 || v > 1 {
			t.Fatalf("value %f out of range", v)
		}
		if v != float32(i)/255 {
			t.Fatalf("pixel %d normalized to %f", i, v)
		}
	}
	if out[0] != 0 || out[255] != 1 {
		t.Fatalf("endpoints %f %f", out[0], out[255])
	}
}

func TestNormalizeTwiceShrinks(t *testing.T) {
	once := Normalize([]byte{255})[0]
	twice := once / 255
	if twice >= once {
		t.Fatalf("second normalization should shrink values: %f >= %f", twice, once)
	}
}

func TestOneHot(t *testing.T) {
	for k := 0; k < 10; k++ {
		v, err := OneHot(k, 10)
		if err != nil {
			t.Fatalf("OneHot(%d): %v", k, err)
		}
		if len(v) != 10 {
			t.Fatalf("length %d", len(v))
		}
		var sum float32
		for _, x := range v {
			sum += x
		}
		if sum != 1 || v[k] != 1 {
			t.Fatalf("OneHot(%d) = %v", k, v)
		}
	}
}

func TestOneHotOutOfRange(t *testing.T) {
	for _, k := range []int{-1, 10, 42} {
		if _, err := OneHot(k, 10); err == nil {
			t.Fatalf("expected error for label %d", k)
		}
	}
}

func TestPrepare(t *testing.T) {
	images := make([]dataset.Image, 2)
	images[1][0] = 255
	s, err := Prepare(images, []byte{5, 0})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if s.Len() != 2 || len(s.X[0]) != 784 || len(s.Y[0]) != 10 {
		t.Fatalf("unexpected shapes")
	}
	if s.X[1][0] != 1 || s.Y[0][5] != 1 || s.Labels[0] != 5 {
		t.Fatal("sample encoded incorrectly")
	}
	if _, err := Prepare(images, []byte{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
