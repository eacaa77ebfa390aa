package neural

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/forage/sampling"
)

var testInit = InitParams{Mean: 0, Std: 1}

func newTestController(t testing.TB, structure []int) *Controller {
	t.Helper()
	return New(structure, testInit, Sigmoid, rand.New(rand.NewSource(42)))
}

// unitDraws makes every Normal sample equal to mean + std.
func unitDraws(r float64) *sampling.Sequence {
	return sampling.NewSequence(r, 1-math.Exp(-0.5), 0.25)
}

func TestNewShapes(t *testing.T) {
	c := newTestController(t, []int{5, 3, 2})

	ws := c.Weights()
	if len(ws) != 2 {
		t.Fatalf("got %d weight matrices, want 2", len(ws))
	}
	wantDims := [][2]int{{6, 3}, {4, 2}}
	for i, w := range ws {
		r, cc := w.Dims()
		if r != wantDims[i][0] || cc != wantDims[i][1] {
			t.Errorf("layer %d dims = %dx%d, want %dx%d", i, r, cc, wantDims[i][0], wantDims[i][1])
		}
	}
}

func TestNewCheckedRejectsMalformed(t *testing.T) {
	tests := []struct {
		name      string
		structure []int
	}{
		{"empty", nil},
		{"single layer", []int{4}},
		{"zero layer", []int{4, 0, 2}},
		{"negative layer", []int{4, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChecked(tt.structure, testInit, Sigmoid, rand.New(rand.NewSource(1)))
			if !errors.Is(err, ErrBadStructure) {
				t.Errorf("err = %v, want ErrBadStructure", err)
			}
		})
	}
}

func TestInferShape(t *testing.T) {
	c := newTestController(t, []int{5, 3, 2})
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 50; i++ {
		in := make([]float64, 5)
		for j := range in {
			in[j] = rng.Float64()*20 - 10
		}
		out := c.Infer(in)
		if len(out) != 2 {
			t.Fatalf("Infer returned %d outputs, want 2", len(out))
		}
		for _, v := range out {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Errorf("output %v outside sigmoid range", v)
			}
		}
	}
}

func TestInferMatchesHandComputation(t *testing.T) {
	for _, act := range []Activation{Sigmoid, ReLU, Linear} {
		t.Run(act.String(), func(t *testing.T) {
			c := New([]int{2, 2, 1}, testInit, act, rand.New(rand.NewSource(9)))
			in := []float64{0.3, -0.7}
			got := c.Infer(in)[0]

			ws := c.Weights()
			hidden := make([]float64, 2)
			for j := range hidden {
				sum := ws[0].At(0, j)
				for i := range in {
					sum += in[i] * ws[0].At(i+1, j)
				}
				hidden[j] = act.apply(sum)
			}
			sum := ws[1].At(0, 0)
			for i := range hidden {
				sum += hidden[i] * ws[1].At(i+1, 0)
			}
			want := sigmoid(sum)

			if math.Abs(got-want) > 1e-12 {
				t.Errorf("Infer = %v, want %v", got, want)
			}
		})
	}
}

func TestInferDeterministic(t *testing.T) {
	c := newTestController(t, []int{4, 6, 3})
	in := []float64{0.1, 0.2, 0.3, 0.4}

	first := append([]float64(nil), c.Infer(in)...)
	second := c.Infer(in)
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("Infer is not deterministic")
		}
	}
}

func TestInferPanicsOnBadLength(t *testing.T) {
	c := newTestController(t, []int{5, 3, 2})
	defer func() {
		if recover() == nil {
			t.Error("expected panic for wrong input length")
		}
	}()
	c.Infer(make([]float64, 4))
}

func TestMutateFullSwapResetsEveryWeight(t *testing.T) {
	c := newTestController(t, []int{5, 3, 2})

	c.Mutate(unitDraws(0), 1.0, 0.0, 0.5)

	for l, w := range c.Weights() {
		for _, v := range w.RawMatrix().Data {
			if math.Abs(v-InitScale) > 1e-9 {
				t.Fatalf("layer %d weight = %v, want fresh sample %v", l, v, InitScale)
			}
		}
	}
}

func TestMutateZeroRatesIsIdentity(t *testing.T) {
	c := newTestController(t, []int{5, 3, 2})
	before := c.Weights()

	c.Mutate(rand.New(rand.NewSource(5)), 0.0, 0.0, 0.5)

	for i, w := range c.Weights() {
		if !mat.Equal(w, before[i]) {
			t.Errorf("layer %d changed with zero mutation rates", i)
		}
	}
}

func TestMutatePrecedence(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		want func(old float64) float64
	}{
		// swap 0.5, eps 0.7: r below swap resamples
		{"swap", 0.3, func(float64) float64 { return InitScale }},
		// between swap and swap+eps perturbs by sample*strength
		{"eps", 0.6, func(old float64) float64 { return old + InitScale*2 }},
		{"eps upper edge", 0.99, func(old float64) float64 { return old + InitScale*2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, []int{2, 1})
			before := c.Weights()[0].RawMatrix().Data

			c.Mutate(unitDraws(tt.r), 0.5, 0.7, 2)

			after := c.Weights()[0].RawMatrix().Data
			for k := range after {
				want := tt.want(before[k])
				if math.Abs(after[k]-want) > 1e-9 {
					t.Errorf("weight %d = %v, want %v", k, after[k], want)
				}
			}
		})
	}
}

func TestCloneIndependence(t *testing.T) {
	a := newTestController(t, []int{5, 3, 2})
	b := a.Clone()

	a.Mutate(unitDraws(0), 1.0, 0.0, 0)
	bw := b.Weights()
	for i, w := range a.Weights() {
		if mat.Equal(w, bw[i]) {
			t.Errorf("layer %d: mutating the original changed the clone", i)
		}
	}

	snapshot := a.Weights()
	b.Mutate(rand.New(rand.NewSource(11)), 1.0, 0.0, 0)
	for i, w := range a.Weights() {
		if !mat.Equal(w, snapshot[i]) {
			t.Errorf("layer %d: mutating the clone changed the original", i)
		}
	}
}

func TestCloneInfersIdentically(t *testing.T) {
	a := newTestController(t, []int{3, 4, 2})
	b := a.Clone()
	in := []float64{1, 0, -1}

	oa := append([]float64(nil), a.Infer(in)...)
	ob := b.Infer(in)
	for i := range oa {
		if oa[i] != ob[i] {
			t.Errorf("output %d differs: %v vs %v", i, oa[i], ob[i])
		}
	}
}

func TestSerialize(t *testing.T) {
	c := newTestController(t, []int{2, 3, 1})

	s := c.Serialize()
	if s != c.Serialize() {
		t.Fatal("Serialize is not deterministic")
	}

	var parsed struct {
		Weights [][][]float64 `json:"weights"`
	}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		t.Fatalf("Serialize output is not valid JSON: %v", err)
	}
	if len(parsed.Weights) != 2 {
		t.Fatalf("got %d layers, want 2", len(parsed.Weights))
	}
	ws := c.Weights()
	for l, rows := range parsed.Weights {
		r, cols := ws[l].Dims()
		if len(rows) != r {
			t.Fatalf("layer %d has %d rows, want %d", l, len(rows), r)
		}
		for i, row := range rows {
			if len(row) != cols {
				t.Fatalf("layer %d row %d has %d values, want %d", l, i, len(row), cols)
			}
			for j, v := range row {
				if v != ws[l].At(i, j) {
					t.Errorf("layer %d [%d,%d] = %v, want %v", l, i, j, v, ws[l].At(i, j))
				}
			}
		}
	}
}

func TestLayerValuesAreCopies(t *testing.T) {
	c := newTestController(t, []int{2, 2})
	c.Infer([]float64{1, 1})

	lv := c.LayerValues()
	if len(lv) != 2 || lv[0][0] != 1 {
		t.Fatalf("unexpected layer values %v", lv)
	}
	lv[1][0] = 42
	if c.LayerValues()[1][0] == 42 {
		t.Error("LayerValues exposes internal buffers")
	}
}

func TestParseActivation(t *testing.T) {
	tests := []struct {
		name    string
		want    Activation
		wantErr bool
	}{
		{"sigmoid", Sigmoid, false},
		{"relu", ReLU, false},
		{"linear", Linear, false},
		{"", Sigmoid, false},
		{"tanh", Sigmoid, true},
	}
	for _, tt := range tests {
		got, err := ParseActivation(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseActivation(%q) err = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseActivation(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSigmoidSaturates(t *testing.T) {
	if v := sigmoid(-1000); v != 0 {
		t.Errorf("sigmoid(-1000) = %v, want 0", v)
	}
	if v := sigmoid(1000); v != 1 {
		t.Errorf("sigmoid(1000) = %v, want 1", v)
	}
}

func BenchmarkInfer(b *testing.B) {
	c := newTestController(b, []int{12, 5, 5})
	in := make([]float64, 12)
	for i := range in {
		in[i] = float64(i) / 12
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Infer(in)
	}
}
