package model

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

// finiteDiffCheck compares an analytic gradient entry against a central
// finite difference of the loss closure.
func finiteDiffCheck(t *testing.T, name string, param, grad *mat.Dense,
	forward func() float64, i, j int) {
	t.Helper()

	eps := 1e-5
	w0 := param.At(i, j)

	param.Set(i, j, w0+eps)
	lp := forward()
	param.Set(i, j, w0-eps)
	lm := forward()
	param.Set(i, j, w0)

	numGrad := (lp - lm) / (2.0 * eps)
	anaGrad := grad.At(i, j)
	if math.Abs(numGrad-anaGrad) > 1e-4 {
		t.Fatalf("%s[%d,%d] grad mismatch: num=%.6g ana=%.6g",
			name, i, j, numGrad, anaGrad)
	}
}

// weightedSum is the test loss L = sum(C .* Y), so dL/dY = C.
func weightedSum(c, y *mat.Dense) float64 {
	return mat.Sum(utils.ToDense(utils.Multiply(c, y)))
}

func TestLinearGradCheck(t *testing.T) {
	rand.Seed(123)
	l := NewLinear(4, 3, true)
	x := mat.NewDense(4, 2, utils.RandomArray(8, 4))
	c := mat.NewDense(3, 2, utils.RandomArray(6, 3))

	forward := func() float64 { return weightedSum(c, l.Forward(x)) }

	l.Forward(x)
	dX := l.Backward(c)

	finiteDiffCheck(t, "W", l.W, l.dW, forward, 1, 2)
	finiteDiffCheck(t, "B", l.B, l.dB, forward, 2, 0)

	// input gradient
	forwardX := func() float64 { return weightedSum(c, l.Forward(x)) }
	finiteDiffCheck(t, "X", x, dX, forwardX, 0, 1)
}

func TestFeedForwardGradCheck(t *testing.T) {
	rand.Seed(123)
	ff := NewFeedForward(4, 0)
	x := mat.NewDense(4, 3, utils.RandomArray(12, 4))
	c := mat.NewDense(4, 3, utils.RandomArray(12, 4))

	forward := func() float64 { return weightedSum(c, ff.Forward(x, false)) }

	ff.Forward(x, false)
	dX := ff.Backward(c)

	finiteDiffCheck(t, "FC1.W", ff.FC1.W, ff.FC1.dW, forward, 3, 1)
	finiteDiffCheck(t, "FC2.W", ff.FC2.W, ff.FC2.dW, forward, 2, 5)
	finiteDiffCheck(t, "FC2.B", ff.FC2.B, ff.FC2.dB, forward, 1, 0)
	finiteDiffCheck(t, "X", x, dX, forward, 2, 2)
}

func TestLayerNormGradCheck(t *testing.T) {
	rand.Seed(123)
	ln := NewLayerNorm(5, 1e-5)
	// break the symmetric Gamma=1 start so the xhat terms matter
	for i := 0; i < 5; i++ {
		ln.Gamma.Set(i, 0, 1.0+0.1*float64(i))
		ln.Beta.Set(i, 0, 0.05*float64(i))
	}
	x := mat.NewDense(5, 3, utils.RandomArray(15, 5))
	c := mat.NewDense(5, 3, utils.RandomArray(15, 5))

	forward := func() float64 { return weightedSum(c, ln.Forward(x)) }

	ln.Forward(x)
	dX := ln.Backward(c)

	finiteDiffCheck(t, "Gamma", ln.Gamma, ln.dGamma, forward, 2, 0)
	finiteDiffCheck(t, "Beta", ln.Beta, ln.dBeta, forward, 4, 0)
	finiteDiffCheck(t, "X", x, dX, forward, 1, 1)
	finiteDiffCheck(t, "X", x, dX, forward, 3, 2)
}

func TestBlockGradCheck(t *testing.T) {
	rand.Seed(123)
	b := NewBlock(4, 2, 0)
	x := mat.NewDense(4, 3, utils.RandomArray(12, 4))
	c := mat.NewDense(4, 3, utils.RandomArray(12, 4))

	forward := func() float64 { return weightedSum(c, b.Forward(x, false)) }

	b.Forward(x, false)
	dX := b.Backward(c)

	finiteDiffCheck(t, "SA.Proj.W", b.SA.Proj.W, b.SA.Proj.dW, forward, 1, 3)
	finiteDiffCheck(t, "SA.Head0.Query.W", b.SA.Heads[0].Query.W, b.SA.Heads[0].Query.dW, forward, 0, 2)
	finiteDiffCheck(t, "FF.FC1.W", b.FF.FC1.W, b.FF.FC1.dW, forward, 5, 1)
	finiteDiffCheck(t, "LN1.Gamma", b.LN1.Gamma, b.LN1.dGamma, forward, 2, 0)
	finiteDiffCheck(t, "LN2.Beta", b.LN2.Beta, b.LN2.dBeta, forward, 3, 0)
	finiteDiffCheck(t, "X", x, dX, forward, 0, 0)
	finiteDiffCheck(t, "X", x, dX, forward, 3, 2)
}

func TestEmbeddingGradCheck(t *testing.T) {
	rand.Seed(123)
	table := mat.NewDense(3, 5, utils.RandomArray(15, 3))
	e := NewEmbedding(table, true)
	ids := []int{2, 4, 2} // repeated id must accumulate
	c := mat.NewDense(3, 3, utils.RandomArray(9, 3))

	forward := func() float64 { return weightedSum(c, e.Forward(ids)) }

	e.Forward(ids)
	e.Backward(c)

	finiteDiffCheck(t, "Table", e.Table, e.dTable, forward, 1, 2)
	finiteDiffCheck(t, "Table", e.Table, e.dTable, forward, 0, 4)
}

func TestEmbeddingOutOfRangePanics(t *testing.T) {
	table := mat.NewDense(2, 3, nil)
	e := NewEmbedding(table, false)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range id")
		}
	}()
	e.Forward([]int{3})
}

func TestDropoutEvalIsIdentity(t *testing.T) {
	rand.Seed(123)
	d := NewDropout(0.5)
	x := mat.NewDense(3, 3, utils.RandomArray(9, 3))
	y := d.Forward(x, false)
	if !mat.Equal(x, y) {
		t.Fatal("eval-mode dropout must pass the input through unchanged")
	}
	if !mat.Equal(x, d.Backward(x)) {
		t.Fatal("eval-mode dropout backward must be the identity")
	}
}

func TestDropoutTrainScalesSurvivors(t *testing.T) {
	rand.Seed(123)
	d := NewDropout(0.25)
	x := mat.NewDense(10, 10, utils.RandomArray(100, 10))
	y := d.Forward(x, true)

	zeros := 0
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			v := y.At(i, j)
			if v == 0 {
				zeros++
				continue
			}
			want := x.At(i, j) / 0.75
			if math.Abs(v-want) > 1e-12 {
				t.Fatalf("survivor [%d,%d] not scaled by 1/keep: got %v want %v", i, j, v, want)
			}
		}
	}
	if zeros == 0 || zeros == 100 {
		t.Fatalf("implausible dropout mask: %d zeros of 100", zeros)
	}
}
