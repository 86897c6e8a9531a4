package utils

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Matrix helpers shared by every layer. Activations are column-major:
// one column per sequence position, (d x T).

func Dot(m, n mat.Matrix) mat.Matrix {
	r, _ := m.Dims()
	_, c := n.Dims()
	o := mat.NewDense(r, c, nil)
	o.Product(m, n)
	return o
}

func Apply(fn func(i, j int, v float64) float64, m mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Apply(fn, m)
	return o
}

func Scale(s float64, m mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Scale(s, m)
	return o
}

func Multiply(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.MulElem(m, n)
	return o
}

func Add(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Add(m, n)
	return o
}

func Subtract(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Sub(m, n)
	return o
}

func ToDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

func ZerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

func OnesLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, 1)
		}
	}
	return out
}

// RandomArray returns 'size' samples from U(-1/sqrt(v), 1/sqrt(v)).
// Uses the global math/rand RNG; seed once in main for determinism.
func RandomArray(size int, v float64) []float64 {
	min := -1.0 / math.Sqrt(v+1e-12)
	max := 1.0 / math.Sqrt(v+1e-12)
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = min + (max-min)*rand.Float64()
	}
	return out
}

func MatrixNorm(m *mat.Dense) float64 {
	r, c := m.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			s += v * v
		}
	}
	return math.Sqrt(s)
}

func ReluApply(_, _ int, v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// ReluPrime evaluates the ReLU derivative elementwise on the pre-activation.
func ReluPrime(pre *mat.Dense) *mat.Dense {
	r, c := pre.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if pre.At(i, j) > 0 {
				out.Set(i, j, 1)
			}
		}
	}
	return out
}

func Sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// ---------- Softmax variants ----------

// RowSoftmax applies softmax independently to each row across columns.
// Attention scores are (T x T); every row must sum to 1 afterwards.
func RowSoftmax(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		mx := row[0]
		for _, v := range row {
			if v > mx {
				mx = v
			}
		}
		sum := 0.0
		for j := 0; j < c; j++ {
			row[j] = math.Exp(row[j] - mx)
			sum += row[j]
		}
		for j := 0; j < c; j++ {
			out.Set(i, j, row[j]/sum)
		}
	}
	return out
}

// ColVectorSoftmax applies softmax across the single column of a (r x 1) vector.
func ColVectorSoftmax(v *mat.Dense) *mat.Dense {
	r, c := v.Dims()
	if c != 1 {
		panic("ColVectorSoftmax expects a (r x 1) column vector")
	}
	out := mat.NewDense(r, 1, nil)
	mx := v.At(0, 0)
	for i := 1; i < r; i++ {
		if v.At(i, 0) > mx {
			mx = v.At(i, 0)
		}
	}
	sum := 0.0
	for i := 0; i < r; i++ {
		e := math.Exp(v.At(i, 0) - mx)
		out.Set(i, 0, e)
		sum += e
	}
	for i := 0; i < r; i++ {
		out.Set(i, 0, out.At(i, 0)/sum)
	}
	return out
}

// SoftmaxBackward is the Jacobian-vector product for row-wise softmax:
// dA is the upstream gradient, A the softmax output.
func SoftmaxBackward(dA, A *mat.Dense) *mat.Dense {
	r, c := A.Dims()
	dS := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		// dot(A_i, dA_i) once per row, then dS_ij = A_ij * (dA_ij - dotted)
		dotted := 0.0
		for k := 0; k < c; k++ {
			dotted += A.At(i, k) * dA.At(i, k)
		}
		for j := 0; j < c; j++ {
			dS.Set(i, j, A.At(i, j)*(dA.At(i, j)-dotted))
		}
	}
	return dS
}

// ---------- Losses ----------

// CrossEntropyWithGrad: softmax CE against a gold class index.
// Returns the loss and dL/dlogits = p - onehot(gold).
func CrossEntropyWithGrad(logits *mat.Dense, gold int) (float64, *mat.Dense) {
	prob := ColVectorSoftmax(logits)
	r, _ := prob.Dims()
	if gold < 0 || gold >= r {
		panic("CrossEntropyWithGrad: gold index out of range")
	}
	grad := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		p := prob.At(i, 0)
		t := 0.0
		if i == gold {
			t = 1.0
		}
		grad.Set(i, 0, p-t)
	}
	loss := -math.Log(prob.At(gold, 0) + 1e-12)
	return loss, grad
}

// BCEWithLogits: numerically stable logistic loss on a single logit.
// Returns the loss and dL/dz = sigmoid(z) - target.
func BCEWithLogits(z, target float64) (float64, float64) {
	// max(z,0) - z*t + log(1 + exp(-|z|))
	loss := math.Max(z, 0) - z*target + math.Log1p(math.Exp(-math.Abs(z)))
	return loss, Sigmoid(z) - target
}

// ---------- Optimizer ----------

// AdamUpdateInPlace: p -= lr * mhat / (sqrt(vhat)+eps) with bias correction.
// weightDecay applies AdamW-style decoupled decay; pass 0 for biases/gains.
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("AdamUpdateInPlace: grad shape mismatch")
	}
	b1t := math.Pow(beta1, float64(t))
	b2t := math.Pow(beta2, float64(t))
	c1 := 1.0 / (1.0 - b1t)
	c2 := 1.0 / (1.0 - b2t)
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			mhat := mij * c1
			vhat := vij * c2
			pij := p.At(i, j) - lr*mhat/(math.Sqrt(vhat)+eps)
			if weightDecay > 0 {
				pij -= lr * weightDecay * p.At(i, j)
			}
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, pij)
		}
	}
}

// ClipGrads rescales all grads in place so their joint L2 norm is <= maxNorm.
// Returns the applied scale (1.0 when no clipping happened).
func ClipGrads(maxNorm float64, grads ...*mat.Dense) float64 {
	if maxNorm <= 0 {
		return 1.0
	}
	total := 0.0
	for _, g := range grads {
		n := MatrixNorm(g)
		total += n * n
	}
	total = math.Sqrt(total)
	if total <= maxNorm {
		return 1.0
	}
	s := maxNorm / (total + 1e-12)
	for _, g := range grads {
		g.Scale(s, g)
	}
	return s
}

// ArgmaxVec returns the row index of the max entry of a column vector.
func ArgmaxVec(v *mat.Dense) int {
	r, c := v.Dims()
	if c != 1 {
		panic("ArgmaxVec expects a column vector")
	}
	bestI := 0
	best := v.At(0, 0)
	for i := 1; i < r; i++ {
		if v.At(i, 0) > best {
			best = v.At(i, 0)
			bestI = i
		}
	}
	return bestI
}
