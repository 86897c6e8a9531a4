package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/params"
	"github.com/amark-23/slp-labs-NLP/utils"
)

// Linear is y = W x (+ b per column). Gradients accumulate across Backward
// calls until Step applies one Adam update and zeroes them, so a mini-batch
// is several Backwards followed by a single Step.
type Linear struct {
	In, Out int
	W       *mat.Dense // (Out x In)
	B       *mat.Dense // (Out x 1), nil for bias-free projections

	dW, dB *mat.Dense

	// Adam state
	t      int
	mW, vW *mat.Dense
	mB, vB *mat.Dense

	lastInput *mat.Dense
}

func NewLinear(in, out int, bias bool) *Linear {
	l := &Linear{
		In:  in,
		Out: out,
		W:   mat.NewDense(out, in, utils.RandomArray(out*in, float64(in))),
		dW:  mat.NewDense(out, in, nil),
		mW:  mat.NewDense(out, in, nil),
		vW:  mat.NewDense(out, in, nil),
	}
	if bias {
		l.B = mat.NewDense(out, 1, nil)
		l.dB = mat.NewDense(out, 1, nil)
		l.mB = mat.NewDense(out, 1, nil)
		l.vB = mat.NewDense(out, 1, nil)
	}
	return l
}

func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	l.lastInput = x
	y := utils.ToDense(utils.Dot(l.W, x)) // (Out x T)
	if l.B != nil {
		_, T := y.Dims()
		for i := 0; i < l.Out; i++ {
			b := l.B.At(i, 0)
			for t := 0; t < T; t++ {
				y.Set(i, t, y.At(i, t)+b)
			}
		}
	}
	return y
}

// Backward accumulates dW += dY X^T (and dB += row sums) and returns
// dX = W^T dY.
func (l *Linear) Backward(dY *mat.Dense) *mat.Dense {
	l.dW.Add(l.dW, utils.ToDense(utils.Dot(dY, l.lastInput.T())))
	if l.B != nil {
		_, T := dY.Dims()
		for i := 0; i < l.Out; i++ {
			s := 0.0
			for t := 0; t < T; t++ {
				s += dY.At(i, t)
			}
			l.dB.Set(i, 0, l.dB.At(i, 0)+s)
		}
	}
	return utils.ToDense(utils.Dot(l.W.T(), dY))
}

func (l *Linear) Step(lr float64) {
	cfg := params.Config
	l.t++
	utils.AdamUpdateInPlace(l.W, l.dW, l.mW, l.vW, l.t,
		lr, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, 0)
	l.dW.Zero()
	if l.B != nil {
		utils.AdamUpdateInPlace(l.B, l.dB, l.mB, l.vB, l.t,
			lr, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, 0)
		l.dB.Zero()
	}
}

func (l *Linear) Params() []*mat.Dense {
	if l.B != nil {
		return []*mat.Dense{l.W, l.B}
	}
	return []*mat.Dense{l.W}
}

func (l *Linear) Grads() []*mat.Dense {
	if l.B != nil {
		return []*mat.Dense{l.dW, l.dB}
	}
	return []*mat.Dense{l.dW}
}
