package model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/params"
	"github.com/amark-23/slp-labs-NLP/utils"
)

// LayerNorm normalizes each column (sequence position) over the feature
// dimension, then applies the learned gain/shift.
type LayerNorm struct {
	d     int
	eps   float64
	Gamma *mat.Dense // (d x 1)
	Beta  *mat.Dense // (d x 1)

	dGamma, dBeta *mat.Dense

	// Adam state
	t              int
	mGamma, vGamma *mat.Dense
	mBeta, vBeta   *mat.Dense

	// cache
	xhat   *mat.Dense // (d x T)
	invStd []float64  // per column
}

func NewLayerNorm(d int, eps float64) *LayerNorm {
	return &LayerNorm{
		d:      d,
		eps:    eps,
		Gamma:  utils.OnesLike(mat.NewDense(d, 1, nil)),
		Beta:   mat.NewDense(d, 1, nil),
		dGamma: mat.NewDense(d, 1, nil),
		dBeta:  mat.NewDense(d, 1, nil),
		mGamma: mat.NewDense(d, 1, nil),
		vGamma: mat.NewDense(d, 1, nil),
		mBeta:  mat.NewDense(d, 1, nil),
		vBeta:  mat.NewDense(d, 1, nil),
	}
}

func (ln *LayerNorm) Forward(x *mat.Dense) *mat.Dense {
	d, T := x.Dims()
	out := mat.NewDense(d, T, nil)
	xhat := mat.NewDense(d, T, nil)
	inv := make([]float64, T)
	for t := 0; t < T; t++ {
		mu := 0.0
		for i := 0; i < d; i++ {
			mu += x.At(i, t)
		}
		mu /= float64(d)
		var v float64
		for i := 0; i < d; i++ {
			diff := x.At(i, t) - mu
			v += diff * diff
		}
		v /= float64(d)
		istd := 1.0 / math.Sqrt(v+ln.eps)
		inv[t] = istd
		for i := 0; i < d; i++ {
			n := (x.At(i, t) - mu) * istd
			xhat.Set(i, t, n)
			out.Set(i, t, ln.Gamma.At(i, 0)*n+ln.Beta.At(i, 0))
		}
	}
	ln.xhat = xhat
	ln.invStd = inv
	return out
}

func (ln *LayerNorm) Backward(dY *mat.Dense) *mat.Dense {
	d, T := dY.Dims()
	for i := 0; i < d; i++ {
		sumDG := 0.0
		sumDB := 0.0
		for t := 0; t < T; t++ {
			sumDG += dY.At(i, t) * ln.xhat.At(i, t)
			sumDB += dY.At(i, t)
		}
		ln.dGamma.Set(i, 0, ln.dGamma.At(i, 0)+sumDG)
		ln.dBeta.Set(i, 0, ln.dBeta.At(i, 0)+sumDB)
	}

	dX := mat.NewDense(d, T, nil)
	for t := 0; t < T; t++ {
		istd := ln.invStd[t]
		sum1 := 0.0
		sum2 := 0.0
		for i := 0; i < d; i++ {
			gy := dY.At(i, t) * ln.Gamma.At(i, 0)
			sum1 += gy
			sum2 += gy * ln.xhat.At(i, t)
		}
		for i := 0; i < d; i++ {
			gy := dY.At(i, t) * ln.Gamma.At(i, 0)
			dxi := (float64(d)*gy - sum1 - ln.xhat.At(i, t)*sum2) * (istd / float64(d))
			dX.Set(i, t, dxi)
		}
	}
	return dX
}

func (ln *LayerNorm) Step(lr float64) {
	cfg := params.Config
	ln.t++
	utils.AdamUpdateInPlace(ln.Gamma, ln.dGamma, ln.mGamma, ln.vGamma, ln.t,
		lr, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, 0)
	utils.AdamUpdateInPlace(ln.Beta, ln.dBeta, ln.mBeta, ln.vBeta, ln.t,
		lr, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, 0)
	ln.dGamma.Zero()
	ln.dBeta.Zero()
}

func (ln *LayerNorm) Params() []*mat.Dense { return []*mat.Dense{ln.Gamma, ln.Beta} }
func (ln *LayerNorm) Grads() []*mat.Dense  { return []*mat.Dense{ln.dGamma, ln.dBeta} }
