package model

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dropout is inverted dropout: surviving activations are scaled by 1/(1-p)
// during training so evaluation needs no rescaling. The mask is cached for
// the backward pass.
type Dropout struct {
	P    float64
	mask *mat.Dense
}

func NewDropout(p float64) *Dropout { return &Dropout{P: p} }

func (d *Dropout) Forward(x *mat.Dense, train bool) *mat.Dense {
	if !train || d.P <= 0 {
		d.mask = nil
		return x
	}
	r, c := x.Dims()
	keep := 1.0 - d.P
	d.mask = mat.NewDense(r, c, nil)
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if rand.Float64() < keep {
				m := 1.0 / keep
				d.mask.Set(i, j, m)
				out.Set(i, j, x.At(i, j)*m)
			}
		}
	}
	return out
}

func (d *Dropout) Backward(dY *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return dY
	}
	r, c := dY.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(dY, d.mask)
	return out
}
