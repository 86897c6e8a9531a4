package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

// FeedForward is the position-wise block: linear to 4x width, ReLU, linear
// back, dropout.
type FeedForward struct {
	FC1  *Linear // (4d x d)
	FC2  *Linear // (d x 4d)
	Drop *Dropout

	pre *mat.Dense // FC1 pre-activation cache
}

func NewFeedForward(d int, dropout float64) *FeedForward {
	return &FeedForward{
		FC1:  NewLinear(d, 4*d, true),
		FC2:  NewLinear(4*d, d, true),
		Drop: NewDropout(dropout),
	}
}

func (ff *FeedForward) Forward(x *mat.Dense, train bool) *mat.Dense {
	ff.pre = ff.FC1.Forward(x)
	hidden := utils.ToDense(utils.Apply(utils.ReluApply, ff.pre))
	return ff.Drop.Forward(ff.FC2.Forward(hidden), train)
}

func (ff *FeedForward) Backward(dY *mat.Dense) *mat.Dense {
	dHidden := ff.FC2.Backward(ff.Drop.Backward(dY))
	dPre := utils.ToDense(utils.Multiply(dHidden, utils.ReluPrime(ff.pre)))
	return ff.FC1.Backward(dPre)
}

func (ff *FeedForward) Step(lr float64) {
	ff.FC1.Step(lr)
	ff.FC2.Step(lr)
}

func (ff *FeedForward) Params() []*mat.Dense {
	return append(ff.FC1.Params(), ff.FC2.Params()...)
}

func (ff *FeedForward) Grads() []*mat.Dense {
	return append(ff.FC1.Grads(), ff.FC2.Grads()...)
}
