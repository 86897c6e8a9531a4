package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

// Block is one transformer encoder block, pre-norm design:
// x = x + sa(ln1(x)); x = x + ff(ln2(x)).
type Block struct {
	SA  *MultiHead
	FF  *FeedForward
	LN1 *LayerNorm
	LN2 *LayerNorm
}

func NewBlock(d, numHeads int, dropout float64) *Block {
	headSize := d / numHeads
	return &Block{
		SA:  NewMultiHead(d, numHeads, headSize, dropout),
		FF:  NewFeedForward(d, dropout),
		LN1: NewLayerNorm(d, 1e-5),
		LN2: NewLayerNorm(d, 1e-5),
	}
}

func (b *Block) Forward(x *mat.Dense, train bool) *mat.Dense {
	x = utils.ToDense(utils.Add(x, b.SA.Forward(b.LN1.Forward(x), train)))
	x = utils.ToDense(utils.Add(x, b.FF.Forward(b.LN2.Forward(x), train)))
	return x
}

func (b *Block) Backward(dY *mat.Dense) *mat.Dense {
	// top residual: x2 = x1 + ff(ln2(x1))
	d1 := utils.ToDense(utils.Add(dY, b.LN2.Backward(b.FF.Backward(dY))))
	// bottom residual: x1 = x0 + sa(ln1(x0))
	return utils.ToDense(utils.Add(d1, b.LN1.Backward(b.SA.Backward(d1))))
}

func (b *Block) Step(lr float64) {
	b.SA.Step(lr)
	b.FF.Step(lr)
	b.LN1.Step(lr)
	b.LN2.Step(lr)
}

func (b *Block) Params() []*mat.Dense {
	var out []*mat.Dense
	out = append(out, b.SA.Params()...)
	out = append(out, b.FF.Params()...)
	out = append(out, b.LN1.Params()...)
	out = append(out, b.LN2.Params()...)
	return out
}

func (b *Block) Grads() []*mat.Dense {
	var out []*mat.Dense
	out = append(out, b.SA.Grads()...)
	out = append(out, b.FF.Grads()...)
	out = append(out, b.LN1.Grads()...)
	out = append(out, b.LN2.Grads()...)
	return out
}
