package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

type Variant string

const (
	// VariantBaseline pools frozen embeddings straight into a small MLP.
	VariantBaseline Variant = "baseline"
	// VariantSimple applies a single raw attention head plus feed-forward.
	VariantSimple Variant = "simple"
	// VariantMultiHead is one multi-head attention + feed-forward layer.
	VariantMultiHead Variant = "multihead"
	// VariantEncoder stacks N full transformer blocks with a final norm.
	VariantEncoder Variant = "encoder"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantBaseline, VariantSimple, VariantMultiHead, VariantEncoder:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown model variant %q", s)
}

type Config struct {
	Variant    Variant
	OutputSize int // 1 for binary (squeezed logit), else number of classes
	MaxLen     int
	NumHeads   int
	NumLayers  int
	Dropout    float64
}

// Classifier: embed tokens, add positional embedding, run the variant body,
// mean-pool over all sequence positions, project to the output classes.
type Classifier struct {
	Cfg Config

	Tok *Embedding
	Pos *PositionEmbedding

	// simple / multihead share the single pre-norm residual pair
	SA       *Head      // simple only
	MHA      *MultiHead // multihead only
	FF       *FeedForward
	LN1, LN2 *LayerNorm

	// encoder
	Blocks []*Block
	LNF    *LayerNorm

	// baseline
	Hidden    *Linear
	hiddenPre *mat.Dense

	Output *Linear

	lastT int
}

// New builds a classifier around an embedding table of shape (d x |V|).
func New(cfg Config, table *mat.Dense, trainableEmb bool) *Classifier {
	d, _ := table.Dims()
	if cfg.NumHeads < 1 {
		cfg.NumHeads = 1
	}
	if cfg.NumHeads > d {
		cfg.NumHeads = d
	}

	c := &Classifier{
		Cfg:    cfg,
		Tok:    NewEmbedding(table, trainableEmb),
		Output: NewLinear(d, cfg.OutputSize, true),
	}
	if cfg.Variant != VariantBaseline {
		c.Pos = NewPositionEmbedding(d, cfg.MaxLen)
	}

	switch cfg.Variant {
	case VariantBaseline:
		c.Hidden = NewLinear(d, d, true)
	case VariantSimple:
		// one raw head over the full width, no output projection
		c.SA = NewHead(d, d, cfg.Dropout)
		c.FF = NewFeedForward(d, cfg.Dropout)
		c.LN1 = NewLayerNorm(d, 1e-5)
		c.LN2 = NewLayerNorm(d, 1e-5)
	case VariantMultiHead:
		c.MHA = NewMultiHead(d, cfg.NumHeads, d/cfg.NumHeads, cfg.Dropout)
		c.FF = NewFeedForward(d, cfg.Dropout)
		c.LN1 = NewLayerNorm(d, 1e-5)
		c.LN2 = NewLayerNorm(d, 1e-5)
	case VariantEncoder:
		c.Blocks = make([]*Block, cfg.NumLayers)
		for i := range c.Blocks {
			c.Blocks[i] = NewBlock(d, cfg.NumHeads, cfg.Dropout)
		}
		c.LNF = NewLayerNorm(d, 1e-5)
	default:
		panic(fmt.Sprintf("unknown variant %q", cfg.Variant))
	}
	return c
}

// SetParallelHeads opts multi-head fan-out into goroutines.
func (c *Classifier) SetParallelHeads(on bool) {
	if c.MHA != nil {
		c.MHA.Parallel = on
	}
	for _, b := range c.Blocks {
		b.SA.Parallel = on
	}
}

// Forward maps a fixed-length id sequence to logits, shape (OutputSize x 1).
func (c *Classifier) Forward(ids []int, train bool) *mat.Dense {
	x := c.Tok.Forward(ids)
	_, c.lastT = x.Dims()
	if c.Pos != nil {
		c.Pos.AddTo(x)
	}

	switch c.Cfg.Variant {
	case VariantBaseline:
		// body is the identity; the MLP sits after pooling
	case VariantSimple:
		x = utils.ToDense(utils.Add(x, c.SA.Forward(c.LN1.Forward(x), train)))
		x = utils.ToDense(utils.Add(x, c.FF.Forward(c.LN2.Forward(x), train)))
	case VariantMultiHead:
		x = utils.ToDense(utils.Add(x, c.MHA.Forward(c.LN1.Forward(x), train)))
		x = utils.ToDense(utils.Add(x, c.FF.Forward(c.LN2.Forward(x), train)))
	case VariantEncoder:
		for _, b := range c.Blocks {
			x = b.Forward(x, train)
		}
		x = c.LNF.Forward(x)
	}

	pooled := MeanPool(x)
	if c.Hidden != nil {
		c.hiddenPre = c.Hidden.Forward(pooled)
		pooled = utils.ToDense(utils.Apply(utils.ReluApply, c.hiddenPre))
	}
	return c.Output.Forward(pooled)
}

// Logit squeezes the single output of a binary classifier to a scalar.
func (c *Classifier) Logit(logits *mat.Dense) float64 {
	if c.Cfg.OutputSize != 1 {
		panic("Logit is only defined for output size 1")
	}
	return logits.At(0, 0)
}

// Backward accumulates gradients for dL/dlogits, shape (OutputSize x 1).
func (c *Classifier) Backward(dLogits *mat.Dense) {
	dPooled := c.Output.Backward(dLogits)
	if c.Hidden != nil {
		dPre := utils.ToDense(utils.Multiply(dPooled, utils.ReluPrime(c.hiddenPre)))
		dPooled = c.Hidden.Backward(dPre)
	}
	dX := MeanPoolBackward(dPooled, c.lastT)

	switch c.Cfg.Variant {
	case VariantBaseline:
	case VariantSimple:
		d1 := utils.ToDense(utils.Add(dX, c.LN2.Backward(c.FF.Backward(dX))))
		dX = utils.ToDense(utils.Add(d1, c.LN1.Backward(c.SA.Backward(d1))))
	case VariantMultiHead:
		d1 := utils.ToDense(utils.Add(dX, c.LN2.Backward(c.FF.Backward(dX))))
		dX = utils.ToDense(utils.Add(d1, c.LN1.Backward(c.MHA.Backward(d1))))
	case VariantEncoder:
		dX = c.LNF.Backward(dX)
		for i := len(c.Blocks) - 1; i >= 0; i-- {
			dX = c.Blocks[i].Backward(dX)
		}
	}

	if c.Pos != nil {
		c.Pos.Backward(dX)
	}
	c.Tok.Backward(dX)
}

// Step applies one Adam update everywhere and clears accumulated gradients.
func (c *Classifier) Step(lr float64) {
	switch c.Cfg.Variant {
	case VariantBaseline:
		c.Hidden.Step(lr)
	case VariantSimple:
		c.SA.Step(lr)
		c.FF.Step(lr)
		c.LN1.Step(lr)
		c.LN2.Step(lr)
	case VariantMultiHead:
		c.MHA.Step(lr)
		c.FF.Step(lr)
		c.LN1.Step(lr)
		c.LN2.Step(lr)
	case VariantEncoder:
		for _, b := range c.Blocks {
			b.Step(lr)
		}
		c.LNF.Step(lr)
	}
	c.Output.Step(lr)
	if c.Pos != nil {
		c.Pos.Step(lr)
	}
	c.Tok.Step(lr)
}

// Predict runs an eval-mode forward pass and returns the class id.
func (c *Classifier) Predict(ids []int) int {
	logits := c.Forward(ids, false)
	if c.Cfg.OutputSize == 1 {
		if utils.Sigmoid(c.Logit(logits)) >= 0.5 {
			return 1
		}
		return 0
	}
	return utils.ArgmaxVec(logits)
}

// Params returns every weight matrix in a stable traversal order, the token
// and positional tables included; checkpointing walks this list.
func (c *Classifier) Params() []*mat.Dense {
	var out []*mat.Dense
	out = append(out, c.Tok.Table)
	if c.Pos != nil {
		out = append(out, c.Pos.Table)
	}
	switch c.Cfg.Variant {
	case VariantBaseline:
		out = append(out, c.Hidden.Params()...)
	case VariantSimple:
		out = append(out, c.SA.Params()...)
		out = append(out, c.FF.Params()...)
		out = append(out, c.LN1.Params()...)
		out = append(out, c.LN2.Params()...)
	case VariantMultiHead:
		out = append(out, c.MHA.Params()...)
		out = append(out, c.FF.Params()...)
		out = append(out, c.LN1.Params()...)
		out = append(out, c.LN2.Params()...)
	case VariantEncoder:
		for _, b := range c.Blocks {
			out = append(out, b.Params()...)
		}
		out = append(out, c.LNF.Params()...)
	}
	out = append(out, c.Output.Params()...)
	return out
}

// Grads mirrors Params for the accumulated gradients of trainable tensors;
// gradient clipping walks this list.
func (c *Classifier) Grads() []*mat.Dense {
	var out []*mat.Dense
	if c.Tok.Trainable {
		out = append(out, c.Tok.dTable)
	}
	if c.Pos != nil {
		out = append(out, c.Pos.dTable)
	}
	switch c.Cfg.Variant {
	case VariantBaseline:
		out = append(out, c.Hidden.Grads()...)
	case VariantSimple:
		out = append(out, c.SA.Grads()...)
		out = append(out, c.FF.Grads()...)
		out = append(out, c.LN1.Grads()...)
		out = append(out, c.LN2.Grads()...)
	case VariantMultiHead:
		out = append(out, c.MHA.Grads()...)
		out = append(out, c.FF.Grads()...)
		out = append(out, c.LN1.Grads()...)
		out = append(out, c.LN2.Grads()...)
	case VariantEncoder:
		for _, b := range c.Blocks {
			out = append(out, b.Grads()...)
		}
		out = append(out, c.LNF.Grads()...)
	}
	out = append(out, c.Output.Grads()...)
	return out
}

// MeanPool averages the T columns of x: (d x T) -> (d x 1), (1/T)·Σ v_t.
func MeanPool(x *mat.Dense) *mat.Dense {
	d, T := x.Dims()
	out := mat.NewDense(d, 1, nil)
	for i := 0; i < d; i++ {
		s := 0.0
		for t := 0; t < T; t++ {
			s += x.At(i, t)
		}
		out.Set(i, 0, s/float64(T))
	}
	return out
}

// MeanPoolBackward spreads the pooled gradient evenly: each column gets
// dPooled/T.
func MeanPoolBackward(dPooled *mat.Dense, T int) *mat.Dense {
	d, _ := dPooled.Dims()
	out := mat.NewDense(d, T, nil)
	for i := 0; i < d; i++ {
		g := dPooled.At(i, 0) / float64(T)
		for t := 0; t < T; t++ {
			out.Set(i, t, g)
		}
	}
	return out
}
