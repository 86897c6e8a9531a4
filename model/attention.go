package model

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

// Head is one head of self-attention over a (channels x T) input. Scores are
// scaled by 1/sqrt(channels) and softmaxed per query row. No masking: every
// position, padding included, attends to every position.
type Head struct {
	Query, Key, Value *Linear // bias-free, (headSize x channels)
	Drop              *Dropout

	channels int

	// cache for backprop
	q, k, v *mat.Dense // (headSize x T)
	a       *mat.Dense // softmax output (T x T)
	ad      *mat.Dense // post-dropout weights actually applied
}

func NewHead(channels, headSize int, dropout float64) *Head {
	return &Head{
		Query:    NewLinear(channels, headSize, false),
		Key:      NewLinear(channels, headSize, false),
		Value:    NewLinear(channels, headSize, false),
		Drop:     NewDropout(dropout),
		channels: channels,
	}
}

func (h *Head) Forward(x *mat.Dense, train bool) *mat.Dense {
	h.q = h.Query.Forward(x)
	h.k = h.Key.Forward(x)
	h.v = h.Value.Forward(x)

	rescale := 1.0 / math.Sqrt(float64(h.channels))
	s := utils.ToDense(utils.Scale(rescale, utils.Dot(h.q.T(), h.k))) // (T x T)
	h.a = utils.RowSoftmax(s)
	h.ad = h.Drop.Forward(h.a, train)

	return utils.ToDense(utils.Dot(h.v, h.ad.T())) // (headSize x T)
}

// Weights exposes the attention matrix from the last forward pass; rows are
// query positions and sum to 1.
func (h *Head) Weights() *mat.Dense { return h.a }

func (h *Head) Backward(dOut *mat.Dense) *mat.Dense {
	// Out = V Ad^T
	dV := utils.ToDense(utils.Dot(dOut, h.ad))        // (headSize x T)
	dAd := utils.ToDense(utils.Dot(h.v.T(), dOut).T()) // (T x T)

	dA := h.Drop.Backward(dAd)
	dS := utils.SoftmaxBackward(dA, h.a)

	// S = scale * Q^T K
	rescale := 1.0 / math.Sqrt(float64(h.channels))
	dQ := utils.ToDense(utils.Scale(rescale, utils.Dot(h.k, dS.T())))
	dK := utils.ToDense(utils.Scale(rescale, utils.Dot(h.q, dS)))

	dX := h.Query.Backward(dQ)
	dX.Add(dX, h.Key.Backward(dK))
	dX.Add(dX, h.Value.Backward(dV))
	return dX
}

func (h *Head) Step(lr float64) {
	h.Query.Step(lr)
	h.Key.Step(lr)
	h.Value.Step(lr)
}

func (h *Head) Params() []*mat.Dense {
	var out []*mat.Dense
	out = append(out, h.Query.Params()...)
	out = append(out, h.Key.Params()...)
	out = append(out, h.Value.Params()...)
	return out
}

func (h *Head) Grads() []*mat.Dense {
	var out []*mat.Dense
	out = append(out, h.Query.Grads()...)
	out = append(out, h.Key.Grads()...)
	out = append(out, h.Value.Grads()...)
	return out
}

// MultiHead runs independent heads, concatenates their outputs along the
// channel dimension and projects back to the embedding width.
type MultiHead struct {
	Heads []*Head
	Proj  *Linear // (channels x numHeads*headSize)
	Drop  *Dropout

	// Fan heads out over goroutines. Only safe when the weight dropout is
	// inactive, since the mask draws would race on the shared RNG.
	Parallel bool

	headSize int
}

func NewMultiHead(channels, numHeads, headSize int, dropout float64) *MultiHead {
	mh := &MultiHead{
		Heads:    make([]*Head, numHeads),
		Proj:     NewLinear(numHeads*headSize, channels, true),
		Drop:     NewDropout(dropout),
		headSize: headSize,
	}
	for i := range mh.Heads {
		mh.Heads[i] = NewHead(channels, headSize, dropout)
	}
	return mh
}

func (mh *MultiHead) Forward(x *mat.Dense, train bool) *mat.Dense {
	_, T := x.Dims()
	cat := mat.NewDense(len(mh.Heads)*mh.headSize, T, nil)

	work := func(i int) {
		out := mh.Heads[i].Forward(x, train)
		base := i * mh.headSize
		dst := cat.Slice(base, base+mh.headSize, 0, T).(*mat.Dense)
		dst.Copy(out)
	}
	if mh.Parallel && len(mh.Heads) > 1 && !(train && mh.Drop.P > 0) {
		var wg sync.WaitGroup
		wg.Add(len(mh.Heads))
		for i := range mh.Heads {
			go func(i int) {
				defer wg.Done()
				work(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range mh.Heads {
			work(i)
		}
	}
	return mh.Drop.Forward(mh.Proj.Forward(cat), train)
}

func (mh *MultiHead) Backward(dY *mat.Dense) *mat.Dense {
	dCat := mh.Proj.Backward(mh.Drop.Backward(dY))
	_, T := dCat.Dims()

	var dX *mat.Dense
	for i, h := range mh.Heads {
		base := i * mh.headSize
		dOut := utils.ToDense(dCat.Slice(base, base+mh.headSize, 0, T))
		dxh := h.Backward(dOut)
		if dX == nil {
			dX = dxh
		} else {
			dX.Add(dX, dxh)
		}
	}
	return dX
}

func (mh *MultiHead) Step(lr float64) {
	for _, h := range mh.Heads {
		h.Step(lr)
	}
	mh.Proj.Step(lr)
}

func (mh *MultiHead) Params() []*mat.Dense {
	var out []*mat.Dense
	for _, h := range mh.Heads {
		out = append(out, h.Params()...)
	}
	out = append(out, mh.Proj.Params()...)
	return out
}

func (mh *MultiHead) Grads() []*mat.Dense {
	var out []*mat.Dense
	for _, h := range mh.Heads {
		out = append(out, h.Grads()...)
	}
	out = append(out, mh.Proj.Grads()...)
	return out
}
