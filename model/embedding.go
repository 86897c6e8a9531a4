package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/params"
	"github.com/amark-23/slp-labs-NLP/utils"
)

// Embedding is the token table, shape (d x |V|), one column per token id.
// Pretrained tables stay frozen; the trainable mode (random init / subword
// vocabularies) accumulates per-column gradients like any other layer.
type Embedding struct {
	Table     *mat.Dense
	Trainable bool

	dTable *mat.Dense
	t      int
	m, v   *mat.Dense

	lastIDs []int
}

func NewEmbedding(table *mat.Dense, trainable bool) *Embedding {
	e := &Embedding{Table: table, Trainable: trainable}
	if trainable {
		e.dTable = utils.ZerosLike(table)
		e.m = utils.ZerosLike(table)
		e.v = utils.ZerosLike(table)
	}
	return e
}

func (e *Embedding) Dim() int {
	d, _ := e.Table.Dims()
	return d
}

// Forward gathers columns of the table: ids -> (d x len(ids)).
func (e *Embedding) Forward(ids []int) *mat.Dense {
	d, V := e.Table.Dims()
	out := mat.NewDense(d, len(ids), nil)
	for t, id := range ids {
		if id < 0 || id >= V {
			panic("embedding id out of range")
		}
		for i := 0; i < d; i++ {
			out.Set(i, t, e.Table.At(i, id))
		}
	}
	e.lastIDs = ids
	return out
}

func (e *Embedding) Backward(dX *mat.Dense) {
	if !e.Trainable {
		return
	}
	d, _ := e.Table.Dims()
	for t, id := range e.lastIDs {
		for i := 0; i < d; i++ {
			e.dTable.Set(i, id, e.dTable.At(i, id)+dX.At(i, t))
		}
	}
}

func (e *Embedding) Step(lr float64) {
	if !e.Trainable {
		return
	}
	cfg := params.Config
	e.t++
	utils.AdamUpdateInPlace(e.Table, e.dTable, e.m, e.v, e.t,
		lr, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, 0)
	e.dTable.Zero()
}

// PositionEmbedding is the learned positional table, shape (d x maxLen),
// added elementwise to token embeddings.
type PositionEmbedding struct {
	Table *mat.Dense

	dTable *mat.Dense
	t      int
	m, v   *mat.Dense
}

func NewPositionEmbedding(d, maxLen int) *PositionEmbedding {
	table := mat.NewDense(d, maxLen, utils.RandomArray(d*maxLen, float64(d)))
	return &PositionEmbedding{
		Table:  table,
		dTable: mat.NewDense(d, maxLen, nil),
		m:      mat.NewDense(d, maxLen, nil),
		v:      mat.NewDense(d, maxLen, nil),
	}
}

// AddTo adds position columns 0..T-1 into x in place.
func (p *PositionEmbedding) AddTo(x *mat.Dense) {
	d, T := x.Dims()
	for t := 0; t < T; t++ {
		for i := 0; i < d; i++ {
			x.Set(i, t, x.At(i, t)+p.Table.At(i, t))
		}
	}
}

func (p *PositionEmbedding) Backward(dX *mat.Dense) {
	d, T := dX.Dims()
	for t := 0; t < T; t++ {
		for i := 0; i < d; i++ {
			p.dTable.Set(i, t, p.dTable.At(i, t)+dX.At(i, t))
		}
	}
}

func (p *PositionEmbedding) Step(lr float64) {
	cfg := params.Config
	p.t++
	utils.AdamUpdateInPlace(p.Table, p.dTable, p.m, p.v, p.t,
		lr, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, 0)
	p.dTable.Zero()
}
