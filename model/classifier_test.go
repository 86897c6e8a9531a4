package model

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

func testTable(d, V int) *mat.Dense {
	return mat.NewDense(d, V, utils.RandomArray(d*V, float64(d)))
}

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"baseline", "simple", "multihead", "encoder"} {
		v, err := ParseVariant(s)
		require.NoError(t, err)
		assert.Equal(t, Variant(s), v)
	}
	_, err := ParseVariant("lstm")
	assert.Error(t, err)
}

func TestMeanPool(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	p := MeanPool(x)
	assert.InDelta(t, 2.0, p.At(0, 0), 1e-12)
	assert.InDelta(t, 5.0, p.At(1, 0), 1e-12)

	back := MeanPoolBackward(mat.NewDense(2, 1, []float64{3, 6}), 3)
	for tcol := 0; tcol < 3; tcol++ {
		assert.InDelta(t, 1.0, back.At(0, tcol), 1e-12)
		assert.InDelta(t, 2.0, back.At(1, tcol), 1e-12)
	}
}

func TestVariantsProduceLogits(t *testing.T) {
	rand.Seed(123)
	ids := []int{2, 3, 4, 0, 0, 0, 0, 0}
	for _, variant := range []Variant{VariantBaseline, VariantSimple, VariantMultiHead, VariantEncoder} {
		c := New(Config{
			Variant:    variant,
			OutputSize: 3,
			MaxLen:     8,
			NumHeads:   2,
			NumLayers:  2,
		}, testTable(4, 6), false)

		logits := c.Forward(ids, false)
		r, cols := logits.Dims()
		assert.Equal(t, 3, r, "variant %s", variant)
		assert.Equal(t, 1, cols, "variant %s", variant)
	}
}

func TestBinaryClassifierSqueezesLogit(t *testing.T) {
	rand.Seed(123)
	c := New(Config{
		Variant:    VariantSimple,
		OutputSize: 1,
		MaxLen:     8,
		NumHeads:   1,
	}, testTable(4, 6), false)

	logits := c.Forward([]int{1, 2, 0, 0, 0, 0, 0, 0}, false)
	r, cols := logits.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, cols)

	pred := c.Predict([]int{1, 2, 0, 0, 0, 0, 0, 0})
	assert.Contains(t, []int{0, 1}, pred)
}

func TestForwardIsDeterministicInEvalMode(t *testing.T) {
	rand.Seed(123)
	c := New(Config{
		Variant:    VariantEncoder,
		OutputSize: 3,
		MaxLen:     8,
		NumHeads:   2,
		NumLayers:  2,
		Dropout:    0.5, // must be inert outside training
	}, testTable(4, 6), false)

	ids := []int{1, 2, 3, 4, 5, 0, 0, 0}
	a := mat.DenseCopyOf(c.Forward(ids, false))
	b := c.Forward(ids, false)
	assert.True(t, mat.Equal(a, b))
}

func TestClassifierGradCheck(t *testing.T) {
	rand.Seed(123)
	for _, variant := range []Variant{VariantSimple, VariantMultiHead, VariantEncoder} {
		c := New(Config{
			Variant:    variant,
			OutputSize: 1,
			MaxLen:     4,
			NumHeads:   2,
			NumLayers:  1,
		}, testTable(4, 6), true)

		ids := []int{2, 3, 0, 0}
		forward := func() float64 {
			loss, _ := utils.BCEWithLogits(c.Logit(c.Forward(ids, false)), 1)
			return loss
		}

		_, g := utils.BCEWithLogits(c.Logit(c.Forward(ids, false)), 1)
		c.Backward(mat.NewDense(1, 1, []float64{g}))

		finiteDiffCheck(t, string(variant)+".Output.W", c.Output.W, c.Output.dW, forward, 0, 2)
		finiteDiffCheck(t, string(variant)+".Pos.Table", c.Pos.Table, c.Pos.dTable, forward, 1, 1)
		finiteDiffCheck(t, string(variant)+".Tok.Table", c.Tok.Table, c.Tok.dTable, forward, 2, 3)
	}
}

func TestBaselineGradCheck(t *testing.T) {
	rand.Seed(123)
	c := New(Config{
		Variant:    VariantBaseline,
		OutputSize: 3,
		MaxLen:     4,
	}, testTable(4, 6), true)

	ids := []int{1, 4, 2, 0}
	gold := 1
	forward := func() float64 {
		loss, _ := utils.CrossEntropyWithGrad(c.Forward(ids, false), gold)
		return loss
	}

	_, grad := utils.CrossEntropyWithGrad(c.Forward(ids, false), gold)
	c.Backward(grad)

	finiteDiffCheck(t, "Hidden.W", c.Hidden.W, c.Hidden.dW, forward, 2, 1)
	finiteDiffCheck(t, "Output.W", c.Output.W, c.Output.dW, forward, 1, 3)
	finiteDiffCheck(t, "Tok.Table", c.Tok.Table, c.Tok.dTable, forward, 0, 4)
}

func TestHeadCountClampedToWidth(t *testing.T) {
	rand.Seed(123)
	c := New(Config{
		Variant:    VariantMultiHead,
		OutputSize: 2,
		MaxLen:     4,
		NumHeads:   16, // wider than the embedding
	}, testTable(4, 6), false)
	assert.Equal(t, 4, c.Cfg.NumHeads)

	logits := c.Forward([]int{1, 2, 3, 0}, false)
	r, _ := logits.Dims()
	assert.Equal(t, 2, r)
}

func TestCheckpointRoundTrip(t *testing.T) {
	rand.Seed(123)
	c := New(Config{
		Variant:    VariantEncoder,
		OutputSize: 3,
		MaxLen:     8,
		NumHeads:   2,
		NumLayers:  2,
	}, testTable(4, 10), true)

	ids := []int{1, 2, 3, 4, 0, 0, 0, 0}
	want := mat.DenseCopyOf(c.Forward(ids, false))

	path := filepath.Join(t.TempDir(), "model.gob")
	classes := []string{"negative", "neutral", "positive"}
	vocab := []string{"<pad>", "<unk>", "a", "b", "c", "d", "e", "f", "g", "h"}
	require.NoError(t, Save(c, classes, vocab, "whitespace", path))

	c2, snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, classes, snap.Classes)
	assert.Equal(t, vocab, snap.Vocab)
	assert.Equal(t, "whitespace", snap.Tokenizer)
	assert.Equal(t, 8, snap.MaxLen)

	got := c2.Forward(ids, false)
	assert.True(t, mat.EqualApprox(want, got, 1e-12),
		"restored model diverges from the saved one")
}

func TestLoadMissingCheckpoint(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}
