package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Snapshot is the serializable form of a trained classifier: enough to
// rebuild the model and classify new text without the original inputs.
type Snapshot struct {
	Variant      string
	OutputSize   int
	MaxLen       int
	NumHeads     int
	NumLayers    int
	Dropout      float64
	TrainableEmb bool

	Tokenizer string   // whitespace | bpe
	Classes   []string // label-encoder classes, sorted
	Vocab     []string // id -> token

	Weights []WeightData
}

type WeightData struct {
	Rows, Cols int
	Data       []float64
}

// Save writes the classifier and its surrounding state to path with gob.
func Save(c *Classifier, classes, vocab []string, tokenizerMode, path string) error {
	snap := Snapshot{
		Variant:      string(c.Cfg.Variant),
		OutputSize:   c.Cfg.OutputSize,
		MaxLen:       c.Cfg.MaxLen,
		NumHeads:     c.Cfg.NumHeads,
		NumLayers:    c.Cfg.NumLayers,
		Dropout:      c.Cfg.Dropout,
		TrainableEmb: c.Tok.Trainable,
		Tokenizer:    tokenizerMode,
		Classes:      classes,
		Vocab:        vocab,
	}
	for _, p := range c.Params() {
		r, cols := p.Dims()
		raw := mat.DenseCopyOf(p).RawMatrix()
		snap.Weights = append(snap.Weights, WeightData{
			Rows: r,
			Cols: cols,
			Data: append([]float64(nil), raw.Data...),
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load rebuilds a classifier from a checkpoint written by Save.
func Load(path string) (*Classifier, *Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if len(snap.Weights) == 0 {
		return nil, nil, fmt.Errorf("checkpoint %s holds no weights", path)
	}

	variant, err := ParseVariant(snap.Variant)
	if err != nil {
		return nil, nil, err
	}

	// Weights[0] is always the token table.
	w0 := snap.Weights[0]
	table := mat.NewDense(w0.Rows, w0.Cols, append([]float64(nil), w0.Data...))

	c := New(Config{
		Variant:    variant,
		OutputSize: snap.OutputSize,
		MaxLen:     snap.MaxLen,
		NumHeads:   snap.NumHeads,
		NumLayers:  snap.NumLayers,
		Dropout:    snap.Dropout,
	}, table, snap.TrainableEmb)

	dst := c.Params()
	if len(dst) != len(snap.Weights) {
		return nil, nil, fmt.Errorf("checkpoint holds %d tensors, model expects %d",
			len(snap.Weights), len(dst))
	}
	for i := 1; i < len(dst); i++ {
		w := snap.Weights[i]
		r, cols := dst[i].Dims()
		if r != w.Rows || cols != w.Cols {
			return nil, nil, fmt.Errorf("tensor %d shape mismatch: checkpoint (%d x %d), model (%d x %d)",
				i, w.Rows, w.Cols, r, cols)
		}
		dst[i].Copy(mat.NewDense(w.Rows, w.Cols, w.Data))
	}
	return c, &snap, nil
}
