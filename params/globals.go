package params

// Dataset names accepted by the pipeline. Anything else is an error.
const (
	DatasetMR      = "MR"
	DatasetSemeval = "Semeval2017A"
)

// Tokenizer modes.
const (
	TokenizerWhitespace = "whitespace"
	TokenizerBPE        = "bpe"
)

type TrainingConfig struct {
	// Data
	EmbPath      string // pretrained word-vector text file
	EmbDim       int    // embedding dimensionality
	TrainableEmb bool   // update the embedding table during training
	MaxLen       int    // fixed sequence length after pad/truncate
	Tokenizer    string // whitespace | bpe
	BPEVocabSize int    // vocab size when training a BPE tokenizer

	// Model
	NumHeads  int // attention heads (multihead/encoder variants)
	NumLayers int // transformer blocks (encoder variant)
	Dropout   float64

	// Optimization
	LR        float64
	BatchSize int
	MaxEpochs int
	Patience  int // early stop after this many epochs without test-loss improvement; 0 disables

	AdamBeta1 float64
	AdamBeta2 float64
	AdamEps   float64
	GradClip  float64 // <=0 disables

	Seed          int64
	ParallelHeads bool // fan heads out over goroutines (forced off while dropout is active)
}

// Defaults mirror the original experiment constants.
var Config = TrainingConfig{
	EmbDim:       50,
	TrainableEmb: false,
	MaxLen:       8,
	Tokenizer:    TokenizerWhitespace,
	BPEVocabSize: 8192,

	NumHeads:  3,
	NumLayers: 3,
	Dropout:   0.0,

	LR:        1e-3,
	BatchSize: 128,
	MaxEpochs: 50,
	Patience:  0,

	AdamBeta1: 0.9,
	AdamBeta2: 0.999,
	AdamEps:   1e-8,
	GradClip:  0,

	Seed: 1,
}
