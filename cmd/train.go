package cmd

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/IO"
	"github.com/amark-23/slp-labs-NLP/model"
	"github.com/amark-23/slp-labs-NLP/params"
	"github.com/amark-23/slp-labs-NLP/train"
)

type trainFlags struct {
	dataset    string
	dataDir    string
	modelName  string
	plotPath   string
	historyCSV string
	checkpoint string
	bpeTokPath string
}

func NewTrainCmd() *cobra.Command {
	var tf trainFlags
	cfg := &params.Config

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier and report per-epoch metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, tf)
		},
	}

	f := cmd.Flags()
	f.StringVar(&tf.dataset, "dataset", params.DatasetMR, "dataset name: MR or Semeval2017A")
	f.StringVar(&tf.dataDir, "data-dir", "data", "directory holding the dataset folders")
	f.StringVar(&tf.modelName, "model", string(model.VariantSimple),
		"classifier variant: baseline, simple, multihead or encoder")
	f.StringVar(&cfg.EmbPath, "embeddings", filepath.Join("embeddings", "glove.6B.50d.txt"),
		"pretrained word-vector text file")
	f.IntVar(&cfg.EmbDim, "emb-dim", cfg.EmbDim, "embedding dimensionality")
	f.BoolVar(&cfg.TrainableEmb, "trainable-emb", cfg.TrainableEmb, "update the embedding table during training")
	f.IntVar(&cfg.MaxLen, "max-len", cfg.MaxLen, "fixed sequence length after pad/truncate")
	f.IntVar(&cfg.NumHeads, "heads", cfg.NumHeads, "attention heads")
	f.IntVar(&cfg.NumLayers, "layers", cfg.NumLayers, "transformer blocks (encoder variant)")
	f.Float64Var(&cfg.Dropout, "dropout", cfg.Dropout, "dropout probability")
	f.Float64Var(&cfg.LR, "lr", cfg.LR, "Adam learning rate")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "mini-batch size")
	f.IntVar(&cfg.MaxEpochs, "epochs", cfg.MaxEpochs, "number of training epochs")
	f.IntVar(&cfg.Patience, "patience", cfg.Patience, "early-stop patience in epochs (0 disables)")
	f.Float64Var(&cfg.GradClip, "grad-clip", cfg.GradClip, "max gradient norm per batch (<=0 disables)")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed")
	f.BoolVar(&cfg.ParallelHeads, "parallel-heads", cfg.ParallelHeads, "fan attention heads out over goroutines")
	f.StringVar(&cfg.Tokenizer, "tokenizer", cfg.Tokenizer, "tokenizer: whitespace or bpe")
	f.IntVar(&cfg.BPEVocabSize, "bpe-vocab-size", cfg.BPEVocabSize, "vocabulary size when training a BPE tokenizer")
	f.StringVar(&tf.bpeTokPath, "bpe-tokenizer", "tokenizer.json", "BPE tokenizer file (trained when missing)")
	f.StringVar(&tf.plotPath, "plot", "", "loss-curve PNG path (default loss_<run>.png)")
	f.StringVar(&tf.historyCSV, "history", "", "loss-history CSV path (default history_<run>.csv)")
	f.StringVar(&tf.checkpoint, "checkpoint", "", "model checkpoint path (default model_<run>.gob)")
	return cmd
}

func runTrain(cmd *cobra.Command, tf trainFlags) error {
	cfg := params.Config
	rand.Seed(cfg.Seed)

	runID := strings.Split(uuid.New().String(), "-")[0]
	slog.Info("starting run",
		"run", runID, "dataset", tf.dataset, "model", tf.modelName,
		"epochs", cfg.MaxEpochs, "batch", cfg.BatchSize, "seed", cfg.Seed)

	variant, err := model.ParseVariant(tf.modelName)
	if err != nil {
		return err
	}

	// Word vectors and raw text are independent inputs; load them together.
	var (
		vocab IO.Vocabulary
		emb   *mat.Dense

		xTrain, yTrainRaw []string
		xTest, yTestRaw   []string
	)
	g, _ := errgroup.WithContext(cmd.Context())
	if cfg.Tokenizer == params.TokenizerWhitespace {
		g.Go(func() error {
			var err error
			vocab, emb, err = IO.LoadWordVectors(cfg.EmbPath, cfg.EmbDim)
			return err
		})
	}
	g.Go(func() error {
		var err error
		xTrain, yTrainRaw, xTest, yTestRaw, err = IO.LoadDataset(tf.dataset, tf.dataDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	enc := IO.NewLabelEncoder(yTrainRaw)
	yTrain, err := enc.Transform(yTrainRaw)
	if err != nil {
		return err
	}
	yTest, err := enc.Transform(yTestRaw)
	if err != nil {
		return err
	}
	fmt.Println("first labels (encoded):")
	for i := 0; i < 10 && i < len(yTrain); i++ {
		fmt.Printf("  %s -> %d\n", yTrainRaw[i], yTrain[i])
	}

	// In BPE mode the subword vocabulary replaces the pretrained one, so the
	// embedding table starts random and trains.
	var textEnc IO.Encoder = vocab
	trainableEmb := cfg.TrainableEmb
	if cfg.Tokenizer == params.TokenizerBPE {
		corpusPath, err := writeCorpus(xTrain)
		if err != nil {
			return err
		}
		defer os.Remove(corpusPath)
		st, err := IO.TrainOrLoadBPE(corpusPath, tf.bpeTokPath, cfg.BPEVocabSize)
		if err != nil {
			return err
		}
		vocab = st.Vocab()
		emb = IO.RandomEmbeddings(cfg.EmbDim, vocab)
		textEnc = st
		trainableEmb = true
	}

	trainSet, err := IO.NewSentenceDataset(xTrain, yTrain, textEnc, cfg.MaxLen)
	if err != nil {
		return err
	}
	testSet, err := IO.NewSentenceDataset(xTest, yTest, textEnc, cfg.MaxLen)
	if err != nil {
		return err
	}
	trainSet.Describe(5)

	// Binary tasks squeeze to a single logit; multi-class keeps one output
	// per class.
	outputSize := len(enc.Classes)
	if outputSize == 2 {
		outputSize = 1
	}

	clf := model.New(model.Config{
		Variant:    variant,
		OutputSize: outputSize,
		MaxLen:     cfg.MaxLen,
		NumHeads:   cfg.NumHeads,
		NumLayers:  cfg.NumLayers,
		Dropout:    cfg.Dropout,
	}, emb, trainableEmb)
	clf.SetParallelHeads(cfg.ParallelHeads)

	res, err := train.Run(train.Options{
		Model:     clf,
		Train:     trainSet,
		Test:      testSet,
		Classes:   enc.Classes,
		LR:        cfg.LR,
		BatchSize: cfg.BatchSize,
		Epochs:    cfg.MaxEpochs,
		Patience:  cfg.Patience,
		GradClip:  cfg.GradClip,
	})
	if err != nil {
		return err
	}

	fmt.Println("\nfinal evaluation on test set:")
	fmt.Println(train.MetricsReport(res.GoldTest, res.PredTest, enc.Classes))

	plotPath := orDefault(tf.plotPath, fmt.Sprintf("loss_%s.png", runID))
	if err := train.SaveLossCurves(plotPath, res.TrainLosses, res.TestLosses); err != nil {
		return err
	}
	historyPath := orDefault(tf.historyCSV, fmt.Sprintf("history_%s.csv", runID))
	if err := train.WriteHistory(historyPath, res.TrainLosses, res.TestLosses); err != nil {
		return err
	}
	ckptPath := orDefault(tf.checkpoint, fmt.Sprintf("model_%s.gob", runID))
	if err := model.Save(clf, enc.Classes, vocab.IDToToken, cfg.Tokenizer, ckptPath); err != nil {
		return err
	}
	slog.Info("run finished",
		"run", runID, "epochs", res.EpochsRun,
		"plot", plotPath, "history", historyPath, "checkpoint", ckptPath)
	return nil
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// writeCorpus dumps the training sentences to a temp file for the BPE
// trainer, which consumes file paths.
func writeCorpus(sentences []string) (string, error) {
	f, err := os.CreateTemp("", "corpus-*.txt")
	if err != nil {
		return "", err
	}
	for _, s := range sentences {
		if _, err := fmt.Fprintln(f, s); err != nil {
			f.Close()
			return "", err
		}
	}
	return f.Name(), f.Close()
}
