package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amark-23/slp-labs-NLP/IO"
	"github.com/amark-23/slp-labs-NLP/model"
	"github.com/amark-23/slp-labs-NLP/params"
	"github.com/amark-23/slp-labs-NLP/utils"
)

func NewPredictCmd() *cobra.Command {
	var (
		ckptPath   string
		bpeTokPath string
	)

	cmd := &cobra.Command{
		Use:   "predict [sentence...]",
		Short: "Classify a sentence with a trained checkpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(ckptPath, bpeTokPath, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&ckptPath, "checkpoint", "model.gob", "trained model checkpoint")
	cmd.Flags().StringVar(&bpeTokPath, "bpe-tokenizer", "tokenizer.json",
		"BPE tokenizer file (only for checkpoints trained in bpe mode)")
	return cmd
}

func runPredict(ckptPath, bpeTokPath, text string) error {
	clf, snap, err := model.Load(ckptPath)
	if err != nil {
		return err
	}
	enc := IO.RestoreLabelEncoder(snap.Classes)

	var textEnc IO.Encoder
	switch snap.Tokenizer {
	case params.TokenizerBPE:
		st, err := IO.TrainOrLoadBPE("", bpeTokPath, 0)
		if err != nil {
			return fmt.Errorf("load BPE tokenizer: %w", err)
		}
		textEnc = st
	default:
		textEnc = IO.VocabularyFromTokens(snap.Vocab)
	}

	ex, err := IO.EncodeSentence(textEnc, text, snap.MaxLen)
	if err != nil {
		return err
	}

	logits := clf.Forward(ex.IDs, false)
	var (
		pred int
		prob float64
	)
	if snap.OutputSize == 1 {
		p := utils.Sigmoid(clf.Logit(logits))
		pred = 0
		prob = 1 - p
		if p >= 0.5 {
			pred = 1
			prob = p
		}
	} else {
		probs := utils.ColVectorSoftmax(logits)
		pred = utils.ArgmaxVec(probs)
		prob = probs.At(pred, 0)
	}

	fmt.Printf("%s (p=%.4f)\n", enc.Inverse(pred), prob)
	return nil
}
