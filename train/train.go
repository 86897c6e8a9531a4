package train

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/IO"
	"github.com/amark-23/slp-labs-NLP/model"
	"github.com/amark-23/slp-labs-NLP/utils"
)

type Options struct {
	Model   *model.Classifier
	Train   *IO.SentenceDataset
	Test    *IO.SentenceDataset
	Classes []string

	LR        float64
	BatchSize int
	Epochs    int
	Patience  int // 0 disables early stopping
	GradClip  float64

	Quiet bool // suppress per-epoch console output (tests)
}

type Result struct {
	TrainLosses []float64
	TestLosses  []float64
	GoldTest    []int
	PredTest    []int
	EpochsRun   int
}

// Run drives the two-phase epoch loop: a training pass with parameter
// updates, then eval-mode loss on both splits plus a metrics report on the
// held-out data. Stops after Epochs, or earlier when Patience epochs pass
// without a test-loss improvement.
func Run(opts Options) (*Result, error) {
	if opts.Train.Len() == 0 {
		return nil, fmt.Errorf("empty training set")
	}
	res := &Result{}
	best := -1.0
	sinceBest := 0

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		start := time.Now()
		trainEpoch(opts)

		trainLoss, _, _ := evalEpoch(opts.Model, opts.Train)
		testLoss, gold, pred := evalEpoch(opts.Model, opts.Test)
		res.TrainLosses = append(res.TrainLosses, trainLoss)
		res.TestLosses = append(res.TestLosses, testLoss)
		res.GoldTest, res.PredTest = gold, pred
		res.EpochsRun = epoch

		if !opts.Quiet {
			fmt.Printf("\n[Epoch %d] Train Loss: %.4f | Test Loss: %.4f (%s)\n",
				epoch, trainLoss, testLoss, time.Since(start).Round(time.Millisecond))
			fmt.Println(MetricsReport(gold, pred, opts.Classes))
		}

		if opts.Patience > 0 {
			if best < 0 || testLoss < best {
				best = testLoss
				sinceBest = 0
			} else {
				sinceBest++
				if sinceBest >= opts.Patience {
					slog.Info("early stop: no test-loss improvement",
						"epoch", epoch, "patience", opts.Patience)
					break
				}
			}
		}
	}
	return res, nil
}

// trainEpoch visits every mini-batch once: gradients accumulate across the
// batch (scaled to the batch mean) and a single Adam step follows.
func trainEpoch(opts Options) {
	m := opts.Model
	for _, batch := range opts.Train.Batches(opts.BatchSize, true) {
		invB := 1.0 / float64(len(batch))
		for _, i := range batch {
			ex := opts.Train.Examples[i]
			logits := m.Forward(ex.IDs, true)
			_, grad := lossAndGrad(m, logits, ex.Label)
			grad.Scale(invB, grad)
			m.Backward(grad)
		}
		if opts.GradClip > 0 {
			utils.ClipGrads(opts.GradClip, m.Grads()...)
		}
		m.Step(opts.LR)
	}
}

// evalEpoch computes the mean loss and predictions without gradient updates.
func evalEpoch(m *model.Classifier, d *IO.SentenceDataset) (loss float64, gold, pred []int) {
	for _, ex := range d.Examples {
		logits := m.Forward(ex.IDs, false)
		l, _ := lossAndGrad(m, logits, ex.Label)
		loss += l
		gold = append(gold, ex.Label)
		if m.Cfg.OutputSize == 1 {
			if utils.Sigmoid(m.Logit(logits)) >= 0.5 {
				pred = append(pred, 1)
			} else {
				pred = append(pred, 0)
			}
		} else {
			pred = append(pred, utils.ArgmaxVec(logits))
		}
	}
	if d.Len() > 0 {
		loss /= float64(d.Len())
	}
	return loss, gold, pred
}

// lossAndGrad picks the loss by output arity: logistic loss on the squeezed
// logit for binary tasks, softmax cross-entropy otherwise.
func lossAndGrad(m *model.Classifier, logits *mat.Dense, label int) (float64, *mat.Dense) {
	if m.Cfg.OutputSize == 1 {
		l, g := utils.BCEWithLogits(m.Logit(logits), float64(label))
		return l, mat.NewDense(1, 1, []float64{g})
	}
	return utils.CrossEntropyWithGrad(logits, label)
}
