package train

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/IO"
	"github.com/amark-23/slp-labs-NLP/model"
	"github.com/amark-23/slp-labs-NLP/utils"
)

func toyVocab() IO.Vocabulary {
	return IO.VocabularyFromTokens([]string{
		IO.PadToken, IO.UnkToken, "good", "great", "bad", "awful", "movie",
	})
}

func toySplits(t *testing.T) (*IO.SentenceDataset, *IO.SentenceDataset) {
	t.Helper()
	xTrain := []string{
		"good movie", "great movie", "good great movie", "great good",
		"bad movie", "awful movie", "bad awful movie", "awful bad",
	}
	yTrain := []int{1, 1, 1, 1, 0, 0, 0, 0}
	xTest := []string{"good movie", "awful movie"}
	yTest := []int{1, 0}

	trainSet, err := IO.NewSentenceDataset(xTrain, yTrain, toyVocab(), 4)
	require.NoError(t, err)
	testSet, err := IO.NewSentenceDataset(xTest, yTest, toyVocab(), 4)
	require.NoError(t, err)
	return trainSet, testSet
}

func toyModel() *model.Classifier {
	table := mat.NewDense(4, 7, utils.RandomArray(28, 4))
	return model.New(model.Config{
		Variant:    model.VariantSimple,
		OutputSize: 1,
		MaxLen:     4,
		NumHeads:   1,
	}, table, true)
}

func runOnce(t *testing.T, seed int64, epochs int) *Result {
	t.Helper()
	rand.Seed(seed)
	trainSet, testSet := toySplits(t)
	res, err := Run(Options{
		Model:     toyModel(),
		Train:     trainSet,
		Test:      testSet,
		Classes:   []string{"negative", "positive"},
		LR:        1e-3,
		BatchSize: 4,
		Epochs:    epochs,
		Quiet:     true,
	})
	require.NoError(t, err)
	return res
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	a := runOnce(t, 7, 2)
	b := runOnce(t, 7, 2)
	assert.Equal(t, a.TrainLosses, b.TrainLosses)
	assert.Equal(t, a.TestLosses, b.TestLosses)
	assert.Equal(t, a.PredTest, b.PredTest)
}

func TestRunRecordsOneLossPerEpoch(t *testing.T) {
	res := runOnce(t, 7, 3)
	assert.Equal(t, 3, res.EpochsRun)
	assert.Len(t, res.TrainLosses, 3)
	assert.Len(t, res.TestLosses, 3)
	assert.Len(t, res.GoldTest, 2)
	assert.Len(t, res.PredTest, 2)
	assert.Equal(t, []int{1, 0}, res.GoldTest)
}

func TestRunTrainingReducesLoss(t *testing.T) {
	rand.Seed(7)
	trainSet, testSet := toySplits(t)
	res, err := Run(Options{
		Model:     toyModel(),
		Train:     trainSet,
		Test:      testSet,
		Classes:   []string{"negative", "positive"},
		LR:        1e-2,
		BatchSize: 4,
		Epochs:    30,
		Quiet:     true,
	})
	require.NoError(t, err)
	first := res.TrainLosses[0]
	last := res.TrainLosses[len(res.TrainLosses)-1]
	assert.Less(t, last, first, "training loss did not decrease on a separable toy set")
}

func TestRunPatienceStopsEarly(t *testing.T) {
	rand.Seed(7)
	trainSet, testSet := toySplits(t)
	res, err := Run(Options{
		Model:     toyModel(),
		Train:     trainSet,
		Test:      testSet,
		Classes:   []string{"negative", "positive"},
		LR:        1e-3,
		BatchSize: 4,
		Epochs:    50,
		Patience:  2,
		Quiet:     true,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.EpochsRun, 50)
	assert.Len(t, res.TrainLosses, res.EpochsRun)
}

func TestRunEmptyTrainingSet(t *testing.T) {
	empty, err := IO.NewSentenceDataset(nil, nil, toyVocab(), 4)
	require.NoError(t, err)
	_, err = Run(Options{Model: toyModel(), Train: empty, Test: empty, Epochs: 1})
	assert.Error(t, err)
}

func TestGradClipKeepsRunFinite(t *testing.T) {
	rand.Seed(7)
	trainSet, testSet := toySplits(t)
	res, err := Run(Options{
		Model:     toyModel(),
		Train:     trainSet,
		Test:      testSet,
		Classes:   []string{"negative", "positive"},
		LR:        1e-2,
		BatchSize: 4,
		Epochs:    2,
		GradClip:  1.0,
		Quiet:     true,
	})
	require.NoError(t, err)
	for _, l := range res.TrainLosses {
		assert.False(t, math.IsNaN(l), "NaN training loss")
	}
}

func TestMetricsReport(t *testing.T) {
	out := MetricsReport(
		[]int{0, 1, 1, 0},
		[]int{0, 1, 0, 0},
		[]string{"negative", "positive"},
	)
	assert.Contains(t, out, "accuracy: 0.7500")
	assert.Contains(t, out, "negative")
	assert.Contains(t, out, "positive")
	assert.Contains(t, out, "macro avg")
}

func TestWriteHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, WriteHistory(path, []float64{0.9, 0.5}, []float64{0.95, 0.6}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "epoch,train_loss,test_loss", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,0.9"))
	assert.True(t, strings.HasPrefix(lines[2], "2,0.5"))
}

func TestWriteHistoryLengthMismatch(t *testing.T) {
	err := WriteHistory(filepath.Join(t.TempDir(), "h.csv"), []float64{1}, nil)
	assert.Error(t, err)
}

func TestSaveLossCurves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.png")
	require.NoError(t, SaveLossCurves(path, []float64{0.9, 0.5, 0.3}, []float64{0.95, 0.6, 0.5}))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))
}
