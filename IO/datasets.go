package IO

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amark-23/slp-labs-NLP/params"
)

// LoadDataset returns raw sentences and string labels for the train and test
// splits of a named dataset rooted at dir. Unknown names are an error.
func LoadDataset(name, dir string) (xTrain, yTrain, xTest, yTest []string, err error) {
	switch name {
	case params.DatasetMR:
		return loadMR(filepath.Join(dir, "MR"))
	case params.DatasetSemeval:
		return loadSemeval(filepath.Join(dir, "Semeval2017A"))
	default:
		return nil, nil, nil, nil, fmt.Errorf("invalid dataset %q", name)
	}
}

// loadMR reads the movie-review polarity files (one sentence per line).
// Positive and negative examples are interleaved and every tenth example is
// held out as the test split, so the split is deterministic.
func loadMR(dir string) (xTrain, yTrain, xTest, yTest []string, err error) {
	pos, err := readLines(filepath.Join(dir, "rt-polarity.pos"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	neg, err := readLines(filepath.Join(dir, "rt-polarity.neg"))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	n := len(pos)
	if len(neg) > n {
		n = len(neg)
	}
	i := 0
	appendEx := func(text, label string) {
		if i%10 == 9 {
			xTest = append(xTest, text)
			yTest = append(yTest, label)
		} else {
			xTrain = append(xTrain, text)
			yTrain = append(yTrain, label)
		}
		i++
	}
	for k := 0; k < n; k++ {
		if k < len(pos) {
			appendEx(pos[k], "positive")
		}
		if k < len(neg) {
			appendEx(neg[k], "negative")
		}
	}
	if len(xTrain) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("no MR examples under %s", dir)
	}
	return xTrain, yTrain, xTest, yTest, nil
}

// loadSemeval reads SemEval-2017 task A twitter files, tab separated:
// <id>\t<label>\t<text>. Files matching *train* feed the train split and
// *test* the test split.
func loadSemeval(dir string) (xTrain, yTrain, xTest, yTest []string, err error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	sort.Strings(entries)
	for _, p := range entries {
		base := strings.ToLower(filepath.Base(p))
		isTrain := strings.Contains(base, "train")
		isTest := strings.Contains(base, "test")
		if !isTrain && !isTest {
			continue
		}
		texts, labels, err := readSemevalFile(p)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if isTrain {
			xTrain = append(xTrain, texts...)
			yTrain = append(yTrain, labels...)
		} else {
			xTest = append(xTest, texts...)
			yTest = append(yTest, labels...)
		}
	}
	if len(xTrain) == 0 || len(xTest) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("no Semeval2017A train/test files under %s", dir)
	}
	return xTrain, yTrain, xTest, yTest, nil
}

func readSemevalFile(path string) (texts, labels []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 1<<20)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			parts := strings.SplitN(strings.TrimRight(line, "\r\n"), "\t", 3)
			if len(parts) == 3 {
				labels = append(labels, parts[1])
				texts = append(texts, parts[2])
			}
		}
		if err == io.EOF {
			return texts, labels, nil
		}
		if err != nil {
			return texts, labels, err
		}
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	r := bufio.NewReaderSize(f, 1<<20)
	for {
		line, err := r.ReadString('\n')
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// LabelEncoder maps string labels to contiguous ids, classes sorted
// alphabetically so the mapping is stable across runs.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

func NewLabelEncoder(labels []string) *LabelEncoder {
	seen := map[string]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &LabelEncoder{Classes: classes, index: idx}
}

// RestoreLabelEncoder rebuilds an encoder from a stored class list.
func RestoreLabelEncoder(classes []string) *LabelEncoder {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &LabelEncoder{Classes: classes, index: idx}
}

func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		id, ok := e.index[l]
		if !ok {
			return nil, fmt.Errorf("unseen label %q", l)
		}
		out[i] = id
	}
	return out, nil
}

func (e *LabelEncoder) Inverse(id int) string {
	if id < 0 || id >= len(e.Classes) {
		return fmt.Sprintf("<label %d>", id)
	}
	return e.Classes[id]
}
