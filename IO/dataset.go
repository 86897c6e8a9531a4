package IO

import (
	"fmt"
	"math/rand"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Example is one preprocessed sentence: ids padded/truncated to the dataset's
// MaxLen, the encoded label, and the true (pre-padding) token count.
type Example struct {
	IDs    []int
	Label  int
	Length int
}

// Encoder turns raw text into vocabulary ids. Vocabulary satisfies it for
// whitespace tokens; SubwordTokenizer satisfies it for the BPE mode.
type Encoder interface {
	EncodeTokens(text string) ([]int, error)
}

// EncodeTokens lowercases, whitespace-splits and maps each token through the
// vocabulary, degrading unknown tokens to <unk>.
func (v Vocabulary) EncodeTokens(text string) ([]int, error) {
	toks := Tokenize(text)
	ids := make([]int, len(toks))
	for i, t := range toks {
		ids[i] = v.Lookup(t)
	}
	return ids, nil
}

// Tokenize is the pipeline's basic tokenization: lowercase, split on
// whitespace. Pure and deterministic.
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// SentenceDataset holds fully preprocessed examples.
type SentenceDataset struct {
	MaxLen   int
	Examples []Example

	tokens [][]string // kept for the debug printout
}

// NewSentenceDataset preprocesses every sentence up front: tokenize, encode,
// truncate or pad to maxLen. Encoding runs over a few goroutines since each
// example is independent; the result is identical to the serial order.
func NewSentenceDataset(x []string, y []int, enc Encoder, maxLen int) (*SentenceDataset, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("got %d sentences but %d labels", len(x), len(y))
	}
	d := &SentenceDataset{
		MaxLen:   maxLen,
		Examples: make([]Example, len(x)),
		tokens:   make([][]string, len(x)),
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range x {
		g.Go(func() error {
			ids, err := enc.EncodeTokens(x[i])
			if err != nil {
				return fmt.Errorf("example %d: %w", i, err)
			}
			d.tokens[i] = Tokenize(x[i])
			d.Examples[i] = padExample(ids, y[i], maxLen)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func padExample(ids []int, label, maxLen int) Example {
	length := len(ids)
	if length > maxLen {
		length = maxLen
	}
	padded := make([]int, maxLen)
	copy(padded, ids[:length]) // remaining entries stay PadID (0)
	return Example{IDs: padded, Label: label, Length: length}
}

// EncodeSentence preprocesses a single sentence outside a dataset (the
// predict path). The label field is left at -1.
func EncodeSentence(enc Encoder, text string, maxLen int) (Example, error) {
	ids, err := enc.EncodeTokens(text)
	if err != nil {
		return Example{}, err
	}
	return padExample(ids, -1, maxLen), nil
}

func (d *SentenceDataset) Len() int { return len(d.Examples) }

// Batches returns index batches of size batchSize; when shuffle is set the
// order is drawn from the global RNG (seed in main for reproducible epochs).
func (d *SentenceDataset) Batches(batchSize int, shuffle bool) [][]int {
	idx := make([]int, d.Len())
	for i := range idx {
		idx[i] = i
	}
	if shuffle {
		rand.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}
	var out [][]int
	for start := 0; start < len(idx); start += batchSize {
		end := start + batchSize
		if end > len(idx) {
			end = len(idx)
		}
		out = append(out, idx[start:end])
	}
	return out
}

// Describe prints the first n tokenized and encoded examples, the same
// startup debug output the pipeline always produced.
func (d *SentenceDataset) Describe(n int) {
	if n > d.Len() {
		n = d.Len()
	}
	fmt.Println("first tokenized examples:")
	for i := 0; i < n; i++ {
		fmt.Printf("  %v\n", d.tokens[i])
	}
	fmt.Println("first examples after encoding and padding:")
	for i := 0; i < n; i++ {
		ex := d.Examples[i]
		fmt.Printf("  ids=%v label=%d length=%d\n", ex.IDs, ex.Label, ex.Length)
	}
}
