package IO

import (
	"fmt"
	"os"
	"path/filepath"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/models"
	"github.com/sugarme/tokenizer/normalizers"
	"github.com/sugarme/tokenizer/pretokenizers"
	"github.com/sugarme/tokenizer/trainers"
)

// SubwordTokenizer is the optional BPE tokenization mode. Because its pieces
// do not line up with pretrained word vectors, this mode pairs with randomly
// initialized trainable embeddings.
type SubwordTokenizer struct {
	t     *tk.Tokenizer
	vocab Vocabulary
}

// TrainOrLoadBPE trains a BPE tokenizer on corpusPath when tokPath does not
// exist yet, otherwise loads it. The special tokens keep <pad> at id 0 and
// <unk> at id 1, matching the whitespace vocabulary layout.
func TrainOrLoadBPE(corpusPath, tokPath string, vocabSize int) (*SubwordTokenizer, error) {
	if _, err := os.Stat(tokPath); err == nil {
		t, err := tk.FromFile(tokPath)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
		return newSubword(t)
	}

	bpe := models.NewBPE()
	t := tk.NewTokenizer(bpe)
	t.WithNormalizer(normalizers.NewSequence(
		normalizers.NewNFKC(),
		normalizers.NewLowercase(),
	))
	t.WithPreTokenizer(pretokenizers.NewWhitespaceSplit())

	tr := trainers.NewBpeTrainer()
	tr.VocabSize = vocabSize
	tr.SpecialTokens = []string{PadToken, UnkToken}

	if err := t.Train(tr, []string{corpusPath}); err != nil {
		return nil, fmt.Errorf("train tokenizer: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(tokPath), 0o755); err != nil {
		return nil, err
	}
	if err := t.Save(tokPath); err != nil {
		return nil, fmt.Errorf("save tokenizer: %w", err)
	}
	return newSubword(t)
}

func newSubword(t *tk.Tokenizer) (*SubwordTokenizer, error) {
	raw := t.GetVocab(true)
	idToToken := make([]string, len(raw))
	tokenToID := make(map[string]int, len(raw))
	for tok, id := range raw {
		if id < 0 || id >= len(idToToken) {
			return nil, fmt.Errorf("tokenizer vocab has non-contiguous id %d", id)
		}
		idToToken[id] = tok
		tokenToID[tok] = id
	}
	return &SubwordTokenizer{
		t:     t,
		vocab: Vocabulary{TokenToID: tokenToID, IDToToken: idToToken},
	}, nil
}

func (s *SubwordTokenizer) Vocab() Vocabulary { return s.vocab }

// EncodeTokens implements Encoder.
func (s *SubwordTokenizer) EncodeTokens(text string) ([]int, error) {
	enc, err := s.t.EncodeSingle(text)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(enc.Ids))
	for i, v := range enc.Ids {
		out[i] = int(v)
	}
	return out, nil
}
