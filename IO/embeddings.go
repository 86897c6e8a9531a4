package IO

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/amark-23/slp-labs-NLP/utils"
)

// Reserved indices at the start of every vocabulary.
const (
	PadToken = "<pad>"
	UnkToken = "<unk>"

	PadID = 0
	UnkID = 1
)

type Vocabulary struct {
	TokenToID map[string]int
	IDToToken []string
}

// Lookup maps a token to its id, degrading silently to <unk>.
func (v Vocabulary) Lookup(tok string) int {
	if id, ok := v.TokenToID[tok]; ok {
		return id
	}
	return UnkID
}

func (v Vocabulary) Size() int { return len(v.IDToToken) }

// VocabularyFromTokens rebuilds a vocabulary from its id -> token list, as
// stored in checkpoints.
func VocabularyFromTokens(tokens []string) Vocabulary {
	m := make(map[string]int, len(tokens))
	for i, t := range tokens {
		m[t] = i
	}
	return Vocabulary{TokenToID: m, IDToToken: tokens}
}

// LoadWordVectors reads a pretrained word-vector text file (token followed by
// dim float components per line) and returns the vocabulary plus the frozen
// embedding matrix, shape (dim x |V|), one column per token.
//
// Column 0 is the all-zero <pad> vector; column 1 is <unk>, set to the mean
// of every loaded vector. Lines whose component count does not match dim are
// skipped.
func LoadWordVectors(path string, dim int) (Vocabulary, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return Vocabulary{}, nil, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()

	idToToken := []string{PadToken, UnkToken}
	tokenToID := map[string]int{PadToken: PadID, UnkToken: UnkID}
	var vectors [][]float64

	r := bufio.NewReaderSize(f, 1<<20)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			fields := strings.Fields(line)
			if len(fields) == dim+1 {
				tok := fields[0]
				if _, seen := tokenToID[tok]; !seen {
					vec := make([]float64, dim)
					ok := true
					for i := 0; i < dim; i++ {
						v, perr := strconv.ParseFloat(fields[i+1], 64)
						if perr != nil {
							ok = false
							break
						}
						vec[i] = v
					}
					if ok {
						tokenToID[tok] = len(idToToken)
						idToToken = append(idToToken, tok)
						vectors = append(vectors, vec)
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Vocabulary{}, nil, fmt.Errorf("read embeddings: %w", err)
		}
	}
	if len(vectors) == 0 {
		return Vocabulary{}, nil, fmt.Errorf("no %d-dimensional vectors found in %s", dim, path)
	}

	emb := mat.NewDense(dim, len(idToToken), nil)
	// <unk> = mean of all loaded vectors
	for i := 0; i < dim; i++ {
		sum := 0.0
		for _, vec := range vectors {
			sum += vec[i]
		}
		emb.Set(i, UnkID, sum/float64(len(vectors)))
	}
	for t, vec := range vectors {
		for i := 0; i < dim; i++ {
			emb.Set(i, t+2, vec[i])
		}
	}
	return Vocabulary{TokenToID: tokenToID, IDToToken: idToToken}, emb, nil
}

// RandomEmbeddings initializes a trainable (dim x |V|) table with small
// uniform values. The <pad> column stays zero.
func RandomEmbeddings(dim int, v Vocabulary) *mat.Dense {
	emb := mat.NewDense(dim, v.Size(), utils.RandomArray(dim*v.Size(), float64(dim)))
	for i := 0; i < dim; i++ {
		emb.Set(i, PadID, 0)
	}
	return emb
}
