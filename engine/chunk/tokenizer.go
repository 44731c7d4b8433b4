package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer measures and slices text in the token space of the embedding
// model. Chunk budgets are token budgets, not character or word budgets.
type Tokenizer interface {
	Count(text string) int
	Encode(text string) []int
	Decode(tokens []int) string
}

// EncodingCL100K is the tiktoken encoding used by the text-embedding-3
// model family.
const EncodingCL100K = "cl100k_base"

type tiktokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken returns a Tokenizer backed by the named tiktoken encoding.
func NewTiktoken(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("chunk: load encoding %s: %w", encoding, err)
	}
	return &tiktokenizer{enc: enc}, nil
}

func (t *tiktokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *tiktokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
