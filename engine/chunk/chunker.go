// Package chunk splits document text into token-bounded pieces that respect
// structural boundaries. Splitting descends from the coarsest separator
// (paragraph break) to the finest (raw token windows), and consecutive
// pieces share a configurable token-tail overlap.
package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// Separators in descending coarseness: paragraph break, line break,
// sentence end, word boundary, raw token window.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Piece is one emitted chunk. Oversized marks the rare piece whose token
// count still exceeds the budget after the finest split; it is emitted
// as-is rather than dropped.
type Piece struct {
	Text      string
	Tokens    int
	Oversized bool
}

// Chunker splits text into pieces of at most Size tokens with roughly
// Overlap tokens shared between neighbours.
type Chunker struct {
	tok     Tokenizer
	size    int
	overlap int
}

var errBadConfig = errors.New("chunk size must be positive and greater than overlap")

// New validates the configuration. A size not strictly greater than the
// overlap would never make forward progress and is rejected here rather
// than looping at split time.
func New(tok Tokenizer, size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || size <= overlap {
		return nil, fmt.Errorf("chunk: size=%d overlap=%d: %w", size, overlap, errBadConfig)
	}
	return &Chunker{tok: tok, size: size, overlap: overlap}, nil
}

// Size returns the configured token budget per piece.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks text. Empty or whitespace-only input yields no pieces.
// Piece order follows source order.
func (c *Chunker) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	units := c.splitUnits(text, separators)
	return c.merge(units)
}

type unit struct {
	text      string
	tokens    int
	oversized bool
}

// splitUnits recursively splits text until every unit fits the budget,
// descending to the next-finer separator only for units that still exceed
// it. Separators stay attached to the preceding unit so concatenation
// reconstructs the source text exactly.
func (c *Chunker) splitUnits(text string, seps []string) []unit {
	sep := seps[0]
	if sep == "" {
		return c.hardSplit(text)
	}
	var units []unit
	for _, part := range splitKeep(text, sep) {
		n := c.tok.Count(part)
		if n <= c.size {
			units = append(units, unit{text: part, tokens: n})
			continue
		}
		units = append(units, c.splitUnits(part, seps[1:])...)
	}
	return units
}

// hardSplit cuts text into raw token windows of at most size tokens. A
// window whose decoded form still re-encodes over budget is flagged
// oversized and emitted as-is.
func (c *Chunker) hardSplit(text string) []unit {
	toks := c.tok.Encode(text)
	if len(toks) == 0 {
		return nil
	}
	var units []unit
	for i := 0; i < len(toks); i += c.size {
		end := i + c.size
		if end > len(toks) {
			end = len(toks)
		}
		decoded := c.tok.Decode(toks[i:end])
		n := c.tok.Count(decoded)
		units = append(units, unit{text: decoded, tokens: n, oversized: n > c.size})
	}
	return units
}

// merge greedily packs units into pieces within the token budget and seeds
// each subsequent piece with the token tail of its predecessor. Across an
// oversized unit the overlap resets; exact overlap there is best-effort by
// design of the hard split.
func (c *Chunker) merge(units []unit) []Piece {
	var pieces []Piece
	carry := ""
	carryTokens := 0
	i := 0

	for i < len(units) {
		if units[i].oversized {
			pieces = append(pieces, Piece{Text: units[i].text, Tokens: units[i].tokens, Oversized: true})
			i++
			carry, carryTokens = "", 0
			continue
		}

		// Shrink the carried tail so the next unit always fits.
		if carryTokens > 0 && carryTokens+units[i].tokens > c.size {
			allowed := c.size - units[i].tokens
			if allowed <= 0 {
				carry, carryTokens = "", 0
			} else {
				carry = c.tokenTail(carry, allowed)
				carryTokens = c.tok.Count(carry)
			}
		}

		var b strings.Builder
		b.WriteString(carry)
		tokens := carryTokens
		start := i
		for i < len(units) && !units[i].oversized && tokens+units[i].tokens <= c.size {
			b.WriteString(units[i].text)
			tokens += units[i].tokens
			i++
		}

		// Re-encoding at a cut point can inflate the shrunken carry past
		// the budget. A piece that packs no units would repeat forever;
		// drop the carry and retry the unit instead.
		if i == start {
			carry, carryTokens = "", 0
			continue
		}

		text := b.String()
		pieces = append(pieces, Piece{Text: text, Tokens: c.tok.Count(text)})

		if c.overlap > 0 {
			carry = c.tokenTail(text, c.overlap)
			carryTokens = c.tok.Count(carry)
		}
	}
	return pieces
}

// tokenTail returns the decoded trailing n tokens of text.
func (c *Chunker) tokenTail(text string, n int) string {
	toks := c.tok.Encode(text)
	if len(toks) <= n {
		return text
	}
	return c.tok.Decode(toks[len(toks)-n:])
}

// splitKeep splits text on sep, keeping the separator attached to the
// preceding part.
func splitKeep(text, sep string) []string {
	var parts []string
	for {
		i := strings.Index(text, sep)
		if i < 0 {
			if text != "" {
				parts = append(parts, text)
			}
			return parts
		}
		parts = append(parts, text[:i+len(sep)])
		text = text[i+len(sep):]
	}
}
