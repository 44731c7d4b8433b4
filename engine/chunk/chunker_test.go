package chunk

import (
	"strings"
	"testing"
)

// runeTok treats every rune as one token, which makes token arithmetic in
// tests exact and keeps them independent of the tiktoken vocabulary files.
type runeTok struct{}

func (runeTok) Count(text string) int { return len([]rune(text)) }

func (runeTok) Encode(text string) []int {
	rs := []rune(text)
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = int(r)
	}
	return out
}

func (runeTok) Decode(tokens []int) string {
	rs := make([]rune, len(tokens))
	for i, t := range tokens {
		rs[i] = rune(t)
	}
	return string(rs)
}

// inflateTok decodes token windows with trailing padding so re-encoding
// exceeds the original count. Used to exercise the oversized flag.
type inflateTok struct {
	runeTok
	pad int
}

func (t inflateTok) Decode(tokens []int) string {
	return t.runeTok.Decode(tokens) + strings.Repeat("!", t.pad)
}

func mustChunker(t *testing.T, tok Tokenizer, size, overlap int) *Chunker {
	t.Helper()
	c, err := New(tok, size, overlap)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", size, overlap, err)
	}
	return c
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0},
		{-1, 0},
		{100, 100},
		{100, 150},
		{100, -1},
	}
	for _, c := range cases {
		if _, err := New(runeTok{}, c.size, c.overlap); err == nil {
			t.Errorf("New(%d, %d): expected error", c.size, c.overlap)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c := mustChunker(t, runeTok{}, 100, 10)
	if got := c.Split(""); got != nil {
		t.Errorf("empty input: got %d pieces", len(got))
	}
	if got := c.Split("   \n\n  "); got != nil {
		t.Errorf("whitespace input: got %d pieces", len(got))
	}
}

func TestSplitShortInputSinglePiece(t *testing.T) {
	c := mustChunker(t, runeTok{}, 100, 10)
	pieces := c.Split("short text")
	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pieces))
	}
	if pieces[0].Text != "short text" {
		t.Errorf("text mangled: %q", pieces[0].Text)
	}
}

func TestSplitRespectsTokenBudget(t *testing.T) {
	c := mustChunker(t, runeTok{}, 50, 10)
	text := strings.Repeat("some words here. ", 40)
	for i, p := range c.Split(text) {
		if p.Tokens > 50 && !p.Oversized {
			t.Errorf("piece %d: %d tokens over budget and not flagged", i, p.Tokens)
		}
	}
}

func TestSplitProseScenario(t *testing.T) {
	// 2,400 tokens of plain prose with size=1000 overlap=200 must yield
	// exactly 3 pieces, each within budget, with the second piece opening
	// on the first piece's 200-token tail.
	c := mustChunker(t, runeTok{}, 1000, 200)
	text := strings.Repeat("abcd ", 480) // 2400 runes
	pieces := c.Split(text)
	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(pieces))
	}
	for i, p := range pieces {
		if p.Tokens > 1000 {
			t.Errorf("piece %d: %d tokens", i, p.Tokens)
		}
	}
	tail := []rune(pieces[0].Text)
	tail = tail[len(tail)-200:]
	if !strings.HasPrefix(pieces[1].Text, string(tail)) {
		t.Error("second piece does not start with first piece's 200-token tail")
	}
}

func TestSplitOverlapBetweenAllNeighbours(t *testing.T) {
	c := mustChunker(t, runeTok{}, 40, 8)
	text := strings.Repeat("lorem ipsum dolor sit amet. ", 12)
	pieces := c.Split(text)
	if len(pieces) < 3 {
		t.Fatalf("expected several pieces, got %d", len(pieces))
	}
	for i := 1; i < len(pieces); i++ {
		prev := []rune(pieces[i-1].Text)
		n := 8
		if len(prev) < n {
			n = len(prev)
		}
		tail := string(prev[len(prev)-n:])
		if !strings.HasPrefix(pieces[i].Text, tail) {
			t.Errorf("piece %d does not begin with predecessor's tail %q", i, tail)
		}
	}
}

func TestSplitNoDelimitersFallsThrough(t *testing.T) {
	// No paragraph, line, sentence, or word boundaries: the splitter must
	// descend to raw token windows.
	c := mustChunker(t, runeTok{}, 10, 0)
	text := strings.Repeat("x", 45)
	pieces := c.Split(text)
	if len(pieces) != 5 {
		t.Fatalf("expected 5 pieces, got %d", len(pieces))
	}
	var rebuilt strings.Builder
	for _, p := range pieces {
		if p.Tokens > 10 {
			t.Errorf("piece over budget: %d", p.Tokens)
		}
		rebuilt.WriteString(p.Text)
	}
	if rebuilt.String() != text {
		t.Error("zero-overlap pieces do not reconstruct the source")
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	c := mustChunker(t, runeTok{}, 30, 0)
	text := "first paragraph here.\n\nsecond paragraph here.\n\nthird paragraph here."
	pieces := c.Split(text)
	for i, p := range pieces {
		inner := strings.TrimSuffix(p.Text, "\n\n")
		if strings.Contains(inner, "\n\n") {
			t.Errorf("piece %d spans a paragraph break: %q", i, p.Text)
		}
	}
}

func TestSplitFlagsOversizedPieces(t *testing.T) {
	c := mustChunker(t, inflateTok{pad: 3}, 10, 0)
	pieces := c.Split(strings.Repeat("x", 25))
	if len(pieces) == 0 {
		t.Fatal("expected pieces")
	}
	flagged := false
	for _, p := range pieces {
		if p.Oversized {
			flagged = true
			if p.Tokens <= 10 {
				t.Error("oversized piece within budget")
			}
		}
	}
	if !flagged {
		t.Error("expected at least one oversized piece")
	}
}

func TestSplitCarryInflationTerminates(t *testing.T) {
	// Decoding pads every token tail, so the carried overlap re-encodes
	// over budget no matter how far it is shrunk. The splitter must drop
	// the carry and keep advancing instead of re-emitting it forever.
	c := mustChunker(t, inflateTok{pad: 5}, 10, 8)
	text := strings.Repeat("aaaa ", 8)
	pieces := c.Split(text)
	if len(pieces) != 4 {
		t.Fatalf("expected 4 pieces, got %d", len(pieces))
	}
	var rebuilt strings.Builder
	for _, p := range pieces {
		rebuilt.WriteString(p.Text)
	}
	if rebuilt.String() != text {
		t.Errorf("pieces do not reconstruct the source: %q", rebuilt.String())
	}
}

func TestSplitKeepsSourceOrder(t *testing.T) {
	c := mustChunker(t, runeTok{}, 12, 0)
	text := "alpha beta gamma delta epsilon zeta eta theta"
	pieces := c.Split(text)
	var joined strings.Builder
	for _, p := range pieces {
		joined.WriteString(p.Text)
	}
	if joined.String() != text {
		t.Errorf("order or content lost: %q", joined.String())
	}
}
