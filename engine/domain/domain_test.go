package domain

import (
	"errors"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{"nu\x00ll by\x00tes", "null bytes"},
		{"\x00\x00\x00", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := SanitizeText(c.in); got != c.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidateChunk(t *testing.T) {
	good := Chunk{Text: "text", SourceFile: "a.pdf", ChunkIndex: 0}
	if err := ValidateChunk(good); err != nil {
		t.Fatalf("valid chunk rejected: %v", err)
	}
	bad := []Chunk{
		{Text: "\x00", SourceFile: "a.pdf"},
		{Text: "text", SourceFile: ""},
		{Text: "text", SourceFile: "a.pdf", ChunkIndex: -1},
	}
	for i, c := range bad {
		if err := ValidateChunk(c); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestValidateEmbedding(t *testing.T) {
	if err := ValidateEmbedding(make([]float32, 4), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateEmbedding(make([]float32, 3), 4); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestIsTransient(t *testing.T) {
	transient := &EmbeddingError{Err: errors.New("429"), Transient: true}
	if !IsTransient(transient) {
		t.Error("transient embedding error not recognized")
	}
	if IsTransient(&EmbeddingError{Err: errors.New("bad request")}) {
		t.Error("permanent embedding error marked transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error marked transient")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	for _, err := range []error{
		&ExtractionError{File: "f.pdf", Err: cause},
		&EmbeddingError{Err: cause},
		&StoreError{Op: "upsert", Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to cause", err)
		}
	}
}
