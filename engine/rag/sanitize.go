package rag

import (
	"regexp"
	"strings"
)

// The model is asked for plain text but still emits markdown now and then;
// answers are stripped of formatting before they reach the client.
var (
	reFence   = regexp.MustCompile("(?s)```.*?```")
	reBold    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic  = regexp.MustCompile(`\*([^*]+)\*`)
	reBoldU   = regexp.MustCompile(`__([^_]+)__`)
	reItalicU = regexp.MustCompile(`_([^_]+)_`)
	reCode    = regexp.MustCompile("`([^`]+)`")
	reHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// Sanitize strips markdown formatting from a generated answer. Fenced code
// blocks are removed entirely; every other construct keeps its inner text.
func Sanitize(s string) string {
	s = reFence.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reBoldU.ReplaceAllString(s, "$1")
	s = reItalicU.ReplaceAllString(s, "$1")
	s = reCode.ReplaceAllString(s, "$1")
	s = reHeading.ReplaceAllString(s, "")
	s = reLink.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
