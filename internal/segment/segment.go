// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits documents into sentence-aligned chunks that fit a
// language model prompt.
package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// DefaultChunkSize is the chunk bound used when the caller passes a
// non-positive size.
const DefaultChunkSize = 600

// Sentences returns the sentences of text in order, each trimmed of
// surrounding whitespace. Boundaries follow Unicode UAX #29 over the
// whitespace-normalized text, so hard line wraps inside a sentence (as
// pdftotext emits them) do not end it.
func Sentences(text string) []string {
	var out []string
	iter := sentences.FromString(Normalize(text))
	for iter.Next() {
		s := strings.TrimSpace(iter.Value())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Segment groups the sentences of text into chunks of at most
// maxChunkChars characters. Sentences are joined with a single space and
// never split; a sentence longer than the bound becomes a chunk of its own.
// Chunks are returned in document order and are never empty.
func Segment(text string, maxChunkChars int) []string {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultChunkSize
	}

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
		}
		buf.Reset()
		bufLen = 0
	}

	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		if bufLen > 0 && bufLen+1+n > maxChunkChars {
			flush()
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(s)
		bufLen += n
	}
	flush()

	return chunks
}

// Normalize collapses every run of whitespace in s to a single space and
// trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
