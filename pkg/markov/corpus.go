package markov

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidRange is returned when a Corpus is sliced outside its bounds or
	// across a character boundary.
	ErrInvalidRange = errors.New("markov: invalid range")
	// ErrNoData is returned when no character can be produced for a context.
	ErrNoData = errors.New("markov: no data for context")
)

// Corpus is an immutable block of text addressable both by character index and
// by byte offset. All slices returned by a Corpus share its backing memory.
type Corpus struct {
	text string
	// offsets[i] is the byte offset of character i; offsets[len] == len(text).
	offsets []int
}

// NewCorpus wraps text in a Corpus. Invalid UTF-8 sequences are replaced with
// utf8.RuneError so every character boundary is well defined.
func NewCorpus(text string) *Corpus {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	return &Corpus{text: text, offsets: offsets}
}

// Len returns the number of characters in the corpus.
func (c *Corpus) Len() int { return len(c.offsets) - 1 }

// ByteLen returns the size of the corpus in bytes.
func (c *Corpus) ByteLen() int { return len(c.text) }

// String returns the full corpus text.
func (c *Corpus) String() string { return c.text }

// Offset converts a character index into a byte offset. Len() is a valid index
// and maps to ByteLen().
func (c *Corpus) Offset(i int) (int, error) {
	if i < 0 || i > c.Len() {
		return 0, fmt.Errorf("%w: character %d of %d", ErrInvalidRange, i, c.Len())
	}
	return c.offsets[i], nil
}

// Slice returns the characters in [start, end).
func (c *Corpus) Slice(start, end int) (string, error) {
	if start < 0 || end > c.Len() || start > end {
		return "", fmt.Errorf("%w: characters [%d, %d) of %d", ErrInvalidRange, start, end, c.Len())
	}
	return c.text[c.offsets[start]:c.offsets[end]], nil
}

// SliceBytes returns the text in the byte range [start, end). Both ends must
// fall on character boundaries.
func (c *Corpus) SliceBytes(start, end int) (string, error) {
	if start < 0 || end > len(c.text) || start > end {
		return "", fmt.Errorf("%w: bytes [%d, %d) of %d", ErrInvalidRange, start, end, len(c.text))
	}
	if !c.isBoundary(start) || !c.isBoundary(end) {
		return "", fmt.Errorf("%w: bytes [%d, %d) split a character", ErrInvalidRange, start, end)
	}
	return c.text[start:end], nil
}

// RuneAt returns the character at index i.
func (c *Corpus) RuneAt(i int) (rune, error) {
	if i < 0 || i >= c.Len() {
		return utf8.RuneError, fmt.Errorf("%w: character %d of %d", ErrInvalidRange, i, c.Len())
	}
	r, _ := utf8.DecodeRuneInString(c.text[c.offsets[i]:])
	return r, nil
}

func (c *Corpus) isBoundary(off int) bool {
	return off == len(c.text) || utf8.RuneStart(c.text[off])
}

// window returns the k characters starting at character i followed by the
// character after them. The caller guarantees i+k < Len().
func (c *Corpus) window(i, k int) (string, rune) {
	end := c.offsets[i+k]
	r, _ := utf8.DecodeRuneInString(c.text[end:])
	return c.text[c.offsets[i]:end], r
}
