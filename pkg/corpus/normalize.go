package corpus

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Normalizer turns raw text into a corpus blob. It joins lines that belong
// to the same paragraph with a single space, turns runs of blank lines into
// one paragraph break, and collapses runs of horizontal whitespace.
// Its behavior can be customized with functional options.
type Normalizer struct {
	spaceRegex     *regexp.Regexp
	paragraphBreak string
	keepParagraphs bool
	maxLineSize    int
}

// Option is a function that configures a Normalizer.
type Option func(*Normalizer)

// WithSpaceRegex sets the regex whose matches are collapsed into one space.
// Default: `[ \t\f\v\r\x{00A0}]+`
func WithSpaceRegex(expr string) Option {
	return func(n *Normalizer) {
		n.spaceRegex = regexp.MustCompile(expr)
	}
}

// WithParagraphBreak sets the string written between paragraphs.
// Default: "\n"
func WithParagraphBreak(sep string) Option {
	return func(n *Normalizer) {
		n.paragraphBreak = sep
	}
}

// WithKeepParagraphs controls whether blank lines produce a paragraph break.
// When disabled, paragraphs are joined with a space like any other line.
// Default: true
func WithKeepParagraphs(keep bool) Option {
	return func(n *Normalizer) {
		n.keepParagraphs = keep
	}
}

// WithMaxLineSize sets the longest line, in bytes, the Normalizer accepts.
// Default: 1 MiB
func WithMaxLineSize(size int) Option {
	return func(n *Normalizer) {
		n.maxLineSize = size
	}
}

// NewNormalizer creates a new normalizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		spaceRegex:     regexp.MustCompile(`[ \t\f\v\r\x{00A0}]+`),
		paragraphBreak: "\n",
		keepParagraphs: true,
		maxLineSize:    1 << 20,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Normalize reads r to the end and returns the normalized text. Any error
// other than io.EOF from the underlying reader is returned.
func (n *Normalizer) Normalize(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	maxLine := n.maxLineSize
	if maxLine <= 0 {
		maxLine = 1 << 20
	}
	// The scanner accepts tokens up to the larger of max and cap(buf).
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	var builder strings.Builder
	pendingBreak := false

	for scanner.Scan() {
		line := strings.TrimSpace(n.spaceRegex.ReplaceAllString(scanner.Text(), " "))
		if line == "" {
			pendingBreak = builder.Len() > 0
			continue
		}
		if builder.Len() > 0 {
			if pendingBreak && n.keepParagraphs {
				builder.WriteString(n.paragraphBreak)
			} else {
				builder.WriteByte(' ')
			}
		}
		builder.WriteString(line)
		pendingBreak = false
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return builder.String(), nil
}

// NormalizeString is a convenience wrapper around Normalize for text held in
// memory. It only fails on lines longer than the configured maximum.
func (n *Normalizer) NormalizeString(text string) (string, error) {
	return n.Normalize(strings.NewReader(text))
}
