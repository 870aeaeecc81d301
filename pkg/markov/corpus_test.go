package markov

import (
	"errors"
	"testing"
	"unicode/utf8"
)

func TestCorpusLengths(t *testing.T) {
	c := NewCorpus("héllo, 世界")
	if got, want := c.Len(), 9; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if got, want := c.ByteLen(), len("héllo, 世界"); got != want {
		t.Errorf("ByteLen() = %d, want %d", got, want)
	}
	if got := c.String(); got != "héllo, 世界" {
		t.Errorf("String() = %q", got)
	}
}

func TestCorpusOffset(t *testing.T) {
	c := NewCorpus("héllo")

	testCases := []struct {
		index   int
		want    int
		wantErr bool
	}{
		{index: 0, want: 0},
		{index: 1, want: 1},
		{index: 2, want: 3},
		{index: 5, want: 6},
		{index: 6, wantErr: true},
		{index: -1, wantErr: true},
	}

	for _, tc := range testCases {
		got, err := c.Offset(tc.index)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("Offset(%d) error = %v, want ErrInvalidRange", tc.index, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Offset(%d) unexpected error: %v", tc.index, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Offset(%d) = %d, want %d", tc.index, got, tc.want)
		}
	}
}

func TestCorpusSlice(t *testing.T) {
	c := NewCorpus("αβγαβδ")

	testCases := []struct {
		name       string
		start, end int
		want       string
		wantErr    bool
	}{
		{name: "Whole corpus", start: 0, end: 6, want: "αβγαβδ"},
		{name: "Middle", start: 1, end: 3, want: "βγ"},
		{name: "Empty at end", start: 6, end: 6, want: ""},
		{name: "End past corpus", start: 2, end: 7, wantErr: true},
		{name: "Negative start", start: -1, end: 2, wantErr: true},
		{name: "Start after end", start: 3, end: 2, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Slice(tc.start, tc.end)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("Slice() error = %v, want ErrInvalidRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Slice() unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Slice() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCorpusSliceBytes(t *testing.T) {
	c := NewCorpus("héllo")

	testCases := []struct {
		name       string
		start, end int
		want       string
		wantErr    bool
	}{
		{name: "ASCII prefix", start: 0, end: 1, want: "h"},
		{name: "Multibyte character", start: 1, end: 3, want: "é"},
		{name: "To end", start: 3, end: 6, want: "llo"},
		{name: "Splits a character", start: 1, end: 2, wantErr: true},
		{name: "Starts inside a character", start: 2, end: 4, wantErr: true},
		{name: "Past the end", start: 0, end: 7, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.SliceBytes(tc.start, tc.end)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("SliceBytes() error = %v, want ErrInvalidRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SliceBytes() unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("SliceBytes() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCorpusRuneAt(t *testing.T) {
	c := NewCorpus("a世b")
	want := []rune{'a', '世', 'b'}
	for i, w := range want {
		got, err := c.RuneAt(i)
		if err != nil {
			t.Fatalf("RuneAt(%d) unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("RuneAt(%d) = %q, want %q", i, got, w)
		}
	}
	if _, err := c.RuneAt(3); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("RuneAt(3) error = %v, want ErrInvalidRange", err)
	}
}

func TestNewCorpusInvalidUTF8(t *testing.T) {
	c := NewCorpus("a\xff\xfeb")
	if !utf8.ValidString(c.String()) {
		t.Fatalf("corpus text is not valid UTF-8: %q", c.String())
	}
	if got, want := c.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	r, _ := c.RuneAt(1)
	if r != utf8.RuneError {
		t.Errorf("RuneAt(1) = %q, want the replacement character", r)
	}
}

func TestCorpusEmpty(t *testing.T) {
	c := NewCorpus("")
	if c.Len() != 0 || c.ByteLen() != 0 {
		t.Fatalf("empty corpus has Len() = %d, ByteLen() = %d", c.Len(), c.ByteLen())
	}
	if got, err := c.Slice(0, 0); err != nil || got != "" {
		t.Errorf("Slice(0, 0) = %q, %v", got, err)
	}
}
