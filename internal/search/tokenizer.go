package search

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-ego/gse"
	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrSegmentation is returned when a segmenter fails on a particular text.
var ErrSegmentation = errors.New("segmentation failed")

// Segmenter splits unsegmented text into word-like pieces.
type Segmenter interface {
	Segment(text string) ([]string, error)
}

// DictSegmenter segments Chinese text with the gse dictionary segmenter
// (jieba-compatible dictionary plus HMM for unknown words).
type DictSegmenter struct {
	seg gse.Segmenter
}

// NewDictSegmenter loads the embedded simplified Chinese dictionary and adds
// userWords as high-frequency entries, typically place names.
func NewDictSegmenter(userWords ...string) (*DictSegmenter, error) {
	d := &DictSegmenter{}
	d.seg.SkipLog = true
	if err := d.seg.LoadDictEmbed(); err != nil {
		return nil, fmt.Errorf("load segmenter dictionary: %w", err)
	}
	for _, w := range userWords {
		if err := d.seg.AddToken(w, 1000); err != nil {
			return nil, fmt.Errorf("add user word %q: %w", w, err)
		}
	}
	return d, nil
}

func (d *DictSegmenter) Segment(text string) ([]string, error) {
	return d.seg.Cut(text, true), nil
}

// FieldsSegmenter splits on anything that is not a letter or a digit. It is
// only adequate for text whose words are already space separated.
type FieldsSegmenter struct{}

func (FieldsSegmenter) Segment(text string) ([]string, error) {
	return strings.FieldsFunc(text, isSeparator), nil
}

func isSeparator(c rune) bool {
	return !unicode.IsLetter(c) && !unicode.IsNumber(c)
}

// Tokenizer normalizes text and turns segmenter output into match tokens.
type Tokenizer struct {
	seg Segmenter
}

func NewTokenizer(seg Segmenter) *Tokenizer {
	return &Tokenizer{seg: seg}
}

// Tokenize returns the normalized tokens of text. Whitespace and
// punctuation-only pieces are dropped. A panicking segmenter is reported as
// ErrSegmentation; callers decide on the fallback.
func (t *Tokenizer) Tokenize(text string) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = fmt.Errorf("%w: %v", ErrSegmentation, r)
		}
	}()

	pieces, err := t.seg.Segment(Normalize(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentation, err)
	}

	tokens = make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" || strings.IndexFunc(p, isWordRune) < 0 {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens, nil
}

// Normalize applies NFKC (folding full-width forms) and Unicode case folding.
func Normalize(text string) string {
	out, _, err := transform.String(transform.Chain(norm.NFKC, cases.Fold()), text)
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsNumber(c)
}
