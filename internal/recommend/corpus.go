package recommend

import (
	"errors"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/search"
)

// DefaultMaxFeatures bounds the fitted vocabulary.
const DefaultMaxFeatures = 500

var ErrEmptyCorpus = errors.New("corpus has no records")

// Options configures Build.
type Options struct {
	MaxFeatures int
	Logger      *logrus.Entry
}

// BuildStats describes a fitted corpus.
type BuildStats struct {
	Records              int       `json:"records"`
	VocabularySize       int       `json:"vocabulary_size"`
	SegmentationFailures int       `json:"segmentation_failures"`
	BuiltAt              time.Time `json:"built_at"`
}

// FittedCorpus is an immutable snapshot of the records together with the
// TF-IDF model fitted over them. It is safe for concurrent use.
type FittedCorpus struct {
	records    []dataset.Record
	folded     []foldedFields
	tokens     [][]string
	vectors    []search.SparseVector
	tokenizer  *search.Tokenizer
	vectorizer *search.TFIDFVectorizer
	logger     *logrus.Entry
	stats      BuildStats
}

// foldedFields caches normalized filter targets per record.
type foldedFields struct {
	title, people, theme, destination string
}

// Build tokenizes every record, fits the vectorizer once and vectorizes the
// corpus. A record whose text cannot be segmented is kept with no terms.
func Build(records []dataset.Record, tokenizer *search.Tokenizer, opts Options) (*FittedCorpus, error) {
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = DefaultMaxFeatures
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "recommender")
	}

	c := &FittedCorpus{
		records:    slices.Clone(records),
		folded:     make([]foldedFields, len(records)),
		tokens:     make([][]string, len(records)),
		tokenizer:  tokenizer,
		vectorizer: search.NewTFIDFVectorizer(opts.MaxFeatures),
		logger:     logger,
	}

	for i := range c.records {
		rec := &c.records[i]
		c.folded[i] = foldedFields{
			title:       search.Normalize(rec.Title),
			people:      search.Normalize(rec.People),
			theme:       search.Normalize(rec.Theme),
			destination: search.Normalize(rec.Destination),
		}

		toks, err := tokenizer.Tokenize(rec.Text)
		if err != nil {
			logger.WithError(err).WithField("title", rec.Title).Warn("Tokenization failed, indexing record without terms")
			c.stats.SegmentationFailures++
			toks = []string{}
		}
		c.tokens[i] = toks
	}

	c.vectorizer.Fit(c.tokens)
	c.vectors = make([]search.SparseVector, len(c.records))
	for i, toks := range c.tokens {
		c.vectors[i] = c.vectorizer.Transform(toks)
	}

	c.stats.Records = len(c.records)
	c.stats.VocabularySize = c.vectorizer.Size()
	c.stats.BuiltAt = time.Now()

	logger.WithFields(logrus.Fields{
		"records":    c.stats.Records,
		"vocabulary": c.stats.VocabularySize,
		"failures":   c.stats.SegmentationFailures,
	}).Info("Fitted corpus")

	return c, nil
}

// Len returns the number of records.
func (c *FittedCorpus) Len() int {
	return len(c.records)
}

// Record returns a copy of the i-th record.
func (c *FittedCorpus) Record(i int) dataset.Record {
	return c.records[i]
}

// Tokens returns a copy of the i-th record's tokens.
func (c *FittedCorpus) Tokens(i int) []string {
	return slices.Clone(c.tokens[i])
}

func (c *FittedCorpus) Stats() BuildStats {
	return c.stats
}

// Vocabulary returns the fitted terms in index order.
func (c *FittedCorpus) Vocabulary() []string {
	return slices.Clone(c.vectorizer.Terms)
}
