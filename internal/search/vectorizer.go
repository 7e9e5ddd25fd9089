package search

import (
	"math"
	"sort"
)

// Vectorizer turns token lists into vectors
type Vectorizer interface {
	Fit(docs [][]string)
	Transform(tokens []string) SparseVector
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
// with a bounded vocabulary.
type TFIDFVectorizer struct {
	MaxFeatures int
	Vocabulary  map[string]int
	Terms       []string
	IDF         []float64
}

// NewTFIDFVectorizer keeps at most maxFeatures terms; zero or less keeps all.
func NewTFIDFVectorizer(maxFeatures int) *TFIDFVectorizer {
	return &TFIDFVectorizer{
		MaxFeatures: maxFeatures,
		Vocabulary:  make(map[string]int),
	}
}

// Fit analyzes the corpus to build vocabulary and IDF stats. When the
// vocabulary is capped, the terms with the highest total count survive,
// ties going to the lexicographically smaller term. Surviving terms are
// indexed in lexicographic order.
func (v *TFIDFVectorizer) Fit(docs [][]string) {
	docCount := float64(len(docs))
	termCounts := make(map[string]int)
	docFreq := make(map[string]int)

	for _, tokens := range docs {
		seenInDoc := make(map[string]bool)
		for _, token := range tokens {
			termCounts[token]++
			if !seenInDoc[token] {
				docFreq[token]++
				seenInDoc[token] = true
			}
		}
	}

	terms := make([]string, 0, len(termCounts))
	for term := range termCounts {
		terms = append(terms, term)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			ci, cj := termCounts[terms[i]], termCounts[terms[j]]
			if ci != cj {
				return ci > cj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	v.Terms = terms
	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
		// smoothed: idf = ln((1 + n) / (1 + df)) + 1
		v.IDF[i] = math.Log((1+docCount)/(1+float64(docFreq[term]))) + 1
	}
}

// Transform converts tokens to an L2-normalized vector in the learned
// vocabulary. Unknown tokens are ignored.
func (v *TFIDFVectorizer) Transform(tokens []string) SparseVector {
	tf := make(map[int]float64)
	for _, token := range tokens {
		if idx, ok := v.Vocabulary[token]; ok {
			tf[idx]++
		}
	}

	vec := SparseVector{
		Indices: make([]int, 0, len(tf)),
		Values:  make([]float64, 0, len(tf)),
	}
	for idx := range tf {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	var sumSq float64
	for _, idx := range vec.Indices {
		w := tf[idx] * v.IDF[idx]
		vec.Values = append(vec.Values, w)
		sumSq += w * w
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

// Size returns the number of vocabulary terms.
func (v *TFIDFVectorizer) Size() int {
	return len(v.Terms)
}
