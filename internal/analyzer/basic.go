package analyzer

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hpungsan/lexis/internal/analysis"
)

const (
	topWords   = 20
	topNgrams  = 10
	labelLimit = 0.05
	// vaderAlpha normalizes the raw valence sum into [-1, 1].
	vaderAlpha = 15
)

// Basic is an in-process analyzer using a small sentiment lexicon and
// frequency counts. It needs no network access.
type Basic struct{}

// NewBasic returns the built-in analyzer.
func NewBasic() *Basic {
	return &Basic{}
}

// WordFrequencies is the word_frequencies payload.
type WordFrequencies struct {
	TotalWords  int         `json:"total_words"`
	UniqueWords int         `json:"unique_words"`
	TopWords    []WordCount `json:"top_words"`
}

// WordCount is one entry of WordFrequencies.TopWords.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// NgramSet is the ngrams payload.
type NgramSet struct {
	Unigrams Ngrams `json:"unigrams"`
	Bigrams  Ngrams `json:"bigrams"`
	Trigrams Ngrams `json:"trigrams"`
}

// Ngrams holds the most common n-grams for one n.
type Ngrams struct {
	N      int          `json:"n"`
	Ngrams []NgramCount `json:"ngrams"`
}

// NgramCount is one entry of Ngrams.
type NgramCount struct {
	Ngram string `json:"ngram"`
	Count int    `json:"count"`
}

// Sentiment is the sentiment payload.
type Sentiment struct {
	Compound float64 `json:"compound_score"`
	Label    string  `json:"sentiment"`
	Positive float64 `json:"positive_score"`
	Negative float64 `json:"negative_score"`
	Neutral  float64 `json:"neutral_score"`
}

// Entities is the named_entities payload.
type Entities struct {
	Entities    []Entity            `json:"entities"`
	EntityTypes map[string][]string `json:"entity_types"`
}

// Entity is one recognized span.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Analyze computes all four payloads for text.
func (b *Basic) Analyze(ctx context.Context, text string) (analysis.Payloads, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Payloads{}, err
	}

	ws := words(text)

	var (
		p   analysis.Payloads
		err error
	)
	if p.WordFrequencies, err = json.Marshal(wordFrequencies(ws)); err != nil {
		return analysis.Payloads{}, err
	}
	if p.Ngrams, err = json.Marshal(ngramSet(ws)); err != nil {
		return analysis.Payloads{}, err
	}
	if p.Sentiment, err = json.Marshal(sentiment(ws)); err != nil {
		return analysis.Payloads{}, err
	}
	if p.NamedEntities, err = json.Marshal(entities(tokenize(text))); err != nil {
		return analysis.Payloads{}, err
	}
	return p, nil
}

func wordFrequencies(ws []string) WordFrequencies {
	unique := make(map[string]bool, len(ws))
	var kept []string
	for _, w := range ws {
		unique[w] = true
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}

	top := []WordCount{}
	for _, c := range topK(kept, topWords) {
		top = append(top, WordCount{Word: c.key, Count: c.count})
	}
	return WordFrequencies{TotalWords: len(ws), UniqueWords: len(unique), TopWords: top}
}

func ngramSet(ws []string) NgramSet {
	return NgramSet{
		Unigrams: ngrams(ws, 1),
		Bigrams:  ngrams(ws, 2),
		Trigrams: ngrams(ws, 3),
	}
}

func ngrams(ws []string, n int) Ngrams {
	var grams []string
	for i := 0; i+n <= len(ws); i++ {
		grams = append(grams, strings.Join(ws[i:i+n], " "))
	}
	out := Ngrams{N: n, Ngrams: []NgramCount{}}
	for _, c := range topK(grams, topNgrams) {
		out.Ngrams = append(out.Ngrams, NgramCount{Ngram: c.key, Count: c.count})
	}
	return out
}

func sentiment(ws []string) Sentiment {
	var sum, pos, neg float64
	var neutral int

	for i, w := range ws {
		v, ok := lexicon[w]
		if !ok {
			neutral++
			continue
		}
		if i > 0 {
			if boost, ok := boosters[ws[i-1]]; ok {
				if v > 0 {
					v += boost
				} else {
					v -= boost
				}
			}
		}
		if negatedAt(ws, i) {
			v *= -0.74
		}
		sum += v
		if v > 0 {
			pos += v + 1
		} else {
			neg += -v + 1
		}
	}

	s := Sentiment{Label: "Neutral", Neutral: 1}
	total := pos + neg + float64(neutral)
	if total > 0 {
		s.Positive = round3(pos / total)
		s.Negative = round3(neg / total)
		s.Neutral = round3(float64(neutral) / total)
	}
	s.Compound = round4(sum / math.Sqrt(sum*sum+vaderAlpha))

	switch {
	case s.Compound >= labelLimit:
		s.Label = "Positive"
	case s.Compound <= -labelLimit:
		s.Label = "Negative"
	}
	return s
}

// negatedAt reports whether a negation appears in the three words before i.
func negatedAt(ws []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-3; j-- {
		if negations[ws[j]] || strings.HasSuffix(ws[j], "n't") {
			return true
		}
	}
	return false
}

var orgSuffixes = toSet([]string{"inc", "corp", "corporation", "ltd", "llc", "company", "university", "institute", "bank", "group"})

// entities collects runs of capitalized words. A lone capitalized stopword at
// the start of a sentence is ignored.
func entities(toks []token) Entities {
	out := Entities{Entities: []Entity{}, EntityTypes: map[string][]string{}}
	seen := map[string]map[string]bool{}

	var span []string
	sentenceStart := true
	flush := func() {
		if len(span) == 0 {
			return
		}
		text := strings.Join(span, " ")
		typ := "PROPER_NOUN"
		if orgSuffixes[strings.ToLower(span[len(span)-1])] {
			typ = "ORGANIZATION"
		}
		out.Entities = append(out.Entities, Entity{Text: text, Type: typ})
		if seen[typ] == nil {
			seen[typ] = map[string]bool{}
		}
		if key := strings.ToLower(text); !seen[typ][key] {
			seen[typ][key] = true
			out.EntityTypes[typ] = append(out.EntityTypes[typ], text)
		}
		span = nil
	}

	for _, t := range toks {
		if t.sentence {
			flush()
			sentenceStart = true
			continue
		}
		capitalized := isCapitalized(t.text)
		if capitalized && sentenceStart && len(span) == 0 && stopwords[strings.ToLower(t.text)] {
			capitalized = false
		}
		sentenceStart = false
		if capitalized {
			span = append(span, t.text)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
func round4(f float64) float64 { return math.Round(f*10000) / 10000 }
