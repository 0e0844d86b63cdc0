package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

// tokenRegex matches words (letters, digits, inner apostrophes) and sentence terminators.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?|[.!?]`)

type token struct {
	text     string
	sentence bool // true for . ! ?
}

func tokenize(text string) []token {
	raw := tokenRegex.FindAllString(text, -1)
	out := make([]token, 0, len(raw))
	for _, r := range raw {
		out = append(out, token{text: r, sentence: r == "." || r == "!" || r == "?"})
	}
	return out
}

// words returns lowercased word tokens, dropping sentence terminators.
func words(text string) []string {
	toks := tokenize(text)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if !t.sentence {
			out = append(out, strings.ToLower(t.text))
		}
	}
	return out
}

type counted struct {
	key   string
	count int
	first int
}

// topK counts keys and returns the k most common. Ties keep first-seen order.
func topK(keys []string, k int) []counted {
	idx := make(map[string]int)
	var items []counted
	for i, key := range keys {
		if j, ok := idx[key]; ok {
			items[j].count++
			continue
		}
		idx[key] = len(items)
		items = append(items, counted{key: key, count: 1, first: i})
	}
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].count != items[b].count {
			return items[a].count > items[b].count
		}
		return items[a].first < items[b].first
	})
	if len(items) > k {
		items = items[:k]
	}
	return items
}

var stopwords = toSet(strings.Fields(`
i me my myself we our ours ourselves you you're you've you'll you'd your yours
yourself yourselves he him his himself she she's her hers herself it it's its
itself they them their theirs themselves what which who whom this that that'll
these those am is are was were be been being have has had having do does did
doing a an the and but if or because as until while of at by for with about
against between into through during before after above below to from up down
in out on off over under again further then once here there when where why how
all any both each few more most other some such no nor not only own same so
than too very s t can will just don don't should should've now d ll m o re ve
y ain aren aren't couldn couldn't didn didn't doesn doesn't hadn hadn't hasn
hasn't haven haven't isn isn't ma mightn mightn't mustn mustn't needn needn't
shan shan't shouldn shouldn't wasn wasn't weren weren't won won't wouldn wouldn't
`))

func toSet(ws []string) map[string]bool {
	m := make(map[string]bool, len(ws))
	for _, w := range ws {
		m[w] = true
	}
	return m
}
