package supportbot

import (
	"regexp"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"

	"github.com/go-go-golems/supportchat/pkg/tickets"
)

// Classification is an intent guess with a confidence in [0, 1].
type Classification struct {
	Intent     string
	Confidence float64
}

type Classifier interface {
	Classify(text string) Classification
}

var nonLetters = regexp.MustCompile(`[^a-z\s]`)

// negations are kept: "not working" must not collapse into "working".
var stopwords = toSet(strings.Fields(`
	i me my myself we our ours ourselves you your yours yourself yourselves
	he him his himself she her hers herself it its itself they them their
	theirs themselves what which who whom this that these those am is are was
	were be been being have has had having do does did doing a an the and but
	if or because as until while of at by for with about against between into
	through during before after above below to from up down in out on off over
	under again further then once here there when where why how all any both
	each few more most other some such only own same so than too very s t can
	will just should now
`))

func toSet(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

// Tokens lowercases text, drops everything but letters, removes stopwords and
// stems what is left.
func Tokens(text string) []string {
	text = nonLetters.ReplaceAllString(strings.ToLower(text), "")
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		out = append(out, porterstemmer.StemString(w))
	}
	return out
}

func containsSeq(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

type compiledIntent struct {
	intent  string
	phrases [][]string
}

func compile(table []intentKeywords) []compiledIntent {
	out := make([]compiledIntent, 0, len(table))
	for _, row := range table {
		ci := compiledIntent{intent: row.intent}
		for _, kw := range row.keywords {
			if toks := Tokens(kw); len(toks) > 0 {
				ci.phrases = append(ci.phrases, toks)
			}
		}
		out = append(out, ci)
	}
	return out
}

// KeywordClassifier scores each intent by the number of its keyword phrases
// found in the stemmed text. Confidence is the winner's share of all hits.
type KeywordClassifier struct {
	intents    []compiledIntent
	subIntents []compiledIntent
}

var _ Classifier = &KeywordClassifier{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		intents:    compile(intentTable),
		subIntents: compile(subIntentTable),
	}
}

func (k *KeywordClassifier) Classify(text string) Classification {
	toks := Tokens(text)
	best, bestHits, total := "", 0, 0
	for _, ci := range k.intents {
		hits := 0
		for _, p := range ci.phrases {
			if containsSeq(toks, p) {
				hits++
			}
		}
		total += hits
		if hits > bestHits {
			best, bestHits = ci.intent, hits
		}
	}
	if total == 0 {
		return Classification{}
	}
	if best == IntentProductQuery {
		best = k.refine(toks)
	}
	return Classification{Intent: best, Confidence: float64(bestHits) / float64(total)}
}

// refine attaches a product inquiry sub-intent when one matches.
func (k *KeywordClassifier) refine(toks []string) string {
	for _, ci := range k.subIntents {
		for _, p := range ci.phrases {
			if containsSeq(toks, p) {
				return IntentProductQuery + tickets.IntentSeparator + ci.intent
			}
		}
	}
	return IntentProductQuery
}

// fallbackIntent returns the first intent with a keyword occurring anywhere
// in the lowercased text.
func fallbackIntent(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, row := range intentTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.intent, true
			}
		}
	}
	return "", false
}

var greetingRe = regexp.MustCompile(`\b(` + strings.Join(greetingKeywords, "|") + `)\b`)

func isGreeting(text string) bool {
	return greetingRe.MatchString(strings.ToLower(text))
}
