// Keyword loading and the token machinery shared by scoring and
// filtering: core token sets, whole-word phrase patterns and the
// coverage rules derived from them.

package keyword

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"
)

var tokenPattern = regexp.MustCompile(`\w+`)

// Tokenize splits text into its set of lowercase word tokens.
func Tokenize(text string) mapset.Set[string] {
	tokens := mapset.NewSet[string]()
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		tokens.Add(tok)
	}
	return tokens
}

// Keyword is a search term plus everything derived from it once at
// startup: its synonyms, its core token set and the compiled
// whole-word phrase pattern covering both.
type Keyword struct {
	Text     string
	Synonyms []string
	Core     mapset.Set[string]

	phrase *regexp.Regexp
}

// New builds a Keyword from its display text and optional synonyms.
func New(text string, synonyms []string) (Keyword, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Keyword{}, fmt.Errorf("keyword text is empty")
	}

	phrases := []string{regexp.QuoteMeta(strings.ToLower(text))}
	kept := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			continue
		}
		kept = append(kept, s)
		phrases = append(phrases, regexp.QuoteMeta(s))
	}

	phrase, err := regexp.Compile(`(?i)\b(?:` + strings.Join(phrases, "|") + `)\b`)
	if err != nil {
		return Keyword{}, fmt.Errorf("compile phrase pattern for %q: %w", text, err)
	}

	return Keyword{
		Text:     text,
		Synonyms: kept,
		Core:     Tokenize(text),
		phrase:   phrase,
	}, nil
}

// MatchesPhrase reports whether the keyword or one of its synonyms
// appears in text as a whole word. Text is expected to be normalized
// already; matching itself is case-insensitive.
func (k Keyword) MatchesPhrase(text string) bool {
	return k.phrase.MatchString(text)
}

// Coverage is the fraction of the keyword's core tokens present in
// tokens, in [0, 1].
func (k Keyword) Coverage(tokens mapset.Set[string]) float64 {
	n := k.Core.Cardinality()
	if n == 0 {
		return 0
	}
	hit := k.Core.Intersect(tokens).Cardinality()
	return float64(hit) / float64(n)
}

// RequiredCoverage is the minimum coverage fraction a bid must reach:
// the full token for single-token keywords, all but one token for
// multi-token keywords. A bid sitting exactly on the boundary passes.
func (k Keyword) RequiredCoverage() float64 {
	n := k.Core.Cardinality()
	if n <= 1 {
		return 1.0
	}
	return float64(n-1) / float64(n)
}

// MultiToken reports whether the keyword carries more than one core token.
func (k Keyword) MultiToken() bool {
	return k.Core.Cardinality() > 1
}

// Load reads the YAML keyword list at path and binds each entry to its
// synonyms. Entries are matched to synonym keys case-insensitively,
// blank and repeated entries are dropped, order is preserved.
func Load(path string, synonyms map[string][]string) ([]Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords %s: %w", path, err)
	}

	var raw []string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse keywords %s: %w", path, err)
	}

	seen := mapset.NewSet[string]()
	keywords := make([]Keyword, 0, len(raw))
	for _, text := range raw {
		text = strings.TrimSpace(text)
		if text == "" || !seen.Add(strings.ToLower(text)) {
			continue
		}
		kw, err := New(text, synonyms[strings.ToLower(text)])
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no keywords configured in %s", path)
	}
	return keywords, nil
}
