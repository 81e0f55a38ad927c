// Relevance scoring for fetched bids: a fuzzy-similarity blend plus
// token coverage plus configured department boosts. Scoring is pure,
// the same inputs always give the same breakdown.

package scorer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"gembidwatch/internal/keyword"
	"gembidwatch/internal/scraper"
)

// ScoredBid couples a raw bid with the keyword it was fetched for and
// the score breakdown. Total is always Fuzzy + Coverage + Boost.
type ScoredBid struct {
	Bid     scraper.Bid
	Keyword keyword.Keyword

	Fuzzy    float64 //fuzzy blend, already multiplied by the fuzzy weight
	Coverage float64 //core-token coverage in percent
	Boost    float64 //sum of matching department boosts
	Total    float64
}

type deptBoost struct {
	pattern *regexp.Regexp
	weight  float64
}

type Scorer struct {
	fuzzyWeight float64
	boosts      []deptBoost
}

// New compiles the department boost patterns once up front. A weight
// entry that cannot be compiled is a config error, not something to
// paper over at scoring time.
func New(fuzzyWeight float64, departmentWeights map[string]float64) (*Scorer, error) {
	names := make([]string, 0, len(departmentWeights))
	for name := range departmentWeights {
		names = append(names, name)
	}
	sort.Strings(names)

	boosts := make([]deptBoost, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(strings.ToLower(name))
		if trimmed == "" {
			return nil, fmt.Errorf("department weight with empty name")
		}
		p, err := regexp.Compile(`\b` + regexp.QuoteMeta(trimmed) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile department pattern %q: %w", name, err)
		}
		boosts = append(boosts, deptBoost{pattern: p, weight: departmentWeights[name]})
	}

	return &Scorer{fuzzyWeight: fuzzyWeight, boosts: boosts}, nil
}

// Score computes the relevance of one bid for one keyword.
func (s *Scorer) Score(bid scraper.Bid, kw keyword.Keyword) ScoredBid {
	items := Normalize(bid.Items)
	kwText := Normalize(kw.Text)

	sortRatio := float64(fuzzy.TokenSortRatio(kwText, items))
	partialRatio := float64(fuzzy.PartialRatio(kwText, items))
	blend := 0.7*sortRatio + 0.3*partialRatio

	coverage := 100 * kw.Coverage(keyword.Tokenize(items))

	var boost float64
	dept := Normalize(bid.Department)
	for _, b := range s.boosts {
		if b.pattern.MatchString(dept) {
			boost += b.weight
		}
	}

	weighted := blend * s.fuzzyWeight
	return ScoredBid{
		Bid:      bid,
		Keyword:  kw,
		Fuzzy:    weighted,
		Coverage: coverage,
		Boost:    boost,
		Total:    weighted + coverage + boost,
	}
}

// SortDesc orders scored bids by total score, highest first.
func SortDesc(scored []ScoredBid) {
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})
}
