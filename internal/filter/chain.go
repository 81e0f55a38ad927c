// The acceptance gates a scored bid must clear before it is reported.
// Gates run in a fixed order and the first failure wins, so a bid is
// rejected for exactly one reason.

package filter

import (
	"regexp"
	"strings"

	"gembidwatch/internal/keyword"
	"gembidwatch/internal/scorer"
)

type Reason string

const (
	ReasonAccepted        Reason = "accepted"
	ReasonAlreadyNotified Reason = "already_notified"
	ReasonNoPhraseMatch   Reason = "no_phrase_match"
	ReasonPenaltyTerm     Reason = "penalty_term"
	ReasonLowCoverage     Reason = "low_coverage"
	ReasonBelowThreshold  Reason = "below_threshold"
)

type Decision struct {
	Accepted bool
	Reason   Reason
}

// NotifiedSet answers whether a bid number has already been sent out,
// either in a previous run or earlier in this one.
type NotifiedSet interface {
	Contains(bidNo string) bool
}

// Thresholds picks the minimum total score for a keyword: an explicit
// per-keyword override if one exists, otherwise the default matching
// the keyword's token count.
type Thresholds struct {
	DefaultSingle float64
	DefaultMulti  float64
	PerKeyword    map[string]float64 //keys lowercased
}

func (t Thresholds) For(kw keyword.Keyword) float64 {
	if v, ok := t.PerKeyword[strings.ToLower(kw.Text)]; ok {
		return v
	}
	if kw.MultiToken() {
		return t.DefaultMulti
	}
	return t.DefaultSingle
}

// Listings for spares, components and parts are accessories to some
// other product, never the item itself, so they are dropped no matter
// how well they score.
var penaltyPattern = regexp.MustCompile(`(?i)\b(?:spares?|components?|parts?)\b`)

type Chain struct {
	notified   NotifiedSet
	thresholds Thresholds
}

func NewChain(notified NotifiedSet, thresholds Thresholds) *Chain {
	return &Chain{notified: notified, thresholds: thresholds}
}

// Evaluate runs the gates in order: already notified, whole-word
// phrase match, penalty terms, core-token coverage, score threshold.
// Coverage sitting exactly on the required boundary passes.
func (c *Chain) Evaluate(sb scorer.ScoredBid) Decision {
	if c.notified.Contains(sb.Bid.BidNo) {
		return Decision{Reason: ReasonAlreadyNotified}
	}

	items := scorer.Normalize(sb.Bid.Items)
	if !sb.Keyword.MatchesPhrase(items) {
		return Decision{Reason: ReasonNoPhraseMatch}
	}
	if penaltyPattern.MatchString(items) {
		return Decision{Reason: ReasonPenaltyTerm}
	}
	if sb.Keyword.Coverage(keyword.Tokenize(items)) < sb.Keyword.RequiredCoverage() {
		return Decision{Reason: ReasonLowCoverage}
	}
	if sb.Total < c.thresholds.For(sb.Keyword) {
		return Decision{Reason: ReasonBelowThreshold}
	}

	return Decision{Accepted: true, Reason: ReasonAccepted}
}
