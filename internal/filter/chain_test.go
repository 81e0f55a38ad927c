package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gembidwatch/internal/keyword"
	"gembidwatch/internal/scorer"
	"gembidwatch/internal/scraper"
)

type notifiedStub map[string]bool

func (s notifiedStub) Contains(bidNo string) bool { return s[bidNo] }

func defaultThresholds() Thresholds {
	return Thresholds{DefaultSingle: 120, DefaultMulti: 80}
}

func scored(t *testing.T, kwText string, synonyms []string, items string, total float64) scorer.ScoredBid {
	t.Helper()
	kw, err := keyword.New(kwText, synonyms)
	require.NoError(t, err)
	return scorer.ScoredBid{
		Bid:     scraper.Bid{BidNo: "GEM/2026/B/100", Items: items},
		Keyword: kw,
		Total:   total,
	}
}

func TestEvaluateRejectsAlreadyNotified(t *testing.T) {
	c := NewChain(notifiedStub{"GEM/2026/B/100": true}, defaultThresholds())

	d := c.Evaluate(scored(t, "printer toner", nil, "printer toner", 500))

	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonAlreadyNotified, d.Reason)
}

func TestEvaluateRequiresPhraseMatch(t *testing.T) {
	c := NewChain(notifiedStub{}, defaultThresholds())

	d := c.Evaluate(scored(t, "printer toner", nil, "toner cartridge for hp", 500))

	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonNoPhraseMatch, d.Reason)
}

func TestEvaluateSynonymSatisfiesPhraseGate(t *testing.T) {
	c := NewChain(notifiedStub{}, defaultThresholds())

	//synonym matches the phrase gate and one of two core tokens is
	//present, which sits exactly on the multi-token coverage boundary
	d := c.Evaluate(scored(t, "printer toner", []string{"toner cartridge"}, "Toner Cartridge refill", 100))

	assert.True(t, d.Accepted)
	assert.Equal(t, ReasonAccepted, d.Reason)
}

func TestEvaluateRejectsPenaltyTerms(t *testing.T) {
	c := NewChain(notifiedStub{}, defaultThresholds())

	for _, items := range []string{
		"printer toner and spares",
		"printer toner spare kit",
		"printer toner Components",
		"printer toner part",
	} {
		d := c.Evaluate(scored(t, "printer toner", nil, items, 10000))
		assert.False(t, d.Accepted, "items %q", items)
		assert.Equal(t, ReasonPenaltyTerm, d.Reason, "items %q", items)
	}
}

func TestEvaluateRejectsLowCoverage(t *testing.T) {
	c := NewChain(notifiedStub{}, defaultThresholds())

	//phrase gate passes via synonym but only one of three core tokens
	//is present, 1/3 < 2/3
	d := c.Evaluate(scored(t, "printer toner supply", []string{"toner"}, "toner refill", 500))

	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonLowCoverage, d.Reason)
}

func TestEvaluateRejectsBelowThreshold(t *testing.T) {
	c := NewChain(notifiedStub{}, defaultThresholds())

	d := c.Evaluate(scored(t, "printer toner", nil, "printer toner", 79.9))

	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonBelowThreshold, d.Reason)
}

func TestEvaluateAcceptsGoodBid(t *testing.T) {
	c := NewChain(notifiedStub{}, defaultThresholds())

	d := c.Evaluate(scored(t, "printer toner", nil, "printer toner for office", 250))

	assert.True(t, d.Accepted)
	assert.Equal(t, ReasonAccepted, d.Reason)
}

func TestThresholdsFor(t *testing.T) {
	th := Thresholds{
		DefaultSingle: 120,
		DefaultMulti:  80,
		PerKeyword:    map[string]float64{"printer toner": 95},
	}

	single, err := keyword.New("printer", nil)
	require.NoError(t, err)
	multi, err := keyword.New("server rack", nil)
	require.NoError(t, err)
	overridden, err := keyword.New("Printer Toner", nil)
	require.NoError(t, err)

	assert.Equal(t, 120.0, th.For(single))
	assert.Equal(t, 80.0, th.For(multi))
	assert.Equal(t, 95.0, th.For(overridden))
}
