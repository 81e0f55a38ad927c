// Fans keyword searches out onto a bounded worker pool. Each keyword
// is one independent task: it retries transient failures with
// exponential backoff and abandons the keyword on hard failures, so a
// bad keyword can never sink the whole crawl.

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gembidwatch/internal/keyword"
	"gembidwatch/internal/scraper"
)

type Config struct {
	Workers       int
	RetryAttempts int
	RetryBackoff  time.Duration
}

type Orchestrator struct {
	searcher scraper.Searcher
	cfg      Config
	log      *logrus.Logger
}

func New(searcher scraper.Searcher, cfg Config, log *logrus.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	return &Orchestrator{searcher: searcher, cfg: cfg, log: log}
}

// Run executes one search task per keyword, at most cfg.Workers at a
// time, and returns a map from keyword text to its fetched bids. Every
// keyword gets an entry, empty when its search was abandoned.
func (o *Orchestrator) Run(ctx context.Context, keywords []keyword.Keyword) map[string][]scraper.Bid {
	type result struct {
		keyword string
		bids    []scraper.Bid
	}

	results := make(chan result, len(keywords))
	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup

	for _, kw := range keywords {
		wg.Add(1)
		go func(kw keyword.Keyword) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- result{keyword: kw.Text, bids: o.searchWithRetry(ctx, kw.Text)}
		}(kw)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	bids := make(map[string][]scraper.Bid, len(keywords))
	for r := range results {
		bids[r.keyword] = r.bids
	}
	return bids
}

func (o *Orchestrator) searchWithRetry(ctx context.Context, kw string) []scraper.Bid {
	log := o.log.WithFields(logrus.Fields{
		"keyword": kw,
		"source":  o.searcher.Name(),
	})

	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		bids, err := o.searcher.Search(ctx, kw)
		if err == nil {
			log.WithField("bids", len(bids)).Info("Search finished")
			return bids
		}
		if errors.Is(err, scraper.ErrTimeout) {
			log.WithError(err).Warn("Search hit its deadline, abandoning keyword")
			return nil
		}
		if errors.Is(err, scraper.ErrFatal) {
			log.WithError(err).Error("Search failed permanently, abandoning keyword")
			return nil
		}
		if attempt == o.cfg.RetryAttempts {
			break
		}

		delay := o.cfg.RetryBackoff << (attempt - 1)
		log.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": delay,
		}).Warn("Search failed, retrying")

		select {
		case <-ctx.Done():
			log.Warn("Crawl cancelled while waiting to retry")
			return nil
		case <-time.After(delay):
		}
	}

	log.WithField("attempts", o.cfg.RetryAttempts).Error("Search exhausted its retries, abandoning keyword")
	return nil
}
