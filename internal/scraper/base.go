// Define an interface for all bid searchers
// Ensure consistency

package scraper

import (
	"context"
	"errors"
	"time"
)

// Bid is one procurement listing as it comes off the portal, before
// any scoring or filtering.
type Bid struct {
	BidNo       string
	Items       string
	Quantity    string
	Department  string
	StartDate   string
	EndDate     time.Time
	DocumentURL string
}

// Sentinel errors a Searcher uses to classify failures. Anything not
// wrapping one of these is treated as transient and retried.
var (
	//ErrTimeout marks a search that hit its hard page deadline. Retrying
	//would just burn the same deadline again, so the keyword is abandoned.
	ErrTimeout = errors.New("search deadline exceeded")

	//ErrFatal marks a failure no retry can fix (browser gone, bad selector).
	ErrFatal = errors.New("search failed permanently")
)

//Searcher defines the interface a bid source must implement
type Searcher interface {
	//Search runs one keyword query and returns every bid found
	Search(ctx context.Context, keyword string) ([]Bid, error)

	//Name is the source name (GeM, ...)
	Name() string
}
