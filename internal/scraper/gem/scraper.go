package gem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"gembidwatch/internal/config"
	"gembidwatch/internal/scraper"
	"gembidwatch/utils"
)

//selectors inside one bid card; unlike the page-level selectors these
//follow the card markup itself and are not worth making configurable
const (
	bidLinkSelector    = "p.bid_no a.bid_no_hover"
	itemsSelector      = "div.col-md-4 div.row a[data-toggle='popover']"
	quantitySelector   = "div.col-md-4 div.row:nth-child(2)"
	departmentSelector = "div.col-md-5 .row:nth-child(2)"
	startDateSelector  = "span.start_date"
	endDateSelector    = "span.end_date"
)

//the portal shows end dates either with or without the closing time
var endDateLayouts = []string{"02-01-2006 3:04 PM", "02-01-2006"}

// PageFactory hands out isolated browser pages; browser.Manager is the
// production implementation.
type PageFactory interface {
	NewPage() (playwright.Page, func(), error)
}

type Scraper struct {
	cfg   *config.Config
	pages PageFactory
	log   *logrus.Logger
	shots *utils.ScreenShotDebugger
}

func New(cfg *config.Config, pages PageFactory, log *logrus.Logger) *Scraper {
	return &Scraper{
		cfg:   cfg,
		pages: pages,
		log:   log,
		shots: utils.NewScreenShotDebugger(cfg.ScreenshotsDir, log),
	}
}

func (s *Scraper) Name() string {
	return "GeM"
}

// Search runs one keyword query against the GeM bid listing and walks
// every result page. Navigation deadline overruns come back wrapping
// scraper.ErrTimeout so the orchestrator abandons the keyword instead
// of retrying; anything else is left transient.
func (s *Scraper) Search(ctx context.Context, kw string) ([]scraper.Bid, error) {
	page, closePage, err := s.pages.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrFatal, err)
	}
	defer closePage()

	page.SetDefaultNavigationTimeout(float64(s.cfg.PageTimeoutMS))
	page.SetDefaultTimeout(float64(s.cfg.CardTimeoutMS))

	sel := s.cfg.Selectors

	if _, err := page.Goto(s.cfg.SearchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(s.cfg.PageTimeoutMS)),
	}); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			s.shots.CaptureAndLog(page, "gem-timeout-"+slugify(kw))
			return nil, fmt.Errorf("%w: goto %s: %v", scraper.ErrTimeout, s.cfg.SearchURL, err)
		}
		return nil, fmt.Errorf("goto %s: %w", s.cfg.SearchURL, err)
	}

	if err := page.Locator(sel.SearchInput).Fill(kw); err != nil {
		return nil, fmt.Errorf("fill search input: %w", err)
	}
	if err := page.Locator(sel.SearchButton).Click(); err != nil {
		return nil, fmt.Errorf("click search button: %w", err)
	}
	if err := s.waitForCards(page); err != nil {
		s.shots.CaptureAndLog(page, "gem-no-cards-"+slugify(kw))
		return nil, fmt.Errorf("waiting for bid cards: %w", err)
	}

	var bids []scraper.Bid
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", scraper.ErrFatal, ctx.Err())
		default:
		}

		cards, err := page.Locator(sel.Card).All()
		if err != nil {
			return nil, fmt.Errorf("collect bid cards: %w", err)
		}
		for _, card := range cards {
			bid, err := s.extractBid(card)
			if err != nil {
				s.log.WithError(err).WithField("keyword", kw).Warn("Skipping unreadable bid card")
				continue
			}
			bids = append(bids, bid)
		}

		next := page.Locator(sel.NextButton)
		if visible, err := next.IsVisible(); err != nil || !visible {
			break
		}
		if enabled, err := next.IsEnabled(); err != nil || !enabled {
			break
		}
		if err := next.Click(); err != nil {
			return nil, fmt.Errorf("click next page: %w", err)
		}
		utils.RandomDelay(250, 750)
		if err := s.waitForCards(page); err != nil {
			return nil, fmt.Errorf("waiting for next result page: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"keyword": kw,
		"bids":    len(bids),
	}).Debug("GeM search finished")
	return bids, nil
}

func (s *Scraper) waitForCards(page playwright.Page) error {
	return page.Locator(s.cfg.Selectors.Card).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(s.cfg.CardTimeoutMS)),
	})
}

// extractBid reads one result card. A card without a bid number or the
// date spans is unreadable and gets skipped; the softer fields fall
// back to empty strings.
func (s *Scraper) extractBid(card playwright.Locator) (scraper.Bid, error) {
	links := card.Locator(bidLinkSelector)
	if n, err := links.Count(); err != nil || n == 0 {
		return scraper.Bid{}, errors.New("bid number link missing")
	}
	link := links.First()
	bidNo, err := link.TextContent()
	if err != nil {
		return scraper.Bid{}, fmt.Errorf("bid number: %w", err)
	}
	href, _ := link.GetAttribute("href")

	items := ""
	if els := card.Locator(itemsSelector); countOf(els) > 0 {
		el := els.First()
		if content, err := el.GetAttribute("data-content"); err == nil && strings.TrimSpace(content) != "" {
			items = content
		} else if text, err := el.TextContent(); err == nil {
			items = text
		}
	}
	items = strings.TrimSpace(strings.ReplaceAll(items, " ", " "))

	quantity := ""
	if els := card.Locator(quantitySelector); countOf(els) > 0 {
		if text, err := els.First().TextContent(); err == nil {
			quantity = strings.TrimSpace(strings.ReplaceAll(text, "Quantity:", ""))
		}
	}

	department := ""
	if els := card.Locator(departmentSelector); countOf(els) > 0 {
		if text, err := els.First().TextContent(); err == nil {
			department = strings.TrimSpace(text)
		}
	}

	startEls := card.Locator(startDateSelector)
	if countOf(startEls) == 0 {
		return scraper.Bid{}, errors.New("start date missing")
	}
	startDate, err := startEls.First().TextContent()
	if err != nil {
		return scraper.Bid{}, fmt.Errorf("start date: %w", err)
	}

	endEls := card.Locator(endDateSelector)
	if countOf(endEls) == 0 {
		return scraper.Bid{}, errors.New("end date missing")
	}
	endRaw, err := endEls.First().TextContent()
	if err != nil {
		return scraper.Bid{}, fmt.Errorf("end date: %w", err)
	}

	return scraper.Bid{
		BidNo:       strings.TrimSpace(bidNo),
		Items:       items,
		Quantity:    quantity,
		Department:  department,
		StartDate:   strings.TrimSpace(startDate),
		EndDate:     ParseEndDate(endRaw),
		DocumentURL: s.cfg.BaseURL + strings.TrimSpace(href),
	}, nil
}

// ParseEndDate tries the portal's display formats and falls back to
// the current UTC time, so an unreadable date never drops a bid.
func ParseEndDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range endDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func countOf(l playwright.Locator) int {
	n, err := l.Count()
	if err != nil {
		return 0
	}
	return n
}

func slugify(kw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kw)), " ", "-")
}
