// Owns the Playwright runtime and the single shared browser process.
// Every search gets its own isolated context and page, so state never
// leaks between keyword tasks.

package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

//heavy resource types every page aborts, the bid cards render without them
var blockedResources = map[string]bool{
	"image": true,
	"font":  true,
}

type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewManager(headless bool) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &Manager{pw: pw, browser: browser}, nil
}

// NewPage opens a fresh isolated context holding one page, with the
// resource blocking already installed. The returned closer tears down
// both the page and its context.
func (m *Manager) NewPage() (playwright.Page, func(), error) {
	ctx, err := m.browser.NewContext()
	if err != nil {
		return nil, nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		return nil, nil, fmt.Errorf("new page: %w", err)
	}

	if err := page.Route("**/*", func(route playwright.Route) {
		if blockedResources[route.Request().ResourceType()] {
			_ = route.Abort()
			return
		}
		_ = route.Continue()
	}); err != nil {
		_ = page.Close()
		_ = ctx.Close()
		return nil, nil, fmt.Errorf("install resource blocking: %w", err)
	}

	closer := func() {
		_ = page.Close()
		_ = ctx.Close()
	}
	return page, closer, nil
}

func (m *Manager) Close() error {
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			_ = m.pw.Stop()
			return fmt.Errorf("close browser: %w", err)
		}
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			return fmt.Errorf("stop playwright: %w", err)
		}
	}
	return nil
}
