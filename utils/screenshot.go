package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// ScreenShotDebugger handles debug screenshots
type ScreenShotDebugger struct {
	outputDir string
	log       *logrus.Logger
}

func NewScreenShotDebugger(outputDir string, log *logrus.Logger) *ScreenShotDebugger {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.WithError(err).Warn("Could not create screenshot directory")
	}
	return &ScreenShotDebugger{
		outputDir: outputDir,
		log:       log,
	}
}

// CaptureAndLog saves a timestamped full-page screenshot. Failures are
// logged and swallowed, diagnostics must never break a crawl.
func (s *ScreenShotDebugger) CaptureAndLog(page playwright.Page, name string) error {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, timestamp))

	//Take screenshot
	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		s.log.WithError(err).Warn("Failed to capture screenshot")
		return err
	}

	s.log.WithField("path", path).Info("Screenshot saved")
	return nil
}
