package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"

	"github.com/leynos/hoover/app/logcache"
)

//go:generate moq -out mocks/repeater.go -pkg mocks -skip-ensure -fmt goimports . Repeater

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// BrowserSource hoovers step logs of a GitHub Actions run page. The page renders
// a virtualized log, so only lines near the viewport exist in the DOM; polling
// the page while it is scrolled captures the whole log over time.
type BrowserSource struct {
	URL          string
	Poll         time.Duration
	AllSteps     bool   // hoover every step, not only failed ones
	Headless     bool
	Install      bool   // download chromium before launching
	StorageState string // playwright storage state file for authenticated pages
	Repeater     Repeater

	attached map[string]bool
}

// evaluator is the part of playwright.Page used for scraping
type evaluator interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
}

// navigator is the part of playwright.Page used for opening the run page
type navigator interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
}

// scrapeScript enumerates mounted log lines per step. The step id comes from the first
// stable attribute; steps without one are stamped with a random id that lives as long
// as the element does. Lines failing extraction are skipped.
const scrapeScript = `(allSteps) => {
  const sel = allSteps ? 'details.CheckStep' : 'details.CheckStep[data-conclusion="failure"]';
  const textOf = (el) => ((el && el.textContent) || '').replace(/\r?\n/g, '\n');
  const res = [];
  document.querySelectorAll(sel).forEach((step) => {
    if (!step.dataset.hooverId) {
      step.dataset.hooverId = step.getAttribute('id') || step.getAttribute('data-external-id') ||
        step.getAttribute('data-log-url') || ('random-' + Math.random().toString(36).slice(2));
    }
    const lines = [];
    step.querySelectorAll('.js-check-step-line').forEach((line) => {
      try {
        lines.push({
          number: textOf(line.querySelector('.CheckStep-line-number')).trim(),
          timestamp: textOf(line.querySelector('.CheckStep-line-timestamp')).trim(),
          text: textOf(line.querySelector('.CheckStep-line-content')),
        });
      } catch (e) {}
    });
    res.push({stream: step.dataset.hooverId, lines: lines});
  });
  return JSON.stringify(res);
}`

// Run launches chromium, opens the page and polls it until ctx is done
func (b *BrowserSource) Run(ctx context.Context, reg *logcache.Registry) error {
	if b.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer func() {
		if err := pw.Stop(); err != nil {
			log.Printf("[WARN] failed to stop playwright: %v", err)
		}
	}()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(b.Headless)})
	if err != nil {
		return fmt.Errorf("failed to launch chromium: %w", err)
	}
	defer browser.Close()

	ctxOpts := playwright.BrowserNewContextOptions{}
	if b.StorageState != "" {
		ctxOpts.StorageStatePath = playwright.String(b.StorageState)
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		return fmt.Errorf("failed to create browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	if err := b.navigate(ctx, page); err != nil {
		return err
	}
	log.Printf("[INFO] hoovering %s, poll every %v", b.URL, b.pollInterval())
	return b.poll(ctx, page, reg)
}

func (b *BrowserSource) navigate(ctx context.Context, page navigator) error {
	goTo := func() error {
		_, err := page.Goto(b.URL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
		if err != nil {
			log.Printf("[WARN] failed to open %s, %v", b.URL, err)
		}
		return err
	}
	if b.Repeater == nil {
		if err := goTo(); err != nil {
			return fmt.Errorf("failed to open %s: %w", b.URL, err)
		}
		return nil
	}
	if err := b.Repeater.Do(ctx, goTo); err != nil {
		return fmt.Errorf("failed to open %s: %w", b.URL, err)
	}
	return nil
}

// poll scrapes the page on every tick, the first scrape is immediate
func (b *BrowserSource) poll(ctx context.Context, page evaluator, reg *logcache.Registry) error {
	ticker := time.NewTicker(b.pollInterval())
	defer ticker.Stop()
	for {
		if err := b.scrapeOnce(page, reg); err != nil {
			log.Printf("[DEBUG] scrape failed, %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// scrapeOnce applies one enumeration of the page's mounted lines
func (b *BrowserSource) scrapeOnce(page evaluator, reg *logcache.Registry) error {
	res, err := page.Evaluate(scrapeScript, b.AllSteps)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	raw, ok := res.(string)
	if !ok {
		return fmt.Errorf("unexpected scrape result %T", res)
	}
	batches, err := decodeScrape(raw)
	if err != nil {
		return err
	}

	if b.attached == nil {
		b.attached = map[string]bool{}
	}
	for _, batch := range batches {
		if !b.attached[batch.Stream] {
			b.attached[batch.Stream] = true
			log.Printf("[INFO] hoovering step %s", batch.Stream)
		}
		Apply(reg, batch)
	}
	return nil
}

func (b *BrowserSource) pollInterval() time.Duration {
	if b.Poll <= 0 {
		return 500 * time.Millisecond
	}
	return b.Poll
}

func decodeScrape(raw string) ([]Batch, error) {
	if raw == "" {
		return nil, errors.New("empty scrape result")
	}
	var batches []Batch
	if err := json.Unmarshal([]byte(raw), &batches); err != nil {
		return nil, fmt.Errorf("failed to decode scrape result: %w", err)
	}
	return batches, nil
}
