package pages

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/kidandcat/pagecheck/pkg/browser"
)

// ExamplePage is the template page object: locators for an input, a submit
// button, a link and a repeated text element, plus the usual navigation,
// action, getter and state-check methods.
type ExamplePage struct {
	page

	ExampleInput  browser.Locator
	ExampleButton browser.Locator
	ExampleLink   browser.Locator
	ExampleText   browser.Locator
	FileInput     browser.Locator

	// Settle is the pause after actions that trigger navigation or
	// uploads.
	Settle time.Duration
}

func NewExamplePage(baseURL string) *ExamplePage {
	return &ExamplePage{
		page:          page{baseURL: baseURL},
		ExampleInput:  browser.CSS(`input[name="example"]`),
		ExampleButton: browser.CSS(`button[type="submit"]`),
		ExampleLink:   browser.CSS(`a[href="/example"]`),
		ExampleText:   browser.CSS(".example-class"),
		FileInput:     browser.CSS(`input[type="file"]`),
		Settle:        2 * time.Second,
	}
}

func (p *ExamplePage) NavigateTo(ctx context.Context, url string) error {
	return p.navigate(ctx, url)
}

// FillInput replaces the input's content with text.
func (p *ExamplePage) FillInput(ctx context.Context, text string) error {
	return within(ctx, actionTimeout,
		waitVisible(p.ExampleInput),
		chromedp.SetValue(p.ExampleInput.Query, "", p.ExampleInput.By()),
		chromedp.SendKeys(p.ExampleInput.Query, text, p.ExampleInput.By()),
	)
}

func (p *ExamplePage) ClickButton(ctx context.Context) error {
	return within(ctx, actionTimeout, click(p.ExampleButton))
}

func (p *ExamplePage) ClickLink(ctx context.Context) error {
	return within(ctx, actionTimeout, click(p.ExampleLink))
}

func (p *ExamplePage) Text(ctx context.Context) (string, error) {
	var text string
	err := within(ctx, actionTimeout, chromedp.TextContent(p.ExampleText.Query, &text, p.ExampleText.By()))
	return strings.TrimSpace(text), err
}

func (p *ExamplePage) InputValue(ctx context.Context) (string, error) {
	var value string
	err := within(ctx, actionTimeout, chromedp.Value(p.ExampleInput.Query, &value, p.ExampleInput.By()))
	return value, err
}

func (p *ExamplePage) IsElementVisible(ctx context.Context) bool {
	return within(ctx, probeTimeout, waitVisible(p.ExampleButton)) == nil
}

// IsPageLoaded reports whether the location matches pattern within a few
// seconds.
func (p *ExamplePage) IsPageLoaded(ctx context.Context, pattern *regexp.Regexp) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		var location string
		if err := chromedp.Run(ctx, chromedp.Location(&location)); err == nil && pattern.MatchString(location) {
			return true
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}
}

// PerformCompleteAction waits for the input, fills it, submits and lets
// the page settle.
func (p *ExamplePage) PerformCompleteAction(ctx context.Context, text string) error {
	if err := within(ctx, actionTimeout, waitVisible(p.ExampleInput)); err != nil {
		return err
	}
	if err := p.FillInput(ctx, text); err != nil {
		return err
	}
	if err := p.ClickButton(ctx); err != nil {
		return err
	}
	return chromedp.Run(ctx, chromedp.Sleep(p.Settle))
}

// AllMenuItems returns the non-empty text of every element matching
// ExampleText, in document order.
func (p *ExamplePage) AllMenuItems(ctx context.Context) ([]string, error) {
	var nodes []*cdp.Node
	err := within(ctx, actionTimeout,
		chromedp.Nodes(p.ExampleText.Query, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(nodes))
	for _, node := range nodes {
		var text string
		err := within(ctx, actionTimeout,
			chromedp.TextContent([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID),
		)
		if err != nil {
			return nil, err
		}
		if text = strings.TrimSpace(text); text != "" {
			items = append(items, text)
		}
	}
	return items, nil
}

func (p *ExamplePage) UploadFile(ctx context.Context, path string) error {
	err := within(ctx, actionTimeout,
		waitReady(p.FileInput),
		chromedp.SetUploadFiles(p.FileInput.Query, []string{path}, p.FileInput.By()),
	)
	if err != nil {
		return err
	}
	return chromedp.Run(ctx, chromedp.Sleep(p.Settle))
}
