package pages

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/kidandcat/pagecheck/pkg/browser"
)

// BasePage is the landing page with the search form.
type BasePage struct {
	page
	// <button class="btn btn-success" type="submit">Search</button>
	SearchButton browser.Locator
}

func NewBasePage(baseURL string) *BasePage {
	return &BasePage{
		page:         page{baseURL: baseURL},
		SearchButton: browser.CSS("button.btn.btn-success[type='submit']"),
	}
}

// Goto opens "/" and waits until the search button is visible.
func (p *BasePage) Goto(ctx context.Context) error {
	if err := p.navigate(ctx, "/"); err != nil {
		return err
	}
	if err := within(ctx, visibleTimeout, waitVisible(p.SearchButton)); err != nil {
		return fmt.Errorf("search button %s not visible: %w", p.SearchButton, err)
	}
	return nil
}

func (p *BasePage) IsSearchButtonVisible(ctx context.Context) bool {
	return within(ctx, probeTimeout, waitVisible(p.SearchButton)) == nil
}

// HomePage only knows how to open itself.
type HomePage struct {
	page
}

func NewHomePage(baseURL string) *HomePage {
	return &HomePage{page: page{baseURL: baseURL}}
}

func (p *HomePage) Open(ctx context.Context) error {
	if err := p.navigate(ctx, "/"); err != nil {
		return err
	}
	return within(ctx, navigationTimeout, chromedp.WaitReady("body", chromedp.ByQuery))
}
