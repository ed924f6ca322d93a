// Package pages holds page objects for the suite. Each page object owns
// the locators of one page and exposes its interactions as methods taking
// a chromedp tab context.
package pages

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/kidandcat/pagecheck/pkg/browser"
)

const (
	navigationTimeout = 30 * time.Second
	visibleTimeout    = 15 * time.Second
	probeTimeout      = 3 * time.Second
	actionTimeout     = 10 * time.Second
)

type page struct {
	baseURL string
}

func (p page) navigate(ctx context.Context, path string) error {
	target, err := browser.JoinURL(p.baseURL, path)
	if err != nil {
		return err
	}
	return within(ctx, navigationTimeout, chromedp.Navigate(target))
}

func within(ctx context.Context, d time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func waitVisible(loc browser.Locator) chromedp.Action {
	return chromedp.WaitVisible(loc.Query, loc.By())
}

func waitReady(loc browser.Locator) chromedp.Action {
	return chromedp.WaitReady(loc.Query, loc.By())
}

func click(loc browser.Locator) chromedp.Action {
	return chromedp.Click(loc.Query, loc.By(), chromedp.NodeVisible)
}
