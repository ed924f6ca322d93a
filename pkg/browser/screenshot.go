package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9_-]`)
	dashRuns        = regexp.MustCompile(`-+`)
)

// SanitizeName lower-cases name and reduces it to [a-z0-9_-], collapsing
// runs of dashes and trimming them from both ends.
func SanitizeName(name string) string {
	s := unsafeNameChars.ReplaceAllString(strings.ToLower(name), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Shot describes a highlighted screenshot. The file is written to
// Dir/<test>/<step>.png with both names sanitized.
type Shot struct {
	Locator Locator
	Dir     string
	Test    string
	Step    string
	// Delay is how long the highlight stays on screen before capture.
	Delay time.Duration
}

func (s Shot) Path() string {
	return filepath.Join(s.Dir, SanitizeName(s.Test), SanitizeName(s.Step)+".png")
}

const highlightJS = `(() => {
	const el = %s;
	if (!el) {
		throw new Error("element not found: " + %q);
	}
	el.style.border = %q;
	el.style.backgroundColor = %q;
	el.style.color = %q;
	return true;
})()`

func styleElement(loc Locator, border, background, color string) chromedp.Action {
	var ok bool
	return chromedp.Evaluate(fmt.Sprintf(highlightJS, loc.js(), loc.String(), border, background, color), &ok)
}

func highlightElement(loc Locator) chromedp.Action {
	return styleElement(loc, "4px solid red", "yellow", "black")
}

func removeHighlight(loc Locator) chromedp.Action {
	return styleElement(loc, "", "", "")
}

// HighlightAndScreenshot outlines the element, captures the full page and
// restores the element's style. It returns the written file path. On
// failure the highlight is removed best-effort and a *ScreenshotError is
// returned.
func HighlightAndScreenshot(ctx context.Context, shot Shot) (string, error) {
	path := shot.Path()
	fail := func(err error) (string, error) {
		_ = chromedp.Run(ctx, removeHighlight(shot.Locator))
		return "", &ScreenshotError{Test: shot.Test, Step: shot.Step, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &ScreenshotError{Test: shot.Test, Step: shot.Step, Err: err}
	}

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.WaitReady(shot.Locator.Query, shot.Locator.By()),
		highlightElement(shot.Locator),
		chromedp.Sleep(shot.Delay),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fail(err)
	}
	if err := chromedp.Run(ctx, removeHighlight(shot.Locator)); err != nil {
		return "", &ScreenshotError{Test: shot.Test, Step: shot.Step, Err: err}
	}
	return path, nil
}
