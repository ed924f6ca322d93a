package browser

import (
	"errors"
	"fmt"
)

var (
	ErrNoTestResults = errors.New("no test results available")
	ErrNotStarted    = errors.New("browser not started")
	ErrNoChrome      = errors.New("no chrome or chromium executable found")
)

type AssertionError struct {
	Expected string
	Actual   string
	Message  string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected '%s', got '%s'", e.Message, e.Expected, e.Actual)
}

// ScreenshotError wraps any failure of HighlightAndScreenshot.
type ScreenshotError struct {
	Test string
	Step string
	Err  error
}

func (e *ScreenshotError) Error() string {
	return fmt.Sprintf("failed to take screenshot for %q: %v", e.Test+"/"+e.Step, e.Err)
}

func (e *ScreenshotError) Unwrap() error {
	return e.Err
}
