package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

type Runner struct {
	allocCtx          context.Context
	allocCancel       context.CancelFunc
	config            *Config
	tests             []Test
	results           []TestResult
	mu                sync.Mutex
	screenshotCounter map[string]int
	runID             string
	logger            *slog.Logger
}

type Config struct {
	Headless           bool
	Timeout            time.Duration
	NavigationTimeout  time.Duration
	FailOnConsoleError bool
	ErrorFilter        func(error ConsoleError) bool
	ScreenshotDir      string
	HighlightDelay     time.Duration
	BaseURL            string
	ViewportWidth      int
	ViewportHeight     int
	// ExecPath selects the browser binary; empty lets chromedp search.
	ExecPath string
	Logger   *slog.Logger
}

const (
	defaultTimeout       = 30 * time.Second
	defaultScreenshotDir = "screenshots"
	pollInterval         = 100 * time.Millisecond
)

func DefaultConfig() *Config {
	return &Config{
		Headless:           true,
		Timeout:            defaultTimeout,
		FailOnConsoleError: true,
		ScreenshotDir:      defaultScreenshotDir,
		HighlightDelay:     time.Second,
		ViewportWidth:      1280,
		ViewportHeight:     720,
	}
}

func NewRunner(config *Config) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ScreenshotDir == "" {
		config.ScreenshotDir = defaultScreenshotDir
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	runID := uuid.NewString()
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config:            config,
		screenshotCounter: make(map[string]int),
		runID:             runID,
		logger:            logger.With("run_id", runID),
	}
}

// FindChrome returns the first Chrome or Chromium executable on PATH.
func FindChrome() (string, error) {
	for _, name := range []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"headless-shell",
		"chrome",
	} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoChrome
}

func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) Config() Config {
	return *r.config
}

func (r *Runner) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.config.Headless),
		chromedp.Flag("disable-gpu", r.config.Headless),
		chromedp.Flag("no-sandbox", true),
	)
	if r.config.ViewportWidth > 0 && r.config.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(r.config.ViewportWidth, r.config.ViewportHeight))
	}
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	r.allocCtx = allocCtx
	r.allocCancel = cancel

	r.logger.Debug("browser allocator started", "headless", r.config.Headless)
	return nil
}

func (r *Runner) Stop() error {
	if r.allocCancel != nil {
		r.allocCancel()
		r.allocCancel = nil
	}
	return nil
}

// NewTab opens a fresh browser tab bounded by the configured timeout.
func (r *Runner) NewTab() (context.Context, context.CancelFunc, error) {
	if r.allocCtx == nil {
		return nil, nil, ErrNotStarted
	}
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx)
	ctx, cancel := context.WithTimeout(tabCtx, r.config.Timeout)
	return ctx, func() {
		cancel()
		tabCancel()
	}, nil
}

func (r *Runner) AddTest(test Test) {
	r.tests = append(r.tests, test)
}

func (r *Runner) Tests() []Test {
	return append([]Test(nil), r.tests...)
}

func (r *Runner) Run() []TestResult {
	r.results = make([]TestResult, 0, len(r.tests))

	for _, test := range r.tests {
		result := r.runTest(test)
		r.results = append(r.results, result)
	}

	return r.results
}

// RunWithProgress runs every queued test and sends each result on
// progress as soon as it finishes. wg is incremented once per result so
// the receiver can call Done after handling it. progress is closed when
// all tests have run.
func (r *Runner) RunWithProgress(progress chan<- TestResult, wg *sync.WaitGroup) []TestResult {
	defer close(progress)
	r.results = make([]TestResult, 0, len(r.tests))

	for _, test := range r.tests {
		result := r.runTest(test)
		r.results = append(r.results, result)
		wg.Add(1)
		progress <- result
	}

	return r.results
}

func (r *Runner) runTest(test Test) TestResult {
	start := time.Now()
	result := TestResult{
		Name:   test.Name,
		Passed: true,
		Errors: []ConsoleError{},
	}
	logger := r.logger.With("test", test.Name)

	ctx, cancel, err := r.NewTab()
	if err != nil {
		result.Passed = false
		result.Error = err
		return result
	}
	defer cancel()

	console := &consoleLog{filter: r.config.ErrorFilter}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if consoleErr, ok := consoleErrorFromEvent(ev); ok {
			console.add(consoleErr)
		}
	})

	for i, step := range test.Steps {
		if err := r.executeStep(ctx, step, test.Name); err != nil {
			result.Passed = false
			result.Error = fmt.Errorf("step %d (%s %s): %w", i+1, step.Action, step.Target, err)
			break
		}
	}

	result.Errors = append(result.Errors, console.close()...)

	if r.config.FailOnConsoleError && len(result.Errors) > 0 {
		result.Passed = false
		if result.Error == nil {
			result.Error = fmt.Errorf("console errors detected: %d errors", len(result.Errors))
		}
	}

	result.Duration = time.Since(start)
	if result.Passed {
		logger.Info("test passed", "duration", result.Duration)
	} else {
		logger.Warn("test failed", "duration", result.Duration, "error", result.Error)
	}
	return result
}

// consoleLog collects console errors for one test. Events delivered
// after close are dropped.
type consoleLog struct {
	mu     sync.Mutex
	filter func(ConsoleError) bool
	errors []ConsoleError
	closed bool
}

func (l *consoleLog) add(e ConsoleError) {
	if l.filter != nil && l.filter(e) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.errors = append(l.errors, e)
	}
}

// close stops collection and returns what was gathered so far.
func (l *consoleLog) close() []ConsoleError {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return append([]ConsoleError(nil), l.errors...)
}

func consoleErrorFromEvent(ev interface{}) (ConsoleError, bool) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeError {
			return ConsoleError{}, false
		}
		consoleErr := ConsoleError{
			Type:      string(ev.Type),
			Timestamp: time.Now(),
		}
		if len(ev.Args) > 0 {
			if ev.Args[0].Value != nil {
				consoleErr.Message = strings.Trim(string(ev.Args[0].Value), `"`)
			} else {
				consoleErr.Message = ev.Args[0].Description
			}
		}
		if ev.StackTrace != nil && len(ev.StackTrace.CallFrames) > 0 {
			consoleErr.URL = ev.StackTrace.CallFrames[0].URL
		}
		return consoleErr, true

	case *runtime.EventExceptionThrown:
		details := ev.ExceptionDetails
		if details == nil {
			return ConsoleError{}, false
		}
		consoleErr := ConsoleError{
			Message:   details.Text,
			Type:      "exception",
			Timestamp: time.Now(),
			URL:       details.URL,
		}
		if details.Exception != nil && details.Exception.Description != "" {
			consoleErr.Message = details.Exception.Description
		}
		return consoleErr, true
	}
	return ConsoleError{}, false
}

// ResolveURL joins relative targets onto the configured base URL.
func (r *Runner) ResolveURL(target string) (string, error) {
	return JoinURL(r.config.BaseURL, target)
}

// JoinURL resolves target against base. Absolute targets and an empty
// base return target unchanged.
func JoinURL(base, target string) (string, error) {
	if base == "" {
		return target, nil
	}
	ref, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return target, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

func (r *Runner) executeStep(ctx context.Context, step Step, testName string) error {
	switch step.Action {
	case ActionNavigate:
		target, err := r.ResolveURL(step.Target)
		if err != nil {
			return err
		}
		if r.config.NavigationTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.config.NavigationTimeout)
			defer cancel()
		}
		if err := chromedp.Run(ctx, chromedp.Navigate(target)); err != nil {
			return fmt.Errorf("navigate to %s: %w", target, err)
		}
		return nil

	case ActionClick:
		return chromedp.Run(ctx, chromedp.Click(step.Target, chromedp.NodeVisible))

	case ActionType:
		return chromedp.Run(ctx, chromedp.SendKeys(step.Target, step.Value, chromedp.NodeVisible))

	case ActionWaitFor, ActionAssertVisible:
		if err := chromedp.Run(ctx, chromedp.WaitVisible(step.Target)); err != nil {
			return fmt.Errorf("element %s not visible: %w", step.Target, err)
		}
		return nil

	case ActionAssertText:
		var text string
		if err := chromedp.Run(ctx, chromedp.Text(step.Target, &text, chromedp.NodeVisible)); err != nil {
			return err
		}
		if strings.TrimSpace(text) != step.Value {
			return &AssertionError{Expected: step.Value, Actual: text, Message: "text assertion failed"}
		}
		return nil

	case ActionAssertTextContains:
		var text string
		if err := chromedp.Run(ctx, chromedp.Text(step.Target, &text, chromedp.NodeVisible)); err != nil {
			return err
		}
		if !strings.Contains(text, step.Value) {
			return &AssertionError{Expected: step.Value, Actual: text, Message: "text does not contain"}
		}
		return nil

	case ActionAssertTextVisible:
		return chromedp.Run(ctx, chromedp.WaitVisible(ByText(step.Value).Query, chromedp.BySearch))

	case ActionAssertElementExists:
		var nodes []*cdp.Node
		err := chromedp.Run(ctx, chromedp.Nodes(step.Target, &nodes, chromedp.AtLeast(0)))
		if err != nil || len(nodes) == 0 {
			return fmt.Errorf("element not found: %s", step.Target)
		}
		return nil

	case ActionAssertElementNotExists:
		var nodes []*cdp.Node
		err := chromedp.Run(ctx, chromedp.Nodes(step.Target, &nodes, chromedp.AtLeast(0)))
		if err == nil && len(nodes) > 0 {
			return fmt.Errorf("element should not exist: %s", step.Target)
		}
		return nil

	case ActionAssertURL:
		var currentURL string
		if err := chromedp.Run(ctx, chromedp.Location(&currentURL)); err != nil {
			return err
		}
		want, err := r.ResolveURL(step.Target)
		if err != nil {
			return err
		}
		if currentURL != want {
			return &AssertionError{Expected: want, Actual: currentURL, Message: "URL assertion failed"}
		}
		return nil

	case ActionAssertTitle:
		var title string
		if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
			return err
		}
		if title != step.Target {
			return &AssertionError{Expected: step.Target, Actual: title, Message: "title assertion failed"}
		}
		return nil

	case ActionAssertAttribute:
		selector, attribute, ok := strings.Cut(step.Target, "|")
		if !ok {
			return fmt.Errorf("invalid assert_attribute target %q", step.Target)
		}
		var value string
		var found bool
		if err := chromedp.Run(ctx, chromedp.AttributeValue(selector, attribute, &value, &found)); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("attribute '%s' not found", attribute)
		}
		if value != step.Value {
			return &AssertionError{Expected: step.Value, Actual: value, Message: "attribute " + attribute}
		}
		return nil

	case ActionWaitForText:
		if err := chromedp.Run(ctx, chromedp.WaitVisible(step.Target)); err != nil {
			return err
		}
		return poll(ctx, func() bool {
			var text string
			err := chromedp.Run(ctx, chromedp.Text(step.Target, &text, chromedp.NodeVisible))
			return err == nil && strings.Contains(text, step.Value)
		}, fmt.Sprintf("text %q in %s", step.Value, step.Target))

	case ActionWaitForURL:
		return poll(ctx, func() bool {
			var currentURL string
			err := chromedp.Run(ctx, chromedp.Location(&currentURL))
			return err == nil && strings.Contains(currentURL, step.Target)
		}, fmt.Sprintf("URL containing %q", step.Target))

	case ActionSelect:
		return chromedp.Run(ctx,
			chromedp.SetValue(step.Target, step.Value, chromedp.NodeVisible),
			dispatchEvent(CSS(step.Target), "change"),
		)

	case ActionCheck, ActionUncheck:
		var checked bool
		if err := chromedp.Run(ctx, chromedp.JavascriptAttribute(step.Target, "checked", &checked, chromedp.NodeVisible)); err != nil {
			return err
		}
		if checked == (step.Action == ActionCheck) {
			return nil
		}
		return chromedp.Run(ctx, chromedp.Click(step.Target, chromedp.NodeVisible))

	case ActionHover:
		return chromedp.Run(ctx,
			chromedp.ScrollIntoView(step.Target, chromedp.NodeVisible),
			dispatchEvent(CSS(step.Target), "mouseover"),
			dispatchEvent(CSS(step.Target), "mouseenter"),
		)

	case ActionScreenshot:
		return r.takeScreenshot(ctx, step.Target, testName)

	case ActionHighlight:
		stepName := step.Value
		if stepName == "" {
			stepName = r.nextShotName(testName)
		}
		path, err := HighlightAndScreenshot(ctx, Shot{
			Locator: CSS(step.Target),
			Dir:     r.config.ScreenshotDir,
			Test:    testName,
			Step:    stepName,
			Delay:   r.config.HighlightDelay,
		})
		if err != nil {
			return err
		}
		r.logger.Debug("highlight screenshot saved", "test", testName, "path", path)
		return nil

	case ActionSleep:
		d, err := time.ParseDuration(step.Target)
		if err != nil {
			return fmt.Errorf("invalid sleep duration %q: %w", step.Target, err)
		}
		return chromedp.Run(ctx, chromedp.Sleep(d))

	default:
		return fmt.Errorf("unknown action: %s", step.Action)
	}
}

func dispatchEvent(loc Locator, event string) chromedp.Action {
	var ok bool
	return chromedp.Evaluate(fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) {
		throw new Error("element not found");
	}
	el.dispatchEvent(new Event(%q, {bubbles: true}));
	return true;
})()`, loc.js(), event), &ok)
}

func poll(ctx context.Context, done func() bool, what string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if done() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s: %w", what, ctx.Err())
		}
	}
}

// nextShotName numbers screenshots per test: "Name", "Name_2", ...
func (r *Runner) nextShotName(testName string) string {
	safeTestName := strings.ReplaceAll(testName, " ", "_")
	safeTestName = strings.ReplaceAll(safeTestName, "/", "_")
	safeTestName = strings.ReplaceAll(safeTestName, "\\", "_")

	r.mu.Lock()
	r.screenshotCounter[testName]++
	counter := r.screenshotCounter[testName]
	r.mu.Unlock()

	if counter == 1 {
		return safeTestName
	}
	return fmt.Sprintf("%s_%d", safeTestName, counter)
}

func (r *Runner) takeScreenshot(ctx context.Context, filename string, testName string) error {
	if filename == "" {
		filename = r.nextShotName(testName) + ".png"
	}

	if err := os.MkdirAll(r.config.ScreenshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	var screenshot []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&screenshot, 100)); err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}

	path := filepath.Join(r.config.ScreenshotDir, filename)
	if err := os.WriteFile(path, screenshot, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	r.logger.Debug("screenshot saved", "test", testName, "path", path)
	return nil
}
