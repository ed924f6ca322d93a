package browser

// TestBuilder assembles a Test step by step:
//
//	result := runner.Test("Verify search button").
//		Navigate("/").
//		AssertVisible("button.btn.btn-success[type='submit']").
//		Highlight("button.btn.btn-success[type='submit']", "SearchButtonVisible").
//		Run()
type TestBuilder struct {
	runner *Runner
	test   Test
}

func New() *Runner {
	return NewRunner(nil)
}

func WithConfig(config *Config) *Runner {
	return NewRunner(config)
}

func (r *Runner) Test(name string) *TestBuilder {
	return &TestBuilder{
		runner: r,
		test: Test{
			Name: name,
		},
	}
}

// Step appends an arbitrary action.
func (tb *TestBuilder) Step(action Action, target, value string) *TestBuilder {
	tb.test.Steps = append(tb.test.Steps, Step{
		Action: action,
		Target: target,
		Value:  value,
	})
	return tb
}

func (tb *TestBuilder) Navigate(url string) *TestBuilder {
	return tb.Step(ActionNavigate, url, "")
}

func (tb *TestBuilder) Click(selector string) *TestBuilder {
	return tb.Step(ActionClick, selector, "")
}

func (tb *TestBuilder) Type(selector, text string) *TestBuilder {
	return tb.Step(ActionType, selector, text)
}

func (tb *TestBuilder) WaitFor(selector string) *TestBuilder {
	return tb.Step(ActionWaitFor, selector, "")
}

func (tb *TestBuilder) AssertText(selector, expected string) *TestBuilder {
	return tb.Step(ActionAssertText, selector, expected)
}

func (tb *TestBuilder) AssertVisible(selector string) *TestBuilder {
	return tb.Step(ActionAssertVisible, selector, "")
}

// Highlight outlines selector and saves a screenshot named after step.
func (tb *TestBuilder) Highlight(selector, step string) *TestBuilder {
	return tb.Step(ActionHighlight, selector, step)
}

func (tb *TestBuilder) Screenshot(filename string) *TestBuilder {
	return tb.Step(ActionScreenshot, filename, "")
}

// Build returns a copy of the assembled test without queueing it.
func (tb *TestBuilder) Build() Test {
	test := tb.test
	test.Steps = append([]Step(nil), tb.test.Steps...)
	return test
}

// Run executes only this test, leaving the runner's queue untouched.
func (tb *TestBuilder) Run() TestResult {
	if tb.runner == nil {
		return TestResult{Name: tb.test.Name, Error: ErrNoTestResults}
	}
	return tb.runner.runTest(tb.Build())
}

// Add queues the test on the runner.
func (tb *TestBuilder) Add() *TestBuilder {
	tb.runner.AddTest(tb.Build())
	return tb
}
