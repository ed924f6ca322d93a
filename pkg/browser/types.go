package browser

import (
	"time"
)

type Action string

const (
	ActionNavigate               Action = "navigate"
	ActionClick                  Action = "click"
	ActionType                   Action = "type"
	ActionWaitFor                Action = "wait_for"
	ActionWaitForText            Action = "wait_for_text"
	ActionWaitForURL             Action = "wait_for_url"
	ActionAssertText             Action = "assert_text"
	ActionAssertTextContains     Action = "assert_text_contains"
	ActionAssertTextVisible      Action = "assert_text_visible"
	ActionAssertVisible          Action = "assert_visible"
	ActionAssertElementExists    Action = "assert_element_exists"
	ActionAssertElementNotExists Action = "assert_element_not_exists"
	ActionAssertURL              Action = "assert_url"
	ActionAssertTitle            Action = "assert_title"
	ActionAssertAttribute        Action = "assert_attribute"
	ActionSelect                 Action = "select"
	ActionCheck                  Action = "check"
	ActionUncheck                Action = "uncheck"
	ActionHover                  Action = "hover"
	ActionScreenshot             Action = "screenshot"
	ActionHighlight              Action = "highlight"
	ActionSleep                  Action = "sleep"
)

type Test struct {
	Name  string
	Steps []Step
}

// Step is one action. Target is usually a selector; for assert_attribute it
// is "selector|attribute".
type Step struct {
	Action Action
	Target string
	Value  string
}

type TestResult struct {
	Name     string
	Passed   bool
	Error    error
	Duration time.Duration
	Errors   []ConsoleError
}

type ConsoleError struct {
	Message   string
	Type      string
	Timestamp time.Time
	URL       string
}
