package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/kidandcat/pagecheck/pkg/browser"
	"github.com/kidandcat/pagecheck/pkg/fixture"
)

type Parser struct {
	// Fixtures loads the files named by data directives.
	Fixtures       *fixture.Loader
	FixtureOptions []fixture.Option
}

func New() *Parser {
	return &Parser{Fixtures: fixture.DefaultLoader}
}

func NewWithLoader(loader *fixture.Loader, opts ...fixture.Option) *Parser {
	return &Parser{Fixtures: loader, FixtureOptions: opts}
}

// argument layouts
type form int

const (
	targetOnly     form = iota // everything after the action is the target
	targetValue                // first argument is the target, the rest the value
	targetOptValue             // like targetValue, value optional
	valueOnly                  // everything after the action is the value
	optionalTarget             // zero or more words forming the target
	attribute                  // selector, attribute name, expected value
)

var actionForms = map[browser.Action]form{
	browser.ActionNavigate:               targetOnly,
	browser.ActionClick:                  targetOnly,
	browser.ActionWaitFor:                targetOnly,
	browser.ActionAssertVisible:          targetOnly,
	browser.ActionAssertElementExists:    targetOnly,
	browser.ActionAssertElementNotExists: targetOnly,
	browser.ActionAssertURL:              targetOnly,
	browser.ActionAssertTitle:            targetOnly,
	browser.ActionWaitForURL:             targetOnly,
	browser.ActionCheck:                  targetOnly,
	browser.ActionUncheck:                targetOnly,
	browser.ActionHover:                  targetOnly,
	browser.ActionSleep:                  targetOnly,
	browser.ActionType:                   targetValue,
	browser.ActionAssertText:             targetValue,
	browser.ActionAssertTextContains:     targetValue,
	browser.ActionWaitForText:            targetValue,
	browser.ActionSelect:                 targetValue,
	browser.ActionHighlight:              targetOptValue,
	browser.ActionAssertTextVisible:      valueOnly,
	browser.ActionScreenshot:             optionalTarget,
	browser.ActionAssertAttribute:        attribute,
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// pending is a parsed test before data expansion.
type pending struct {
	test     browser.Test
	line     int
	data     string
	dataLine int
}

func (p *Parser) ParseFile(filename string) ([]browser.Test, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tests, err := p.parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return tests, nil
}

func (p *Parser) ParseString(content string) ([]browser.Test, error) {
	return p.parse(strings.NewReader(content))
}

func (p *Parser) parse(r io.Reader) ([]browser.Test, error) {
	var parsed []*pending
	var current *pending
	lineNum := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		words, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch words[0] {
		case "test":
			if len(words) < 2 {
				return nil, fmt.Errorf("line %d: test requires a name", lineNum)
			}
			current = &pending{
				test: browser.Test{Name: strings.Join(words[1:], " ")},
				line: lineNum,
			}
			parsed = append(parsed, current)

		case "data":
			if current == nil {
				return nil, fmt.Errorf("line %d: data outside of a test", lineNum)
			}
			if len(words) != 2 {
				return nil, fmt.Errorf("line %d: data requires exactly one fixture path", lineNum)
			}
			if current.data != "" {
				return nil, fmt.Errorf("line %d: test %q already has data from line %d", lineNum, current.test.Name, current.dataLine)
			}
			current.data = words[1]
			current.dataLine = lineNum

		default:
			if current == nil {
				continue
			}
			step, err := parseStep(words)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			current.test.Steps = append(current.test.Steps, step)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var tests []browser.Test
	for _, pt := range parsed {
		expanded, err := p.expand(pt)
		if err != nil {
			return nil, err
		}
		tests = append(tests, expanded...)
	}
	return tests, nil
}

func parseStep(words []string) (browser.Step, error) {
	action := browser.Action(words[0])
	args := words[1:]

	f, ok := actionForms[action]
	if !ok {
		return browser.Step{}, fmt.Errorf("unknown action: %s", action)
	}

	step := browser.Step{Action: action}
	switch f {
	case targetOnly:
		if len(args) < 1 {
			return step, fmt.Errorf("%s requires a target", action)
		}
		step.Target = strings.Join(args, " ")
	case targetValue:
		if len(args) < 2 {
			return step, fmt.Errorf("%s requires a selector and value", action)
		}
		step.Target = args[0]
		step.Value = strings.Join(args[1:], " ")
	case targetOptValue:
		if len(args) < 1 {
			return step, fmt.Errorf("%s requires a selector", action)
		}
		step.Target = args[0]
		step.Value = strings.Join(args[1:], " ")
	case valueOnly:
		if len(args) < 1 {
			return step, fmt.Errorf("%s requires text to search for", action)
		}
		step.Value = strings.Join(args, " ")
	case optionalTarget:
		step.Target = strings.Join(args, " ")
	case attribute:
		if len(args) < 3 {
			return step, fmt.Errorf("%s requires selector, attribute name, and expected value", action)
		}
		step.Target = args[0] + "|" + args[1]
		step.Value = strings.Join(args[2:], " ")
	}
	return step, nil
}

// tokenize splits a line on whitespace. A word starting with a single or
// double quote runs to the matching quote and may contain spaces and the
// other quote character.
func tokenize(line string) ([]string, error) {
	var words []string
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(line[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote starting at column %d", i+1)
			}
			words = append(words, line[i+1:i+1+end])
			i += end + 2
		default:
			end := strings.IndexAny(line[i:], " \t")
			if end < 0 {
				end = len(line) - i
			}
			words = append(words, line[i:i+end])
			i += end
		}
	}
	return words, nil
}

// expand turns a test with a data directive into one test per fixture
// record, substituting {{column}} placeholders.
func (p *Parser) expand(pt *pending) ([]browser.Test, error) {
	if pt.data == "" {
		if name := firstPlaceholder(pt.test); name != "" {
			return nil, fmt.Errorf("line %d: test %q uses {{%s}} without data", pt.line, pt.test.Name, name)
		}
		return []browser.Test{pt.test}, nil
	}

	loader := p.Fixtures
	if loader == nil {
		loader = fixture.DefaultLoader
	}
	records, err := loader.LoadSync(pt.data, p.FixtureOptions...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", pt.dataLine, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("line %d: fixture %q has no records", pt.dataLine, pt.data)
	}

	tests := make([]browser.Test, 0, len(records))
	for i, rec := range records {
		test, err := substituteTest(pt.test, rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: test %q row %d: %w", pt.line, pt.test.Name, i+1, err)
		}
		if test.Name == pt.test.Name {
			test.Name = fmt.Sprintf("%s [%d]", pt.test.Name, i+1)
		}
		tests = append(tests, test)
	}
	return tests, nil
}

func substituteTest(test browser.Test, rec fixture.Record) (browser.Test, error) {
	name, err := substitute(test.Name, rec)
	if err != nil {
		return browser.Test{}, err
	}
	out := browser.Test{Name: name, Steps: make([]browser.Step, len(test.Steps))}
	for i, step := range test.Steps {
		target, err := substitute(step.Target, rec)
		if err != nil {
			return browser.Test{}, err
		}
		value, err := substitute(step.Value, rec)
		if err != nil {
			return browser.Test{}, err
		}
		out.Steps[i] = browser.Step{Action: step.Action, Target: target, Value: value}
	}
	return out, nil
}

func substitute(s string, rec fixture.Record) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		column := placeholder.FindStringSubmatch(m)[1]
		v, ok := rec.Get(column)
		if !ok && missing == "" {
			missing = column
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("unknown column %q", missing)
	}
	return out, nil
}

func firstPlaceholder(test browser.Test) string {
	fields := []string{test.Name}
	for _, step := range test.Steps {
		fields = append(fields, step.Target, step.Value)
	}
	for _, f := range fields {
		if m := placeholder.FindStringSubmatch(f); m != nil {
			return m[1]
		}
	}
	return ""
}
