package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/pagecheck/pkg/browser"
	"github.com/kidandcat/pagecheck/pkg/fixture"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []browser.Test
		wantErr bool
	}{
		{
			name: "simple test",
			input: `test "Login test"
  navigate "https://example.com"
  click "#button"
  assert_text ".result" "Success"`,
			want: []browser.Test{
				{
					Name: "Login test",
					Steps: []browser.Step{
						{Action: "navigate", Target: "https://example.com"},
						{Action: "click", Target: "#button"},
						{Action: "assert_text", Target: ".result", Value: "Success"},
					},
				},
			},
		},
		{
			name: "multiple tests",
			input: `test "First test"
  navigate "https://example.com"

test "Second test"
  click "#button"`,
			want: []browser.Test{
				{
					Name:  "First test",
					Steps: []browser.Step{{Action: "navigate", Target: "https://example.com"}},
				},
				{
					Name:  "Second test",
					Steps: []browser.Step{{Action: "click", Target: "#button"}},
				},
			},
		},
		{
			name: "test with comments and empty lines",
			input: `# This is a comment
test "Test with comments"
  # Navigate to page
  navigate "https://example.com"
  
  # Click button
  click "#button"`,
			want: []browser.Test{
				{
					Name: "Test with comments",
					Steps: []browser.Step{
						{Action: "navigate", Target: "https://example.com"},
						{Action: "click", Target: "#button"},
					},
				},
			},
		},
		{
			name: "screenshot commands",
			input: `test "Screenshot test"
  navigate "https://example.com"
  screenshot
  screenshot "custom.png"`,
			want: []browser.Test{
				{
					Name: "Screenshot test",
					Steps: []browser.Step{
						{Action: "navigate", Target: "https://example.com"},
						{Action: "screenshot", Target: ""},
						{Action: "screenshot", Target: "custom.png"},
					},
				},
			},
		},
		{
			name: "type command with spaces",
			input: `test "Type test"
  type "#input" "Hello   World"`,
			want: []browser.Test{
				{
					Name:  "Type test",
					Steps: []browser.Step{{Action: "type", Target: "#input", Value: "Hello   World"}},
				},
			},
		},
		{
			name: "unquoted words are joined",
			input: `test "Title test"
  assert_title My Page
  assert_text_visible Welcome back`,
			want: []browser.Test{
				{
					Name: "Title test",
					Steps: []browser.Step{
						{Action: "assert_title", Target: "My Page"},
						{Action: "assert_text_visible", Value: "Welcome back"},
					},
				},
			},
		},
		{
			name: "assert_attribute command",
			input: `test "Attribute test"
  assert_attribute "#link" "href" "https://example.com"`,
			want: []browser.Test{
				{
					Name:  "Attribute test",
					Steps: []browser.Step{{Action: "assert_attribute", Target: "#link|href", Value: "https://example.com"}},
				},
			},
		},
		{
			name: "wait commands",
			input: `test "Wait test"
  wait_for ".element"
  wait_for_text ".message" "Loading complete"
  wait_for_url "/dashboard"`,
			want: []browser.Test{
				{
					Name: "Wait test",
					Steps: []browser.Step{
						{Action: "wait_for", Target: ".element"},
						{Action: "wait_for_text", Target: ".message", Value: "Loading complete"},
						{Action: "wait_for_url", Target: "/dashboard"},
					},
				},
			},
		},
		{
			name: "form interaction commands",
			input: `test "Form test"
  select "#country" "USA"
  check "#terms"
  uncheck "#newsletter"
  hover "#submit"`,
			want: []browser.Test{
				{
					Name: "Form test",
					Steps: []browser.Step{
						{Action: "select", Target: "#country", Value: "USA"},
						{Action: "check", Target: "#terms"},
						{Action: "uncheck", Target: "#newsletter"},
						{Action: "hover", Target: "#submit"},
					},
				},
			},
		},
		{
			name: "highlight and sleep",
			input: `test "Evidence"
  highlight "button.btn-success"
  highlight "#total" "cart-total"
  assert_visible "#total"
  sleep 250ms`,
			want: []browser.Test{
				{
					Name: "Evidence",
					Steps: []browser.Step{
						{Action: "highlight", Target: "button.btn-success"},
						{Action: "highlight", Target: "#total", Value: "cart-total"},
						{Action: "assert_visible", Target: "#total"},
						{Action: "sleep", Target: "250ms"},
					},
				},
			},
		},
		{
			name: "quoted selectors",
			input: `test "Quoted test"
  click ".btn[data-action='save']"
  type 'input[name="email"]' "test@example.com"`,
			want: []browser.Test{
				{
					Name: "Quoted test",
					Steps: []browser.Step{
						{Action: "click", Target: ".btn[data-action='save']"},
						{Action: "type", Target: "input[name=\"email\"]", Value: "test@example.com"},
					},
				},
			},
		},
		{
			name: "steps before any test are ignored",
			input: `navigate "https://ignored.example"
test "After"
  click "#button"`,
			want: []browser.Test{
				{Name: "After", Steps: []browser.Step{{Action: "click", Target: "#button"}}},
			},
		},
		{
			name: "invalid command",
			input: `test "Invalid"
  invalid_command "arg"`,
			wantErr: true,
		},
		{
			name: "missing required argument",
			input: `test "Invalid"
  click`,
			wantErr: true,
		},
		{
			name: "unterminated quote",
			input: `test "Invalid"
  click "#button`,
			wantErr: true,
		},
		{
			name: "placeholder without data",
			input: `test "Invalid"
  type "#user" "{{username}}"`,
			wantErr: true,
		},
		{
			name:    "data outside of a test",
			input:   `data "users.csv"`,
			wantErr: true,
		},
	}

	parser := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDataDirective(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "users.csv", "username,password,greeting\nalice,secret1,Hello Alice\nbob,secret2,Hello Bob\n")

	parser := NewWithLoader(fixture.New(dir))
	got, err := parser.ParseString(`test "Login"
  data "users.csv"
  navigate "/login"
  type "#user" "{{username}}"
  type "#pass" "{{ password }}"
  click "button[type='submit']"
  assert_text ".greeting" "{{greeting}}!"`)
	require.NoError(t, err)

	want := []browser.Test{
		{
			Name: "Login [1]",
			Steps: []browser.Step{
				{Action: "navigate", Target: "/login"},
				{Action: "type", Target: "#user", Value: "alice"},
				{Action: "type", Target: "#pass", Value: "secret1"},
				{Action: "click", Target: "button[type='submit']"},
				{Action: "assert_text", Target: ".greeting", Value: "Hello Alice!"},
			},
		},
		{
			Name: "Login [2]",
			Steps: []browser.Step{
				{Action: "navigate", Target: "/login"},
				{Action: "type", Target: "#user", Value: "bob"},
				{Action: "type", Target: "#pass", Value: "secret2"},
				{Action: "click", Target: "button[type='submit']"},
				{Action: "assert_text", Target: ".greeting", Value: "Hello Bob!"},
			},
		},
	}
	assert.Equal(t, want, got)
}

func TestDataDirectiveNamePlaceholder(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "terms.csv", "term\ngo\nrust\n")

	got, err := NewWithLoader(fixture.New(dir)).ParseString(`test "Search {{term}}"
  data "terms.csv"
  type "#q" "{{term}}"

test "Plain"
  navigate "/"`)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Search go", got[0].Name)
	assert.Equal(t, "Search rust", got[1].Name)
	assert.Equal(t, "Plain", got[2].Name)
}

func TestDataDirectiveFixtureOptions(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "terms.tsv", "term\tlabel\n  spaced  \tx\n")

	parser := NewWithLoader(fixture.New(dir), fixture.WithComma('\t'), fixture.WithTrim(false))
	got, err := parser.ParseString(`test "Tabs"
  data "terms.tsv"
  type "#q" "[{{term}}]"`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "[  spaced  ]", got[0].Steps[0].Value)
}

func TestDataDirectiveErrors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "users.csv", "username\nalice\n")
	writeFixture(t, dir, "empty.csv", "username\n")

	parser := NewWithLoader(fixture.New(dir))

	t.Run("unknown column", func(t *testing.T) {
		_, err := parser.ParseString(`test "Login"
  data "users.csv"
  type "#pass" "{{password}}"`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown column "password"`)
	})

	t.Run("missing fixture", func(t *testing.T) {
		_, err := parser.ParseString(`test "Login"
  data "missing.csv"
  navigate "/"`)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fixture.ErrNotFound))
		var loadErr *fixture.LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "missing.csv", loadErr.Path)
	})

	t.Run("no records", func(t *testing.T) {
		_, err := parser.ParseString(`test "Login"
  data "empty.csv"
  navigate "/"`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no records")
	})

	t.Run("duplicate data", func(t *testing.T) {
		_, err := parser.ParseString(`test "Login"
  data "users.csv"
  data "users.csv"`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already has data")
	})
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "users.csv", "username\nalice\nbob\n")
	writeFixture(t, dir, "login.test", "test \"Login\"\n  data \"users.csv\"\n  type \"#user\" \"{{username}}\"\n")

	got, err := NewWithLoader(fixture.New(dir)).ParseFile(filepath.Join(dir, "login.test"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[1].Steps[0].Value)

	_, err = New().ParseFile(filepath.Join(dir, "nope.test"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTokenize(t *testing.T) {
	words, err := tokenize(`type 'input[name="q"]'   "a b"	tail`)
	require.NoError(t, err)
	assert.Equal(t, []string{"type", `input[name="q"]`, "a b", "tail"}, words)

	words, err = tokenize(`screenshot ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"screenshot", ""}, words)

	_, err = tokenize(`click 'oops`)
	assert.Error(t, err)
}

func TestParseExampleSuite(t *testing.T) {
	root := filepath.Join("..", "..")
	tests, err := NewWithLoader(fixture.New(root)).ParseFile(filepath.Join(root, "examples", "login.test"))
	require.NoError(t, err)
	require.Len(t, tests, 5)

	assert.Equal(t, "Login: valid credentials", tests[0].Name)
	assert.Equal(t, browser.Step{Action: "type", Target: "#username", Value: "standard_user"}, tests[0].Steps[1])
	assert.Equal(t, "Login: missing username", tests[2].Name)
	assert.Equal(t, "secret_sauce", tests[2].Steps[2].Value)
	assert.Equal(t, "Home page", tests[4].Name)
}
