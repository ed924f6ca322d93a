package pages

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidandcat/pagecheck/pkg/browser"
	"github.com/kidandcat/pagecheck/pkg/fixture"
)

const homeHTML = `<!doctype html>
<html>
<head><title>Home</title></head>
<body>
  <nav>
    <span class="example-class">Docs</span>
    <span class="example-class">Blog</span>
    <span class="example-class"> </span>
    <a href="/example">Example</a>
  </nav>
  <form action="/results" method="get">
    <input name="example" type="text">
    <button class="btn btn-success" type="submit">Search</button>
  </form>
  <input type="file" id="upload">
</body>
</html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, homeHTML)
	})
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<!doctype html><html><body><p class="example-class">%s</p></body></html>`,
			html.EscapeString(r.URL.Query().Get("example")))
	})
	mux.HandleFunc("/example", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><h1>Example</h1></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTab(t *testing.T, screenshotDir string) context.Context {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	execPath, err := browser.FindChrome()
	if err != nil {
		t.Skip(err.Error())
	}

	runner := browser.NewRunner(&browser.Config{
		Headless:      true,
		Timeout:       time.Minute,
		ScreenshotDir: screenshotDir,
		ExecPath:      execPath,
	})
	require.NoError(t, runner.Start())
	t.Cleanup(func() { runner.Stop() })

	ctx, cancel, err := runner.NewTab()
	require.NoError(t, err)
	t.Cleanup(cancel)
	return ctx
}

func TestNewPages(t *testing.T) {
	base := NewBasePage("http://localhost")
	assert.Equal(t, browser.CSS("button.btn.btn-success[type='submit']"), base.SearchButton)

	example := NewExamplePage("http://localhost")
	assert.Equal(t, `input[name="example"]`, example.ExampleInput.Query)
	assert.Equal(t, `button[type="submit"]`, example.ExampleButton.Query)
	assert.Equal(t, `a[href="/example"]`, example.ExampleLink.Query)
	assert.Equal(t, ".example-class", example.ExampleText.Query)
	assert.Equal(t, 2*time.Second, example.Settle)
}

// Home Page tests
func TestVerifySearchButton(t *testing.T) {
	server := newSite(t)
	dir := t.TempDir()
	ctx := newTab(t, dir)

	basePage := NewBasePage(server.URL)
	require.NoError(t, basePage.Goto(ctx))

	searchButton := browser.ByRole("button", "Search")
	path, err := browser.HighlightAndScreenshot(ctx, browser.Shot{
		Locator: searchButton,
		Dir:     dir,
		Test:    "HomePageTest",
		Step:    "SearchButtonVisible",
		Delay:   100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.True(t, basePage.IsSearchButtonVisible(ctx))
}

func TestHomePageOpen(t *testing.T) {
	server := newSite(t)
	ctx := newTab(t, t.TempDir())

	home := NewHomePage(server.URL)
	require.NoError(t, home.Open(ctx))

	example := NewExamplePage(server.URL)
	assert.True(t, example.IsElementVisible(ctx))

	items, err := example.AllMenuItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Docs", "Blog"}, items)

	require.NoError(t, example.ClickLink(ctx))
	assert.True(t, example.IsPageLoaded(ctx, regexp.MustCompile(`/example$`)))
}

func TestSearchWithFixtureData(t *testing.T) {
	terms, err := fixture.LoadSync("data/search-terms.csv")
	require.NoError(t, err)
	require.Len(t, terms, 3)

	server := newSite(t)
	ctx := newTab(t, t.TempDir())
	example := NewExamplePage(server.URL)
	example.Settle = 0

	for _, term := range terms {
		t.Run(term.Value("description"), func(t *testing.T) {
			require.NoError(t, example.NavigateTo(ctx, "/"))
			require.NoError(t, example.FillInput(ctx, term.Value("term")))

			value, err := example.InputValue(ctx)
			require.NoError(t, err)
			assert.Equal(t, term.Value("term"), value)

			require.NoError(t, example.PerformCompleteAction(ctx, term.Value("term")))
			require.True(t, example.IsPageLoaded(ctx, regexp.MustCompile(`/results\?`)))

			text, err := example.Text(ctx)
			require.NoError(t, err)
			assert.Equal(t, term.Value("expected"), text)
		})
	}
}

func TestUploadFile(t *testing.T) {
	server := newSite(t)
	ctx := newTab(t, t.TempDir())

	upload := filepath.Join(t.TempDir(), "login-data.csv")
	require.NoError(t, os.WriteFile(upload, []byte("username,password\n"), 0644))

	example := NewExamplePage(server.URL)
	example.Settle = 0
	require.NoError(t, example.NavigateTo(ctx, "/"))
	require.NoError(t, example.UploadFile(ctx, upload))
}
