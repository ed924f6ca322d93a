package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// Locator identifies one element, either by CSS selector or by XPath.
type Locator struct {
	Query string
	XPath bool
}

func CSS(selector string) Locator {
	return Locator{Query: selector}
}

func XPath(expr string) Locator {
	return Locator{Query: expr, XPath: true}
}

var roleTags = map[string][]string{
	"button":  {"button", "input[@type='submit']", "input[@type='button']"},
	"link":    {"a"},
	"heading": {"h1", "h2", "h3", "h4", "h5", "h6"},
	"textbox": {"input[not(@type) or @type='text' or @type='email' or @type='search']", "textarea"},
}

// ByRole matches an element with the given ARIA role (explicit or implied
// by its tag) whose text, value or aria-label equals name.
func ByRole(role, name string) Locator {
	lit := xpathLiteral(name)
	nameMatch := fmt.Sprintf("normalize-space(.)=%s or @value=%s or @aria-label=%s", lit, lit, lit)

	alternatives := []string{fmt.Sprintf("//*[@role=%s][%s]", xpathLiteral(role), nameMatch)}
	for _, tag := range roleTags[role] {
		alternatives = append(alternatives, fmt.Sprintf("//%s[%s]", tag, nameMatch))
	}
	return XPath(strings.Join(alternatives, " | "))
}

// ByText matches any element whose normalized text equals text.
func ByText(text string) Locator {
	return XPath(fmt.Sprintf("//*[normalize-space(text())=%s]", xpathLiteral(text)))
}

// By returns the chromedp query option for the locator.
func (l Locator) By() chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (l Locator) String() string {
	if l.XPath {
		return "xpath=" + l.Query
	}
	return l.Query
}

// js returns a JavaScript expression evaluating to the element or null.
func (l Locator) js() string {
	q, _ := json.Marshal(l.Query)
	if l.XPath {
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", q)
	}
	return fmt.Sprintf("document.querySelector(%s)", q)
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
