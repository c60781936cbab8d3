package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// chromeElements are stripped before markdown conversion when readability
// cannot find an article body.
var chromeElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "nav": {}, "header": {},
	"footer": {}, "aside": {}, "iframe": {}, "form": {},
}

// HTMLDocument is the result of extracting statements from an HTML page.
type HTMLDocument struct {
	// Title is the page or article title, empty when none was found.
	Title string

	// Statements is the ordered statement list extracted from the main
	// content.
	Statements []string
}

// ExtractHTML pulls the main content out of an HTML document and splits
// it into statements. Readability-style article extraction is tried
// first; pages without a recognizable article fall back to stripping
// page chrome and converting the remainder through markdown.
func ExtractHTML(content []byte, pageURL *url.URL) (*HTMLDocument, error) {
	if pageURL == nil {
		// The parser only uses the URL to absolutize links.
		pageURL, _ = url.Parse("https://localhost/")
	}

	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return &HTMLDocument{
			Title:      article.Title,
			Statements: textStatements(article.TextContent),
		}, nil
	}

	// Fallback: strip chrome, convert what is left to markdown.
	cleaned, title := stripChrome(content)

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("convert HTML: %w", err)
	}

	return &HTMLDocument{
		Title:      title,
		Statements: textStatements(markdown),
	}, nil
}

// textStatements splits extracted prose into statements, dropping
// markdown noise lines that carry no words.
func textStatements(text string) []string {
	statements := []string{}
	for _, s := range plainStatements(text) {
		if hasWord(s) {
			statements = append(statements, s)
		}
	}
	return statements
}

// hasWord reports whether the line contains at least one letter or digit.
func hasWord(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') || r > 127 {
			return true
		}
	}
	return false
}

// stripChrome parses the HTML, removes non-content elements, and returns
// the re-rendered document plus the <title> text.
func stripChrome(content []byte) (string, string) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content), ""
	}

	title := findTitle(doc)
	removeChrome(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return string(content), title
	}
	return buf.String(), title
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func removeChrome(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode {
			if _, drop := chromeElements[c.Data]; drop {
				n.RemoveChild(c)
				continue
			}
		}
		removeChrome(c)
	}
}
