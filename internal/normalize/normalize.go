// Package normalize provides text normalization for catalog values.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// htmlTagPattern looks for the tags spreadsheet exports tend to carry.
	htmlTagPattern  = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|sup|sub|h[1-6])[\s>/]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)

	titleCaser = cases.Title(language.Indonesian)
)

// TitleCase lowercases a description and capitalizes each word:
// "BOLT, FLANGE" -> "Bolt, Flange".
func TitleCase(s string) string {
	s = collapseWhitespace(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return titleCaser.String(s)
}

// ContainsHTML reports whether s appears to contain HTML markup.
func ContainsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// PlainText strips HTML markup, unescapes entities and collapses whitespace.
// Strings without markup are only trimmed and collapsed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	if !ContainsHTML(s) && !strings.Contains(s, "&") {
		return strings.TrimSpace(collapseWhitespace(s))
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		s = html.UnescapeString(htmlTagRegex.ReplaceAllString(s, " "))
		return strings.TrimSpace(collapseWhitespace(s))
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return strings.TrimSpace(collapseWhitespace(buf.String()))
}

// Markdown converts HTML to Markdown. Input without markup is returned unchanged.
func Markdown(s string) string {
	if s == "" || !ContainsHTML(s) {
		return s
	}

	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

// Fold lowercases s and removes diacritics, for search-side comparisons.
func Fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(strings.TrimSpace(s))
}

func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode && isBlock(n.Data) {
		buf.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
	if n.Type == html.ElementNode && isBlock(n.Data) {
		buf.WriteString(" ")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func collapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, " ")
}
