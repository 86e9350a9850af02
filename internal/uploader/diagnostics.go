package uploader

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxSnippetLen bounds the body excerpt included in diagnostics.
const maxSnippetLen = 80

// describeBody summarizes a response body for the diagnostic log.
// HTML pages are reduced to their <title>; anything else to a short excerpt.
func describeBody(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "empty body"
	}

	if isHTML(contentType, trimmed) {
		if title := pageTitle(trimmed); title != "" {
			return fmt.Sprintf("HTML page %q", title)
		}
		return "HTML page without title"
	}

	return fmt.Sprintf("body %q", snippet(trimmed))
}

// isHTML reports whether the body should be parsed as HTML.
func isHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
			return true
		}
	}
	return body[0] == '<'
}

// pageTitle returns the text of the first <title> element, or "".
func pageTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(sb.String()), " ")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return title
}

// snippet returns the first maxSnippetLen bytes of body without splitting a rune.
func snippet(body []byte) string {
	if len(body) <= maxSnippetLen {
		return string(body)
	}
	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
