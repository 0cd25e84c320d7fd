// Package extractor pulls a single text field out of a fetched HTML document.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/go-readability"
)

const (
	KindSection     = "section"
	KindReadability = "readability"

	// DefaultSelector matches the abstract block on PubMed article pages.
	DefaultSelector = "div#abstract"
)

// Extractor returns the text of a named part of a document, or false when the
// part is absent. Malformed input is reported as absent, never as an error.
type Extractor interface {
	Extract(body []byte) (string, bool)
}

// New builds an extractor by kind. pageURL is only used by the readability
// extractor to resolve relative links and may be empty.
func New(kind, selector, pageURL string) (Extractor, error) {
	switch kind {
	case "", KindSection:
		return NewSectionExtractor(selector)
	case KindReadability:
		return NewReadabilityExtractor(pageURL)
	default:
		return nil, fmt.Errorf("unknown extractor %q", kind)
	}
}

// SectionExtractor returns the text of the first element matching a CSS selector.
type SectionExtractor struct {
	selector string
}

// NewSectionExtractor compiles selector, falling back to DefaultSelector when empty.
func NewSectionExtractor(selector string) (*SectionExtractor, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	// goquery silently matches nothing on a bad selector, so check it here.
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return &SectionExtractor{selector: selector}, nil
}

// Selector returns the CSS selector in use.
func (e *SectionExtractor) Selector() string {
	return e.selector
}

// Extract returns the raw text of the first match, or false when nothing matches.
func (e *SectionExtractor) Extract(body []byte) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	sel := doc.Find(e.selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// ReadabilityExtractor returns the main-content summary found by go-readability:
// the article excerpt, or the plain text of the article when there is none.
type ReadabilityExtractor struct {
	pageURL *url.URL
}

// NewReadabilityExtractor resolves relative links against pageURL.
func NewReadabilityExtractor(pageURL string) (*ReadabilityExtractor, error) {
	if pageURL == "" {
		pageURL = "http://localhost/"
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	return &ReadabilityExtractor{pageURL: u}, nil
}

// Extract reports false when go-readability finds no article text.
func (e *ReadabilityExtractor) Extract(body []byte) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), e.pageURL)
	if err != nil {
		return "", false
	}
	if excerpt := strings.TrimSpace(article.Excerpt); excerpt != "" {
		return excerpt, true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", false
	}
	content := normalizeText(doc.Text())
	if content == "" {
		return "", false
	}
	return content, true
}

// normalizeText collapses the whitespace left behind by stripped markup.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
