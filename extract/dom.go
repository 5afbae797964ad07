package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/channelscout/models"
)

// ListHandles scans listing HTML for channel handles: elements matching the
// HandleText selector whose trimmed text begins with "@", in DOM order.
// An empty result is not an error; the page may legitimately list nothing.
func (e *Extractor) ListHandles(listingHTML string) []models.Handle {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return nil
	}

	var handles []models.Handle
	doc.Find(e.sel.HandleText).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, "@") {
			handles = append(handles, models.Handle(text))
		}
	})
	return handles
}

var bodySel = cascadia.MustCompile("body")

// ContainsSentinel reports whether the rendered body text contains the
// sentinel literal. The target sites signal conditions like "No data found"
// as plain text rather than anything structured.
func ContainsSentinel(pageHTML, sentinel string) bool {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return false
	}

	var b strings.Builder
	for _, body := range cascadia.QueryAll(doc, bodySel) {
		collectText(body, &b)
	}
	return strings.Contains(b.String(), sentinel)
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
