package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Decomment unwraps HTML comments so tables shipped inside <!-- --> become
// part of the document.
func Decomment(html string) string {
	return strings.NewReplacer("<!--", "", "-->", "").Replace(html)
}

// Document parses html after unwrapping comments.
func Document(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(Decomment(html)))
}

// DumpTables lists tables with ids and their first header row at debug level.
func DumpTables(log *zap.Logger, doc *goquery.Document, pageTag string) {
	if log == nil || !log.Core().Enabled(zap.DebugLevel) {
		return
	}
	doc.Find("table").Each(func(i int, t *goquery.Selection) {
		id, _ := t.Attr("id")
		var heads []string
		t.Find("thead tr").Last().Find("th,td").Each(func(_ int, h *goquery.Selection) {
			txt := strings.ToLower(strings.TrimSpace(h.Text()))
			if txt != "" {
				heads = append(heads, txt)
			}
		})
		log.Debug("table",
			zap.Int("index", i),
			zap.String("id", id),
			zap.String("class", t.AttrOr("class", "")),
			zap.String("headers", strings.Join(heads, "|")),
			zap.String("page", pageTag),
		)
	})
}
