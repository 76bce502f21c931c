package transfermarkt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reNotNumber = regexp.MustCompile(`[^\d.]`)

// Listing is one row of the market value table.
type Listing struct {
	Name  string
	Value *float64 // millions of euros; nil when the cell is blank
}

// ParseListings reads table.items rows in page order.
func ParseListings(html string) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	table := doc.Find("table.items").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no player table found")
	}
	var out []Listing
	table.Find("tr.odd, tr.even").Each(func(_ int, tr *goquery.Selection) {
		nameTag := tr.Find("td.hauptlink a").First()
		valueTag := tr.Find("td.rechts.hauptlink").First()
		if nameTag.Length() == 0 || valueTag.Length() == 0 {
			return
		}
		name := strings.TrimSpace(nameTag.Text())
		if name == "" {
			return
		}
		l := Listing{Name: name}
		if v, ok := ParseValue(valueTag.Text()); ok {
			l.Value = &v
		}
		out = append(out, l)
	})
	return out, nil
}

// ParseValue converts "€50.00m", "€500k" or "€1.20bn" to millions of euros.
func ParseValue(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	digits := reNotNumber.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "k"):
		v /= 1000
	case strings.Contains(lower, "bn"):
		v *= 1000
	}
	return v, true
}
