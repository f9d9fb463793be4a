// Package extract turns scraped markup into ordered price facts.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/openkiosk/priceboard/internal/model"
)

// Selectors locates the repeating fact pattern and the single quote block
// within the source page.
type Selectors struct {
	Fact        string // repeating wrapper, one per fact
	Figure      string // numeric text inside a wrapper
	Description string // label text inside a wrapper
	Quote       string // single shared text block, selected once per page
}

var reWhitespace = regexp.MustCompile(`\s+`)

// normalizeText collapses runs of whitespace; scraped markup is full of
// layout newlines.
func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// Extract parses markup and returns one PriceFact per fact wrapper, in
// document order, with OrderID dense from 1. The page's quote is attached
// identically to every fact. CreatedAt is left zero; the store assigns it
// at persistence time.
//
// Malformed content degrades per record: a missing or non-numeric figure
// becomes NaN and a missing description becomes the empty string. Zero
// wrappers yield an empty slice, not an error.
func Extract(markup string, sel Selectors) ([]model.PriceFact, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse markup")
	}

	quote := normalizeText(doc.Find(sel.Quote).First().Text())

	var facts []model.PriceFact
	doc.Find(sel.Fact).Each(func(i int, wrapper *goquery.Selection) {
		figureText := normalizeText(wrapper.Find(sel.Figure).First().Text())
		figure, parseErr := strconv.ParseFloat(figureText, 64)
		if parseErr != nil {
			figure = math.NaN()
		}

		facts = append(facts, model.PriceFact{
			OrderID:     i + 1,
			Figure:      figure,
			Description: normalizeText(wrapper.Find(sel.Description).First().Text()),
			Quote:       quote,
		})
	})

	return facts, nil
}

// SentinelCount reports how many facts carry the NaN figure sentinel.
// Logged per run so markup drift on the source page is visible.
func SentinelCount(facts []model.PriceFact) int {
	n := 0
	for _, f := range facts {
		if math.IsNaN(f.Figure) {
			n++
		}
	}
	return n
}
