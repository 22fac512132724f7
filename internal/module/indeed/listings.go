package indeed

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// listingPage is the enumeration of one search results page
type listingPage struct {
	// Cards is the number of result cards found, with or without an id
	Cards int
	// IDs holds unique listing ids in document order
	IDs []string
}

// parseListings enumerates result cards. The id is read from the card itself,
// falling back to the first descendant carrying the attribute.
func parseListings(document, selector, attr string) (listingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return listingPage{}, fmt.Errorf("parse search page: %w", err)
	}

	cards := doc.Find(selector)
	page := listingPage{Cards: cards.Length()}
	seen := make(map[string]bool, page.Cards)

	cards.Each(func(_ int, card *goquery.Selection) {
		id, ok := card.Attr(attr)
		if !ok {
			id, ok = card.Find("[" + attr + "]").First().Attr(attr)
		}
		id = strings.TrimSpace(id)
		if !ok || id == "" || seen[id] {
			return
		}
		seen[id] = true
		page.IDs = append(page.IDs, id)
	})

	return page, nil
}
