// internal/perception/products.go
package perception

import (
	"strings"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// productCandidate is a potential product lifted from page text before it is
// assigned an item ID or linked to a clickable element.
type productCandidate struct {
	name  string
	price string
}

// maxNameLen keeps boilerplate paragraphs from being mistaken for a product
// name just because a price appears in them.
const maxNameLen = 120

// extractProducts scans line-oriented page text for name/price pairs. A line
// with a price and some surrounding words is a candidate; a bare price line
// adopts the nearest preceding text line as its name.
func extractProducts(text string) []productCandidate {
	var products []productCandidate
	seen := make(map[string]struct{})

	lines := strings.Split(text, "\n")
	var prevLine string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		price := priceRegex.FindString(line)
		if price == "" {
			prevLine = line
			continue
		}

		name := strings.TrimSpace(strings.Join(strings.Fields(strings.ReplaceAll(line, price, " ")), " "))
		name = strings.Trim(name, "-–—|•:, ")
		if name == "" {
			name = prevLine
		}
		if name == "" || len(name) > maxNameLen {
			prevLine = line
			continue
		}

		key := strings.ToLower(name) + "|" + price
		if _, dup := seen[key]; dup {
			prevLine = line
			continue
		}
		seen[key] = struct{}{}
		products = append(products, productCandidate{name: name, price: price})
		prevLine = line
	}
	return products
}

// linkProducts attaches a clickable element ID to each product whose name
// overlaps an element's text, so the oracle can click through to a PDP.
func linkProducts(products []schemas.Item, elements []schemas.Item) {
	for pi := range products {
		prod := products[pi].Product
		if prod == nil {
			continue
		}
		nameLower := strings.ToLower(prod.Name)
		for _, el := range elements {
			if el.Element == nil || el.Element.Text == "" {
				continue
			}
			elText := strings.ToLower(el.Element.Text)
			if strings.Contains(nameLower, elText) || strings.Contains(elText, nameLower) {
				prod.ClickableID = el.ID
				break
			}
		}
	}
}
