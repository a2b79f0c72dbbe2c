// internal/perception/interpreter.go
// Package perception turns raw browser signals into a structured, goal-filtered
// PageUnderstanding. It is a pure transform: no browser access, no stored
// state, and it never fails; unreadable input becomes an error-typed snapshot.
package perception

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// Interpreter implements the PERCEIVE step.
type Interpreter struct {
	logger *zap.Logger
}

// NewInterpreter creates a page interpreter.
func NewInterpreter(logger *zap.Logger) *Interpreter {
	return &Interpreter{logger: logger.Named("page_interpreter")}
}

// Interpret builds a PageUnderstanding from one capture. OCR text backs up the
// DOM when the DOM yields nothing (canvas-rendered or image-heavy pages).
func (i *Interpreter) Interpret(signals schemas.RawSignals, goal string) schemas.PageUnderstanding {
	root := parseDOM(signals.DOM)
	if root == nil && strings.TrimSpace(signals.OCRText) == "" {
		i.logger.Warn("Unreadable page capture", zap.String("url", signals.URL))
		return schemas.PageUnderstanding{
			URL:      signals.URL,
			PageType: schemas.PageTypeError,
			Assessment: schemas.Assessment{
				ContentQuality:     0,
				AvailabilityStatus: schemas.AvailabilityUnknown,
			},
		}
	}

	var text string
	var surfaced []surfacedElement
	if root != nil {
		text = documentText(root)
		surfaced = collectElements(root)
	}
	if strings.TrimSpace(text) == "" {
		text = signals.OCRText
	}

	terms := GoalTerms(goal)
	lower := strings.ToLower(text)

	blockers := detectBlockers(text)
	availability := resolveAvailability(text)
	pageType := classifyPageType(signals.URL, lower, blockers)

	// Content-first override: if the page already shows enough goal signal,
	// surface extractable items no matter what the page classified as. This
	// is what keeps the agent from navigating forever on prose-style sites
	// that present matches in running text.
	goalMatch := MatchesGoal(text, terms)
	priceVisible := hasVisiblePrice(text)
	availKeyword := hasAvailabilityKeyword(lower)
	signalCount := 0
	for _, present := range []bool{goalMatch, priceVisible, availKeyword} {
		if present {
			signalCount++
		}
	}
	contentFirst := signalCount >= 2

	elementItems := buildElementItems(surfaced)

	var productItems []schemas.Item
	if pageTypeCarriesProducts(pageType) || contentFirst {
		productItems = buildProductItems(text, availability)
		linkProducts(productItems, elementItems)
	}

	understanding := schemas.PageUnderstanding{
		URL:      signals.URL,
		PageType: pageType,
		Assessment: schemas.Assessment{
			HasTargetContent:   contentFirst || (goalMatch && len(productItems) > 0),
			ContentQuality:     scoreContentQuality(len(productItems), goalMatch, len(text)),
			Blockers:           blockers,
			AvailabilityStatus: availability,
		},
	}

	if len(productItems) > 0 {
		understanding.Sections = append(understanding.Sections, schemas.Section{
			ID:          "sec-products",
			SectionType: "product_listings",
			Purpose:     "candidate items matching the extraction goal",
			Items:       productItems,
		})
	}
	if len(elementItems) > 0 {
		understanding.Sections = append(understanding.Sections, schemas.Section{
			ID:          "sec-elements",
			SectionType: "interactive_elements",
			Purpose:     "navigation and form controls available on this page",
			Items:       elementItems,
		})
	}
	if noticeItems := buildNoticeItems(lower, blockers); len(noticeItems) > 0 {
		understanding.Sections = append(understanding.Sections, schemas.Section{
			ID:          "sec-notices",
			SectionType: "notices",
			Purpose:     "availability and gating statements on this page",
			Items:       noticeItems,
		})
	}
	if excerpt := textExcerpt(text); excerpt != "" {
		understanding.Sections = append(understanding.Sections, schemas.Section{
			ID:          "sec-text",
			SectionType: "page_text",
			Purpose:     "visible text for goal and verification matching",
			Items: []schemas.Item{
				{ID: "txt-1", ItemType: schemas.ItemTypeText, Text: excerpt},
			},
		})
	}

	i.logger.Debug("Interpreted page",
		zap.String("url", signals.URL),
		zap.String("page_type", string(pageType)),
		zap.Int("products", len(productItems)),
		zap.Int("elements", len(elementItems)),
		zap.Bool("content_first", contentFirst),
		zap.String("availability", string(understanding.Assessment.AvailabilityStatus)),
	)
	return understanding
}

// pageTypeCarriesProducts reports whether product candidates are expected for
// the classified page type (the content-first rule bypasses this gate).
func pageTypeCarriesProducts(pt schemas.PageType) bool {
	switch pt {
	case schemas.PageTypeListing, schemas.PageTypePDP, schemas.PageTypeSearch:
		return true
	}
	return false
}

// classifyPageType combines URL shape and page text markers. Blockers win
// outright; URL hints beat text heuristics.
func classifyPageType(url, lower string, blockers []string) schemas.PageType {
	if len(blockers) > 0 {
		return schemas.PageTypeBlocked
	}
	if strings.Contains(lower, "page not found") || strings.Contains(lower, "404 error") {
		return schemas.PageTypeError
	}

	urlLower := strings.ToLower(url)
	switch {
	case strings.Contains(urlLower, "/search") || strings.Contains(urlLower, "?q=") || strings.Contains(urlLower, "&q=") || strings.Contains(urlLower, "?query="):
		return schemas.PageTypeSearch
	case strings.Contains(urlLower, "/product/") || strings.Contains(urlLower, "/p/") || strings.Contains(urlLower, "/dp/") || strings.Contains(urlLower, "/item/"):
		return schemas.PageTypePDP
	case strings.Contains(urlLower, "/category") || strings.Contains(urlLower, "/collections") || strings.Contains(urlLower, "/shop") || strings.Contains(urlLower, "/c/"):
		return schemas.PageTypeListing
	case strings.Contains(urlLower, "/blog/") || strings.Contains(urlLower, "/article") || strings.Contains(urlLower, "/news/"):
		return schemas.PageTypeArticle
	}

	priceCount := len(priceRegex.FindAllString(lower, -1))
	switch {
	case priceCount >= 3:
		return schemas.PageTypeListing
	case priceCount >= 1 && (strings.Contains(lower, "add to cart") || strings.Contains(lower, "add to basket") || strings.Contains(lower, "buy now")):
		return schemas.PageTypePDP
	case isRootURL(url):
		return schemas.PageTypeHomepage
	case len(lower) > 600:
		return schemas.PageTypeArticle
	}
	return schemas.PageTypeUnknown
}

// isRootURL reports whether the URL has no meaningful path component.
func isRootURL(url string) bool {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	slash := strings.Index(trimmed, "/")
	if slash == -1 {
		return true
	}
	path := strings.Trim(trimmed[slash:], "/")
	return path == ""
}

// buildElementItems converts surfaced elements into Items with snapshot-scoped IDs.
func buildElementItems(surfaced []surfacedElement) []schemas.Item {
	items := make([]schemas.Item, 0, len(surfaced))
	for idx, el := range surfaced {
		items = append(items, schemas.Item{
			ID:       fmt.Sprintf("el-%d", idx+1),
			ItemType: schemas.ItemTypeElement,
			Element: &schemas.ElementContent{
				ElementType: el.elementType,
				Text:        el.text,
				Href:        el.href,
				Selector:    el.selector,
			},
		})
	}
	return items
}

// buildProductItems converts product candidates into Items. Each inherits the
// page-level availability; per-item wording is rare enough that the page
// assessment is the better signal.
func buildProductItems(text string, availability schemas.AvailabilityStatus) []schemas.Item {
	candidates := extractProducts(text)
	items := make([]schemas.Item, 0, len(candidates))
	for idx, cand := range candidates {
		items = append(items, schemas.Item{
			ID:       fmt.Sprintf("prod-%d", idx+1),
			ItemType: schemas.ItemTypeProduct,
			Product: &schemas.ProductContent{
				Name:         cand.name,
				Price:        cand.price,
				Availability: availability,
			},
		})
	}
	return items
}

// buildNoticeItems surfaces gating and availability statements as notices.
func buildNoticeItems(lower string, blockers []string) []schemas.Item {
	var items []schemas.Item
	next := 1
	for _, b := range blockers {
		items = append(items, schemas.Item{
			ID:       fmt.Sprintf("not-%d", next),
			ItemType: schemas.ItemTypeNotice,
			Notice:   &schemas.NoticeContent{Message: b, NoticeType: schemas.NoticeBlocker},
		})
		next++
	}
	for _, phrase := range inStoreOnlyPhrases {
		if strings.Contains(lower, phrase) {
			items = append(items, schemas.Item{
				ID:       fmt.Sprintf("not-%d", next),
				ItemType: schemas.ItemTypeNotice,
				Notice:   &schemas.NoticeContent{Message: phrase, NoticeType: schemas.NoticeAvailability},
			})
			next++
			break
		}
	}
	return items
}

// scoreContentQuality produces the coarse [0,1] quality signal the oracle and
// classifier see. It only needs to separate "rich, goal-relevant page" from
// "thin or irrelevant page".
func scoreContentQuality(productCount int, goalMatch bool, textLen int) float64 {
	score := 0.0
	if textLen > 200 {
		score += 0.2
	}
	if productCount > 0 {
		score += 0.3
	}
	if productCount >= 3 {
		score += 0.1
	}
	if goalMatch {
		score += 0.4
	}
	if score > 1 {
		score = 1
	}
	return score
}

// textExcerpt bounds the visible text carried in the snapshot.
func textExcerpt(text string) string {
	const maxExcerpt = 4000
	text = strings.TrimSpace(text)
	if len(text) > maxExcerpt {
		return text[:maxExcerpt]
	}
	return text
}
