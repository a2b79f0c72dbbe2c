// internal/perception/availability.go
package perception

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// priceRegex matches a visible price like "$24.99", "$1,299" or "$70".
var priceRegex = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{2})?`)

// inStoreOnlyPhrases are the unambiguous statements required before we ever
// conclude in_store_only. Absence of evidence defaults to unknown, never to
// in_store_only.
var inStoreOnlyPhrases = []string{
	"sold in stores only",
	"sold in-store only",
	"not available online",
	"in-store only",
	"in store only",
	"available in store only",
	"not sold online",
	"in-store purchase only",
	"visit your local store to purchase",
}

var outOfStockPhrases = []string{
	"out of stock",
	"sold out",
	"currently unavailable",
	"no longer available",
}

// vendorSaleVocabulary covers trade-specific wording (live-animal vendors,
// classifieds) that signals a sellable item even when the logistics are
// pickup-only. These override a missing cart button.
var vendorSaleVocabulary = []string{
	"retire",
	"rehome",
	"rehoming",
	"adoption fee",
	"going-home fee",
	"going home fee",
	"ready now",
	"ready to go home",
}

var availabilityKeywords = []string{
	"in stock",
	"add to cart",
	"add to basket",
	"buy now",
	"available",
	"ships",
	"free shipping",
	"ready now",
	"adoption fee",
	"going-home fee",
}

// containsAny reports whether lower contains any of the phrases.
func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// hasVisiblePrice reports whether any price token appears in the text.
func hasVisiblePrice(text string) bool {
	return priceRegex.MatchString(text)
}

// hasAvailabilityKeyword reports whether the page advertises purchasability.
func hasAvailabilityKeyword(lower string) bool {
	return containsAny(lower, availabilityKeywords)
}

// resolveAvailability applies the availability precedence:
//  1. An explicit in-store-only statement wins over everything.
//  2. A visible price, or vendor sale vocabulary, means available_online.
//  3. An out-of-stock statement (with no price superseding it) means out_of_stock.
//  4. Otherwise unknown.
func resolveAvailability(text string) schemas.AvailabilityStatus {
	lower := strings.ToLower(text)

	if containsAny(lower, inStoreOnlyPhrases) {
		return schemas.InStoreOnly
	}
	if hasVisiblePrice(text) || containsAny(lower, vendorSaleVocabulary) {
		return schemas.AvailableOnline
	}
	if containsAny(lower, outOfStockPhrases) {
		return schemas.OutOfStock
	}
	return schemas.AvailabilityUnknown
}

// blockerPhrases map recognizable gate wording to the blocker label surfaced
// in the assessment. Order is fixed so the same page always yields the same
// blocker list.
var blockerPhrases = []struct {
	phrase string
	label  string
}{
	{"captcha", "captcha"},
	{"verify you are human", "captcha"},
	{"are you a robot", "captcha"},
	{"unusual traffic", "captcha"},
	{"access denied", "access_denied"},
	{"log in to continue", "login_wall"},
	{"sign in to continue", "login_wall"},
	{"login required", "login_wall"},
	{"must be logged in", "login_wall"},
	{"age verification", "age_gate"},
	{"confirm your age", "age_gate"},
	{"you must be 18", "age_gate"},
	{"enable javascript", "javascript_required"},
}

// detectBlockers returns the distinct blocker labels present in the text.
func detectBlockers(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var blockers []string
	for _, bp := range blockerPhrases {
		if strings.Contains(lower, bp.phrase) {
			if _, dup := seen[bp.label]; dup {
				continue
			}
			seen[bp.label] = struct{}{}
			blockers = append(blockers, bp.label)
		}
	}
	return blockers
}
