// Package schemas defines the shared contract types for scout-cli. Every
// cross-package boundary (perception, decision, execution, knowledge, results)
// speaks in these types, so the individual components stay decoupled from each
// other's internals.
package schemas

import (
	"fmt"
	"time"
)

// -- Page Understanding --

// PageType classifies what kind of page the interpreter believes it is
// looking at. The classification steers the decision oracle and the result
// classifier, but never gates extraction on its own (see the content-first
// rule in the interpreter).
type PageType string

const (
	PageTypeListing  PageType = "listing"  // A multi-product catalog or category page.
	PageTypePDP      PageType = "pdp"      // A single product detail page.
	PageTypeSearch   PageType = "search"   // A search form or search results page.
	PageTypeHomepage PageType = "homepage" // A vendor landing page.
	PageTypeArticle  PageType = "article"  // Prose content (blog posts, breeder pages, classifieds).
	PageTypeError    PageType = "error"    // The page (or its capture) is broken.
	PageTypeBlocked  PageType = "blocked"  // A CAPTCHA, login wall, or similar gate.
	PageTypeUnknown  PageType = "unknown"  // Nothing recognizable.
)

// ItemType distinguishes the payload variants an Item can carry.
type ItemType string

const (
	ItemTypeElement ItemType = "element" // An interactive element (link, button, input).
	ItemTypeProduct ItemType = "product" // A candidate product with name/price.
	ItemTypeText    ItemType = "text"    // Goal-relevant free text.
	ItemTypeNotice  ItemType = "notice"  // A site notice (availability, shipping, gating).
)

// AvailabilityStatus captures whether goal items on the page can actually be
// obtained online. The interpreter resolves this with a strict precedence;
// absence of evidence is always "unknown", never "in_store_only".
type AvailabilityStatus string

const (
	AvailableOnline     AvailabilityStatus = "available_online"
	InStoreOnly         AvailabilityStatus = "in_store_only"
	OutOfStock          AvailabilityStatus = "out_of_stock"
	AvailabilityUnknown AvailabilityStatus = "unknown"
)

// NoticeType labels the flavor of a notice item.
type NoticeType string

const (
	NoticeAvailability NoticeType = "availability"
	NoticeShipping     NoticeType = "shipping"
	NoticeBlocker      NoticeType = "blocker"
	NoticeGeneric      NoticeType = "generic"
)

// ElementContent describes an interactive element surfaced by the interpreter.
// The Selector is the handle the browser driver uses to act on it.
type ElementContent struct {
	ElementType string `json:"element_type"` // "link", "button", "input", "select"
	Text        string `json:"text"`
	Href        string `json:"href,omitempty"`
	Selector    string `json:"selector"`
}

// ProductContent describes a candidate product found on the page.
// ClickableID, when set, references an element Item in the same snapshot.
type ProductContent struct {
	Name         string             `json:"name"`
	Price        string             `json:"price,omitempty"`
	Availability AvailabilityStatus `json:"availability,omitempty"`
	ClickableID  string             `json:"clickable_id,omitempty"`
}

// NoticeContent carries a site notice verbatim.
type NoticeContent struct {
	Message    string     `json:"message"`
	NoticeType NoticeType `json:"notice_type"`
}

// Item is one entry inside a Section. Exactly one of the content fields is
// populated, selected by ItemType.
type Item struct {
	ID       string          `json:"id"`
	ItemType ItemType        `json:"item_type"`
	Element  *ElementContent `json:"element,omitempty"`
	Product  *ProductContent `json:"product,omitempty"`
	Text     string          `json:"text,omitempty"`
	Notice   *NoticeContent  `json:"notice,omitempty"`
}

// Section groups related items with a free-form label chosen by the
// interpreter (e.g. "product_listings", "sort_controls") and a short note on
// why the section matters for the goal.
type Section struct {
	ID          string `json:"id"`
	SectionType string `json:"section_type"`
	Purpose     string `json:"purpose,omitempty"`
	Items       []Item `json:"items"`
}

// Assessment is the interpreter's goal-level judgment of the page.
type Assessment struct {
	HasTargetContent   bool               `json:"has_target_content"`
	ContentQuality     float64            `json:"content_quality"` // [0,1]
	Blockers           []string           `json:"blockers,omitempty"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
}

// PageUnderstanding is a goal-filtered snapshot of one page: what is on it,
// what can be interacted with, and whether it looks like it can satisfy the
// goal. It is the sole input the oracle sees about the live page.
type PageUnderstanding struct {
	URL        string     `json:"url"`
	PageType   PageType   `json:"page_type"`
	Sections   []Section  `json:"sections"`
	Assessment Assessment `json:"assessment"`
}

// FindItem looks up an item by its snapshot-scoped ID across all sections.
// It returns nil when no item carries the ID.
func (u *PageUnderstanding) FindItem(id string) *Item {
	for si := range u.Sections {
		items := u.Sections[si].Items
		for ii := range items {
			if items[ii].ID == id {
				return &items[ii]
			}
		}
	}
	return nil
}

// VisibleText flattens the snapshot's textual content for keyword checks.
// Verification (mustSee matching) runs against this, not the raw DOM.
func (u *PageUnderstanding) VisibleText() string {
	var out string
	for _, sec := range u.Sections {
		for _, item := range sec.Items {
			switch item.ItemType {
			case ItemTypeElement:
				if item.Element != nil {
					out += item.Element.Text + "\n"
				}
			case ItemTypeProduct:
				if item.Product != nil {
					out += item.Product.Name + " " + item.Product.Price + "\n"
				}
			case ItemTypeText:
				out += item.Text + "\n"
			case ItemTypeNotice:
				if item.Notice != nil {
					out += item.Notice.Message + "\n"
				}
			}
		}
	}
	return out
}

// -- Decisions --

// DecisionAction enumerates every move the oracle may request.
type DecisionAction string

const (
	ActionClick       DecisionAction = "click"
	ActionType        DecisionAction = "type"
	ActionScroll      DecisionAction = "scroll"
	ActionExtract     DecisionAction = "extract"
	ActionFinish      DecisionAction = "finish"
	ActionRequestHelp DecisionAction = "request_help"
)

// ExpectedState is the oracle's prediction of what the page should look like
// after the action. Verification checks MustSee terms against the next
// snapshot's visible text.
type ExpectedState struct {
	PageType PageType `json:"page_type,omitempty"`
	MustSee  []string `json:"must_see,omitempty"`
}

// Decision is the oracle's structured output for a single step.
type Decision struct {
	Action        DecisionAction `json:"action"`
	TargetID      string         `json:"target_id,omitempty"`
	InputText     string         `json:"input_text,omitempty"`
	ExpectedState ExpectedState  `json:"expected_state"`
	Confidence    float64        `json:"confidence"`
	Reasoning     string         `json:"reasoning"`
}

// Validate enforces the decision schema: click/type need a target, type needs
// input text, and confidence must be a probability. A decision that fails here
// is treated as a malformed oracle response, never silently repaired.
func (d *Decision) Validate() error {
	switch d.Action {
	case ActionClick:
		if d.TargetID == "" {
			return fmt.Errorf("click decision missing target_id")
		}
	case ActionType:
		if d.TargetID == "" {
			return fmt.Errorf("type decision missing target_id")
		}
		if d.InputText == "" {
			return fmt.Errorf("type decision missing input_text")
		}
	case ActionScroll, ActionExtract, ActionFinish, ActionRequestHelp:
		// No required parameters.
	default:
		return fmt.Errorf("unknown decision action %q", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0,1]", d.Confidence)
	}
	return nil
}

// ActionRecord is one executed step. Records are appended after verification
// and never mutated; the stuck detector and the intervention report both read
// from this history.
type ActionRecord struct {
	URL       string    `json:"url"`
	Decision  Decision  `json:"decision"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// -- Results --

// Determination is the terminal classification code explaining why a
// navigation session ended. It deliberately separates "nothing matched"
// (valid evidence) from "something broke".
type Determination string

const (
	ProductsFound        Determination = "products_found"
	NoRelevantProducts   Determination = "no_relevant_products"
	NoOnlineAvailability Determination = "no_online_availability"
	WrongPageType        Determination = "wrong_page_type"
	DeterminationBlocked Determination = "blocked"
	DeterminationError   Determination = "error"
)

// ExtractedItem is the domain payload of a successful extraction. The
// navigation core treats it as opaque beyond the name used for goal matching.
type ExtractedItem struct {
	Name         string             `json:"name"`
	Price        string             `json:"price,omitempty"`
	URL          string             `json:"url,omitempty"`
	Availability AvailabilityStatus `json:"availability,omitempty"`
	Notes        string             `json:"notes,omitempty"`
}

// WebAgentResult is the single typed result of one navigate call.
type WebAgentResult struct {
	Items         []ExtractedItem `json:"items,omitempty"`
	Determination Determination   `json:"determination"`
	Reason        string          `json:"reason,omitempty"`
	PageType      PageType        `json:"page_type,omitempty"`
	ItemsSeen     int             `json:"items_seen"`
}

// Validate enforces the round-trip invariant: products_found carries items,
// every other determination carries none.
func (r *WebAgentResult) Validate() error {
	if r.Determination == ProductsFound && len(r.Items) == 0 {
		return fmt.Errorf("products_found with empty items")
	}
	if r.Determination != ProductsFound && len(r.Items) > 0 {
		return fmt.Errorf("%s with %d items (must be empty)", r.Determination, len(r.Items))
	}
	return nil
}

// -- Interventions --

// InterventionType labels why the agent escalated.
type InterventionType string

const (
	InterventionStuck            InterventionType = "stuck"
	InterventionBlocked          InterventionType = "blocked"
	InterventionExtractionFailed InterventionType = "extraction_failed"
)

// Intervention is the structured escalation record handed off for human
// resolution. The agent emits at most one per session and never blocks
// waiting for it to be resolved.
type Intervention struct {
	ID                string             `json:"id"`
	InterventionType  InterventionType   `json:"intervention_type"`
	URL               string             `json:"url"`
	ScreenshotRef     string             `json:"screenshot_ref,omitempty"`
	ActionHistory     []ActionRecord     `json:"action_history"`
	LastUnderstanding *PageUnderstanding `json:"last_understanding,omitempty"`
	SuggestedAction   string             `json:"suggested_action"`
	Timestamp         time.Time          `json:"timestamp"`
}

// -- Site Knowledge --

// ActionOutcome aggregates how one action pattern has fared on a domain.
// Frequency only increments; SuccessRate is recomputed as successes/attempts.
type ActionOutcome struct {
	Goal        string         `json:"goal"`
	Action      DecisionAction `json:"action"`
	TargetText  string         `json:"target_text,omitempty"`
	TargetType  string         `json:"target_type,omitempty"`
	Frequency   int            `json:"frequency"`
	SuccessRate float64        `json:"success_rate"`
}

// FailedAction records one pattern that did not work, with the reason the
// verification gave.
type FailedAction struct {
	Goal       string         `json:"goal"`
	Action     DecisionAction `json:"action"`
	TargetText string         `json:"target_text,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// SiteKnowledge is the learned, per-domain navigation history. It is loaded
// at session start, passed read-only into every decision, and merged back
// additively at each step.
type SiteKnowledge struct {
	Domain            string          `json:"domain"`
	SuccessfulActions []ActionOutcome `json:"successful_actions,omitempty"`
	FailedActions     []FailedAction  `json:"failed_actions,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at,omitempty"`
}

// -- Raw Signals --

// RawSignals is everything the browser driver can tell us about the current
// page in one capture. The interpreter is the only consumer.
type RawSignals struct {
	URL        string `json:"url"`
	DOM        string `json:"dom"`
	OCRText    string `json:"ocr_text,omitempty"`
	Screenshot []byte `json:"-"`
}
