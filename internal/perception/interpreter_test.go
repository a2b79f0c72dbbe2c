// internal/perception/interpreter_test.go
package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

const listingDOM = `<html><body>
<h1>Hamsters for sale</h1>
<div><a id="rob" href="/product/roborovski">Roborovski Dwarf Hamster</a><p>Roborovski Dwarf Hamster $24.99</p></div>
<div><a id="syr" href="/product/syrian">Syrian Hamster</a><p>Syrian Hamster $21.99</p></div>
<div><a id="win" href="/product/winter-white">Winter White Hamster</a><p>Winter White Hamster $27.99</p></div>
<button id="next-page">Next page</button>
</body></html>`

func TestInterpretListingPage(t *testing.T) {
	interp := NewInterpreter(zaptest.NewLogger(t))

	pu := interp.Interpret(schemas.RawSignals{
		URL: "https://pets.example.com/category/hamsters",
		DOM: listingDOM,
	}, "find the cheapest hamster available online")

	assert.Equal(t, schemas.PageTypeListing, pu.PageType)
	assert.True(t, pu.Assessment.HasTargetContent)
	assert.Equal(t, schemas.AvailableOnline, pu.Assessment.AvailabilityStatus)
	assert.Empty(t, pu.Assessment.Blockers)
	assert.Greater(t, pu.Assessment.ContentQuality, 0.5)

	var products, elements []schemas.Item
	for _, sec := range pu.Sections {
		switch sec.SectionType {
		case "product_listings":
			products = sec.Items
		case "interactive_elements":
			elements = sec.Items
		}
	}
	require.Len(t, products, 3)
	assert.Equal(t, "Roborovski Dwarf Hamster", products[0].Product.Name)
	assert.Equal(t, "$24.99", products[0].Product.Price)
	require.NotEmpty(t, elements)

	// Every clickable_id must resolve to an element item of the same snapshot.
	for _, p := range products {
		if p.Product.ClickableID == "" {
			continue
		}
		linked := pu.FindItem(p.Product.ClickableID)
		require.NotNil(t, linked, "dangling clickable_id %s", p.Product.ClickableID)
		assert.Equal(t, schemas.ItemTypeElement, linked.ItemType)
	}
}

func TestInterpretContentFirstArticle(t *testing.T) {
	// A breeder's prose page: no cart, no listing layout, but a goal match,
	// a price, and sale vocabulary. Two or more of those signals must force
	// extractable items so the agent does not keep navigating.
	interp := NewInterpreter(zaptest.NewLogger(t))

	pu := interp.Interpret(schemas.RawSignals{
		URL: "https://hamsterhaven.example.com/blog/august-litters",
		DOM: `<html><body><article>
<h1>August litters</h1>
<p>Our Syrian Hamster girls are ready now.</p>
<p>Syrian Hamster - $70</p>
<p>Contact us to arrange pickup.</p>
</article></body></html>`,
	}, "find hamsters for sale")

	assert.Equal(t, schemas.PageTypeArticle, pu.PageType)
	assert.True(t, pu.Assessment.HasTargetContent, "content-first heuristic must fire")
	assert.Equal(t, schemas.AvailableOnline, pu.Assessment.AvailabilityStatus)

	var products []schemas.Item
	for _, sec := range pu.Sections {
		if sec.SectionType == "product_listings" {
			products = sec.Items
		}
	}
	require.NotEmpty(t, products, "article pages with strong signals still surface products")
	assert.Equal(t, "Syrian Hamster", products[0].Product.Name)
	assert.Equal(t, "$70", products[0].Product.Price)
}

func TestInterpretBlockedPage(t *testing.T) {
	interp := NewInterpreter(zaptest.NewLogger(t))

	pu := interp.Interpret(schemas.RawSignals{
		URL: "https://pets.example.com/search?q=hamster",
		DOM: `<html><body><p>Please verify you are human before continuing.</p></body></html>`,
	}, "find hamsters")

	assert.Equal(t, schemas.PageTypeBlocked, pu.PageType)
	assert.Equal(t, []string{"captcha"}, pu.Assessment.Blockers)
	assert.False(t, pu.Assessment.HasTargetContent)
}

func TestInterpretCorruptSignals(t *testing.T) {
	interp := NewInterpreter(zaptest.NewLogger(t))

	pu := interp.Interpret(schemas.RawSignals{URL: "https://pets.example.com/"}, "find hamsters")

	assert.Equal(t, schemas.PageTypeError, pu.PageType)
	assert.Zero(t, pu.Assessment.ContentQuality)
	assert.Empty(t, pu.Sections)
	assert.Equal(t, schemas.AvailabilityUnknown, pu.Assessment.AvailabilityStatus)
}

func TestInterpretOCRFallback(t *testing.T) {
	// Canvas-rendered storefront: empty DOM body, availability only visible
	// in the rendered pixels.
	interp := NewInterpreter(zaptest.NewLogger(t))

	pu := interp.Interpret(schemas.RawSignals{
		URL:     "https://pets.example.com/product/roborovski",
		DOM:     "<html><body></body></html>",
		OCRText: "Roborovski Dwarf Hamster\n$24.99\nAdd to cart",
	}, "find the cheapest hamster")

	assert.Equal(t, schemas.PageTypePDP, pu.PageType)
	assert.Equal(t, schemas.AvailableOnline, pu.Assessment.AvailabilityStatus)
	assert.True(t, pu.Assessment.HasTargetContent)
}

func TestInterpretHomepage(t *testing.T) {
	interp := NewInterpreter(zaptest.NewLogger(t))

	pu := interp.Interpret(schemas.RawSignals{
		URL: "https://pets.example.com/",
		DOM: `<html><body><a href="/category/hamsters">Small animals</a><a href="/category/dogs">Dogs</a></body></html>`,
	}, "find hamsters")

	assert.Equal(t, schemas.PageTypeHomepage, pu.PageType)

	var elements []schemas.Item
	for _, sec := range pu.Sections {
		if sec.SectionType == "interactive_elements" {
			elements = sec.Items
		}
	}
	require.Len(t, elements, 2)
	assert.Equal(t, "el-1", elements[0].ID)
	assert.Equal(t, "link", elements[0].Element.ElementType)
	assert.NotEmpty(t, elements[0].Element.Selector)
}
