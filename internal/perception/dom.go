// internal/perception/dom.go
package perception

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// surfacedElement is an interactive element found in the DOM, before it is
// assigned a snapshot-scoped item ID.
type surfacedElement struct {
	elementType string
	text        string
	href        string
	selector    string
}

// parseDOM parses the serialized DOM. A nil return means the capture was
// unreadable.
func parseDOM(dom string) *html.Node {
	if strings.TrimSpace(dom) == "" {
		return nil
	}
	root, err := html.Parse(strings.NewReader(dom))
	if err != nil {
		return nil
	}
	return root
}

// collectElements walks the DOM and surfaces every interactive element worth
// offering to the oracle: links, buttons, text inputs, submit controls, and
// anything carrying role=button.
func collectElements(root *html.Node) []surfacedElement {
	var elements []surfacedElement

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if el, ok := classifyElement(n); ok {
				elements = append(elements, el)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return elements
}

// classifyElement decides whether a node is interactive and builds its
// surfaced form.
func classifyElement(n *html.Node) (surfacedElement, bool) {
	attrs := attrMap(n)

	switch n.Data {
	case "a":
		text := strings.TrimSpace(nodeText(n))
		if text == "" && attrs["aria-label"] != "" {
			text = attrs["aria-label"]
		}
		if text == "" {
			return surfacedElement{}, false
		}
		return surfacedElement{
			elementType: "link",
			text:        text,
			href:        attrs["href"],
			selector:    cssSelector(n),
		}, true
	case "button":
		text := strings.TrimSpace(nodeText(n))
		if text == "" {
			text = attrs["aria-label"]
		}
		return surfacedElement{
			elementType: "button",
			text:        text,
			selector:    cssSelector(n),
		}, true
	case "input":
		switch attrs["type"] {
		case "submit", "button":
			return surfacedElement{
				elementType: "button",
				text:        attrs["value"],
				selector:    cssSelector(n),
			}, true
		case "text", "search", "email", "":
			return surfacedElement{
				elementType: "input",
				text:        firstNonEmpty(attrs["placeholder"], attrs["name"], attrs["aria-label"]),
				selector:    cssSelector(n),
			}, true
		}
	case "select":
		return surfacedElement{
			elementType: "select",
			text:        firstNonEmpty(attrs["name"], attrs["aria-label"]),
			selector:    cssSelector(n),
		}, true
	default:
		if attrs["role"] == "button" {
			return surfacedElement{
				elementType: "button",
				text:        strings.TrimSpace(nodeText(n)),
				selector:    cssSelector(n),
			}, true
		}
	}
	return surfacedElement{}, false
}

// cssSelector builds a stable selector for the node: the element ID when one
// exists, otherwise a tag:nth-of-type path from the nearest ID'd ancestor
// (or the document root).
func cssSelector(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		attrs := attrMap(cur)
		if id := attrs["id"]; id != "" {
			parts = append(parts, "#"+id)
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
		if cur.Data == "body" || cur.Data == "html" {
			break
		}
	}
	// The path was collected leaf-first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// nthOfType returns the node's 1-based position among same-tag siblings.
func nthOfType(n *html.Node) int {
	pos := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			pos++
		}
	}
	return pos
}

// nodeText flattens all text beneath a node, skipping script and style.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteString(" ")
			return
		}
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style" || c.Data == "noscript") {
			return
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// documentText extracts the page's visible text from the body.
func documentText(root *html.Node) string {
	body := findFirst(root, "body")
	if body == nil {
		body = root
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "p", "li", "h1", "h2", "h3", "h4", "div", "td", "tr", "article", "section":
				// Block-level boundaries become line breaks so price/name
				// proximity survives flattening.
				if text := directText(n); text != "" {
					lines = append(lines, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	if len(lines) == 0 {
		return nodeText(body)
	}
	return strings.Join(lines, "\n")
}

// directText returns the text directly inside a node and its inline children,
// stopping at nested block elements so each block yields its own line.
func directText(n *html.Node) string {
	var sb strings.Builder
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteString(" ")
			return
		}
		if c.Type == html.ElementNode {
			switch c.Data {
			case "script", "style", "noscript", "p", "li", "h1", "h2", "h3", "h4", "div", "td", "tr", "article", "section", "table", "ul", "ol":
				return
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// findFirst returns the first element with the given tag.
func findFirst(root *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
