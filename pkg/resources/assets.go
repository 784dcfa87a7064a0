package resources

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// assetAttrs lists the attributes that reference an asset, per element
var assetAttrs = map[atom.Atom]string{
	atom.Img:    "src",
	atom.Source: "src",
	atom.Video:  "poster",
	atom.Audio:  "src",
}

// AssetRefs returns every asset reference in markup in document order,
// without duplicates. data: URLs are skipped.
func AssetRefs(markup string) ([]string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	var refs []string
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if key, ok := assetAttrs[n.DataAtom]; ok {
				for _, attr := range n.Attr {
					if attr.Key != key || attr.Val == "" || strings.HasPrefix(attr.Val, "data:") || seen[attr.Val] {
						continue
					}
					seen[attr.Val] = true
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return refs, nil
}
