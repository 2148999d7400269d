package tedxml

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// node is a namespace-agnostic XML element.
type node struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*node
}

// parseTree decodes a whole document. Non-UTF-8 encodings declared in the
// prolog (TED packages used ISO-8859-1 for years) are converted.
func parseTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	root := &node{name: "#document"}
	stack := []*node{root}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		}
	}
	return root, nil
}

// find returns every element reached by following path from n. A "*"
// step matches any element name.
func (n *node) find(path ...string) []*node {
	current := []*node{n}
	for _, step := range path {
		var next []*node
		for _, c := range current {
			for _, child := range c.children {
				if step == "*" || child.name == step {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// findFirst is find limited to the first match.
func (n *node) findFirst(path ...string) *node {
	if found := n.find(path...); len(found) > 0 {
		return found[0]
	}
	return nil
}

// descendants returns every element named name below n, depth first.
func (n *node) descendants(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, c.descendants(name)...)
	}
	return out
}

// content is the whitespace-collapsed text of n and all its descendants.
func (n *node) content() string {
	var parts []string
	var walk func(*node)
	walk = func(x *node) {
		if s := strings.TrimSpace(x.text.String()); s != "" {
			parts = append(parts, s)
		}
		for _, c := range x.children {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func (n *node) attr(name string) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.attrs[name])
}
