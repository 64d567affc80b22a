// Package view describes a UI as a tree of plain nodes. Views build a fresh
// tree on every render; renderers turn it into something visible.
package view

import "github.com/charmbracelet/bubbles/key"

// Node is one element of a view tree.
type Node struct {
	Tag      string
	Text     string
	Classes  []string
	Children []Node
	Keys     []Binding
	Input    *Input
}

// Binding attaches an action to a key while the node is on screen.
type Binding struct {
	Key    key.Binding
	Action func()
}

// Input is an editable single-line text field. At most one input per tree
// receives typed characters.
type Input struct {
	Value       string
	Placeholder string
	OnChange    func(string)
	OnSubmit    func(string)
}

// El returns a node with the given children.
func El(tag string, children ...Node) Node {
	return Node{Tag: tag, Children: children}
}

// Text returns a text leaf.
func Text(s string) Node {
	return Node{Tag: "text", Text: s}
}

// Class returns a copy of n with classes appended.
func (n Node) Class(classes ...string) Node {
	n.Classes = append(append([]string(nil), n.Classes...), classes...)
	return n
}

// On returns a copy of n with a key binding attached.
func (n Node) On(k key.Binding, action func()) Node {
	n.Keys = append(append([]Binding(nil), n.Keys...), Binding{Key: k, Action: action})
	return n
}

// Has reports whether n carries class c.
func (n Node) Has(c string) bool {
	for _, x := range n.Classes {
		if x == c {
			return true
		}
	}
	return false
}

// Walk calls fn for n and every descendant, depth first.
func (n Node) Walk(fn func(Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
