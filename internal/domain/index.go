package domain

import "strconv"

// Index is an id-keyed view over a tree. The tree keeps ownership through
// Children; the index only resolves ids and parent links.
type Index struct {
	root    *TreeNode
	nodes   map[string]*TreeNode
	parents map[string]string
}

// NewIndex walks root and records every node by id.
func NewIndex(root *TreeNode) *Index {
	idx := &Index{
		root:    root,
		nodes:   make(map[string]*TreeNode),
		parents: make(map[string]string),
	}
	var visit func(n *TreeNode)
	visit = func(n *TreeNode) {
		idx.nodes[n.ID] = n
		for _, c := range n.Children {
			idx.parents[c.ID] = n.ID
			visit(c)
		}
	}
	if root != nil {
		visit(root)
	}
	return idx
}

// Root returns the tree the index was built from.
func (x *Index) Root() *TreeNode {
	return x.root
}

// Get returns the node with the given id, or nil.
func (x *Index) Get(id string) *TreeNode {
	return x.nodes[id]
}

// Parent returns the parent of the node with the given id, or nil for the
// root and for unknown ids.
func (x *Index) Parent(id string) *TreeNode {
	pid, ok := x.parents[id]
	if !ok {
		return nil
	}
	return x.nodes[pid]
}

// Ancestors returns the chain from the node's parent up to the root.
func (x *Index) Ancestors(id string) []*TreeNode {
	var chain []*TreeNode
	for p := x.Parent(id); p != nil; p = x.Parent(p.ID) {
		chain = append(chain, p)
	}
	return chain
}

// Len returns the number of indexed nodes.
func (x *Index) Len() int {
	return len(x.nodes)
}

// IsDescendant reports whether id lies in the subtree rooted at ancestorID
// (a node is not its own descendant).
func (x *Index) IsDescendant(id, ancestorID string) bool {
	for _, a := range x.Ancestors(id) {
		if a.ID == ancestorID {
			return true
		}
	}
	return false
}

// Find returns the node with id in the subtree rooted at root, or nil.
func Find(root *TreeNode, id string) *TreeNode {
	var found *TreeNode
	root.Walk(func(n *TreeNode) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// RemoveChild detaches the child with id from parent, renumbering the
// remaining siblings' OrderIndex. It reports whether a child was removed.
// A parent left without children drops its DurationDays, which was derived
// from the children and is not a user value.
func RemoveChild(parent *TreeNode, id string) bool {
	for i, c := range parent.Children {
		if c.ID != id {
			continue
		}
		parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
		for j, sib := range parent.Children {
			sib.OrderIndex = j
		}
		if len(parent.Children) == 0 {
			parent.DurationDays = nil
		}
		return true
	}
	return false
}

// Leaves returns every leaf descendant of n, or n itself when it is a leaf.
func Leaves(n *TreeNode) []*TreeNode {
	var out []*TreeNode
	n.Walk(func(c *TreeNode) bool {
		if c.IsLeaf() {
			out = append(out, c)
		}
		return true
	})
	return out
}

// WBSCodes numbers the tree in outline form: the root is "1", its children
// "1.1", "1.2", and so on, one segment per level.
func WBSCodes(root *TreeNode) map[string]string {
	codes := make(map[string]string)
	var visit func(n *TreeNode, code string)
	visit = func(n *TreeNode, code string) {
		codes[n.ID] = code
		for i, c := range n.Children {
			visit(c, code+"."+strconv.Itoa(i+1))
		}
	}
	if root != nil {
		visit(root, "1")
	}
	return codes
}
