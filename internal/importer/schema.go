// Package importer reads and writes project trees as JSON, YAML, TOML and
// CSV documents. Decoded documents are raw candidates: callers validate them,
// convert them to a tree and run the rollup pipeline before storing.
package importer

import "strconv"

// CurrentVersion is written into every exported document.
const CurrentVersion = 1

// Document is the interchange form of one project.
type Document struct {
	Version int        `json:"version" yaml:"version" toml:"version"`
	Project ProjectDoc `json:"project" yaml:"project" toml:"project"`
	Root    NodeDoc    `json:"root" yaml:"root" toml:"root"`
}

// ProjectDoc carries project metadata. Name falls back to the root name.
type ProjectDoc struct {
	ShortID  string `json:"short_id,omitempty" yaml:"short_id,omitempty" toml:"short_id,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty" toml:"currency,omitempty"`
}

// NodeDoc is one node with its subtree. Start and End are the user-set
// dates; EffectiveStart, EffectiveEnd and TotalCost are written on export for
// readers of the file and ignored on import, where they are recomputed.
// Dependencies may name node ids or WBS codes.
type NodeDoc struct {
	ID             string    `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Code           string    `json:"code,omitempty" yaml:"code,omitempty" toml:"code,omitempty"`
	Name           string    `json:"name" yaml:"name" toml:"name"`
	Level          int       `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty"`
	Cost           float64   `json:"cost,omitempty" yaml:"cost,omitempty" toml:"cost,omitempty"`
	TotalCost      float64   `json:"total_cost,omitempty" yaml:"total_cost,omitempty" toml:"total_cost,omitempty"`
	Start          string    `json:"start,omitempty" yaml:"start,omitempty" toml:"start,omitempty"`
	End            string    `json:"end,omitempty" yaml:"end,omitempty" toml:"end,omitempty"`
	EffectiveStart string    `json:"effective_start,omitempty" yaml:"effective_start,omitempty" toml:"effective_start,omitempty"`
	EffectiveEnd   string    `json:"effective_end,omitempty" yaml:"effective_end,omitempty" toml:"effective_end,omitempty"`
	DurationDays   *int      `json:"duration_days,omitempty" yaml:"duration_days,omitempty" toml:"duration_days,omitempty"`
	Status         string    `json:"status,omitempty" yaml:"status,omitempty" toml:"status,omitempty"`
	Responsible    string    `json:"responsible,omitempty" yaml:"responsible,omitempty" toml:"responsible,omitempty"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Dependencies   []string  `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	TRL            *int      `json:"trl,omitempty" yaml:"trl,omitempty" toml:"trl,omitempty"`
	Children       []NodeDoc `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

// walkDocs visits doc and its descendants in pre-order with their depth
// (root = 1) and outline code.
func walkDocs(doc *NodeDoc, fn func(n *NodeDoc, depth int, code string)) {
	var visit func(n *NodeDoc, depth int, code string)
	visit = func(n *NodeDoc, depth int, code string) {
		fn(n, depth, code)
		for i := range n.Children {
			visit(&n.Children[i], depth+1, code+"."+strconv.Itoa(i+1))
		}
	}
	visit(doc, 1, "1")
}
