package schema

// ReviewFlag marks an expression whose automatic conversion may be wrong and
// needs human inspection. Path is the dotted/indexed location of the leaf in
// its parameter tree (e.g. "options.headers[2].value").
type ReviewFlag struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// NodeStatus summarizes how completely a single node/module was converted.
type NodeStatus string

const (
	NodeStatusFull        NodeStatus = "full"
	NodeStatusPartial     NodeStatus = "partial"
	NodeStatusUnsupported NodeStatus = "unsupported"
)

// NodeReport is the per-node outcome of a conversion pass.
type NodeReport struct {
	Node       string       `json:"node"`
	SourceType string       `json:"source_type"`
	TargetType string       `json:"target_type,omitempty"`
	Status     NodeStatus   `json:"status"`
	Flags      []ReviewFlag `json:"flags,omitempty"`
	Notes      []string     `json:"notes,omitempty"`
}

// ConversionReport aggregates the outcome of converting one workflow.
type ConversionReport struct {
	Direction Direction    `json:"direction"`
	Nodes     []NodeReport `json:"nodes"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// FlagCount returns the total number of review flags across all nodes.
func (r *ConversionReport) FlagCount() int {
	n := 0
	for i := range r.Nodes {
		n += len(r.Nodes[i].Flags)
	}
	return n
}

// NeedsReview reports whether any node carries flags or was not fully
// converted.
func (r *ConversionReport) NeedsReview() bool {
	for i := range r.Nodes {
		if len(r.Nodes[i].Flags) > 0 || r.Nodes[i].Status != NodeStatusFull {
			return true
		}
	}
	return false
}
